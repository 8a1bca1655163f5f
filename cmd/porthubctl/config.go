package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"porthub-go/bus"
	"porthub-go/types"
	"porthub-go/x/mathx"
)

// fileConfig is the on-disk layout:
//
//	debug: true
//	porthub:
//	  address: 0x61
//	  poll_ms: 200
//	  ports:
//	    - {name: button, mode: digital_in, channel: B, reg: 0x40}
type fileConfig struct {
	Debug bool
	Hub   types.HubConfig
}

func loadConfig(path string) (fileConfig, error) {
	var fc fileConfig
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fc, errors.Wrapf(err, "read config %s", path)
	}
	if err := v.UnmarshalKey("porthub", &fc.Hub); err != nil {
		return fc, errors.Wrap(err, "decode porthub section")
	}
	fc.Debug = v.GetBool("debug")
	return fc, nil
}

func toU8(name string, v int) (uint8, error) {
	if v < 0 || v > 0xFF {
		return 0, errors.Errorf("--%s: %d out of range 0..255", name, v)
	}
	return uint8(v), nil
}

func toU16(name string, v int) (uint16, error) {
	if v < 0 || v > 0xFFFF {
		return 0, errors.Errorf("--%s: %d out of range 0..65535", name, v)
	}
	return uint16(v), nil
}

// rgb clamps colour flags to the device's component ranges.
func rgb(r, g, b int) (uint8, int8, uint8) {
	return uint8(mathx.Clamp(r, 0, 255)), int8(mathx.Clamp(g, -128, 127)), uint8(mathx.Clamp(b, 0, 255))
}

func topicString(t bus.Topic) string {
	parts := make([]string, t.Len())
	for i := range parts {
		parts[i] = fmt.Sprint(t.At(i))
	}
	return strings.Join(parts, "/")
}
