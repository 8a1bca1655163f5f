// Package config publishes a device's embedded JSON configuration on the
// bus. Every top-level key becomes a retained message on config/<key>, so
// the "porthub" key lands where the hub service listens.
package config

import (
	"context"
	"encoding/json"
	"errors"

	"porthub-go/bus"
)

const configPrefix = "config"

type ctxKey string

// CtxDeviceKey is the context key carrying the device ID.
const CtxDeviceKey ctxKey = "device"

// EmbeddedConfigLookup allows overriding how configs are resolved.
var EmbeddedConfigLookup = func(device string) ([]byte, bool) {
	b, ok := embeddedConfigs[device]
	return b, ok
}

// Logger receives publish failures.
type Logger interface {
	Warnf(format string, args ...any)
}

type Service struct {
	log Logger
}

func NewService(log Logger) *Service {
	return &Service{log: log}
}

// publishConfig reads the device config and publishes it as retained messages.
func (s *Service) publishConfig(ctx context.Context, conn *bus.Connection) error {
	device, _ := ctx.Value(CtxDeviceKey).(string)
	if device == "" {
		return errors.New("config: missing device ID in context")
	}

	raw, ok := EmbeddedConfigLookup(device)
	if !ok || len(raw) == 0 {
		return errors.New("config: no embedded config for device " + device)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return errors.New("config: embedded config is not a JSON object: " + err.Error())
	}

	for k, v := range m {
		conn.Publish(conn.NewMessage(bus.T(configPrefix, k), v, true))
	}
	return nil
}

// Start launches the publisher in a goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go func() {
		if err := s.publishConfig(ctx, conn); err != nil && s.log != nil {
			s.log.Warnf("%v", err)
		}
	}()
}
