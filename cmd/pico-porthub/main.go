//go:build rp2040 || rp2350

package main

import (
	"context"
	"fmt"
	"machine"
	"runtime"
	"time"

	"porthub-go/bus"
	"porthub-go/drivers/porthub"
	"porthub-go/services/config"
	"porthub-go/services/hub"
	"porthub-go/types"
)

// printLogger writes through the builtin println so output reaches the
// USB/UART console without a log package.
type printLogger struct{ debug bool }

func (l printLogger) Debugf(format string, args ...any) {
	if l.debug {
		println("[debug]", fmt.Sprintf(format, args...))
	}
}

func (l printLogger) Warnf(format string, args ...any) {
	println("[warn]", fmt.Sprintf(format, args...))
}

func printTopicWith(prefix string, t bus.Topic) {
	print(prefix)
	print(" ")
	for i := 0; i < t.Len(); i++ {
		if i > 0 {
			print("/")
		}
		switch v := t.At(i).(type) {
		case string:
			print(v)
		case int:
			print(v)
		default:
			print("?")
		}
	}
	println()
}

func main() {
	time.Sleep(3 * time.Second)
	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico")

	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{
		Frequency: 100 * machine.KHz,
		SDA:       machine.I2C0_SDA_PIN,
		SCL:       machine.I2C0_SCL_PIN,
	}); err != nil {
		println("[main] i2c configure:", err.Error())
	}
	log := printLogger{debug: true}
	dev := porthub.New(i2c, porthub.Config{Logger: log})

	println("[main] bootstrapping bus …")
	b := bus.NewBus(4)
	ui := b.NewConnection("ui")

	mon := ui.Subscribe(bus.T("hal", "porthub", bus.MultiWild))
	go func() {
		for m := range mon.Channel() {
			printTopicWith("[monitor] <-", m.Topic)
		}
	}()

	println("[main] starting porthub service …")
	hub.New(dev).Start(ctx, b.NewConnection("porthub"))
	config.NewService(log).Start(ctx, b.NewConnection("config"))

	time.Sleep(250 * time.Millisecond)

	// Walk a single lit pixel along the strip.
	var i uint16
	for {
		ui.RequestWait(ctx, ui.NewMessage(hub.CtrlTopic("strip", hub.MethodFill), types.LEDFill{Count: 10}, false))
		if reply, err := ui.RequestWait(ctx, ui.NewMessage(
			hub.CtrlTopic("strip", hub.MethodPixel),
			types.LEDPixel{Index: i, R: 0, G: 64, B: 32},
			false,
		)); err != nil {
			println("[main] pixel error:", err.Error())
		} else if r := reply.Payload.(types.Reply); !r.OK {
			println("[main] pixel:", r.Error)
		}
		i = (i + 1) % 10
		printMem()
		time.Sleep(500 * time.Millisecond)
	}
}

func printMem() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	println(
		"[mem]",
		"alloc:", uint32(ms.Alloc),
		"heapInuse:", uint32(ms.HeapInuse),
		"mallocs:", uint32(ms.Mallocs),
		"frees:", uint32(ms.Frees),
	)
}
