package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"tinygo.org/x/drivers"

	"porthub-go/bus"
	"porthub-go/drivers/porthub"
	"porthub-go/services/hub"
	"porthub-go/x/ramp"
)

type hubBus interface {
	drivers.I2C
	Close() error
}

func main() {
	app := cli.NewApp()

	app.Name = "porthubctl"
	app.Usage = "drive a PortHub expander over Linux i2c-dev"
	app.Version = "0.1.0"

	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "bus, b",
			Value: 1,
			Usage: "i2c adapter `N` (/dev/i2c-N)",
		},
		cli.IntFlag{
			Name:  "addr, a",
			Value: porthub.AddressDefault,
			Usage: "hub 7-bit address",
		},
		cli.StringFlag{
			Name:  "config, c",
			Value: "./configs/porthub.yaml",
			Usage: "load hub configuration from `FILE` (serve)",
		},
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging",
		},
	}
	app.Before = func(c *cli.Context) error {
		log.SetFormatter(&log.TextFormatter{DisableColors: true})
		if c.GlobalBool("debug") {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	}

	reg := cli.IntFlag{Name: "reg, r", Usage: "base register"}
	ch := cli.StringFlag{Name: "ch", Value: "A", Usage: "channel A or B"}
	value := cli.IntFlag{Name: "value, v", Usage: "value to write"}
	colour := []cli.Flag{
		cli.IntFlag{Name: "red", Usage: "red 0..255"},
		cli.IntFlag{Name: "green", Usage: "green -128..127"},
		cli.IntFlag{Name: "blue", Usage: "blue 0..255"},
	}

	app.Commands = []cli.Command{
		{
			Name:   "read-analog",
			Usage:  "read a 16-bit analog value",
			Flags:  []cli.Flag{reg},
			Action: withDevice(readAnalog),
		},
		{
			Name:   "read-digital",
			Usage:  "read a digital level",
			Flags:  []cli.Flag{reg, ch},
			Action: withDevice(readDigital),
		},
		{
			Name:   "write-digital",
			Usage:  "write a 16-bit digital level",
			Flags:  []cli.Flag{reg, ch, value},
			Action: withDevice(writeLevel(false)),
		},
		{
			Name:   "write-analog",
			Usage:  "write a 16-bit analog/PWM duty",
			Flags:  []cli.Flag{reg, ch, value},
			Action: withDevice(writeLevel(true)),
		},
		{
			Name:   "led-length",
			Usage:  "set the LED strip length",
			Flags:  []cli.Flag{reg, value},
			Action: withDevice(ledLength),
		},
		{
			Name:   "led-pixel",
			Usage:  "set one LED colour",
			Flags:  append([]cli.Flag{reg, cli.IntFlag{Name: "index, i", Usage: "pixel index"}}, colour...),
			Action: withDevice(ledPixel),
		},
		{
			Name:  "led-fill",
			Usage: "fill a run of LEDs with one colour",
			Flags: append([]cli.Flag{
				reg,
				cli.IntFlag{Name: "first", Usage: "first pixel"},
				cli.IntFlag{Name: "count", Usage: "pixel count"},
			}, colour...),
			Action: withDevice(ledFill),
		},
		{
			Name:   "led-brightness",
			Usage:  "set the LED strip brightness",
			Flags:  []cli.Flag{reg, value},
			Action: withDevice(ledBrightness),
		},
		{
			Name:  "fade",
			Usage: "ramp a PWM duty from --from to --to",
			Flags: []cli.Flag{
				reg, ch,
				cli.IntFlag{Name: "from", Usage: "start duty"},
				cli.IntFlag{Name: "to", Usage: "end duty"},
				cli.DurationFlag{Name: "over", Value: time.Second, Usage: "ramp duration"},
				cli.IntFlag{Name: "steps", Value: 20, Usage: "number of writes"},
			},
			Action: withDevice(fade),
		},
		{
			Name:   "serve",
			Usage:  "run the hub service from --config and log its bus traffic",
			Action: serve,
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type deviceAction func(c *cli.Context, d *porthub.Device) error

// withDevice opens the adapter named by the global flags, binds the hub
// and closes the adapter when the action returns.
func withDevice(fn deviceAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		addr, err := toU16("addr", c.GlobalInt("addr"))
		if err != nil {
			return err
		}
		b, err := openBus(c.GlobalInt("bus"))
		if err != nil {
			return err
		}
		defer b.Close()

		d := porthub.New(b, porthub.Config{Address: addr, Logger: log.StandardLogger()})
		d.Configure()
		return fn(c, d)
	}
}

func readAnalog(c *cli.Context, d *porthub.Device) error {
	reg, err := toU8("reg", c.Int("reg"))
	if err != nil {
		return err
	}
	v, err := d.ReadAnalog(reg)
	if err != nil {
		return err
	}
	log.Infof("analog 0x%02X = %d (0x%04X)", reg, v, v)
	return nil
}

func readDigital(c *cli.Context, d *porthub.Device) error {
	reg, err := toU8("reg", c.Int("reg"))
	if err != nil {
		return err
	}
	ch, err := porthub.ParseChannel(c.String("ch"))
	if err != nil {
		return errors.Wrapf(err, "--ch %q", c.String("ch"))
	}
	v, err := d.ReadDigital(ch, reg)
	if err != nil {
		return err
	}
	log.Infof("digital %s 0x%02X = %d", ch, reg, v)
	return nil
}

func writeLevel(analog bool) deviceAction {
	return func(c *cli.Context, d *porthub.Device) error {
		reg, err := toU8("reg", c.Int("reg"))
		if err != nil {
			return err
		}
		v, err := toU16("value", c.Int("value"))
		if err != nil {
			return err
		}
		ch, err := porthub.ParseChannel(c.String("ch"))
		if err != nil {
			return errors.Wrapf(err, "--ch %q", c.String("ch"))
		}
		if analog {
			return d.WriteAnalog(ch, reg, v)
		}
		return d.WriteDigital(ch, reg, v)
	}
}

func ledLength(c *cli.Context, d *porthub.Device) error {
	reg, err := toU8("reg", c.Int("reg"))
	if err != nil {
		return err
	}
	n, err := toU16("value", c.Int("value"))
	if err != nil {
		return err
	}
	return d.SetLEDLength(reg, n)
}

func ledPixel(c *cli.Context, d *porthub.Device) error {
	reg, err := toU8("reg", c.Int("reg"))
	if err != nil {
		return err
	}
	idx, err := toU16("index", c.Int("index"))
	if err != nil {
		return err
	}
	r, g, b := rgb(c.Int("red"), c.Int("green"), c.Int("blue"))
	return d.SetLEDColor(reg, idx, r, g, b)
}

func ledFill(c *cli.Context, d *porthub.Device) error {
	reg, err := toU8("reg", c.Int("reg"))
	if err != nil {
		return err
	}
	first, err := toU16("first", c.Int("first"))
	if err != nil {
		return err
	}
	count, err := toU16("count", c.Int("count"))
	if err != nil {
		return err
	}
	r, g, b := rgb(c.Int("red"), c.Int("green"), c.Int("blue"))
	return d.FillLEDColor(reg, first, count, r, g, b)
}

func ledBrightness(c *cli.Context, d *porthub.Device) error {
	reg, err := toU8("reg", c.Int("reg"))
	if err != nil {
		return err
	}
	v, err := toU8("value", c.Int("value"))
	if err != nil {
		return err
	}
	return d.SetLEDBrightness(reg, v)
}

func fade(c *cli.Context, d *porthub.Device) error {
	reg, err := toU8("reg", c.Int("reg"))
	if err != nil {
		return err
	}
	ch, err := porthub.ParseChannel(c.String("ch"))
	if err != nil {
		return errors.Wrapf(err, "--ch %q", c.String("ch"))
	}
	from, err := toU16("from", c.Int("from"))
	if err != nil {
		return err
	}
	to, err := toU16("to", c.Int("to"))
	if err != nil {
		return err
	}
	steps, err := toU16("steps", c.Int("steps"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	tick := func(wait time.Duration) bool {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
			return true
		}
	}
	return ramp.Linear(from, to, c.Duration("over"), steps, tick, func(level uint16) error {
		log.Debugf("fade %s 0x%02X -> %d", ch, reg, level)
		return d.WriteAnalog(ch, reg, level)
	})
}

func serve(c *cli.Context) error {
	fc, err := loadConfig(c.GlobalString("config"))
	if err != nil {
		return err
	}
	if fc.Debug {
		log.SetLevel(log.DebugLevel)
	}

	addr := fc.Hub.Address
	if addr == 0 {
		if addr, err = toU16("addr", c.GlobalInt("addr")); err != nil {
			return err
		}
		fc.Hub.Address = addr
	}
	b, err := openBus(c.GlobalInt("bus"))
	if err != nil {
		return err
	}
	defer b.Close()
	dev := porthub.New(b, porthub.Config{Address: addr, Logger: log.StandardLogger()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mb := bus.NewBus(32)
	conn := mb.NewConnection("porthubctl")
	mon := conn.Subscribe(bus.T("hal", "porthub", bus.MultiWild))
	conn.Publish(conn.NewMessage(hub.ConfigTopic(), fc.Hub, true))

	done := make(chan struct{})
	go func() {
		hub.New(dev).Run(ctx, mb.NewConnection("porthub"))
		close(done)
	}()

	log.WithField("ports", len(fc.Hub.Ports)).Infof("porthub: serving hub 0x%02X on i2c-%d", addr, c.GlobalInt("bus"))
	for {
		select {
		case <-done:
			return nil
		case m := <-mon.Channel():
			log.WithField("topic", topicString(m.Topic)).Debugf("%+v", m.Payload)
		}
	}
}
