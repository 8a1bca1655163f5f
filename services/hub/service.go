// Package hub exposes the ports of one hub on the bus.
//
// Topics:
//
//	config/porthub                     retained types.HubConfig (input)
//	hal/porthub/state                  retained types.HubState
//	hal/porthub/<port>/info            retained types.Info{Detail: types.PortInfo}
//	hal/porthub/<port>/value           retained DigitalValue / AnalogValue / LEDState
//	hal/porthub/<port>/status          retained types.CapabilityStatus
//	hal/porthub/<port>/ctrl/<method>   request; reply types.Reply
//
// The service goroutine is the only user of the device, which keeps the
// driver's unlocked scratch buffers safe.
package hub

import (
	"context"

	"porthub-go/bus"
	"porthub-go/drivers/porthub"
	"porthub-go/errcode"
	"porthub-go/types"
	"porthub-go/x/mathx"
	"porthub-go/x/timex"
)

const pollQueueLen = 8

// Control methods.
const (
	MethodRead       = "read"
	MethodSet        = "set"
	MethodLength     = "length"
	MethodBrightness = "brightness"
	MethodPixel      = "pixel"
	MethodFill       = "fill"
)

type Service struct {
	dev  *porthub.Device
	log  porthub.Logger
	conn *bus.Connection

	ports map[string]*port
	order []*port
	ready bool

	polls  chan PollReq
	poller *Poller
}

// New builds a service around dev. Diagnostics go to the device's logger.
func New(dev *porthub.Device) *Service {
	polls := make(chan PollReq, pollQueueLen)
	return &Service{
		dev:    dev,
		log:    dev.Logger(),
		ports:  map[string]*port{},
		polls:  polls,
		poller: NewPoller(polls),
	}
}

// Start launches Run in a goroutine.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	go s.Run(ctx, conn)
}

// Run serves until ctx is cancelled. Controls are rejected until a
// configuration has been applied.
func (s *Service) Run(ctx context.Context, conn *bus.Connection) {
	s.conn = conn
	cfgSub := conn.Subscribe(ConfigTopic())
	ctrlSub := conn.Subscribe(ctrlWildcard())
	defer conn.Unsubscribe(cfgSub)
	defer conn.Unsubscribe(ctrlSub)

	go s.poller.Run(ctx)

	s.dev.Configure()
	s.pubState("idle", "")
	for {
		select {
		case <-ctx.Done():
			s.pubState("stopped", "context_cancelled")
			return
		case msg := <-cfgSub.Channel():
			if msg.Payload == nil {
				// Retained config cleared; keep serving the current table.
				s.log.Debugf("porthub: config cleared, keeping %d ports", len(s.order))
				continue
			}
			cfg, code := As[types.HubConfig](msg.Payload)
			if code != "" {
				s.log.Warnf("porthub: config rejected: %s", code)
				s.pubState("error", string(code))
				continue
			}
			if err := s.applyConfig(cfg); err != nil {
				s.log.Warnf("porthub: config rejected: %v", err)
				s.pubState("error", string(errcode.Of(err)))
				continue
			}
			s.ready = true
			s.pubState("ready", "")
		case m := <-ctrlSub.Channel():
			if !s.ready {
				s.replyErr(m, errcode.HubNotReady)
				continue
			}
			s.handleControl(m)
		case req := <-s.polls:
			if p := s.ports[req.Port]; p != nil {
				s.sample(p)
			}
		}
	}
}

// ---- configuration ----

func (s *Service) applyConfig(cfg types.HubConfig) error {
	if cfg.Address != 0 && cfg.Address != s.dev.Address() {
		return invalid("config address does not match the bound hub")
	}
	ports, order, err := buildPorts(cfg)
	if err != nil {
		return err
	}

	// Retire ports that disappeared; their retained topics are cleared.
	for name := range s.ports {
		s.poller.Stop(name)
		if _, keep := ports[name]; !keep {
			for _, t := range []bus.Topic{InfoTopic(name), ValueTopic(name), StatusTopic(name)} {
				s.conn.Publish(s.conn.NewMessage(t, nil, true))
			}
		}
	}

	s.ports, s.order = ports, order
	for _, p := range order {
		s.initPort(p, cfg)
	}
	return nil
}

func (s *Service) initPort(p *port, cfg types.HubConfig) {
	s.conn.Publish(s.conn.NewMessage(InfoTopic(p.name()), p.info(s.dev.Address()), true))
	s.conn.Publish(s.conn.NewMessage(
		StatusTopic(p.name()),
		types.CapabilityStatus{Link: types.LinkDown, TSms: timex.NowMs()},
		true,
	))

	switch p.cfg.Mode {
	case types.ModeDigitalIn, types.ModeAnalogIn:
		s.poller.Upsert(p.name(), p.every, timex.Ms(cfg.JitterMs, 0))
	case types.ModeDigitalOut, types.ModePWMOut:
		s.setLevel(p, p.cfg.Initial)
	case types.ModeLED:
		// The configured strip bounds controls even if the writes below fail.
		led := p.cfg.LED
		p.led = types.LEDState{Length: led.Length, Brightness: led.Brightness}
		p.value = p.led
		err := s.dev.SetLEDLength(led.LengthReg, led.Length)
		if err == nil {
			err = s.dev.SetLEDBrightness(led.BrightnessReg, led.Brightness)
		}
		if err != nil {
			s.fail(p, err)
			return
		}
		s.publish(p, p.led)
	}
}

// ---- sampling ----

func (s *Service) sample(p *port) (any, error) {
	var (
		v   any
		err error
	)
	switch p.cfg.Mode {
	case types.ModeDigitalIn:
		var b uint8
		b, err = s.dev.ReadDigital(p.ch, p.cfg.Reg)
		v = types.DigitalValue{Level: uint16(b)}
	case types.ModeAnalogIn:
		var a uint16
		a, err = s.dev.ReadAnalog(p.cfg.Reg)
		v = types.AnalogValue{Value: a}
	default:
		return p.value, nil
	}
	if err != nil {
		s.fail(p, err)
		return nil, err
	}
	s.publish(p, v)
	return v, nil
}

// ---- controls ----

func (s *Service) handleControl(msg *bus.Message) {
	// hal/porthub/<port>/ctrl/<method>
	if msg.Topic.Len() != 5 {
		s.replyErr(msg, errcode.InvalidTopic)
		return
	}
	name, _ := msg.Topic.At(2).(string)
	method, _ := msg.Topic.At(4).(string)

	p := s.ports[name]
	if p == nil {
		s.replyErr(msg, errcode.UnknownPort)
		return
	}
	v, err := s.control(p, method, msg.Payload)
	if err != nil {
		s.replyErr(msg, errcode.Of(err))
		return
	}
	if msg.CanReply() {
		s.conn.Reply(msg, types.Reply{OK: true, Value: v}, false)
	}
}

func (s *Service) control(p *port, method string, payload any) (any, error) {
	mode := p.cfg.Mode
	switch method {
	case MethodRead:
		return s.sample(p)

	case MethodSet:
		if mode != types.ModeDigitalOut && mode != types.ModePWMOut {
			return nil, errcode.Unsupported
		}
		req, code := As[types.LevelSet](payload)
		if code != "" {
			return nil, code
		}
		return s.setLevel(p, req.Level)
	}

	if mode != types.ModeLED {
		return nil, errcode.Unsupported
	}
	led := p.cfg.LED

	switch method {
	case MethodLength:
		req, code := As[types.LEDLength](payload)
		if code != "" {
			return nil, code
		}
		if req.Length == 0 {
			return nil, errcode.InvalidParams
		}
		if err := s.dev.SetLEDLength(led.LengthReg, req.Length); err != nil {
			s.fail(p, err)
			return nil, err
		}
		p.led.Length = req.Length

	case MethodBrightness:
		req, code := As[types.LEDBrightness](payload)
		if code != "" {
			return nil, code
		}
		if err := s.dev.SetLEDBrightness(led.BrightnessReg, req.Brightness); err != nil {
			s.fail(p, err)
			return nil, err
		}
		p.led.Brightness = req.Brightness

	case MethodPixel:
		req, code := As[types.LEDPixel](payload)
		if code != "" {
			return nil, code
		}
		if req.Index >= p.led.Length {
			return nil, errcode.InvalidParams
		}
		if err := s.dev.SetLEDColor(led.ColorReg, req.Index, req.R, req.G, req.B); err != nil {
			s.fail(p, err)
			return nil, err
		}

	case MethodFill:
		req, code := As[types.LEDFill](payload)
		if code != "" {
			return nil, code
		}
		if req.First >= p.led.Length {
			return nil, errcode.InvalidParams
		}
		// Trim the run to the end of the strip.
		count := mathx.Min(req.Count, p.led.Length-req.First)
		if err := s.dev.FillLEDColor(led.FillReg, req.First, count, req.R, req.G, req.B); err != nil {
			s.fail(p, err)
			return nil, err
		}

	default:
		return nil, errcode.Unsupported
	}

	s.publish(p, p.led)
	return p.led, nil
}

func (s *Service) setLevel(p *port, level uint16) (any, error) {
	var (
		v   any
		err error
	)
	switch p.cfg.Mode {
	case types.ModeDigitalOut:
		err = s.dev.WriteDigital(p.ch, p.cfg.Reg, level)
		v = types.DigitalValue{Level: level}
	case types.ModePWMOut:
		err = s.dev.WriteAnalog(p.ch, p.cfg.Reg, level)
		v = types.AnalogValue{Value: level}
	default:
		return nil, errcode.Unsupported
	}
	if err != nil {
		s.fail(p, err)
		return nil, err
	}
	s.publish(p, v)
	return v, nil
}

// ---- publication ----

// publish records v as the port's value and marks the port up.
func (s *Service) publish(p *port, v any) {
	p.value = v
	s.conn.Publish(s.conn.NewMessage(ValueTopic(p.name()), v, true))
	if p.link != types.LinkUp {
		p.link, p.code = types.LinkUp, ""
		s.conn.Publish(s.conn.NewMessage(
			StatusTopic(p.name()),
			types.CapabilityStatus{Link: types.LinkUp, TSms: timex.NowMs()},
			true,
		))
	}
}

// fail marks the port degraded. Status and the warning are emitted on
// transitions only, so a hub that stays unreachable does not flood the log.
func (s *Service) fail(p *port, err error) {
	code := errcode.Of(err)
	if p.link == types.LinkDegraded && p.code == code {
		return
	}
	p.link, p.code = types.LinkDegraded, code
	s.log.Warnf("porthub: port %s degraded: %v", p.name(), err)
	s.conn.Publish(s.conn.NewMessage(
		StatusTopic(p.name()),
		types.CapabilityStatus{Link: types.LinkDegraded, TSms: timex.NowMs(), Error: string(code)},
		true,
	))
}

func (s *Service) replyErr(m *bus.Message, code errcode.Code) {
	if !m.CanReply() {
		return
	}
	if code == "" {
		code = errcode.Error
	}
	s.conn.Reply(m, types.Reply{OK: false, Error: string(code)}, false)
}

func (s *Service) pubState(level, status string) {
	s.conn.Publish(s.conn.NewMessage(
		StateTopic(),
		types.HubState{Level: level, Status: status, TSms: timex.NowMs()},
		true,
	))
}
