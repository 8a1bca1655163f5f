package hub

import (
	"time"

	"porthub-go/bus"
	"porthub-go/drivers/porthub"
	"porthub-go/errcode"
	"porthub-go/types"
	"porthub-go/x/strx"
	"porthub-go/x/timex"
)

// DefaultPoll applies to input ports when neither the port nor the hub
// configuration sets an interval.
const DefaultPoll = time.Second

type port struct {
	cfg   types.PortConfig
	ch    porthub.Channel
	every time.Duration

	link  types.Link
	code  errcode.Code
	value any // last published value
	led   types.LEDState
}

func (p *port) name() string { return p.cfg.Name }

func (p *port) info(addr uint16) types.Info {
	d := types.PortInfo{
		Address: addr,
		Mode:    p.cfg.Mode,
		Reg:     p.cfg.Reg,
	}
	switch p.cfg.Mode {
	case types.ModeLED:
		d.Length = p.cfg.LED.Length
	default:
		d.Channel = p.ch.String()
	}
	return types.Info{SchemaVersion: 1, Driver: "porthub", Detail: d}
}

// buildPorts validates cfg and returns the port table in configuration order.
func buildPorts(cfg types.HubConfig) (map[string]*port, []*port, error) {
	byName := make(map[string]*port, len(cfg.Ports))
	order := make([]*port, 0, len(cfg.Ports))
	hubEvery := timex.Ms(cfg.PollMs, DefaultPoll)

	for _, pc := range cfg.Ports {
		switch pc.Name {
		case "", bus.SingleWild, bus.MultiWild, "state":
			return nil, nil, invalid("invalid port name " + quote(pc.Name))
		}
		if _, dup := byName[pc.Name]; dup {
			return nil, nil, invalid("duplicate port " + quote(pc.Name))
		}
		if !pc.Mode.Valid() {
			return nil, nil, invalid("port " + quote(pc.Name) + ": unknown mode " + quote(string(pc.Mode)))
		}
		ch, err := porthub.ParseChannel(strx.Coalesce(pc.Channel, "A"))
		if err != nil {
			return nil, nil, errcode.Wrap(errcode.InvalidChannel, "config", "port "+quote(pc.Name)+": channel "+quote(pc.Channel), err)
		}
		if pc.Mode == types.ModeLED && (pc.LED == nil || pc.LED.Length == 0) {
			return nil, nil, invalid("port " + quote(pc.Name) + ": led mode needs a strip length")
		}

		p := &port{cfg: pc, ch: ch, link: types.LinkDown}
		if pc.Mode.Input() {
			p.every = timex.Ms(pc.PollMs, hubEvery)
		}
		byName[pc.Name] = p
		order = append(order, p)
	}
	return byName, order, nil
}

func invalid(msg string) error {
	return errcode.Wrap(errcode.InvalidParams, "config", msg, nil)
}

func quote(s string) string { return `"` + s + `"` }
