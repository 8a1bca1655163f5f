package hub

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"porthub-go/bus"
	"porthub-go/drivers/porthub"
	"porthub-go/drivers/porthub/porthubtest"
	"porthub-go/services/config"
	"porthub-go/types"
)

const testTimeout = time.Second

type harness struct {
	fake   *porthubtest.Bus
	log    *porthubtest.Logger
	cli    *bus.Connection
	state  *bus.Subscription
	cancel context.CancelFunc
}

// startHub runs a service against an in-memory hub. A nil cfg leaves the
// service unconfigured.
func startHub(t *testing.T, cfg any, prep func(*porthubtest.Bus)) *harness {
	t.Helper()
	fake := porthubtest.NewBus()
	if prep != nil {
		prep(fake)
	}
	log := &porthubtest.Logger{}
	dev := porthub.New(fake, porthub.Config{Logger: log})

	b := bus.NewBus(16)
	cli := b.NewConnection("test")
	h := &harness{fake: fake, log: log, cli: cli, state: cli.Subscribe(StateTopic())}
	if cfg != nil {
		cli.Publish(cli.NewMessage(ConfigTopic(), cfg, true))
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	t.Cleanup(cancel)
	New(dev).Start(ctx, b.NewConnection("porthub"))
	return h
}

func (h *harness) waitState(t *testing.T, level string) types.HubState {
	t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case m := <-h.state.Channel():
			st := m.Payload.(types.HubState)
			if st.Level == level {
				return st
			}
		case <-deadline:
			t.Fatalf("timeout waiting for state %q", level)
		}
	}
}

func (h *harness) call(t *testing.T, port, method string, payload any) types.Reply {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()
	m, err := h.cli.RequestWait(ctx, h.cli.NewMessage(CtrlTopic(port, method), payload, false))
	if err != nil {
		t.Fatalf("%s/%s: %v", port, method, err)
	}
	return m.Payload.(types.Reply)
}

func (h *harness) ok(t *testing.T, port, method string, payload any) any {
	t.Helper()
	r := h.call(t, port, method, payload)
	if !r.OK {
		t.Fatalf("%s/%s failed: %s", port, method, r.Error)
	}
	return r.Value
}

func (h *harness) lastFrame(t *testing.T, reg uint8, want []byte) {
	t.Helper()
	tx, ok := h.fake.Last()
	if !ok || tx.Reg != reg || !bytes.Equal(tx.Data, want) {
		t.Fatalf("last tx: got %+v want reg 0x%02X data % X", tx, reg, want)
	}
}

func waitFor[T any](t *testing.T, sub *bus.Subscription, pred func(T) bool) T {
	t.Helper()
	deadline := time.After(testTimeout)
	for {
		select {
		case m := <-sub.Channel():
			if v, ok := m.Payload.(T); ok && pred(v) {
				return v
			}
		case <-deadline:
			var zero T
			t.Fatalf("timeout on %v", sub.Topic())
			return zero
		}
	}
}

func TestService_NotReadyBeforeConfig(t *testing.T) {
	h := startHub(t, nil, nil)
	h.waitState(t, "idle")
	if r := h.call(t, "button", MethodRead, nil); r.OK || r.Error != "hub_not_ready" {
		t.Fatalf("reply: %+v", r)
	}
}

func TestService_ReadInputs(t *testing.T) {
	cfg := types.HubConfig{Ports: []types.PortConfig{
		{Name: "button", Mode: types.ModeDigitalIn, Channel: "B", Reg: 0x44, PollMs: 20},
		{Name: "pot", Mode: types.ModeAnalogIn, Reg: 0x06, PollMs: 20},
	}}
	h := startHub(t, cfg, func(f *porthubtest.Bus) {
		f.Set(0x45, 0x01)
		f.Set(0x06, 0x0F, 0xA0)
	})
	h.waitState(t, "ready")

	if v := h.ok(t, "button", MethodRead, nil); v != (types.DigitalValue{Level: 1}) {
		t.Fatalf("button: %#v", v)
	}
	if v := h.ok(t, "pot", MethodRead, nil); v != (types.AnalogValue{Value: 0x0FA0}) {
		t.Fatalf("pot: %#v", v)
	}

	// Polling publishes retained values and brings the port up.
	waitFor(t, h.cli.Subscribe(ValueTopic("pot")), func(v types.AnalogValue) bool { return v.Value == 0x0FA0 })
	waitFor(t, h.cli.Subscribe(StatusTopic("button")), func(s types.CapabilityStatus) bool { return s.Link == types.LinkUp })

	info := waitFor(t, h.cli.Subscribe(InfoTopic("button")), func(types.Info) bool { return true })
	if d := info.Detail.(types.PortInfo); d.Address != porthub.AddressDefault || d.Channel != "B" {
		t.Fatalf("info: %+v", d)
	}
}

func TestService_Outputs(t *testing.T) {
	cfg := types.HubConfig{Ports: []types.PortConfig{
		{Name: "relay", Mode: types.ModeDigitalOut, Channel: "B", Reg: 0x05, Initial: 1},
		{Name: "fan", Mode: types.ModePWMOut, Reg: 0x10},
	}}
	h := startHub(t, cfg, nil)
	h.waitState(t, "ready")

	// Initial level lands on the channel B register.
	if h.fake.Get(0x07) != 0x00 || h.fake.Get(0x08) != 0x01 {
		t.Fatalf("initial level: % X", []byte{h.fake.Get(0x07), h.fake.Get(0x08)})
	}

	if v := h.ok(t, "relay", MethodSet, types.LevelSet{Level: 0x1234}); v != (types.DigitalValue{Level: 0x1234}) {
		t.Fatalf("relay reply: %#v", v)
	}
	h.lastFrame(t, 0x07, []byte{0x12, 0x34})

	if v := h.ok(t, "fan", MethodSet, `{"level":300}`); v != (types.AnalogValue{Value: 300}) {
		t.Fatalf("fan reply: %#v", v)
	}
	h.lastFrame(t, 0x10, []byte{0x01, 0x2C})

	// Outputs read back the last value without touching the bus.
	n := len(h.fake.Txs())
	if v := h.ok(t, "fan", MethodRead, nil); v != (types.AnalogValue{Value: 300}) {
		t.Fatalf("fan read: %#v", v)
	}
	if len(h.fake.Txs()) != n {
		t.Fatal("read of an output port hit the bus")
	}
}

func TestService_LEDStrip(t *testing.T) {
	cfg := types.HubConfig{Ports: []types.PortConfig{{
		Name: "strip",
		Mode: types.ModeLED,
		LED: &types.LEDPort{
			LengthReg: 0x48, ColorReg: 0x49, FillReg: 0x4A, BrightnessReg: 0x4B,
			Length: 10, Brightness: 40,
		},
	}}}
	h := startHub(t, cfg, nil)
	h.waitState(t, "ready")

	txs := h.fake.Txs()
	if len(txs) != 2 ||
		txs[0].Reg != 0x48 || !bytes.Equal(txs[0].Data, []byte{0x00, 0x0A}) ||
		txs[1].Reg != 0x4B || !bytes.Equal(txs[1].Data, []byte{40}) {
		t.Fatalf("strip init: %+v", txs)
	}

	h.ok(t, "strip", MethodPixel, types.LEDPixel{Index: 3, R: 255, G: -1})
	h.lastFrame(t, 0x49, []byte{0x00, 0x03, 0xFF, 0xFF, 0x00})

	// A run past the end is trimmed to the strip.
	h.ok(t, "strip", MethodFill, types.LEDFill{First: 8, Count: 5, R: 1, G: 2, B: 3})
	h.lastFrame(t, 0x4A, []byte{0x00, 0x08, 0x00, 0x02, 0x01, 0x02, 0x03})

	for _, c := range []struct {
		method  string
		payload any
	}{
		{MethodPixel, types.LEDPixel{Index: 10}},
		{MethodFill, types.LEDFill{First: 10, Count: 1}},
		{MethodLength, types.LEDLength{Length: 0}},
	} {
		if r := h.call(t, "strip", c.method, c.payload); r.OK || r.Error != "invalid_params" {
			t.Fatalf("%s %+v: %+v", c.method, c.payload, r)
		}
	}

	h.ok(t, "strip", MethodLength, types.LEDLength{Length: 20})
	h.lastFrame(t, 0x48, []byte{0x00, 0x14})
	h.ok(t, "strip", MethodPixel, map[string]any{"index": 15, "r": 1, "g": 1, "b": 1})

	v := h.ok(t, "strip", MethodBrightness, types.LEDBrightness{Brightness: 100})
	if v != (types.LEDState{Length: 20, Brightness: 100}) {
		t.Fatalf("strip state: %#v", v)
	}
	h.lastFrame(t, 0x4B, []byte{100})
}

func TestService_ControlErrors(t *testing.T) {
	cfg := types.HubConfig{Ports: []types.PortConfig{
		{Name: "button", Mode: types.ModeDigitalIn, Reg: 0x40, PollMs: 1000},
		{Name: "fan", Mode: types.ModePWMOut, Reg: 0x10},
	}}
	h := startHub(t, cfg, nil)
	h.waitState(t, "ready")

	cases := []struct {
		port, method string
		payload      any
		want         string
	}{
		{"nope", MethodRead, nil, "unknown_port"},
		{"button", MethodSet, types.LevelSet{Level: 1}, "unsupported"},
		{"fan", MethodPixel, types.LEDPixel{}, "unsupported"},
		{"fan", "reboot", nil, "unsupported"},
		{"fan", MethodSet, 42, "invalid_payload"},
		{"fan", MethodSet, `{"level":"high"}`, "invalid_payload"},
	}
	for _, c := range cases {
		if r := h.call(t, c.port, c.method, c.payload); r.OK || r.Error != c.want {
			t.Fatalf("%s/%s: got %+v want %q", c.port, c.method, r, c.want)
		}
	}
}

func TestService_TransportFailureDegradesOnce(t *testing.T) {
	cfg := types.HubConfig{Ports: []types.PortConfig{
		{Name: "button", Mode: types.ModeDigitalIn, Reg: 0x40, PollMs: 10},
	}}
	h := startHub(t, cfg, func(f *porthubtest.Bus) { f.FailAll = true })
	h.waitState(t, "ready")

	status := h.cli.Subscribe(StatusTopic("button"))
	st := waitFor(t, status, func(s types.CapabilityStatus) bool { return s.Link == types.LinkDegraded })
	if st.Error != "io_error" {
		t.Fatalf("status error: %q", st.Error)
	}
	if r := h.call(t, "button", MethodRead, nil); r.OK || r.Error != "io_error" {
		t.Fatalf("read reply: %+v", r)
	}

	// Let several more polls fail.
	time.Sleep(60 * time.Millisecond)
	degraded := 0
	for _, w := range h.log.Warnings() {
		if strings.Contains(w, "degraded") {
			degraded++
		}
	}
	if degraded != 1 {
		t.Fatalf("want one degraded warning, got %d: %v", degraded, h.log.Warnings())
	}

	h.fake.ClearFail()
	waitFor(t, status, func(s types.CapabilityStatus) bool { return s.Link == types.LinkUp })
}

func TestService_ConfigRejectedThenAccepted(t *testing.T) {
	bad := `{"ports":[{"name":"x","mode":"digital_in"},{"name":"x","mode":"analog_in"}]}`
	h := startHub(t, bad, nil)
	if st := h.waitState(t, "error"); st.Status != "invalid_params" {
		t.Fatalf("status: %q", st.Status)
	}
	if r := h.call(t, "x", MethodRead, nil); r.Error != "hub_not_ready" {
		t.Fatalf("reply: %+v", r)
	}

	h.cli.Publish(h.cli.NewMessage(ConfigTopic(), types.HubConfig{Address: 0x70}, true))
	h.waitState(t, "error")

	h.cli.Publish(h.cli.NewMessage(ConfigTopic(), "{not json", true))
	if st := h.waitState(t, "error"); st.Status != "invalid_payload" {
		t.Fatalf("undecodable config status: %q", st.Status)
	}

	h.cli.Publish(h.cli.NewMessage(ConfigTopic(), types.HubConfig{
		Ports: []types.PortConfig{{Name: "x", Mode: types.ModeDigitalOut, Reg: 0x40}},
	}, true))
	h.waitState(t, "ready")
	h.ok(t, "x", MethodSet, types.LevelSet{Level: 1})
}

func TestService_ReconfigureClearsRemovedPorts(t *testing.T) {
	two := types.HubConfig{Ports: []types.PortConfig{
		{Name: "a", Mode: types.ModeDigitalOut, Reg: 0x40},
		{Name: "b", Mode: types.ModeDigitalOut, Reg: 0x50},
	}}
	h := startHub(t, two, nil)
	h.waitState(t, "ready")

	h.cli.Publish(h.cli.NewMessage(ConfigTopic(), types.HubConfig{Ports: two.Ports[:1]}, true))
	h.waitState(t, "ready")

	for _, topic := range []bus.Topic{InfoTopic("b"), ValueTopic("b"), StatusTopic("b")} {
		sub := h.cli.Subscribe(topic)
		select {
		case m := <-sub.Channel():
			t.Fatalf("%v still retained: %#v", topic, m.Payload)
		case <-time.After(20 * time.Millisecond):
		}
	}
	if r := h.call(t, "b", MethodSet, types.LevelSet{}); r.Error != "unknown_port" {
		t.Fatalf("removed port: %+v", r)
	}
	h.ok(t, "a", MethodSet, types.LevelSet{Level: 1})
}

func TestService_StopPublishesStopped(t *testing.T) {
	h := startHub(t, types.HubConfig{}, nil)
	h.waitState(t, "ready")
	h.cancel()
	if st := h.waitState(t, "stopped"); st.Status != "context_cancelled" {
		t.Fatalf("status: %q", st.Status)
	}
}

func TestService_EmbeddedConfig(t *testing.T) {
	h := startHub(t, nil, func(f *porthubtest.Bus) { f.Set(0x06, 0x01, 0x00) })
	ctx := context.WithValue(context.Background(), config.CtxDeviceKey, "pico")
	config.NewService(nil).Start(ctx, h.cli)
	h.waitState(t, "ready")

	if v := h.ok(t, "pot", MethodRead, nil); v != (types.AnalogValue{Value: 0x0100}) {
		t.Fatalf("pot: %#v", v)
	}
	v := h.ok(t, "strip", MethodBrightness, types.LEDBrightness{Brightness: 10})
	if v != (types.LEDState{Length: 10, Brightness: 10}) {
		t.Fatalf("strip: %#v", v)
	}
	h.lastFrame(t, 0x4B, []byte{10})
}

func TestService_LEDSetupFailureRecovers(t *testing.T) {
	cfg := types.HubConfig{Ports: []types.PortConfig{{
		Name: "strip",
		Mode: types.ModeLED,
		LED: &types.LEDPort{
			LengthReg: 0x48, ColorReg: 0x49, FillReg: 0x4A, BrightnessReg: 0x4B,
			Length: 10, Brightness: 40,
		},
	}}}
	h := startHub(t, cfg, func(f *porthubtest.Bus) { f.FailAll = true })
	h.waitState(t, "ready")

	status := h.cli.Subscribe(StatusTopic("strip"))
	waitFor(t, status, func(s types.CapabilityStatus) bool { return s.Link == types.LinkDegraded })

	h.fake.ClearFail()

	// The configured length still bounds the controls.
	h.ok(t, "strip", MethodPixel, types.LEDPixel{Index: 3, R: 1})
	h.lastFrame(t, 0x49, []byte{0x00, 0x03, 0x01, 0x00, 0x00})
	h.ok(t, "strip", MethodFill, types.LEDFill{Count: 10})
	h.lastFrame(t, 0x4A, []byte{0x00, 0x00, 0x00, 0x0A, 0x00, 0x00, 0x00})
	if r := h.call(t, "strip", MethodPixel, types.LEDPixel{Index: 10}); r.Error != "invalid_params" {
		t.Fatalf("pixel past the strip: %+v", r)
	}

	if v := h.ok(t, "strip", MethodRead, nil); v != (types.LEDState{Length: 10, Brightness: 40}) {
		t.Fatalf("read: %#v", v)
	}
	waitFor(t, status, func(s types.CapabilityStatus) bool { return s.Link == types.LinkUp })
}

func TestService_ConfigClearedKeepsPorts(t *testing.T) {
	cfg := types.HubConfig{Ports: []types.PortConfig{
		{Name: "pot", Mode: types.ModeAnalogIn, Reg: 0x06, PollMs: 1000},
	}}
	h := startHub(t, cfg, func(f *porthubtest.Bus) { f.Set(0x06, 0x00, 0x2A) })
	h.waitState(t, "ready")

	h.cli.Publish(h.cli.NewMessage(ConfigTopic(), nil, true))
	deadline := time.Now().Add(testTimeout)
	for !logged(h.log.Debugs(), "config cleared") {
		if time.Now().After(deadline) {
			t.Fatalf("clear not handled: %v", h.log.Debugs())
		}
		time.Sleep(5 * time.Millisecond)
	}

	if v := h.ok(t, "pot", MethodRead, nil); v != (types.AnalogValue{Value: 0x2A}) {
		t.Fatalf("pot after clear: %#v", v)
	}
	select {
	case m := <-h.state.Channel():
		t.Fatalf("clearing the config changed state: %#v", m.Payload)
	default:
	}
}

func logged(lines []string, sub string) bool {
	for _, l := range lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}
