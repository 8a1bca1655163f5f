package types

// ------------------------
// Hub configuration
// ------------------------

// PortMode selects what a port is driven as.
type PortMode string

const (
	ModeDigitalIn  PortMode = "digital_in"
	ModeDigitalOut PortMode = "digital_out"
	ModeAnalogIn   PortMode = "analog_in"
	ModePWMOut     PortMode = "pwm_out"
	ModeLED        PortMode = "led"
)

func (m PortMode) Valid() bool {
	switch m {
	case ModeDigitalIn, ModeDigitalOut, ModeAnalogIn, ModePWMOut, ModeLED:
		return true
	}
	return false
}

// Input reports whether the mode is polled.
func (m PortMode) Input() bool { return m == ModeDigitalIn || m == ModeAnalogIn }

type HubConfig struct {
	Address  uint16       `json:"address" mapstructure:"address"`     // 0 => driver default
	PollMs   uint32       `json:"poll_ms" mapstructure:"poll_ms"`     // default for input ports
	JitterMs uint32       `json:"jitter_ms" mapstructure:"jitter_ms"` // uniform [0..JitterMs]
	Ports    []PortConfig `json:"ports" mapstructure:"ports"`
}

type PortConfig struct {
	Name    string   `json:"name" mapstructure:"name"`
	Mode    PortMode `json:"mode" mapstructure:"mode"`
	Channel string   `json:"channel,omitempty" mapstructure:"channel"` // "A" (default) or "B"
	Reg     uint8    `json:"reg" mapstructure:"reg"`                   // base register of the op family
	PollMs  uint32   `json:"poll_ms,omitempty" mapstructure:"poll_ms"` // overrides HubConfig.PollMs
	Initial uint16   `json:"initial,omitempty" mapstructure:"initial"` // outputs: level/duty applied at start
	LED     *LEDPort `json:"led,omitempty" mapstructure:"led"`
}

// LEDPort holds the strip registers of an led-mode port.
type LEDPort struct {
	LengthReg     uint8  `json:"length_reg" mapstructure:"length_reg"`
	ColorReg      uint8  `json:"color_reg" mapstructure:"color_reg"`
	FillReg       uint8  `json:"fill_reg" mapstructure:"fill_reg"`
	BrightnessReg uint8  `json:"brightness_reg" mapstructure:"brightness_reg"`
	Length        uint16 `json:"length" mapstructure:"length"`
	Brightness    uint8  `json:"brightness" mapstructure:"brightness"`
}

// ------------------------
// Port payloads
// ------------------------

type PortInfo struct {
	Address uint16   `json:"address"`
	Mode    PortMode `json:"mode"`
	Channel string   `json:"channel,omitempty"`
	Reg     uint8    `json:"reg"`
	Length  uint16   `json:"length,omitempty"` // led only
}

// DigitalValue is published for digital_in and digital_out ports.
type DigitalValue struct {
	Level uint16 `json:"level"`
}

// AnalogValue is published for analog_in and pwm_out ports.
type AnalogValue struct {
	Value uint16 `json:"value"`
}

type LEDState struct {
	Length     uint16 `json:"length"`
	Brightness uint8  `json:"brightness"`
}

// ------------------------
// Controls
// ------------------------

// LevelSet drives a digital_out level or a pwm_out duty.
type LevelSet struct {
	Level uint16 `json:"level"`
}

type LEDLength struct {
	Length uint16 `json:"length"`
}

type LEDBrightness struct {
	Brightness uint8 `json:"brightness"`
}

// LEDPixel sets one pixel. G is signed to match the device contract.
type LEDPixel struct {
	Index uint16 `json:"index"`
	R     uint8  `json:"r"`
	G     int8   `json:"g"`
	B     uint8  `json:"b"`
}

type LEDFill struct {
	First uint16 `json:"first"`
	Count uint16 `json:"count"`
	R     uint8  `json:"r"`
	G     int8   `json:"g"`
	B     uint8  `json:"b"`
}
