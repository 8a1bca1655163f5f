package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: device ID (same value placed in ctx under CtxDeviceKey)
// Val: raw JSON bytes for that device
// -----------------------------------------------------------------------------

// Pico bench board: button on channel B of 0x40, a potentiometer on the
// analog block and a 10 pixel strip.
const cfgPico = `{
  "porthub": {
    "poll_ms": 100,
    "jitter_ms": 10,
    "ports": [
      {"name": "button", "mode": "digital_in", "channel": "B", "reg": 64},
      {"name": "pot", "mode": "analog_in", "reg": 6, "poll_ms": 250},
      {
        "name": "strip",
        "mode": "led",
        "led": {
          "length_reg": 72,
          "color_reg": 73,
          "fill_reg": 74,
          "brightness_reg": 75,
          "length": 10,
          "brightness": 40
        }
      }
    ]
  }
}`

var embeddedConfigs = map[string][]byte{
	"pico": []byte(cfgPico),
}
