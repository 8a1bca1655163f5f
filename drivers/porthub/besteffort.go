package porthub

// BestEffort drives a Device for periodic polling/control loops that cannot
// act on a failure. Each failed call logs exactly one warning through the
// device's Logger; reads then yield 0 and writes return normally.
type BestEffort struct {
	d *Device
}

func NewBestEffort(d *Device) BestEffort { return BestEffort{d: d} }

func (b BestEffort) Device() *Device { return b.d }

func (b BestEffort) ReadAnalog(reg uint8) uint16 {
	v, err := b.d.ReadAnalog(reg)
	b.warn(err)
	return v
}

func (b BestEffort) ReadDigitalA(reg uint8) uint8 { return b.readDigital(ChannelA, reg) }
func (b BestEffort) ReadDigitalB(reg uint8) uint8 { return b.readDigital(ChannelB, reg) }

func (b BestEffort) WriteDigitalA(reg uint8, level uint16) {
	b.warn(b.d.WriteDigital(ChannelA, reg, level))
}

func (b BestEffort) WriteDigitalB(reg uint8, level uint16) {
	b.warn(b.d.WriteDigital(ChannelB, reg, level))
}

func (b BestEffort) WriteAnalogA(reg uint8, duty uint16) {
	b.warn(b.d.WriteAnalog(ChannelA, reg, duty))
}

func (b BestEffort) WriteAnalogB(reg uint8, duty uint16) {
	b.warn(b.d.WriteAnalog(ChannelB, reg, duty))
}

func (b BestEffort) SetLEDLength(reg uint8, length uint16) {
	b.warn(b.d.SetLEDLength(reg, length))
}

func (b BestEffort) SetLEDColor(reg uint8, index uint16, r uint8, g int8, bl uint8) {
	b.warn(b.d.SetLEDColor(reg, index, r, g, bl))
}

func (b BestEffort) FillLEDColor(reg uint8, first, count uint16, r uint8, g int8, bl uint8) {
	b.warn(b.d.FillLEDColor(reg, first, count, r, g, bl))
}

func (b BestEffort) SetLEDBrightness(reg uint8, brightness uint8) {
	b.warn(b.d.SetLEDBrightness(reg, brightness))
}

func (b BestEffort) readDigital(ch Channel, reg uint8) uint8 {
	v, err := b.d.ReadDigital(ch, reg)
	b.warn(err)
	return v
}

func (b BestEffort) warn(err error) {
	if err == nil {
		return
	}
	b.d.log.Warnf("%v", err)
}
