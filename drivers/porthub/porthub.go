// Package porthub provides a TinyGo driver for PbHub-style I2C port
// expansion hubs.
//
// Design notes:
//
//   - One I2C address per hub; every operation is a single register transaction.
//   - All 16-bit fields are big-endian on the wire (high byte first).
//   - Each physical port carries two sub-channels (A/B). Channel B is reached
//     by a fixed offset from the caller-supplied base register; see Channel.
//   - The register map itself belongs to the caller: the driver never assumes
//     which base register serves which port.
//   - No locking, retries or timeouts. The transport owns bus arbitration.
package porthub

import (
	"tinygo.org/x/drivers"
)

// AddressDefault is the factory address of the hub family.
const AddressDefault = 0x61

// Logger is the diagnostic sink. *logrus.Logger and *logrus.Entry satisfy it.
type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}

type Config struct {
	// Address defaults to AddressDefault if zero.
	Address uint16
	// Logger defaults to a no-op sink.
	Logger Logger
}

// Device is a hub bound to a borrowed transport. The transport must outlive
// the Device; the Device never closes it.
type Device struct {
	bus  drivers.I2C
	addr uint16
	log  Logger

	// Fixed buffers to avoid per-call heap allocations.
	w [8]byte
	r [2]byte
}

func New(bus drivers.I2C, cfg Config) *Device {
	addr := cfg.Address
	if addr == 0 {
		addr = AddressDefault
	}
	log := cfg.Logger
	if log == nil {
		log = nopLogger{}
	}
	return &Device{bus: bus, addr: addr, log: log}
}

// Configure emits a diagnostic line. The hub needs no initialisation
// sequence, so no register is touched.
func (d *Device) Configure() {
	d.log.Debugf("porthub: initialising at address 0x%02X", d.addr)
}

func (d *Device) Address() uint16 { return d.addr }

// Logger returns the sink the device was built with.
func (d *Device) Logger() Logger { return d.log }

// ---------------- Analog ----------------

// ReadAnalog reads a 16-bit analog sample from reg.
func (d *Device) ReadAnalog(reg uint8) (uint16, error) {
	if err := d.read(opReadAnalog, reg, d.r[:2]); err != nil {
		return 0, err
	}
	return Decode16(d.r[:2]), nil
}

// WriteAnalog writes a 16-bit duty value for channel ch of the port at reg.
func (d *Device) WriteAnalog(ch Channel, reg uint8, duty uint16) error {
	at, err := ch.Register(FamilyAnalogWrite, reg)
	if err != nil {
		return err
	}
	return d.write16(opWriteAnalog, at, duty)
}

// ---------------- Digital ----------------

// ReadDigital reads the one-byte level of channel ch of the port at reg.
func (d *Device) ReadDigital(ch Channel, reg uint8) (uint8, error) {
	at, err := ch.Register(FamilyDigitalRead, reg)
	if err != nil {
		return 0, err
	}
	if err := d.read(opReadDigital, at, d.r[:1]); err != nil {
		return 0, err
	}
	return d.r[0], nil
}

// WriteDigital writes a 16-bit level for channel ch of the port at reg.
func (d *Device) WriteDigital(ch Channel, reg uint8, level uint16) error {
	at, err := ch.Register(FamilyDigitalWrite, reg)
	if err != nil {
		return err
	}
	return d.write16(opWriteDigital, at, level)
}

// ---------------- LED strip ----------------

func (d *Device) SetLEDLength(reg uint8, length uint16) error {
	return d.write16(opLEDLength, reg, length)
}

// SetLEDColor sets pixel index. Green is signed on the wire contract and is
// sent as its low 8 bits.
func (d *Device) SetLEDColor(reg uint8, index uint16, r uint8, g int8, b uint8) error {
	f := PixelFrame(index, r, g, b)
	return d.write(opLEDColor, reg, f[:])
}

// FillLEDColor paints count pixels starting at first.
func (d *Device) FillLEDColor(reg uint8, first, count uint16, r uint8, g int8, b uint8) error {
	f := FillFrame(first, count, r, g, b)
	return d.write(opLEDFill, reg, f[:])
}

func (d *Device) SetLEDBrightness(reg uint8, brightness uint8) error {
	return d.write(opLEDBrightness, reg, []byte{brightness})
}

// ---------------- Register transactions ----------------

func (d *Device) read(op string, reg uint8, dst []byte) error {
	if d.bus == nil {
		return ErrNoBus
	}
	d.w[0] = reg
	if err := d.bus.Tx(d.addr, d.w[:1], dst); err != nil {
		clear(dst)
		return &Error{Op: op, Reg: reg, Err: err}
	}
	return nil
}

func (d *Device) write16(op string, reg uint8, v uint16) error {
	b := Encode16(v)
	return d.write(op, reg, b[:])
}

func (d *Device) write(op string, reg uint8, data []byte) error {
	if d.bus == nil {
		return ErrNoBus
	}
	d.w[0] = reg
	n := 1 + copy(d.w[1:], data)
	if err := d.bus.Tx(d.addr, d.w[:n], nil); err != nil {
		return &Error{Op: op, Reg: reg, Err: err}
	}
	return nil
}
