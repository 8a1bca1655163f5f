package i2cdev

import "github.com/pkg/errors"

// MaxBlock is the largest I2C block transfer that fits i2c.SMBusData
// next to its leading length byte.
const MaxBlock = 31

var (
	ErrNoRegister  = errors.New("i2cdev: transaction without a register byte")
	ErrWriteRead   = errors.New("i2cdev: combined write and read is not supported")
	ErrBlockLength = errors.New("i2cdev: transfer exceeds the SMBus block size")
)

type kind uint8

const (
	kindCommand kind = iota // register byte only
	kindByte                // one data byte
	kindBlock               // I2C block, up to MaxBlock bytes
)

// step is one SMBus transfer derived from a drivers.I2C style Tx.
type step struct {
	write bool
	kind  kind
	reg   uint8
	data  []byte // write payload
	n     int    // read length
}

// plan maps Tx(addr, w, r) onto a single SMBus transfer. w[0] is the
// register; the rest of w is written after it, or len(r) bytes are read.
func plan(w, r []byte) (step, error) {
	if len(w) == 0 {
		return step{}, ErrNoRegister
	}
	reg, data := w[0], w[1:]
	switch {
	case len(data) > 0 && len(r) > 0:
		return step{}, ErrWriteRead
	case len(r) > MaxBlock, len(data) > MaxBlock:
		return step{}, errors.Wrapf(ErrBlockLength, "reg 0x%02x", reg)
	case len(r) == 1:
		return step{kind: kindByte, reg: reg, n: 1}, nil
	case len(r) > 1:
		return step{kind: kindBlock, reg: reg, n: len(r)}, nil
	case len(data) == 0:
		return step{write: true, kind: kindCommand, reg: reg}, nil
	case len(data) == 1:
		return step{write: true, kind: kindByte, reg: reg, data: data}, nil
	default:
		return step{write: true, kind: kindBlock, reg: reg, data: data}, nil
	}
}
