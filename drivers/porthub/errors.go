package porthub

import (
	"errors"

	"porthub-go/x/conv"
)

var (
	ErrInvalidChannel = errors.New("porthub: invalid channel")
	ErrNoBus          = errors.New("porthub: no transport bound")
)

// Operation names carried by Error.
const (
	opReadAnalog    = "read analog value"
	opReadDigital   = "read digital value"
	opWriteDigital  = "write digital value"
	opWriteAnalog   = "write analog value"
	opLEDLength     = "write led length"
	opLEDColor      = "write led index color"
	opLEDFill       = "write led fill color"
	opLEDBrightness = "write led brightness"
)

// Error is a failed register transaction. The transport does not tell NACK,
// timeout and arbitration loss apart, so neither does Error.
type Error struct {
	Op  string
	Reg uint8
	Err error
}

func (e *Error) Error() string {
	s := "porthub: " + e.Op + " at register 0x" + hex2(e.Reg)
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// IsTransport reports whether err came from a failed bus transaction.
func IsTransport(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

func hex2(b uint8) string {
	var buf [2]byte
	return string(conv.U8Hex(buf[:], b))
}
