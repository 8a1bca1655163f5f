// Package porthubtest provides an in-memory hub for tests. It records every
// transaction and serves reads from a register map.
package porthubtest

import (
	"errors"
	"fmt"
	"sync"
)

var ErrNACK = errors.New("porthubtest: nack")

// Tx is one recorded transaction.
type Tx struct {
	Addr  uint16
	Reg   uint8
	Data  []byte // payload written after the register byte
	ReadN int    // bytes requested, 0 for writes
}

// Bus implements drivers.I2C.
type Bus struct {
	mu   sync.Mutex
	regs map[uint8]byte
	txs  []Tx

	// FailReg, when set, makes transactions at that register fail.
	FailReg map[uint8]bool
	// FailAll makes every transaction fail.
	FailAll bool
}

func NewBus() *Bus {
	return &Bus{regs: map[uint8]byte{}, FailReg: map[uint8]bool{}}
}

// Set preloads consecutive registers starting at reg.
func (b *Bus) Set(reg uint8, vals ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, v := range vals {
		b.regs[reg+uint8(i)] = v
	}
}

// Get returns the stored byte at reg.
func (b *Bus) Get(reg uint8) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regs[reg]
}

func (b *Bus) Fail(reg uint8) {
	b.mu.Lock()
	b.FailReg[reg] = true
	b.mu.Unlock()
}

// ClearFail removes every injected failure.
func (b *Bus) ClearFail() {
	b.mu.Lock()
	b.FailReg = map[uint8]bool{}
	b.FailAll = false
	b.mu.Unlock()
}

func (b *Bus) Txs() []Tx {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Tx, len(b.txs))
	copy(out, b.txs)
	return out
}

// Last returns the most recent transaction.
func (b *Bus) Last() (Tx, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.txs) == 0 {
		return Tx{}, false
	}
	return b.txs[len(b.txs)-1], true
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if len(w) == 0 {
		return errors.New("porthubtest: missing register byte")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	tx := Tx{Addr: addr, Reg: w[0], Data: append([]byte(nil), w[1:]...), ReadN: len(r)}
	b.txs = append(b.txs, tx)
	if b.FailAll || b.FailReg[tx.Reg] {
		return ErrNACK
	}
	for i, v := range tx.Data {
		b.regs[tx.Reg+uint8(i)] = v
	}
	for i := range r {
		r[i] = b.regs[tx.Reg+uint8(i)]
	}
	return nil
}

// Logger records formatted lines per level.
type Logger struct {
	mu    sync.Mutex
	Debug []string
	Warn  []string
}

func (l *Logger) Debugf(format string, args ...any) {
	l.mu.Lock()
	l.Debug = append(l.Debug, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *Logger) Warnf(format string, args ...any) {
	l.mu.Lock()
	l.Warn = append(l.Warn, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

func (l *Logger) Debugs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Debug...)
}

func (l *Logger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.Warn...)
}
