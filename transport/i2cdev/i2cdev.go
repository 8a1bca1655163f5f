//go:build linux

// Package i2cdev binds a Linux /dev/i2c-N adapter to the drivers.I2C
// interface used by the hub driver.
package i2cdev

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/platinasystems/i2c"
)

// Fails to compile if a block of MaxBlock bytes plus its length byte
// does not fit i2c.SMBusData.
const _ = uint(len(i2c.SMBusData{}) - 1 - MaxBlock)

// Bus is safe for concurrent use. The slave address is re-selected only
// when it changes between transactions.
type Bus struct {
	mu    sync.Mutex
	index int
	bus   i2c.Bus
	addr  int
}

// Open opens /dev/i2c-<index>.
func Open(index int) (*Bus, error) {
	b := &Bus{index: index, addr: -1}
	if err := b.bus.Open(index); err != nil {
		return nil, errors.Wrapf(err, "i2cdev: open bus %d", index)
	}
	return b, nil
}

// Tx performs a register read (w = [reg], r = buf) or a register write
// (w = [reg, data...], r = nil).
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	s, err := plan(w, r)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if int(addr) != b.addr {
		if err := b.bus.ForceSlaveAddress(int(addr)); err != nil {
			return errors.Wrapf(err, "i2cdev: bus %d: select 0x%02x", b.index, addr)
		}
		b.addr = int(addr)
	}

	var (
		data i2c.SMBusData
		rw   = i2c.Read
		size = i2c.ByteData
	)
	switch s.kind {
	case kindCommand:
		size = i2c.Byte
	case kindBlock:
		size = i2c.I2CBlockData
	}
	if s.write {
		rw = i2c.Write
		if s.kind == kindBlock {
			data[0] = byte(len(s.data))
			copy(data[1:], s.data)
		} else {
			copy(data[:], s.data)
		}
	} else if s.kind == kindBlock {
		data[0] = byte(s.n)
	}

	if err := b.bus.Do(rw, s.reg, size, &data); err != nil {
		// Force a re-select on the next transaction.
		b.addr = -1
		return errors.Wrapf(err, "i2cdev: bus %d addr 0x%02x reg 0x%02x", b.index, addr, s.reg)
	}

	if !s.write {
		if s.kind == kindBlock {
			copy(r, data[1:1+s.n])
		} else {
			r[0] = data[0]
		}
	}
	return nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bus.Close()
}
