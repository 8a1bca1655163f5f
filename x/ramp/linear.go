package ramp

import (
	"time"

	"porthub-go/x/mathx"
)

// Step applies one level. An error aborts the ramp.
type Step func(level uint16) error

// Tick waits for d and reports whether to continue (false => cancelled).
type Tick func(d time.Duration) bool

// Linear moves a level from cur to to in steps equal increments spread over
// d, calling set for each level that changes. The last call is always
// set(to) unless the ramp is cancelled or set fails.
// steps==0 or d<=0 snaps to 'to'.
func Linear(cur, to uint16, d time.Duration, steps uint16, tick Tick, set Step) error {
	if steps == 0 || d <= 0 {
		return set(to)
	}
	delta := int32(to) - int32(cur)
	st := int32(steps)
	acc := int32(0)
	level := int32(cur)
	stepDur := d / time.Duration(steps)
	if stepDur <= 0 {
		stepDur = time.Millisecond
	}

	for i := uint16(1); i < steps; i++ {
		if !tick(stepDur) {
			return nil
		}
		acc += delta
		inc := acc / st
		if inc == 0 {
			continue
		}
		acc -= inc * st
		level = mathx.Clamp(level+inc, 0, 0xFFFF)
		if err := set(uint16(level)); err != nil {
			return err
		}
	}
	if !tick(stepDur) {
		return nil
	}
	return set(to)
}
