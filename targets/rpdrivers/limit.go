//go:build rp2040 || rp2350

package rpdrivers

import (
	"gogrbl/core"
	"gogrbl/standalone"
	"machine"
)

// Limit implements core.LimitDriver over up to standalone.NumAxis GPIO
// inputs, one per axis, wired with pin-change interrupts so OnChange fires
// without the caller needing to poll.
type Limit struct {
	pins    [standalone.NumAxis]machine.Pin
	has     [standalone.NumAxis]bool
	invert  [standalone.NumAxis]bool
	enabled bool
	cb      func(core.LimitMask)
}

// NewLimit builds a limit driver from the machine's per-axis limit pins.
func NewLimit(cfg *standalone.MachineConfig) *Limit {
	l := &Limit{}
	for i := 0; i < standalone.NumAxis; i++ {
		a := cfg.Axes[i]
		l.has[i] = a.HasLimit
		l.invert[i] = a.InvertLimit
		l.pins[i] = machine.Pin(a.LimitPin)
	}
	return l
}

func (d *Limit) Init() error {
	for i := 0; i < standalone.NumAxis; i++ {
		if !d.has[i] {
			continue
		}
		d.pins[i].Configure(machine.PinConfig{Mode: machine.PinInputPullup})
		d.pins[i].SetInterrupt(machine.PinRising|machine.PinFalling, func(machine.Pin) {
			if d.cb != nil && d.enabled {
				d.cb(d.GetState())
			}
		})
	}
	return nil
}

func (d *Limit) SetEnabled(on bool) error {
	d.enabled = on
	return nil
}

func (d *Limit) GetState() core.LimitMask {
	var mask core.LimitMask
	for i := 0; i < standalone.NumAxis; i++ {
		if !d.has[i] || !d.enabled {
			continue
		}
		// Pull-up wiring: a closed switch pulls the pin low.
		triggered := !d.pins[i].Get()
		if d.invert[i] {
			triggered = !triggered
		}
		if triggered {
			mask |= 1 << uint(i)
		}
	}
	return mask
}

func (d *Limit) OnChange(cb func(core.LimitMask)) {
	d.cb = cb
}
