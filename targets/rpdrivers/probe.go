//go:build rp2040 || rp2350

package rpdrivers

import (
	"gogrbl/standalone"
	"machine"
)

// Probe implements core.ProbeDriver over a single pull-up GPIO input,
// sampled directly (the stepper ISR polls GetState every base tick rather
// than relying on an interrupt).
type Probe struct {
	pin    machine.Pin
	has    bool
	invert bool
}

// NewProbe builds a probe driver from the machine's probe config.
func NewProbe(cfg *standalone.MachineConfig) *Probe {
	return &Probe{
		pin:    machine.Pin(cfg.Probe.Pin),
		has:    cfg.Probe.HasProbe,
		invert: cfg.Probe.InvertProbe,
	}
}

func (d *Probe) Init() error {
	if d.has {
		d.pin.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	}
	return nil
}

func (d *Probe) GetState() bool {
	if !d.has {
		return false
	}
	triggered := !d.pin.Get()
	if d.invert {
		triggered = !triggered
	}
	return triggered
}
