//go:build rp2040 || rp2350

// Package rpdrivers implements the hardware HAL drivers (§ ambient stack)
// shared by the rp2040 and rp2350 targets: GPIO, PWM, spindle, coolant,
// limit switches, probe, and the settings store. Both targets register the
// same concrete types against gogrbl/core's driver singletons, so the
// board-specific main() only differs in clock/debug scaffolding.
package rpdrivers

import (
	"gogrbl/core"
	"machine"
)

// GPIO implements core.GPIODriver directly on top of machine.Pin.
type GPIO struct {
	configured map[core.GPIOPin]machine.Pin
}

// NewGPIO builds a GPIO driver with no pins configured yet.
func NewGPIO() *GPIO {
	return &GPIO{configured: make(map[core.GPIOPin]machine.Pin)}
}

func (d *GPIO) pin(p core.GPIOPin) machine.Pin {
	return machine.Pin(p)
}

func (d *GPIO) ConfigureOutput(pin core.GPIOPin) error {
	if _, ok := d.configured[pin]; ok {
		return nil
	}
	mp := d.pin(pin)
	mp.Configure(machine.PinConfig{Mode: machine.PinOutput})
	d.configured[pin] = mp
	return nil
}

func (d *GPIO) ConfigureInputPullUp(pin core.GPIOPin) error {
	if _, ok := d.configured[pin]; ok {
		return nil
	}
	mp := d.pin(pin)
	mp.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	d.configured[pin] = mp
	return nil
}

func (d *GPIO) ConfigureInputPullDown(pin core.GPIOPin) error {
	if _, ok := d.configured[pin]; ok {
		return nil
	}
	mp := d.pin(pin)
	mp.Configure(machine.PinConfig{Mode: machine.PinInputPulldown})
	d.configured[pin] = mp
	return nil
}

func (d *GPIO) SetPin(pin core.GPIOPin, value bool) error {
	mp, ok := d.configured[pin]
	if !ok {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		mp = d.configured[pin]
	}
	mp.Set(value)
	return nil
}

func (d *GPIO) GetPin(pin core.GPIOPin) (bool, error) {
	mp, ok := d.configured[pin]
	if !ok {
		return false, nil
	}
	return mp.Get(), nil
}

func (d *GPIO) ReadPin(pin core.GPIOPin) bool {
	v, _ := d.GetPin(pin)
	return v
}
