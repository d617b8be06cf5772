//go:build rp2040 || rp2350

package rpdrivers

import (
	"gogrbl/core"
	"gogrbl/standalone"
)

// Coolant implements core.CoolantDriver over two relay-driving GPIO pins.
// Either pin is optional; an unconfigured side is a silent no-op, matching
// boards wired for flood only or mist only.
type Coolant struct {
	gpio *GPIO

	floodPin core.GPIOPin
	mistPin  core.GPIOPin
	hasFlood bool
	hasMist  bool

	flood, mist bool
}

// NewCoolant builds a coolant driver from the machine's coolant config.
func NewCoolant(gpio *GPIO, cfg standalone.CoolantConfig) *Coolant {
	return &Coolant{
		gpio:     gpio,
		floodPin: core.GPIOPin(cfg.FloodPin),
		mistPin:  core.GPIOPin(cfg.MistPin),
		hasFlood: cfg.HasFlood,
		hasMist:  cfg.HasMist,
	}
}

func (d *Coolant) Init() error {
	if d.hasFlood {
		if err := d.gpio.ConfigureOutput(d.floodPin); err != nil {
			return err
		}
	}
	if d.hasMist {
		if err := d.gpio.ConfigureOutput(d.mistPin); err != nil {
			return err
		}
	}
	return nil
}

func (d *Coolant) StartFlood() error {
	if !d.hasFlood {
		return nil
	}
	d.flood = true
	return d.gpio.SetPin(d.floodPin, true)
}

func (d *Coolant) StartMist() error {
	if !d.hasMist {
		return nil
	}
	d.mist = true
	return d.gpio.SetPin(d.mistPin, true)
}

func (d *Coolant) StopFlood() error {
	if !d.hasFlood {
		return nil
	}
	d.flood = false
	return d.gpio.SetPin(d.floodPin, false)
}

func (d *Coolant) StopMist() error {
	if !d.hasMist {
		return nil
	}
	d.mist = false
	return d.gpio.SetPin(d.mistPin, false)
}

func (d *Coolant) GetState() (flood, mist bool) { return d.flood, d.mist }
