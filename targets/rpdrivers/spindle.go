//go:build rp2040 || rp2350

package rpdrivers

import (
	"gogrbl/core"
	"gogrbl/standalone"
)

// Spindle implements core.SpindleDriver by driving a PWM pin for speed and,
// when configured, a GPIO pin for direction. A board with no direction pin
// is treated as single-direction: Start always spins CW regardless of the
// requested direction.
type Spindle struct {
	gpio *GPIO
	pwm  *PWM

	pwmPin  core.PWMPin
	dirPin  core.GPIOPin
	hasDir  bool
	offDuty uint8

	state core.SpindleState
}

// NewSpindle builds a spindle driver from the machine's spindle config.
func NewSpindle(gpio *GPIO, pwm *PWM, cfg standalone.SpindleConfig) *Spindle {
	return &Spindle{
		gpio:    gpio,
		pwm:     pwm,
		pwmPin:  core.PWMPin(cfg.PWMPin),
		dirPin:  core.GPIOPin(cfg.DirPin),
		hasDir:  cfg.HasDirPin,
		offDuty: cfg.PWMOffValue,
	}
}

func (d *Spindle) Init(mode core.SpindleMode) error {
	if d.hasDir {
		if err := d.gpio.ConfigureOutput(d.dirPin); err != nil {
			return err
		}
	}
	_, err := d.pwm.ConfigureHardwarePWM(d.pwmPin, uint32(d.pwm.GetMaxValue()))
	return err
}

func (d *Spindle) Start(cw bool) error {
	if d.hasDir {
		if err := d.gpio.SetPin(d.dirPin, cw); err != nil {
			return err
		}
	}
	d.state.Enabled = true
	d.state.CW = cw
	return nil
}

func (d *Spindle) Stop() error {
	if err := d.pwm.SetDutyCycle(d.pwmPin, core.PWMValue(d.offDuty)); err != nil {
		return err
	}
	d.state.Enabled = false
	d.state.PWM = d.offDuty
	return nil
}

func (d *Spindle) SetPWM(duty uint8) error {
	if err := d.pwm.SetDutyCycle(d.pwmPin, core.PWMValue(duty)); err != nil {
		return err
	}
	d.state.PWM = duty
	return nil
}

func (d *Spindle) GetState() core.SpindleState { return d.state }
