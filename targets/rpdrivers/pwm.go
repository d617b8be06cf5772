//go:build rp2040 || rp2350

package rpdrivers

import (
	"gogrbl/core"
	"machine"
)

// pwmMaxDuty matches the 8-bit duty range the spindle PWM mapping uses.
const pwmMaxDuty = 255

type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// PWM implements core.PWMDriver over the RP2040/RP2350's 8 hardware PWM
// slices (2 channels each).
type PWM struct {
	slices      map[uint8]uint64
	channels    map[uint32]uint8
	peripherals map[uint8]pwmPeripheral
}

// NewPWM builds a PWM driver with no slices configured yet.
func NewPWM() *PWM {
	return &PWM{
		slices:      make(map[uint8]uint64),
		channels:    make(map[uint32]uint8),
		peripherals: make(map[uint8]pwmPeripheral),
	}
}

func (d *PWM) GetMaxValue() uint32 { return pwmMaxDuty }

func (d *PWM) ConfigureHardwarePWM(pin core.PWMPin, cycleTicks uint32) (uint32, error) {
	pinNum := uint32(pin)
	sliceNum := uint8((pinNum >> 1) & 0x7)

	pwm, ok := d.peripherals[sliceNum]
	if !ok {
		pwm = slicePeripheral(sliceNum)
		d.peripherals[sliceNum] = pwm
	}

	// Timer runs at 12MHz (core.TimerFreq); convert ticks to a period.
	period := (uint64(cycleTicks) * 1_000_000_000) / 12_000_000
	if err := pwm.Configure(machine.PWMConfig{Period: period}); err != nil {
		return 0, err
	}

	channel, err := pwm.Channel(machine.Pin(pinNum))
	if err != nil {
		return 0, err
	}

	d.slices[sliceNum] = period
	d.channels[pinNum] = channel
	return cycleTicks, nil
}

func (d *PWM) SetDutyCycle(pin core.PWMPin, value core.PWMValue) error {
	pinNum := uint32(pin)
	channel, ok := d.channels[pinNum]
	if !ok {
		return nil
	}
	sliceNum := uint8((pinNum >> 1) & 0x7)
	pwm, ok := d.peripherals[sliceNum]
	if !ok {
		return nil
	}
	top := pwm.Top()
	duty := (uint32(value) * top) / pwmMaxDuty
	pwm.Set(channel, duty)
	return nil
}

func (d *PWM) DisablePWM(pin core.PWMPin) error {
	delete(d.channels, uint32(pin))
	return nil
}

func slicePeripheral(sliceNum uint8) pwmPeripheral {
	switch sliceNum {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}
