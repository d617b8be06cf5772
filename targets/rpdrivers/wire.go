//go:build rp2040 || rp2350

package rpdrivers

import (
	"gogrbl/core"
	"gogrbl/standalone"
)

// Wire constructs every hardware driver this board needs and registers it
// against gogrbl/core's HAL singletons, so controller.NewControllerWithConfig
// (and the realtime supervisor's hard-limit wiring) find a live backend
// instead of panicking on first use.
func Wire(cfg *standalone.MachineConfig) {
	gpio := NewGPIO()
	pwm := NewPWM()

	core.SetGPIODriver(gpio)
	core.SetPWMDriver(pwm)

	spindle := NewSpindle(gpio, pwm, cfg.Spindle)
	spindle.Init(core.SpindleModePWM)
	core.SetSpindleDriver(spindle)

	coolant := NewCoolant(gpio, cfg.Coolant)
	coolant.Init()
	core.SetCoolantDriver(coolant)

	limit := NewLimit(cfg)
	limit.Init()
	core.SetLimitDriver(limit)

	probe := NewProbe(cfg)
	probe.Init()
	core.SetProbeDriver(probe)

	core.SetStoreDriver(NewStore())
}
