//go:build rp2350

package main

import (
	"gogrbl/core"
	"gogrbl/standalone/config"
	"gogrbl/standalone/controller"
	"gogrbl/targets/rpdrivers"
	"machine"
	"time"
)

// RunStandaloneMode boots the board directly into the motion controller:
// no Klipper host, no binary protocol, just planner/preparer/stepper/
// supervisor driven straight off the USB serial line.
func RunStandaloneMode() {
	cfg := config.DefaultCartesianConfig()
	rpdrivers.Wire(cfg)

	ctrl, err := controller.NewControllerWithConfig(cfg)
	if err != nil {
		// Flash LED rapidly to indicate error
		led := machine.LED
		led.Configure(machine.PinConfig{Mode: machine.PinOutput})
		for {
			led.High()
			time.Sleep(100 * time.Millisecond)
			led.Low()
			time.Sleep(100 * time.Millisecond)
		}
	}

	// Flash LED 3 times to indicate standalone mode started
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < 3; i++ {
		led.High()
		time.Sleep(200 * time.Millisecond)
		led.Low()
		time.Sleep(200 * time.Millisecond)
	}

	USBWriteBytes([]byte(ctrl.Greeting() + "\r\n"))

	for {
		available := USBAvailable()
		if available > 0 {
			data, err := USBRead()
			if err == nil {
				ctrl.Feed(data)
			}
		}

		ctrl.Service()

		output := ctrl.Output()
		if len(output) > 0 {
			USBWriteBytes(output)
		}

		UpdateSystemTime()
		core.ProcessTimers()

		time.Sleep(10 * time.Microsecond)
	}
}
