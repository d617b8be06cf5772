//go:build rp2040 || rp2350

package main

import (
	"gogrbl/core"
	"machine"
)

// main boots straight into the standalone motion controller (§1, §4): the
// board owns the planner, segment preparer, stepper core, and realtime
// supervisor directly, with no host/MCU protocol split.
func main() {
	// Disable watchdog on boot to clear any previous state persisting across
	// a reset.
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	InitClock()
	core.TimerInit()

	RunStandaloneMode()
}
