//go:build rp2350

package main

import (
	"gogrbl/core"
	"machine"
	"time"
)

// ledBlink blinks the LED a specific number of times for diagnostics.
func ledBlink(count int) {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for i := 0; i < count; i++ {
		led.High()
		time.Sleep(10 * time.Millisecond)
		led.Low()
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
}

// main boots straight into the standalone motion controller (§1, §4): the
// board owns the planner, segment preparer, stepper core, and realtime
// supervisor directly, with no host/MCU protocol split.
func main() {
	// GPIO36=TX, GPIO37=RX at 115200 baud, for early diagnostics.
	InitDebugUART()
	DebugPrintln("[MAIN] Starting main()")

	core.SetDebugWriter(DebugPrintln)

	// Pin main execution to Core 0 so initialization happens on one core.
	machine.LockCore(0)
	DebugPrintln("[MAIN] Locked to Core 0")

	InitUSB()
	DebugPrintln("[MAIN] USB initialized")

	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		DebugPrintln("[MAIN] Watchdog config failed")
		return
	}
	DebugPrintln("[MAIN] Watchdog disabled")

	InitClock()
	DebugPrintln("[MAIN] Clock initialized")
	core.TimerInit()

	ledBlink(4) // entering the standalone controller loop
	RunStandaloneMode()
}
