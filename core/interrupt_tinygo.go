//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts disables interrupts and returns the previous state
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}

// State is the interrupt state captured by EnterCritical.
type State = interrupt.State

// EnterCritical disables interrupts and returns the previous state, for
// packages outside core that need to guard a shared word against ISR
// preemption (e.g. the realtime flag registers).
func EnterCritical() State {
	return disableInterrupts()
}

// ExitCritical restores the interrupt state returned by EnterCritical.
func ExitCritical(state State) {
	restoreInterrupts(state)
}
