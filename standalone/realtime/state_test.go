package realtime

import "testing"

func TestNewSystemDefaults(t *testing.T) {
	s := NewSystem()
	if s.State() != StateIdle {
		t.Errorf("initial state: got %v want Idle", s.State())
	}
	if s.FeedOverride() != 100 || s.RapidOverride() != 100 || s.SpindleOverride() != 100 {
		t.Errorf("overrides should power on at 100%%: feed=%d rapid=%d spindle=%d",
			s.FeedOverride(), s.RapidOverride(), s.SpindleOverride())
	}
}

func TestFeedOverrideClamps(t *testing.T) {
	s := NewSystem()

	for i := 0; i < 20; i++ {
		s.AdjustFeedOverride(-10)
	}
	if s.FeedOverride() != FeedOverrideMin {
		t.Errorf("feed override underflowed: got %d want %d", s.FeedOverride(), FeedOverrideMin)
	}

	for i := 0; i < 20; i++ {
		s.AdjustFeedOverride(10)
	}
	if s.FeedOverride() != FeedOverrideMax {
		t.Errorf("feed override overflowed: got %d want %d", s.FeedOverride(), FeedOverrideMax)
	}
}

func TestSpindleOverrideClamps(t *testing.T) {
	s := NewSystem()

	for i := 0; i < 20; i++ {
		s.AdjustSpindleOverride(-10)
	}
	if s.SpindleOverride() != SpindleOverrideMin {
		t.Errorf("spindle override underflowed: got %d want %d", s.SpindleOverride(), SpindleOverrideMin)
	}

	for i := 0; i < 20; i++ {
		s.AdjustSpindleOverride(10)
	}
	if s.SpindleOverride() != SpindleOverrideMax {
		t.Errorf("spindle override overflowed: got %d want %d", s.SpindleOverride(), SpindleOverrideMax)
	}
}

func TestRapidOverrideSnapsToNearestStep(t *testing.T) {
	s := NewSystem()

	cases := []struct {
		in   uint8
		want uint8
	}{
		{0, 25},
		{30, 25},
		{40, 50},
		{74, 50},
		{76, 100},
		{255, 100},
	}
	for _, c := range cases {
		s.SetRapidOverride(c.in)
		if s.RapidOverride() != c.want {
			t.Errorf("SetRapidOverride(%d): got %d want %d", c.in, s.RapidOverride(), c.want)
		}
	}
}

func TestExecFlagsSetClearTestAndClear(t *testing.T) {
	s := NewSystem()

	s.SetExec(ExecCycleStart | ExecReset)
	if !s.TestAndClearExec(ExecReset) {
		t.Fatalf("expected ExecReset to be set")
	}
	if s.TestAndClearExec(ExecReset) {
		t.Fatalf("ExecReset should have been cleared by the prior TestAndClearExec")
	}
	if !s.TestAndClearExec(ExecCycleStart) {
		t.Fatalf("ExecCycleStart should still be set")
	}
}

func TestMotionAndAccessoryOverrideFlags(t *testing.T) {
	s := NewSystem()

	s.SetMotionOverride(OverrideFeedCoarsePlus)
	if !s.TestAndClearMotionOverride(OverrideFeedCoarsePlus) {
		t.Fatalf("expected OverrideFeedCoarsePlus to be set")
	}
	if s.TestAndClearMotionOverride(OverrideFeedCoarsePlus) {
		t.Fatalf("flag should have been cleared")
	}

	s.SetAccessoryOverride(OverrideCoolantFloodToggle)
	if !s.TestAndClearAccessoryOverride(OverrideCoolantFloodToggle) {
		t.Fatalf("expected OverrideCoolantFloodToggle to be set")
	}
}

func TestAlarmLatch(t *testing.T) {
	s := NewSystem()
	if s.Alarm() != AlarmNone {
		t.Fatalf("expected no alarm at power-on, got %v", s.Alarm())
	}
	s.SetAlarm(AlarmHardLimit)
	if s.Alarm() != AlarmHardLimit {
		t.Errorf("got %v want AlarmHardLimit", s.Alarm())
	}
}

func TestSuspendAndStepControlBits(t *testing.T) {
	s := NewSystem()
	s.SetSuspend(SuspendHold | SuspendJogCancel)
	if s.Suspend()&SuspendHold == 0 {
		t.Errorf("SuspendHold not set")
	}
	s.ClearSuspend(SuspendHold)
	if s.Suspend()&SuspendHold != 0 {
		t.Errorf("SuspendHold should have been cleared")
	}
	if s.Suspend()&SuspendJogCancel == 0 {
		t.Errorf("ClearSuspend should not touch other bits")
	}

	s.SetStepControl(StepControlExecuteHold)
	if s.StepControl()&StepControlExecuteHold == 0 {
		t.Errorf("StepControlExecuteHold not set")
	}
	s.ClearStepControl(StepControlExecuteHold)
	if s.StepControl()&StepControlExecuteHold != 0 {
		t.Errorf("StepControlExecuteHold should have been cleared")
	}
}

func TestHomingAxisLockAndProbeSucceeded(t *testing.T) {
	s := NewSystem()
	s.SetHomingAxisLock(0b011)
	if s.HomingAxisLock() != 0b011 {
		t.Errorf("got %b want %b", s.HomingAxisLock(), 0b011)
	}
	s.SetProbeSucceeded(true)
	if !s.ProbeSucceeded() {
		t.Errorf("ProbeSucceeded should be true")
	}
}

func TestMachineStateString(t *testing.T) {
	cases := map[MachineState]string{
		StateIdle:       "Idle",
		StateCycle:      "Run",
		StateHold:       "Hold",
		StateJog:        "Jog",
		StateHoming:     "Home",
		StateAlarm:      "Alarm",
		StateCheckMode:  "Check",
		StateSafetyDoor: "Door",
		StateSleep:      "Sleep",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String(): got %q want %q", state, got, want)
		}
	}
}
