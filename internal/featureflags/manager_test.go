package featureflags

import "testing"

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.Enabled("a", 1) || !m.Enabled("c", 1) || !m.Enabled("e", 1) {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.Enabled("b", 1) || m.Enabled("d", 1) || m.Enabled("f", 1) {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
	if m.Enabled("missing", 1) {
		t.Fatal("unknown flags are off")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%")

	if !m.Enabled("always", 0) {
		t.Fatal("100% rollout should be enabled even for anonymous callers")
	}
	if m.Enabled("never", 1) {
		t.Fatal("0% rollout should always be disabled")
	}

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", 42); got != first {
			t.Fatal("rollout evaluation must be deterministic per user")
		}
	}

	if m.Enabled("canary", 0) {
		t.Fatal("percentage rollout requires a user")
	}

	half := NewManager("wide_editor=50%,bogus=abc%,big=250%")
	if !half.Enabled("wide_editor", 2) || half.Enabled("wide_editor", 1) {
		t.Fatal("users 2 and 1 fall on opposite sides of a 50% rollout")
	}
	if half.Enabled("bogus", 2) {
		t.Fatal("unparseable percentages are off")
	}
	if !half.Enabled("big", 0) {
		t.Fatal("percentages above 100 are fully on")
	}
}

func TestOpenRegistrationFlag(t *testing.T) {
	if !NewManager(" Open_Registration = ON ").Enabled(OpenRegistration, 0) {
		t.Fatal("flag names and values are case-insensitive")
	}
	if NewManager("").Enabled(OpenRegistration, 0) {
		t.Fatal("registration is closed when the flag is absent")
	}

	var nilManager *Manager
	if nilManager.Enabled(OpenRegistration, 0) {
		t.Fatal("nil manager disables everything")
	}
}

func TestSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off ")

	snap := m.Snapshot(123)
	if len(snap) != 3 {
		t.Fatalf("expected snapshot size 3, got %d", len(snap))
	}
	if !snap["x"] || snap["z"] {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}

	var nilManager *Manager
	if got := nilManager.Snapshot(1); got == nil || len(got) != 0 {
		t.Fatalf("nil manager snapshot should be empty, got %#v", got)
	}
}
