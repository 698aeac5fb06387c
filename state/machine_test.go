package state

import (
	"testing"
)

func TestMachine_NextWithoutGuards(t *testing.T) {
	m := NewMachine()
	for _, from := range []Status{StatusOpen, StatusClosed, StatusMaintenance, StatusUnknown} {
		to, err := m.Next(from, ActionClose)
		if err != nil {
			t.Fatalf("Next from %s failed: %v", from, err)
		}
		if to != StatusClosed {
			t.Errorf("Expected Closed from %s, got %s", from, to)
		}
	}
}

func TestMachine_Guard(t *testing.T) {
	m := NewMachine()
	allowed := false
	m.AddGuard(StatusMaintenance, StatusOpen, func() bool { return allowed })

	to, err := m.Next(StatusMaintenance, ActionReopen)
	if err != ErrTransitionNotAllowed {
		t.Errorf("Expected ErrTransitionNotAllowed, but got: %v", err)
	}
	if to != StatusMaintenance {
		t.Errorf("Expected status to remain Maintenance after a blocked transition, got %s", to)
	}

	allowed = true
	to, err = m.Next(StatusMaintenance, ActionReopen)
	if err != nil || to != StatusOpen {
		t.Errorf("Expected Open, got %s (%v)", to, err)
	}

	// Other transitions are not affected by the guard.
	if to, err := m.Next(StatusClosed, ActionReopen); err != nil || to != StatusOpen {
		t.Errorf("Expected Open from Closed, got %s (%v)", to, err)
	}
}

func TestMachine_NotifyOnlyOnChange(t *testing.T) {
	m := NewMachine()
	calls := 0
	m.OnChange(func(from, to Status, action Action) {
		calls++
		if from != StatusOpen || to != StatusClosed || action != ActionClose {
			t.Errorf("Unexpected hook arguments: %s -> %s (%s)", from, to, action)
		}
	})

	m.Notify(StatusOpen, StatusClosed, ActionClose)
	m.Notify(StatusClosed, StatusClosed, ActionClose)

	if calls != 1 {
		t.Errorf("Expected 1 hook call, got %d", calls)
	}
}

func TestMachine_InvalidAction(t *testing.T) {
	m := NewMachine()
	if _, err := m.Next(StatusOpen, Action(42)); err != ErrUnknownAction {
		t.Errorf("Expected ErrUnknownAction, got %v", err)
	}
}
