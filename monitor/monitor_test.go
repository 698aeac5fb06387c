package monitor

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/state"
)

func scrape(t *testing.T, m *Monitor) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestMonitor_IndependentRegistries(t *testing.T) {
	// Two monitors in one process must not collide on registration.
	NewMonitor("roomboard")
	NewMonitor("roomboard")
}

func TestMonitor_ObserveSnapshot(t *testing.T) {
	m := NewMonitor("test")
	m.ObserveSnapshot(room.Snapshot{Centers: []room.Center{{
		ID: "vp",
		Scenarios: []room.Scenario{
			{Name: "a", Status: state.StatusOpen},
			{Name: "b", Status: state.StatusClosed},
			{Name: "c", Status: state.StatusClosed},
		},
	}}})

	body := scrape(t, m)
	for _, want := range []string{
		`test_scenarios{center="vp",status="Closed"} 2`,
		`test_scenarios{center="vp",status="Open"} 1`,
		`test_scenarios{center="vp",status="Maintenance"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected metrics to contain %q", want)
		}
	}
}

func TestMonitor_TransitionsAndProjection(t *testing.T) {
	m := NewMonitor("test")
	m.ObserveTransition(state.StatusOpen, state.StatusClosed, state.ActionClose)
	m.SnapshotApplied("vp", 3)
	m.DeliveryFailed("")
	m.DeliveryFailed("vp")

	body := scrape(t, m)
	for _, want := range []string{
		`test_transitions_total{from="Open",to="Closed"} 1`,
		`test_projection_snapshots_total{center="vp"} 1`,
		`test_projection_delivery_failures_total{center="_centers"} 1`,
		`test_projection_delivery_failures_total{center="vp"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected metrics to contain %q", want)
		}
	}
}
