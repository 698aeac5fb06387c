package persistence

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/state"
)

func newTestSQLite(t *testing.T) *SQL {
	t.Helper()
	db, err := NewSQLite(filepath.Join(t.TempDir(), "roomboard.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testCenters() []room.Center {
	return []room.Center{
		{
			ID:      "vp",
			Name:    "Vortex Plateau",
			Tag:     "VP",
			Address: "12 rue des Lilas",
			Scenarios: []room.Scenario{
				{Name: "Les oubliés", Status: state.StatusClosed, Reason: "Problème technique", Versions: []string{"v1", "v2"}},
				{Name: "Le Pacte", Status: state.StatusOpen, Capacity: "3-6"},
			},
		},
		{
			ID:   "ftk",
			Name: "Find The Key",
			Tag:  "FTK",
			Scenarios: []room.Scenario{
				{Name: "Le Trésor", Status: state.StatusMaintenance, Start: "2025-10-02T09:00", ExpectedReopen: "2025-10-04T16:00"},
			},
		},
	}
}

func TestSQLite_EmptyDatabase(t *testing.T) {
	db := newTestSQLite(t)
	centers, err := db.LoadCenters()
	if err != nil {
		t.Fatalf("LoadCenters failed: %v", err)
	}
	if len(centers) != 0 {
		t.Errorf("Expected no centers, got %d", len(centers))
	}
}

func TestSQLite_RoundTrip(t *testing.T) {
	db := newTestSQLite(t)
	want := testCenters()
	if err := db.SaveCenters(want); err != nil {
		t.Fatalf("SaveCenters failed: %v", err)
	}

	got, err := db.LoadCenters()
	if err != nil {
		t.Fatalf("LoadCenters failed: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Round trip mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestSQLite_SaveScenarioLastWriteWins(t *testing.T) {
	db := newTestSQLite(t)
	if err := db.SaveCenters(testCenters()); err != nil {
		t.Fatalf("SaveCenters failed: %v", err)
	}

	updated := room.Scenario{Name: "Le Pacte", Status: state.StatusMaintenance, Reason: "Bris de cadenas"}
	if err := db.SaveScenario("vp", 1, updated); err != nil {
		t.Fatalf("SaveScenario failed: %v", err)
	}

	centers, err := db.LoadCenters()
	if err != nil {
		t.Fatalf("LoadCenters failed: %v", err)
	}
	if got := centers[0].Scenarios[1]; !reflect.DeepEqual(got, updated) {
		t.Errorf("Expected %+v, got %+v", updated, got)
	}
	if centers[0].Scenarios[0].Status != state.StatusClosed {
		t.Errorf("Expected the other scenario to stay Closed, got %s", centers[0].Scenarios[0].Status)
	}
}

func TestSQL_UnsupportedDriver(t *testing.T) {
	if _, err := NewSQL("mysql", ""); !errors.Is(err, ErrUnsupportedDriver) {
		t.Errorf("Expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestSQL_Rebind(t *testing.T) {
	pg := &SQL{driver: "postgres"}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("Expected $n placeholders, got %q", got)
	}
	lite := &SQL{driver: "sqlite"}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("Expected unchanged query, got %q", got)
	}
}
