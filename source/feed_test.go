package source

import (
	"testing"

	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/state"
)

// recordingSink counts what Feed publishes.
type recordingSink struct {
	centers int
	rooms   map[string][][]RoomDoc
}

func (r *recordingSink) PublishCenters(centers []CenterDoc) error {
	r.centers++
	return nil
}

func (r *recordingSink) PublishRooms(centerID string, rooms []RoomDoc) error {
	if r.rooms == nil {
		r.rooms = make(map[string][][]RoomDoc)
	}
	r.rooms[centerID] = append(r.rooms[centerID], rooms)
	return nil
}

func TestFeed_PublishesOnlyChangedCenters(t *testing.T) {
	registry := room.NewRegistry([]room.Center{
		{ID: "vp", Name: "Vortex Plateau", Scenarios: []room.Scenario{{Name: "Le Pacte", Status: state.StatusOpen}}},
		{ID: "ftk", Name: "Find The Key", Scenarios: []room.Scenario{{Name: "Le Trésor", Status: state.StatusMaintenance}}},
	})
	sink := &recordingSink{}
	stop := Feed(registry, sink)
	defer stop()

	if err := registry.Close(0, 0); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if sink.centers != 1 {
		t.Errorf("Expected centers to be published once, got %d", sink.centers)
	}
	if len(sink.rooms["vp"]) != 2 {
		t.Errorf("Expected 2 room snapshots for vp, got %d", len(sink.rooms["vp"]))
	}
	if len(sink.rooms["ftk"]) != 1 {
		t.Errorf("Expected 1 room snapshot for ftk, got %d", len(sink.rooms["ftk"]))
	}
	if got := sink.rooms["vp"][1][0].Status; got != "Fermé" {
		t.Errorf("Expected published status label Fermé, got %s", got)
	}
}
