package source

import (
	"reflect"
	"strconv"
	"sync"

	"github.com/wfunc/roomboard/logger"
	"github.com/wfunc/roomboard/room"
)

// Feed mirrors every registry snapshot into sink. Centers are republished only when
// the list changes, and each center's rooms only when they change.
// The returned func stops the feed.
func Feed(registry *room.Registry, sink Sink) func() {
	var (
		mutex       sync.Mutex
		lastCenters []CenterDoc
		lastRooms   = make(map[string][]RoomDoc)
	)

	return registry.Subscribe(func(snapshot room.Snapshot) {
		mutex.Lock()
		defer mutex.Unlock()

		centers := CenterDocs(snapshot)
		if !reflect.DeepEqual(centers, lastCenters) {
			if err := sink.PublishCenters(centers); err != nil {
				logger.Log.Errorf("feed: publish centers: %v", err)
			} else {
				lastCenters = centers
			}
		}

		for _, center := range snapshot.Centers {
			rooms := RoomDocs(center)
			if prev, ok := lastRooms[center.ID]; ok && reflect.DeepEqual(prev, rooms) {
				continue
			}
			if err := sink.PublishRooms(center.ID, rooms); err != nil {
				logger.Log.Errorf("feed: publish rooms of %s: %v", center.ID, err)
				continue
			}
			lastRooms[center.ID] = rooms
		}
	})
}

// CenterDocs converts a registry snapshot into center documents.
func CenterDocs(snapshot room.Snapshot) []CenterDoc {
	docs := make([]CenterDoc, 0, len(snapshot.Centers))
	for _, c := range snapshot.Centers {
		docs = append(docs, CenterDoc{ID: c.ID, Name: c.Name})
	}
	return docs
}

// RoomDocs converts a center's scenarios into room documents keyed by position.
func RoomDocs(center room.Center) []RoomDoc {
	docs := make([]RoomDoc, 0, len(center.Scenarios))
	for i, s := range center.Scenarios {
		docs = append(docs, RoomDoc{
			ID:               strconv.Itoa(i),
			Name:             s.Name,
			Status:           s.Status.Label(),
			Reason:           s.Reason,
			PlannedReopening: s.ExpectedReopen,
		})
	}
	return docs
}
