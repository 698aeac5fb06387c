// Package source defines the realtime snapshot sources the projection subscribes to,
// and the sinks the local control model mirrors its registry into.
package source

import (
	"encoding/json"
	"errors"
)

// ErrClosed is delivered to watchers when a source shuts down.
var ErrClosed = errors.New("source closed")

// CenterDoc is a top level center document.
type CenterDoc struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomDoc is a room document of a center's nested collection. Only Name and Status
// are expected; every field may be missing.
type RoomDoc struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Status           string `json:"status,omitempty"`
	Reason           string `json:"reason,omitempty"`
	PlannedReopening string `json:"plannedReopening,omitempty"`
}

// UnmarshalJSON accepts both the English field names and the French ones used by the
// original document store (nom, statut, commentaire, reouverture). A field holding
// anything but a string reads as empty, so a bad status shows as unknown instead of
// dropping the whole snapshot.
func (d *RoomDoc) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID               looseString `json:"id"`
		Name             looseString `json:"name"`
		Nom              looseString `json:"nom"`
		Status           looseString `json:"status"`
		Statut           looseString `json:"statut"`
		Reason           looseString `json:"reason"`
		Comment          looseString `json:"comment"`
		Commentaire      looseString `json:"commentaire"`
		PlannedReopening looseString `json:"plannedReopening"`
		Reouverture      looseString `json:"reouverture"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = RoomDoc{
		ID:               string(raw.ID),
		Name:             firstNonEmpty(string(raw.Name), string(raw.Nom)),
		Status:           firstNonEmpty(string(raw.Status), string(raw.Statut)),
		Reason:           firstNonEmpty(string(raw.Reason), string(raw.Comment), string(raw.Commentaire)),
		PlannedReopening: firstNonEmpty(string(raw.PlannedReopening), string(raw.Reouverture)),
	}
	return nil
}

// looseString decodes a JSON string as is and any other value as "".
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		*s = ""
		return nil
	}
	*s = looseString(v)
	return nil
}

// UnmarshalJSON accepts "name" or "nom".
func (d *CenterDoc) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Nom  string `json:"nom"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = CenterDoc{ID: raw.ID, Name: firstNonEmpty(raw.Name, raw.Nom)}
	return nil
}

// CentersHandler receives the full center collection on every change, or an error.
type CentersHandler func(centers []CenterDoc, err error)

// RoomsHandler receives the full room collection of one center on every change, or an error.
type RoomsHandler func(rooms []RoomDoc, err error)

// Cancel stops a watch. Calling it more than once is harmless.
type Cancel func()

// Source is a hierarchical realtime document store.
type Source interface {
	WatchCenters(handler CentersHandler) Cancel
	WatchRooms(centerID string, handler RoomsHandler) Cancel
}

// Sink accepts full snapshots for a source to fan out.
type Sink interface {
	PublishCenters(centers []CenterDoc) error
	PublishRooms(centerID string, rooms []RoomDoc) error
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
