package projection

import (
	"sort"

	"github.com/wfunc/roomboard/source"
	"github.com/wfunc/roomboard/state"
)

// unknownLabel is shown for rooms that arrive without a status.
const unknownLabel = "Inconnu"

// RoomView is a display ready room. Status is the normalised display category and
// Label the status text as received.
type RoomView struct {
	ID               string       `json:"id"`
	Name             string       `json:"name"`
	Status           state.Status `json:"status"`
	Label            string       `json:"label"`
	Comment          string       `json:"comment,omitempty"`
	PlannedReopening string       `json:"plannedReopening,omitempty"`
}

// Entry is the projection of one center.
type Entry struct {
	Name  string     `json:"name"`
	Rooms []RoomView `json:"rooms"`
}

// View maps center ID to its entry. Views are never modified after publication.
type View map[string]Entry

// NewRoomView normalises an external room document. It never fails.
func NewRoomView(doc source.RoomDoc) RoomView {
	label := doc.Status
	if label == "" {
		label = unknownLabel
	}
	return RoomView{
		ID:               doc.ID,
		Name:             doc.Name,
		Status:           state.ParseStatus(doc.Status),
		Label:            label,
		Comment:          doc.Reason,
		PlannedReopening: doc.PlannedReopening,
	}
}

// NewEntry builds the entry of one center from its room snapshot.
func NewEntry(name string, rooms []source.RoomDoc) Entry {
	views := make([]RoomView, 0, len(rooms))
	for _, doc := range rooms {
		views = append(views, NewRoomView(doc))
	}
	return Entry{Name: name, Rooms: views}
}

// Merge returns a copy of view with centerID set to entry. view itself is not modified.
func Merge(view View, centerID string, entry Entry) View {
	next := make(View, len(view)+1)
	for id, e := range view {
		next[id] = e
	}
	next[centerID] = entry
	return next
}

// Without returns a copy of view without centerID.
func Without(view View, centerID string) View {
	if _, ok := view[centerID]; !ok {
		return view
	}
	next := make(View, len(view))
	for id, e := range view {
		if id != centerID {
			next[id] = e
		}
	}
	return next
}

// IDs lists center IDs ordered by display name, then ID.
func (v View) IDs() []string {
	ids := make([]string, 0, len(v))
	for id := range v {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := v[ids[i]], v[ids[j]]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Count returns the number of rooms per display category.
func (v View) Count() map[state.Status]int {
	counts := make(map[state.Status]int)
	for _, entry := range v {
		for _, r := range entry.Rooms {
			counts[r.Status]++
		}
	}
	return counts
}
