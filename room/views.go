package room

import (
	"time"
)

// localLayouts are the date-time shapes operators type into the editor.
var localLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// AttentionItem is a scenario that is not Open, addressed by its position.
type AttentionItem struct {
	Scenario
	CenterID      string `json:"centerId"`
	CenterName    string `json:"centerName"`
	CenterTag     string `json:"centerTag"`
	CenterIndex   int    `json:"centerIndex"`
	ScenarioIndex int    `json:"scenarioIndex"`
}

// Overdue reports whether the expected reopening is in the past.
// Values that do not parse are never overdue.
func (i AttentionItem) Overdue(now time.Time) bool {
	reopen, ok := ParseLocalTime(i.ExpectedReopen, now.Location())
	if !ok {
		return false
	}
	return reopen.Before(now)
}

// OpenRoom is an Open scenario with its index inside the center.
type OpenRoom struct {
	Scenario
	Index int `json:"index"`
}

// AttentionList returns every scenario whose status is not Open, centers in stored
// order then scenarios in stored order. It is recomputed in full on each call.
func AttentionList(centers []Center) []AttentionItem {
	items := make([]AttentionItem, 0)
	for ci, center := range centers {
		for si, scenario := range center.Scenarios {
			if scenario.Status.IsOpen() {
				continue
			}
			items = append(items, AttentionItem{
				Scenario:      scenario,
				CenterID:      center.ID,
				CenterName:    center.Name,
				CenterTag:     center.Tag,
				CenterIndex:   ci,
				ScenarioIndex: si,
			})
		}
	}
	return items
}

// OpenRooms returns the Open scenarios of center in stored order.
func OpenRooms(center Center) []OpenRoom {
	rooms := make([]OpenRoom, 0, len(center.Scenarios))
	for i, scenario := range center.Scenarios {
		if scenario.Status.IsOpen() {
			rooms = append(rooms, OpenRoom{Scenario: scenario, Index: i})
		}
	}
	return rooms
}

// ParseLocalTime parses s as a local date-time in loc.
func ParseLocalTime(s string, loc *time.Location) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
