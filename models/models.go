// models/models.go
package models

import (
	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/state"
)

// FromCenter converts a registry center stored at position.
func FromCenter(position int, c room.Center) CenterModel {
	model := CenterModel{
		ID:          c.ID,
		Position:    position,
		Name:        c.Name,
		Tag:         c.Tag,
		Description: c.Description,
		Address:     c.Address,
		Manager:     c.Manager,
	}
	for i, s := range c.Scenarios {
		model.Scenarios = append(model.Scenarios, FromScenario(c.ID, i, s))
	}
	return model
}

// FromScenario converts one scenario of centerID.
func FromScenario(centerID string, position int, s room.Scenario) ScenarioModel {
	return ScenarioModel{
		CenterID:       centerID,
		Position:       position,
		Name:           s.Name,
		Status:         s.Status.String(),
		Reason:         s.Reason,
		StartAt:        s.Start,
		ExpectedReopen: s.ExpectedReopen,
		Difficulty:     s.Difficulty,
		Capacity:       s.Capacity,
		OpenedOn:       s.OpenedOn,
		Versions:       s.Versions,
	}
}

// ToCenter converts back. Scenarios must already be ordered by position.
func (m CenterModel) ToCenter() room.Center {
	center := room.Center{
		ID:          m.ID,
		Name:        m.Name,
		Tag:         m.Tag,
		Description: m.Description,
		Address:     m.Address,
		Manager:     m.Manager,
		Scenarios:   make([]room.Scenario, 0, len(m.Scenarios)),
	}
	for _, s := range m.Scenarios {
		center.Scenarios = append(center.Scenarios, s.ToScenario())
	}
	return center
}

func (m ScenarioModel) ToScenario() room.Scenario {
	var versions []string
	if len(m.Versions) > 0 {
		versions = append(versions, m.Versions...)
	}
	return room.Scenario{
		Name:           m.Name,
		Status:         state.ParseStatus(m.Status),
		Reason:         m.Reason,
		Start:          m.StartAt,
		ExpectedReopen: m.ExpectedReopen,
		Difficulty:     m.Difficulty,
		Capacity:       m.Capacity,
		OpenedOn:       m.OpenedOn,
		Versions:       versions,
	}
}
