package room

import (
	"fmt"

	"github.com/wfunc/roomboard/state"
)

// Snapshot is an immutable view of every center. Update functions return a new
// Snapshot and leave the receiver untouched; untouched centers share their slices.
type Snapshot struct {
	Version uint64   `json:"version"`
	Centers []Center `json:"centers"`
}

// Center returns the center at index.
func (s Snapshot) Center(centerIndex int) (Center, error) {
	if centerIndex < 0 || centerIndex >= len(s.Centers) {
		return Center{}, fmt.Errorf("%w: index %d", ErrCenterNotFound, centerIndex)
	}
	return s.Centers[centerIndex], nil
}

// Scenario returns the scenario at the given position.
func (s Snapshot) Scenario(centerIndex, scenarioIndex int) (Scenario, error) {
	center, err := s.Center(centerIndex)
	if err != nil {
		return Scenario{}, err
	}
	if scenarioIndex < 0 || scenarioIndex >= len(center.Scenarios) {
		return Scenario{}, fmt.Errorf("%w: center %s index %d", ErrScenarioNotFound, center.ID, scenarioIndex)
	}
	return center.Scenarios[scenarioIndex], nil
}

// WithStatus applies action to one scenario. Advisory fields are kept as they are,
// reopening does not clear reason, start or expectedReopen.
func (s Snapshot) WithStatus(centerIndex, scenarioIndex int, action state.Action) (Snapshot, state.Status, error) {
	current, err := s.Scenario(centerIndex, scenarioIndex)
	if err != nil {
		return s, state.StatusUnknown, err
	}
	next, err := state.Transition(current.Status, action)
	if err != nil {
		return s, current.Status, err
	}
	return s.withStatus(centerIndex, scenarioIndex, next), next, nil
}

func (s Snapshot) withStatus(centerIndex, scenarioIndex int, status state.Status) Snapshot {
	current := s.Centers[centerIndex].Scenarios[scenarioIndex]
	current.Status = status
	return s.replace(centerIndex, scenarioIndex, current)
}

// WithField sets one advisory field. Any string is accepted, the empty string clears it.
func (s Snapshot) WithField(centerIndex, scenarioIndex int, field Field, value string) (Snapshot, error) {
	current, err := s.Scenario(centerIndex, scenarioIndex)
	if err != nil {
		return s, err
	}
	updated, err := current.with(field, value)
	if err != nil {
		return s, err
	}
	return s.replace(centerIndex, scenarioIndex, updated), nil
}

func (s Snapshot) replace(centerIndex, scenarioIndex int, scenario Scenario) Snapshot {
	centers := make([]Center, len(s.Centers))
	copy(centers, s.Centers)

	center := centers[centerIndex]
	scenarios := make([]Scenario, len(center.Scenarios))
	copy(scenarios, center.Scenarios)
	scenarios[scenarioIndex] = scenario
	center.Scenarios = scenarios
	centers[centerIndex] = center

	return Snapshot{Version: s.Version + 1, Centers: centers}
}
