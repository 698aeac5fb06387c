// room/room.go
package room

import (
	"errors"
	"strings"

	"github.com/wfunc/roomboard/state"
)

var (
	ErrCenterNotFound   = errors.New("center not found")
	ErrScenarioNotFound = errors.New("scenario not found")
	ErrUnknownField     = errors.New("unknown scenario field")
)

// Scenario is one playable room. Start and ExpectedReopen are local date-times kept
// exactly as entered; nothing validates them.
type Scenario struct {
	Name           string       `json:"name"`
	Status         state.Status `json:"status"`
	Reason         string       `json:"reason,omitempty"`
	Start          string       `json:"start,omitempty"`
	ExpectedReopen string       `json:"expectedReopen,omitempty"`
	Difficulty     string       `json:"difficulty,omitempty"`
	Capacity       string       `json:"capacity,omitempty"`
	OpenedOn       string       `json:"openedOn,omitempty"`
	Versions       []string     `json:"versions,omitempty"`
}

// Center 是一个逃脱室场馆，独占其所有场景
type Center struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Tag         string     `json:"tag"`
	Description string     `json:"description,omitempty"`
	Address     string     `json:"address,omitempty"`
	Manager     string     `json:"manager,omitempty"`
	Scenarios   []Scenario `json:"scenarios"`
}

// Field names an operator editable scenario field.
type Field int

const (
	FieldReason Field = iota + 1
	FieldStart
	FieldExpectedReopen
)

var fieldNames = map[string]Field{
	"reason":          FieldReason,
	"start":           FieldStart,
	"expectedreopen":  FieldExpectedReopen,
	"expected_reopen": FieldExpectedReopen,
}

// ParseField resolves a field name such as "expectedReopen".
func ParseField(name string) (Field, error) {
	if field, ok := fieldNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return field, nil
	}
	return 0, ErrUnknownField
}

func (f Field) String() string {
	switch f {
	case FieldReason:
		return "reason"
	case FieldStart:
		return "start"
	case FieldExpectedReopen:
		return "expectedReopen"
	default:
		return "unknown"
	}
}

// Get returns the current value of field.
func (s Scenario) Get(field Field) (string, error) {
	switch field {
	case FieldReason:
		return s.Reason, nil
	case FieldStart:
		return s.Start, nil
	case FieldExpectedReopen:
		return s.ExpectedReopen, nil
	default:
		return "", ErrUnknownField
	}
}

func (s Scenario) with(field Field, value string) (Scenario, error) {
	switch field {
	case FieldReason:
		s.Reason = value
	case FieldStart:
		s.Start = value
	case FieldExpectedReopen:
		s.ExpectedReopen = value
	default:
		return s, ErrUnknownField
	}
	return s, nil
}
