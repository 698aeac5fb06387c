package state

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Status is the operational state of a scenario.
type Status int

const (
	// StatusUnknown only comes from external data and is never a transition target.
	StatusUnknown Status = iota
	StatusOpen
	StatusClosed
	StatusMaintenance
)

var statusNames = map[Status]string{
	StatusUnknown:     "Unknown",
	StatusOpen:        "Open",
	StatusClosed:      "Closed",
	StatusMaintenance: "Maintenance",
}

// 运营人员界面使用的法语标签
var statusLabels = map[Status]string{
	StatusUnknown:     "Inconnu",
	StatusOpen:        "Ouvert",
	StatusClosed:      "Fermé",
	StatusMaintenance: "Maintenance",
}

// knownLabels maps folded labels to their status. Keys are lower case without accents.
var knownLabels = map[string]Status{
	"open":        StatusOpen,
	"ouvert":      StatusOpen,
	"closed":      StatusClosed,
	"ferme":       StatusClosed,
	"maintenance": StatusMaintenance,
	"bris":        StatusMaintenance,
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return statusNames[StatusUnknown]
}

// Label returns the operator facing label.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return statusLabels[StatusUnknown]
}

// Authoritative reports whether s can be the result of a transition.
func (s Status) Authoritative() bool {
	return s == StatusOpen || s == StatusClosed || s == StatusMaintenance
}

func (s Status) IsOpen() bool {
	return s == StatusOpen
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	*s = ParseStatus(string(text))
	return nil
}

// ParseStatus matches label against the known labels ignoring case and accents.
// Anything else, including the empty string, is StatusUnknown.
func ParseStatus(label string) Status {
	if status, ok := knownLabels[fold(label)]; ok {
		return status
	}
	return StatusUnknown
}

func fold(s string) string {
	s = strings.TrimSpace(s)
	// Transformers carry state, build a fresh chain per call.
	stripped, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		stripped = s
	}
	return cases.Fold().String(stripped)
}

// Action is an operator transition.
type Action int

const (
	ActionReopen Action = iota + 1
	ActionClose
	ActionFlagMaintenance
)

// ErrUnknownAction is returned when an action name is not recognised.
var ErrUnknownAction = errors.New("unknown action")

var actionNames = map[string]Action{
	"reopen":      ActionReopen,
	"close":       ActionClose,
	"maintenance": ActionFlagMaintenance,
}

// ParseAction resolves the action names used by the HTTP and RPC surfaces.
func ParseAction(name string) (Action, error) {
	if action, ok := actionNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return action, nil
	}
	return 0, ErrUnknownAction
}

func (a Action) String() string {
	for name, action := range actionNames {
		if action == a {
			return name
		}
	}
	return "unknown"
}

// Target is the status an action assigns.
func (a Action) Target() Status {
	switch a {
	case ActionReopen:
		return StatusOpen
	case ActionClose:
		return StatusClosed
	case ActionFlagMaintenance:
		return StatusMaintenance
	default:
		return StatusUnknown
	}
}

// Transition applies action to from. Every authoritative status can reach every other,
// so the result only depends on the action.
func Transition(from Status, action Action) (Status, error) {
	to := action.Target()
	if !to.Authoritative() {
		return from, ErrUnknownAction
	}
	return to, nil
}
