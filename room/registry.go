package room

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/wfunc/roomboard/state"
)

// Registry owns the centers of the local control model. Every mutation swaps in a new
// Snapshot and notifies listeners in mutation order.
type Registry struct {
	snapshot    Snapshot
	machine     *state.Machine
	listeners   map[int]Listener
	nextID      int
	mutex       sync.RWMutex
	notifyMutex sync.Mutex
}

// centerNamespace scopes the IDs derived for centers without one.
var centerNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("roomboard:center"))

// NewRegistry 创建注册表，缺少 ID 的场馆按 tag 和名称派生一个稳定的 UUID
func NewRegistry(centers []Center) *Registry {
	owned := make([]Center, len(centers))
	used := make(map[string]bool, len(centers))
	for _, center := range centers {
		if center.ID != "" {
			used[center.ID] = true
		}
	}
	for i, center := range centers {
		if center.ID == "" {
			center.ID = derivedID(center, used)
			used[center.ID] = true
		}
		scenarios := make([]Scenario, len(center.Scenarios))
		copy(scenarios, center.Scenarios)
		center.Scenarios = scenarios
		owned[i] = center
	}
	return &Registry{
		snapshot:  Snapshot{Centers: owned},
		machine:   state.NewMachine(),
		listeners: make(map[int]Listener),
	}
}

// derivedID is the same across restarts for the same tag and name, so a compacted
// center topic keeps one entry per center.
func derivedID(center Center, used map[string]bool) string {
	key := center.Tag + "/" + center.Name
	id := uuid.NewSHA1(centerNamespace, []byte(key)).String()
	for n := 2; used[id]; n++ {
		id = uuid.NewSHA1(centerNamespace, []byte(fmt.Sprintf("%s#%d", key, n))).String()
	}
	return id
}

// Snapshot returns the current snapshot.
func (r *Registry) Snapshot() Snapshot {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.snapshot
}

// Reopen sets the scenario to Open.
func (r *Registry) Reopen(centerIndex, scenarioIndex int) error {
	_, err := r.Apply(centerIndex, scenarioIndex, state.ActionReopen)
	return err
}

// Close sets the scenario to Closed.
func (r *Registry) Close(centerIndex, scenarioIndex int) error {
	_, err := r.Apply(centerIndex, scenarioIndex, state.ActionClose)
	return err
}

// FlagMaintenance sets the scenario to Maintenance.
func (r *Registry) FlagMaintenance(centerIndex, scenarioIndex int) error {
	_, err := r.Apply(centerIndex, scenarioIndex, state.ActionFlagMaintenance)
	return err
}

// Machine exposes the transition policy so callers can add guards and change hooks.
func (r *Registry) Machine() *state.Machine {
	return r.machine
}

// Apply runs a transition and returns the resulting status.
func (r *Registry) Apply(centerIndex, scenarioIndex int, action state.Action) (state.Status, error) {
	var from, to state.Status
	err := r.update(func(s Snapshot) (Snapshot, error) {
		current, err := s.Scenario(centerIndex, scenarioIndex)
		if err != nil {
			return s, err
		}
		from = current.Status
		to, err = r.machine.Next(from, action)
		if err != nil {
			return s, err
		}
		return s.withStatus(centerIndex, scenarioIndex, to), nil
	})
	if err != nil {
		return from, err
	}
	r.machine.Notify(from, to, action)
	return to, nil
}

// SetField edits one advisory field of one scenario.
func (r *Registry) SetField(centerIndex, scenarioIndex int, field Field, value string) error {
	return r.update(func(s Snapshot) (Snapshot, error) {
		return s.WithField(centerIndex, scenarioIndex, field, value)
	})
}

// Subscribe registers l and immediately hands it the current snapshot.
// The returned func removes the listener and may be called more than once.
func (r *Registry) Subscribe(l Listener) func() {
	r.notifyMutex.Lock()
	r.mutex.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = l
	current := r.snapshot
	r.mutex.Unlock()
	l(current)
	r.notifyMutex.Unlock()

	return func() {
		r.mutex.Lock()
		defer r.mutex.Unlock()
		delete(r.listeners, id)
	}
}

func (r *Registry) update(fn func(Snapshot) (Snapshot, error)) error {
	r.notifyMutex.Lock()
	defer r.notifyMutex.Unlock()

	r.mutex.Lock()
	next, err := fn(r.snapshot)
	if err != nil {
		r.mutex.Unlock()
		return err
	}
	r.snapshot = next
	listeners := make([]Listener, 0, len(r.listeners))
	for _, l := range r.listeners {
		listeners = append(listeners, l)
	}
	r.mutex.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return nil
}
