package state

import (
	"errors"
	"sync"
)

// ErrTransitionNotAllowed is returned when a guard rejects a transition.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// ChangeHook is called after a transition that changed the status.
type ChangeHook func(from, to Status, action Action)

// Machine 状态机：守卫条件 + 变更回调
// Without guards every authoritative status reaches every other one.
type Machine struct {
	guards map[Status]map[Status]func() bool // from -> to -> condition
	hooks  []ChangeHook
	mutex  sync.RWMutex
}

func NewMachine() *Machine {
	return &Machine{
		guards: make(map[Status]map[Status]func() bool),
	}
}

// AddGuard installs a condition checked before moving from one status to another.
func (m *Machine) AddGuard(from, to Status, condition func() bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, exists := m.guards[from]; !exists {
		m.guards[from] = make(map[Status]func() bool)
	}
	m.guards[from][to] = condition
}

// OnChange registers a hook fired by Notify.
func (m *Machine) OnChange(hook ChangeHook) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.hooks = append(m.hooks, hook)
}

// Next computes the status reached by applying action to from.
func (m *Machine) Next(from Status, action Action) (Status, error) {
	to, err := Transition(from, action)
	if err != nil {
		return from, err
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	// 检查是否有转换条件
	if conditions, exists := m.guards[from]; exists {
		if condition, exists := conditions[to]; exists && condition != nil && !condition() {
			return from, ErrTransitionNotAllowed
		}
	}
	return to, nil
}

// Notify fires the change hooks when from and to differ.
func (m *Machine) Notify(from, to Status, action Action) {
	if from == to {
		return
	}
	m.mutex.RLock()
	hooks := make([]ChangeHook, len(m.hooks))
	copy(hooks, m.hooks)
	m.mutex.RUnlock()

	for _, hook := range hooks {
		hook(from, to, action)
	}
}
