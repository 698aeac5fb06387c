// services/control_service.go
package services

import (
	"strconv"
	"strings"
	"time"

	"github.com/wfunc/roomboard/logger"
	"github.com/wfunc/roomboard/persistence"
	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/state"
)

// Recorder counts failed write-through saves. monitor.Monitor implements it.
type Recorder interface {
	IncPersistenceErrors()
}

// AttentionEntry is an attention item with its overdue flag evaluated.
type AttentionEntry struct {
	room.AttentionItem
	Overdue bool `json:"overdue"`
}

// ControlService is the operator facing side of the local control model. Every
// change is applied in memory first, then written through to the database when
// one is configured.
type ControlService struct {
	registry *room.Registry
	db       persistence.Database
	recorder Recorder
	now      func() time.Time
}

// NewControlService wires a registry to an optional database and recorder.
func NewControlService(registry *room.Registry, db persistence.Database, recorder Recorder) *ControlService {
	return &ControlService{
		registry: registry,
		db:       db,
		recorder: recorder,
		now:      time.Now,
	}
}

func (s *ControlService) Snapshot() room.Snapshot {
	return s.registry.Snapshot()
}

// ResolveCenter finds a center by ID, then by tag, then by position.
func (s *ControlService) ResolveCenter(key string) (int, error) {
	centers := s.registry.Snapshot().Centers
	for i, c := range centers {
		if c.ID == key {
			return i, nil
		}
	}
	for i, c := range centers {
		if c.Tag != "" && strings.EqualFold(c.Tag, key) {
			return i, nil
		}
	}
	if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(centers) {
		return i, nil
	}
	return -1, room.ErrCenterNotFound
}

// Transition applies action and returns the updated scenario. A persistence error
// is returned after the in-memory change has been made.
func (s *ControlService) Transition(centerIndex, scenarioIndex int, action state.Action) (room.Scenario, error) {
	if _, err := s.registry.Apply(centerIndex, scenarioIndex, action); err != nil {
		return room.Scenario{}, err
	}
	logger.Log.Infof("scenario %d/%d: %s", centerIndex, scenarioIndex, action)
	return s.persist(centerIndex, scenarioIndex)
}

// SetField edits one advisory field and returns the updated scenario.
func (s *ControlService) SetField(centerIndex, scenarioIndex int, field room.Field, value string) (room.Scenario, error) {
	if err := s.registry.SetField(centerIndex, scenarioIndex, field, value); err != nil {
		return room.Scenario{}, err
	}
	return s.persist(centerIndex, scenarioIndex)
}

// Attention 返回需要关注的场景
func (s *ControlService) Attention() []AttentionEntry {
	now := s.now()
	items := room.AttentionList(s.registry.Snapshot().Centers)
	entries := make([]AttentionEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, AttentionEntry{AttentionItem: item, Overdue: item.Overdue(now)})
	}
	return entries
}

// OpenRooms returns the Open scenarios of one center.
func (s *ControlService) OpenRooms(centerIndex int) ([]room.OpenRoom, error) {
	center, err := s.registry.Snapshot().Center(centerIndex)
	if err != nil {
		return nil, err
	}
	return room.OpenRooms(center), nil
}

// Restore loads centers from the database. It returns nil when there is no database
// or it is empty, so the caller falls back to its seed.
func (s *ControlService) Restore() ([]room.Center, error) {
	if s.db == nil {
		return nil, nil
	}
	return s.db.LoadCenters()
}

// SaveAll writes the whole registry.
func (s *ControlService) SaveAll() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.SaveCenters(s.registry.Snapshot().Centers); err != nil {
		s.failed(err)
		return err
	}
	return nil
}

func (s *ControlService) persist(centerIndex, scenarioIndex int) (room.Scenario, error) {
	snapshot := s.registry.Snapshot()
	scenario, err := snapshot.Scenario(centerIndex, scenarioIndex)
	if err != nil {
		return room.Scenario{}, err
	}
	if s.db == nil {
		return scenario, nil
	}
	centerID := snapshot.Centers[centerIndex].ID
	if err := s.db.SaveScenario(centerID, scenarioIndex, scenario); err != nil {
		s.failed(err)
		return scenario, err
	}
	return scenario, nil
}

func (s *ControlService) failed(err error) {
	logger.Log.Errorf("persistence: %v", err)
	if s.recorder != nil {
		s.recorder.IncPersistenceErrors()
	}
}

// Subscribe forwards to the registry; l gets the current snapshot immediately.
func (s *ControlService) Subscribe(l room.Listener) func() {
	return s.registry.Subscribe(l)
}
