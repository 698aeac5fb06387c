package source

import (
	"sync"
	"sync/atomic"
)

// watcher serialises deliveries to one handler and drops snapshots older than the
// last one delivered.
type watcher[T any] struct {
	handler   func(T, error)
	mutex     sync.Mutex
	last      uint64
	cancelled atomic.Bool
}

func (w *watcher[T]) deliver(version uint64, value T, err error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	if w.cancelled.Load() || version < w.last {
		return
	}
	w.last = version
	w.handler(value, err)
}

// MemorySource is an in-process Source. Handlers run on the caller's goroutine of the
// Publish or Watch call that produced the snapshot, never under the source lock.
type MemorySource struct {
	centers        []CenterDoc
	rooms          map[string][]RoomDoc
	version        uint64
	centerWatchers map[int]*watcher[[]CenterDoc]
	roomWatchers   map[string]map[int]*watcher[[]RoomDoc]
	nextID         int
	mutex          sync.Mutex
}

func NewMemorySource() *MemorySource {
	return &MemorySource{
		rooms:          make(map[string][]RoomDoc),
		centerWatchers: make(map[int]*watcher[[]CenterDoc]),
		roomWatchers:   make(map[string]map[int]*watcher[[]RoomDoc]),
	}
}

// WatchCenters delivers the current centers and every later change.
func (m *MemorySource) WatchCenters(handler CentersHandler) Cancel {
	w := &watcher[[]CenterDoc]{handler: handler}

	m.mutex.Lock()
	id := m.nextID
	m.nextID++
	m.centerWatchers[id] = w
	version := m.version
	centers := cloneCenters(m.centers)
	m.mutex.Unlock()

	w.deliver(version, centers, nil)

	return func() {
		w.cancelled.Store(true)
		m.mutex.Lock()
		delete(m.centerWatchers, id)
		m.mutex.Unlock()
	}
}

// WatchRooms delivers the current rooms of centerID and every later change.
// Watching a center that does not exist yet delivers an empty snapshot.
func (m *MemorySource) WatchRooms(centerID string, handler RoomsHandler) Cancel {
	w := &watcher[[]RoomDoc]{handler: handler}

	m.mutex.Lock()
	id := m.nextID
	m.nextID++
	if _, ok := m.roomWatchers[centerID]; !ok {
		m.roomWatchers[centerID] = make(map[int]*watcher[[]RoomDoc])
	}
	m.roomWatchers[centerID][id] = w
	version := m.version
	rooms := cloneRooms(m.rooms[centerID])
	m.mutex.Unlock()

	w.deliver(version, rooms, nil)

	return func() {
		w.cancelled.Store(true)
		m.mutex.Lock()
		defer m.mutex.Unlock()
		if watchers, ok := m.roomWatchers[centerID]; ok {
			delete(watchers, id)
			if len(watchers) == 0 {
				delete(m.roomWatchers, centerID)
			}
		}
	}
}

// PublishCenters replaces the center collection. Rooms of removed centers are dropped.
func (m *MemorySource) PublishCenters(centers []CenterDoc) error {
	m.mutex.Lock()
	m.version++
	version := m.version
	m.centers = cloneCenters(centers)
	keep := make(map[string]bool, len(centers))
	for _, c := range centers {
		keep[c.ID] = true
	}
	for id := range m.rooms {
		if !keep[id] {
			delete(m.rooms, id)
		}
	}
	watchers := m.centerWatcherList()
	snapshot := cloneCenters(m.centers)
	m.mutex.Unlock()

	for _, w := range watchers {
		w.deliver(version, snapshot, nil)
	}
	return nil
}

// PublishRooms replaces the room collection of one center.
func (m *MemorySource) PublishRooms(centerID string, rooms []RoomDoc) error {
	m.mutex.Lock()
	m.version++
	version := m.version
	m.rooms[centerID] = cloneRooms(rooms)
	watchers := m.roomWatcherList(centerID)
	snapshot := cloneRooms(rooms)
	m.mutex.Unlock()

	for _, w := range watchers {
		w.deliver(version, snapshot, nil)
	}
	return nil
}

// Fail delivers err to every watcher, simulating a delivery failure of the backend.
// Stored snapshots are untouched.
func (m *MemorySource) Fail(err error) {
	m.mutex.Lock()
	m.version++
	version := m.version
	centerWatchers := m.centerWatcherList()
	var roomWatchers []*watcher[[]RoomDoc]
	for centerID := range m.roomWatchers {
		roomWatchers = append(roomWatchers, m.roomWatcherList(centerID)...)
	}
	m.mutex.Unlock()

	for _, w := range centerWatchers {
		w.deliver(version, nil, err)
	}
	for _, w := range roomWatchers {
		w.deliver(version, nil, err)
	}
}

// WatcherCount reports how many watches are registered.
func (m *MemorySource) WatcherCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	count := len(m.centerWatchers)
	for _, watchers := range m.roomWatchers {
		count += len(watchers)
	}
	return count
}

func (m *MemorySource) centerWatcherList() []*watcher[[]CenterDoc] {
	list := make([]*watcher[[]CenterDoc], 0, len(m.centerWatchers))
	for _, w := range m.centerWatchers {
		list = append(list, w)
	}
	return list
}

func (m *MemorySource) roomWatcherList(centerID string) []*watcher[[]RoomDoc] {
	list := make([]*watcher[[]RoomDoc], 0, len(m.roomWatchers[centerID]))
	for _, w := range m.roomWatchers[centerID] {
		list = append(list, w)
	}
	return list
}

func cloneCenters(centers []CenterDoc) []CenterDoc {
	out := make([]CenterDoc, len(centers))
	copy(out, centers)
	return out
}

func cloneRooms(rooms []RoomDoc) []RoomDoc {
	out := make([]RoomDoc, len(rooms))
	copy(out, rooms)
	return out
}
