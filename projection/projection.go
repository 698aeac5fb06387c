// Package projection keeps a read-only, per-center mirror of a realtime source.
//
// One watch is held on the center collection and one per known center on its room
// collection. Every room snapshot replaces only its own center's entry, through the
// Merge reducer, and the whole view is then republished to subscribers.
package projection

import (
	"sync"

	"github.com/wfunc/roomboard/logger"
	"github.com/wfunc/roomboard/source"
)

// Observer is told about applied snapshots and delivery failures.
type Observer interface {
	SnapshotApplied(centerID string, rooms int)
	DeliveryFailed(centerID string)
}

type Option func(*Projection)

// WithObserver attaches o to the projection.
func WithObserver(o Observer) Option {
	return func(p *Projection) { p.observer = o }
}

// innerWatch identifies one room watch; handlers of a replaced watch are ignored.
type innerWatch struct {
	cancel source.Cancel
}

type Projection struct {
	src      source.Source
	observer Observer

	mutex       sync.Mutex
	view        View
	seq         uint64
	names       map[string]string
	inner       map[string]*innerWatch
	outer       source.Cancel
	started     bool
	closed      bool
	subscribers map[int]func(View)
	nextID      int

	notifyMutex sync.Mutex
	published   uint64
}

func New(src source.Source, opts ...Option) *Projection {
	p := &Projection{
		src:         src,
		view:        View{},
		names:       make(map[string]string),
		inner:       make(map[string]*innerWatch),
		subscribers: make(map[int]func(View)),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start subscribes to the center collection. Calling it again has no effect.
func (p *Projection) Start() {
	p.mutex.Lock()
	if p.started || p.closed {
		p.mutex.Unlock()
		return
	}
	p.started = true
	p.mutex.Unlock()

	cancel := p.src.WatchCenters(p.onCenters)

	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		cancel()
		return
	}
	p.outer = cancel
	p.mutex.Unlock()
}

// View returns the current view.
func (p *Projection) View() View {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.view
}

// Subscribe hands fn the current view and then every newer one, in order.
func (p *Projection) Subscribe(fn func(View)) source.Cancel {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()

	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		return func() {}
	}
	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	current := p.view
	p.mutex.Unlock()

	fn(current)

	return func() {
		p.mutex.Lock()
		defer p.mutex.Unlock()
		delete(p.subscribers, id)
	}
}

// Close cancels the center watch and every room watch, including ones still being
// set up. It is safe to call more than once; no update is published afterwards.
func (p *Projection) Close() {
	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		return
	}
	p.closed = true
	outer := p.outer
	p.outer = nil
	inner := p.inner
	p.inner = make(map[string]*innerWatch)
	p.subscribers = make(map[int]func(View))
	p.mutex.Unlock()

	if outer != nil {
		outer()
	}
	for _, w := range inner {
		if w.cancel != nil {
			w.cancel()
		}
	}
}

// ActiveWatches reports the number of room watches held.
func (p *Projection) ActiveWatches() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.inner)
}

func (p *Projection) onCenters(centers []source.CenterDoc, err error) {
	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		return
	}
	if err != nil {
		p.mutex.Unlock()
		// Keep the previous view, a transient failure is not "no data".
		logger.Log.Warnf("projection: center watch failed: %v", err)
		if p.observer != nil {
			p.observer.DeliveryFailed("")
		}
		return
	}

	seen := make(map[string]bool, len(centers))
	var added []string
	for _, c := range centers {
		seen[c.ID] = true
		name := displayName(c)
		p.names[c.ID] = name
		if _, ok := p.inner[c.ID]; !ok {
			p.inner[c.ID] = &innerWatch{}
			added = append(added, c.ID)
			continue
		}
		if entry, ok := p.view[c.ID]; ok && entry.Name != name {
			entry.Name = name
			p.view = Merge(p.view, c.ID, entry)
			p.seq++
		}
	}

	var removed []source.Cancel
	for id, w := range p.inner {
		if seen[id] {
			continue
		}
		if w.cancel != nil {
			removed = append(removed, w.cancel)
		}
		delete(p.inner, id)
		delete(p.names, id)
		if _, ok := p.view[id]; ok {
			p.view = Without(p.view, id)
			p.seq++
		}
	}

	pending := make(map[string]*innerWatch, len(added))
	for _, id := range added {
		pending[id] = p.inner[id]
	}
	p.mutex.Unlock()

	for _, cancel := range removed {
		cancel()
	}
	for _, id := range added {
		p.watchRooms(id, pending[id])
	}
	p.publish()
}

func (p *Projection) watchRooms(centerID string, w *innerWatch) {
	cancel := p.src.WatchRooms(centerID, func(rooms []source.RoomDoc, err error) {
		p.onRooms(centerID, w, rooms, err)
	})

	p.mutex.Lock()
	if p.closed || p.inner[centerID] != w {
		// Closed or the center vanished while the watch was being set up.
		p.mutex.Unlock()
		cancel()
		return
	}
	w.cancel = cancel
	p.mutex.Unlock()
}

func (p *Projection) onRooms(centerID string, w *innerWatch, rooms []source.RoomDoc, err error) {
	p.mutex.Lock()
	if p.closed || p.inner[centerID] != w {
		p.mutex.Unlock()
		return
	}
	if err != nil {
		p.mutex.Unlock()
		logger.Log.Warnf("projection: room watch for center %s failed: %v", centerID, err)
		if p.observer != nil {
			p.observer.DeliveryFailed(centerID)
		}
		return
	}
	p.view = Merge(p.view, centerID, NewEntry(p.names[centerID], rooms))
	p.seq++
	p.mutex.Unlock()

	if p.observer != nil {
		p.observer.SnapshotApplied(centerID, len(rooms))
	}
	p.publish()
}

// publish hands the latest view to subscribers. Views are delivered in sequence
// order; intermediate views may be skipped.
func (p *Projection) publish() {
	p.notifyMutex.Lock()
	defer p.notifyMutex.Unlock()

	p.mutex.Lock()
	if p.closed || p.seq <= p.published {
		p.mutex.Unlock()
		return
	}
	p.published = p.seq
	view := p.view
	subscribers := make([]func(View), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		subscribers = append(subscribers, fn)
	}
	p.mutex.Unlock()

	for _, fn := range subscribers {
		fn(view)
	}
}

func displayName(c source.CenterDoc) string {
	if c.Name == "" {
		return c.ID
	}
	return c.Name
}
