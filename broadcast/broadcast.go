// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"time"

	"github.com/wfunc/roomboard/logger"
	"github.com/wfunc/roomboard/network"
	"github.com/wfunc/roomboard/projection"
	"github.com/wfunc/roomboard/room"
	"github.com/wfunc/roomboard/session"
)

// 广播接口
type Broadcaster interface {
	BroadcastToCenter(centerID string, msgID uint16, data []byte) error
	BroadcastToAll(msgID uint16, data []byte) error
}

// Recorder receives delivery metrics. monitor.Monitor implements it.
type Recorder interface {
	IncMessagesSent()
	ObserveBroadcastLatency(d time.Duration)
	DecOnlineViewers()
}

type nopRecorder struct{}

func (nopRecorder) IncMessagesSent()                      {}
func (nopRecorder) ObserveBroadcastLatency(time.Duration) {}
func (nopRecorder) DecOnlineViewers()                     {}

// ViewBroadcaster pushes projection views and heartbeats to viewer sessions.
// A session whose send fails is closed and dropped.
type ViewBroadcaster struct {
	sessionManager *session.Manager
	recorder       Recorder
}

func NewViewBroadcaster(sessionManager *session.Manager, recorder Recorder) *ViewBroadcaster {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &ViewBroadcaster{
		sessionManager: sessionManager,
		recorder:       recorder,
	}
}

func (b *ViewBroadcaster) BroadcastToCenter(centerID string, msgID uint16, data []byte) error {
	b.sendAll(b.sessionManager.Watching(centerID), msgID, data)
	return nil
}

func (b *ViewBroadcaster) BroadcastToAll(msgID uint16, data []byte) error {
	b.sendAll(b.sessionManager.All(), msgID, data)
	return nil
}

// PushView sends view to every session. Filtered sessions get only their center.
func (b *ViewBroadcaster) PushView(view projection.View) error {
	start := time.Now()
	defer func() { b.recorder.ObserveBroadcastLatency(time.Since(start)) }()

	encoded := make(map[string][]byte)
	for _, s := range b.sessionManager.All() {
		center := s.Center()
		data, ok := encoded[center]
		if !ok {
			var err error
			data, err = json.Marshal(filterView(view, center))
			if err != nil {
				return err
			}
			encoded[center] = data
		}
		b.send(s, network.MsgTypeProjection, data)
	}
	return nil
}

// SendView sends view to one session, used right after a viewer connects or
// changes its filter.
func (b *ViewBroadcaster) SendView(s *session.Session, view projection.View) error {
	data, err := json.Marshal(filterView(view, s.Center()))
	if err != nil {
		return err
	}
	return s.Send(network.MsgTypeProjection, data)
}

// PushAttention sends the attention list of the control model to every session.
func (b *ViewBroadcaster) PushAttention(items []room.AttentionItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return b.BroadcastToAll(network.MsgTypeAttention, data)
}

// Heartbeat 心跳包
func (b *ViewBroadcaster) Heartbeat(now time.Time) error {
	data, err := json.Marshal(network.HeartbeatPayload{Time: now.Unix()})
	if err != nil {
		return err
	}
	return b.BroadcastToAll(network.MsgTypeHeartbeat, data)
}

func (b *ViewBroadcaster) sendAll(sessions []*session.Session, msgID uint16, data []byte) {
	for _, s := range sessions {
		b.send(s, msgID, data)
	}
}

func (b *ViewBroadcaster) send(s *session.Session, msgID uint16, data []byte) {
	if err := s.Send(msgID, data); err != nil {
		// 发送失败，移除会话
		logger.Log.Warnf("dropping viewer %s: %v", s.ID, err)
		if b.sessionManager.Remove(s.ID) {
			b.recorder.DecOnlineViewers()
		}
		s.Close()
		return
	}
	b.recorder.IncMessagesSent()
}

func filterView(view projection.View, centerID string) projection.View {
	if centerID == "" {
		return view
	}
	filtered := projection.View{}
	if entry, ok := view[centerID]; ok {
		filtered[centerID] = entry
	}
	return filtered
}
