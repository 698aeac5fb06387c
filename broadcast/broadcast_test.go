package broadcast

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/roomboard/network"
	"github.com/wfunc/roomboard/projection"
	"github.com/wfunc/roomboard/session"
	"github.com/wfunc/roomboard/state"
)

// MockConnection records sent packets and can be told to fail.
type MockConnection struct {
	mutex  sync.Mutex
	sent   []network.Packet
	fail   bool
	closed bool
}

func (m *MockConnection) Send(msgID uint16, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.fail {
		return errors.New("broken pipe")
	}
	m.sent = append(m.sent, network.Packet{MsgID: msgID, Data: data, Length: uint32(len(data))})
	return nil
}

func (m *MockConnection) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.closed = true
	return nil
}

func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func (m *MockConnection) packets() []network.Packet {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return append([]network.Packet(nil), m.sent...)
}

type countingRecorder struct {
	sent    int
	dropped int
}

func (r *countingRecorder) IncMessagesSent()                      { r.sent++ }
func (r *countingRecorder) ObserveBroadcastLatency(time.Duration) {}
func (r *countingRecorder) DecOnlineViewers()                     { r.dropped++ }

func testView() projection.View {
	return projection.View{
		"vp": {Name: "Vortex Plateau", Rooms: []projection.RoomView{
			{ID: "0", Name: "Le Pacte", Status: state.StatusOpen, Label: "Ouvert"},
		}},
		"ftk": {Name: "Find The Key", Rooms: []projection.RoomView{
			{ID: "0", Name: "Le Trésor", Status: state.StatusMaintenance, Label: "Maintenance"},
		}},
	}
}

func TestPushView_FiltersPerSession(t *testing.T) {
	manager := session.NewManager()
	allConn, vpConn := &MockConnection{}, &MockConnection{}
	manager.Add(session.NewSession("all", allConn))
	vp := session.NewSession("vp", vpConn)
	vp.SetCenter("vp")
	manager.Add(vp)

	recorder := &countingRecorder{}
	b := NewViewBroadcaster(manager, recorder)
	if err := b.PushView(testView()); err != nil {
		t.Fatalf("PushView failed: %v", err)
	}

	var all, filtered projection.View
	if err := json.Unmarshal(allConn.packets()[0].Data, &all); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal(vpConn.packets()[0].Data, &filtered); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("Expected 2 centers for the unfiltered viewer, got %d", len(all))
	}
	if len(filtered) != 1 || filtered["vp"].Name != "Vortex Plateau" {
		t.Errorf("Expected only vp for the filtered viewer, got %v", filtered)
	}
	if recorder.sent != 2 {
		t.Errorf("Expected 2 sent messages, got %d", recorder.sent)
	}
}

func TestSend_DropsBrokenSessions(t *testing.T) {
	manager := session.NewManager()
	broken := &MockConnection{fail: true}
	manager.Add(session.NewSession("broken", broken))
	manager.Add(session.NewSession("ok", &MockConnection{}))

	recorder := &countingRecorder{}
	b := NewViewBroadcaster(manager, recorder)
	if err := b.Heartbeat(time.Unix(1700000000, 0)); err != nil {
		t.Fatalf("Heartbeat failed: %v", err)
	}

	if manager.Count() != 1 {
		t.Errorf("Expected the broken session to be removed, %d left", manager.Count())
	}
	if !broken.closed {
		t.Error("Expected the broken connection to be closed")
	}
	if recorder.dropped != 1 {
		t.Errorf("Expected 1 dropped viewer, got %d", recorder.dropped)
	}
}

func TestBroadcastToCenter(t *testing.T) {
	manager := session.NewManager()
	vpConn, ftkConn := &MockConnection{}, &MockConnection{}
	vp := session.NewSession("vp", vpConn)
	vp.SetCenter("vp")
	ftk := session.NewSession("ftk", ftkConn)
	ftk.SetCenter("ftk")
	manager.Add(vp)
	manager.Add(ftk)

	b := NewViewBroadcaster(manager, nil)
	b.BroadcastToCenter("vp", network.MsgTypeHeartbeat, []byte("{}"))

	if len(vpConn.packets()) != 1 {
		t.Errorf("Expected vp viewer to receive 1 packet, got %d", len(vpConn.packets()))
	}
	if len(ftkConn.packets()) != 0 {
		t.Errorf("Expected ftk viewer to receive nothing, got %d", len(ftkConn.packets()))
	}
}
