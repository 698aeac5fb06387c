package session

import (
	"net"
	"testing"
	"time"

	"github.com/wfunc/roomboard/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error { return nil }
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	// Test Add
	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	// Test Get
	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	// Test Remove
	if !manager.Remove(sessionID) {
		t.Fatal("Remove should report the session as present")
	}
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}
	if manager.Remove(sessionID) {
		t.Fatal("Removing twice should report the session as absent")
	}

	_, exists = manager.Get(sessionID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_Watching(t *testing.T) {
	manager := NewManager()

	all := NewSession("all", &MockConnection{})
	vp := NewSession("vp", &MockConnection{})
	vp.SetCenter("center-vp")
	ftk := NewSession("ftk", &MockConnection{})
	ftk.SetCenter("center-ftk")

	manager.Add(all)
	manager.Add(vp)
	manager.Add(ftk)

	watching := manager.Watching("center-vp")
	if len(watching) != 2 {
		t.Fatalf("Expected 2 sessions watching center-vp, got %d", len(watching))
	}
	for _, s := range watching {
		if s.ID == "ftk" {
			t.Error("Session filtered on center-ftk should not watch center-vp")
		}
	}

	vp.SetCenter("")
	if got := len(manager.Watching("center-ftk")); got != 3 {
		t.Errorf("Expected 3 sessions after clearing the filter, got %d", got)
	}
}

func TestManager_IdleSince(t *testing.T) {
	manager := NewManager()
	stale := NewSession("stale", &MockConnection{})
	fresh := NewSession("fresh", &MockConnection{})
	manager.Add(stale)
	manager.Add(fresh)

	cutoff := time.Now().Add(time.Millisecond)
	time.Sleep(2 * time.Millisecond)
	fresh.Touch()

	idle := manager.IdleSince(cutoff)
	if len(idle) != 1 || idle[0].ID != "stale" {
		t.Errorf("Expected only the stale session to be idle, got %d sessions", len(idle))
	}
}
