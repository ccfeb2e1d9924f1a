package connection

import (
	"testing"
	"time"
)

type mockConn struct {
	closed int
}

func (m *mockConn) Close() error {
	m.closed++
	return nil
}

func TestManager_Register(t *testing.T) {
	m := NewManager(10)
	conn := &mockConn{}

	err := m.Register("conn1", "10.0.0.1", "dashboard", conn)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if m.Count() != 1 {
		t.Errorf("Expected 1 connection, got %d", m.Count())
	}

	client, exists := m.Get("conn1")
	if !exists {
		t.Fatal("Client not found")
	}

	if client.RemoteHost != "10.0.0.1" {
		t.Errorf("Expected host 10.0.0.1, got %s", client.RemoteHost)
	}

	if err := m.Register("conn1", "10.0.0.1", "dashboard", conn); err == nil {
		t.Error("Expected error for duplicate connection ID")
	}
}

func TestManager_RegisterMaxConnections(t *testing.T) {
	m := NewManager(2)
	conn := &mockConn{}

	m.Register("conn1", "10.0.0.1", "", conn)
	m.Register("conn2", "10.0.0.2", "", conn)

	// Third connection should fail
	err := m.Register("conn3", "10.0.0.3", "", conn)
	if err != ErrMaxConnectionsReached {
		t.Errorf("Expected ErrMaxConnectionsReached, got %v", err)
	}
}

func TestManager_Unregister(t *testing.T) {
	m := NewManager(10)
	conn := &mockConn{}

	m.Register("conn1", "10.0.0.1", "", conn)
	m.Register("conn2", "10.0.0.1", "", conn)

	if err := m.Unregister("conn1"); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}

	if m.Count() != 1 {
		t.Errorf("Expected 1 connection, got %d", m.Count())
	}

	// Host should still have one connection
	if connIDs := m.GetByHost("10.0.0.1"); len(connIDs) != 1 {
		t.Errorf("Expected 1 connection for host, got %d", len(connIDs))
	}

	if err := m.Unregister("conn1"); err == nil {
		t.Error("Expected error unregistering unknown connection")
	}
}

func TestManager_UpdateActivity(t *testing.T) {
	m := NewManager(10)

	m.Register("conn1", "10.0.0.1", "", &mockConn{})

	client, _ := m.Get("conn1")
	firstHeard := client.GetLastHeardFrom()

	time.Sleep(10 * time.Millisecond)

	if err := m.UpdateActivity("conn1"); err != nil {
		t.Fatalf("UpdateActivity failed: %v", err)
	}

	if !client.GetLastHeardFrom().After(firstHeard) {
		t.Error("LastHeardFrom was not updated")
	}

	if err := m.UpdateActivity("missing"); err == nil {
		t.Error("Expected error for unknown connection")
	}
}

func TestManager_CloseInactive(t *testing.T) {
	m := NewManager(10)
	stale := &mockConn{}
	fresh := &mockConn{}

	m.Register("conn1", "10.0.0.1", "", stale)
	m.Register("conn2", "10.0.0.2", "", fresh)

	// Make conn1 inactive by manually setting its timestamp
	client1, _ := m.Get("conn1")
	client1.mu.Lock()
	client1.LastHeardFrom = time.Now().Add(-5 * time.Minute)
	client1.mu.Unlock()

	inactive := m.GetInactiveConnections(2 * time.Minute)
	if len(inactive) != 1 || inactive[0] != "conn1" {
		t.Fatalf("Expected conn1 to be inactive, got %v", inactive)
	}

	if n := m.CloseInactive(2 * time.Minute); n != 1 {
		t.Errorf("Expected 1 closed connection, got %d", n)
	}
	if stale.closed != 1 || fresh.closed != 0 {
		t.Errorf("Unexpected closes: stale=%d fresh=%d", stale.closed, fresh.closed)
	}
}

func TestManager_Stats(t *testing.T) {
	m := NewManager(100)
	conn := &mockConn{}

	m.Register("conn1", "10.0.0.1", "", conn)
	m.Register("conn2", "10.0.0.1", "", conn)
	m.Register("conn3", "10.0.0.2", "", conn)

	stats := m.Stats()
	if stats.TotalConnections != 3 {
		t.Errorf("Expected 3 connections, got %d", stats.TotalConnections)
	}
	if stats.UniqueHosts != 2 {
		t.Errorf("Expected 2 unique hosts, got %d", stats.UniqueHosts)
	}
	if stats.MaxConnections != 100 {
		t.Errorf("Expected max 100, got %d", stats.MaxConnections)
	}
}
