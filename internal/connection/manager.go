package connection

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// ClientInfo holds information about a connected stream subscriber
type ClientInfo struct {
	ConnectionID  string
	RemoteHost    string
	UserAgent     string
	ConnectedAt   time.Time
	LastHeardFrom time.Time
	Conn          io.Closer
	mu            sync.RWMutex
}

// UpdateLastHeardFrom updates the last activity timestamp
func (c *ClientInfo) UpdateLastHeardFrom() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastHeardFrom = time.Now()
}

// GetLastHeardFrom returns the last activity timestamp
func (c *ClientInfo) GetLastHeardFrom() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.LastHeardFrom
}

// Manager tracks active subscriber connections
type Manager struct {
	clients  map[string]*ClientInfo // key: connection_id
	byHost   map[string][]string    // key: remote host, value: []connection_id
	mu       sync.RWMutex
	maxConns int
}

// NewManager creates a new connection manager
func NewManager(maxConnections int) *Manager {
	return &Manager{
		clients:  make(map[string]*ClientInfo),
		byHost:   make(map[string][]string),
		maxConns: maxConnections,
	}
}

// Register adds a new subscriber connection
func (m *Manager) Register(connectionID, remoteHost, userAgent string, conn io.Closer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.clients) >= m.maxConns {
		return ErrMaxConnectionsReached
	}

	if _, exists := m.clients[connectionID]; exists {
		return fmt.Errorf("connection ID %s already registered", connectionID)
	}

	now := time.Now()
	m.clients[connectionID] = &ClientInfo{
		ConnectionID:  connectionID,
		RemoteHost:    remoteHost,
		UserAgent:     userAgent,
		ConnectedAt:   now,
		LastHeardFrom: now,
		Conn:          conn,
	}
	m.byHost[remoteHost] = append(m.byHost[remoteHost], connectionID)

	return nil
}

// Unregister removes a subscriber connection
func (m *Manager) Unregister(connectionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	client, exists := m.clients[connectionID]
	if !exists {
		return fmt.Errorf("connection ID %s not found", connectionID)
	}

	host := client.RemoteHost
	if connIDs, ok := m.byHost[host]; ok {
		for i, id := range connIDs {
			if id == connectionID {
				m.byHost[host] = append(connIDs[:i], connIDs[i+1:]...)
				break
			}
		}
		if len(m.byHost[host]) == 0 {
			delete(m.byHost, host)
		}
	}

	delete(m.clients, connectionID)

	return nil
}

// Get retrieves client information by connection ID
func (m *Manager) Get(connectionID string) (*ClientInfo, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	client, exists := m.clients[connectionID]
	return client, exists
}

// GetByHost retrieves all connection IDs opened from a host
func (m *Manager) GetByHost(host string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	connIDs := m.byHost[host]
	result := make([]string, len(connIDs))
	copy(result, connIDs)
	return result
}

// UpdateActivity updates the last heard from timestamp for a connection
func (m *Manager) UpdateActivity(connectionID string) error {
	m.mu.RLock()
	client, exists := m.clients[connectionID]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("connection ID %s not found", connectionID)
	}

	client.UpdateLastHeardFrom()
	return nil
}

// GetInactiveConnections returns connection IDs that haven't been heard from in the given duration
func (m *Manager) GetInactiveConnections(timeout time.Duration) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	var inactive []string

	for connID, client := range m.clients {
		if now.Sub(client.GetLastHeardFrom()) > timeout {
			inactive = append(inactive, connID)
		}
	}

	return inactive
}

// CloseInactive closes connections idle for longer than timeout and returns how many were closed.
// Closing the connection makes its read loop exit, which unregisters it.
func (m *Manager) CloseInactive(timeout time.Duration) int {
	closed := 0
	for _, id := range m.GetInactiveConnections(timeout) {
		client, ok := m.Get(id)
		if !ok || client.Conn == nil {
			continue
		}
		if err := client.Conn.Close(); err == nil {
			closed++
		}
	}
	return closed
}

// Count returns the total number of active connections
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Stats returns statistics about the connection manager
func (m *Manager) Stats() ManagerStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return ManagerStats{
		TotalConnections: len(m.clients),
		UniqueHosts:      len(m.byHost),
		MaxConnections:   m.maxConns,
	}
}

// ManagerStats contains statistics about the connection manager
type ManagerStats struct {
	TotalConnections int `json:"total_connections"`
	UniqueHosts      int `json:"unique_hosts"`
	MaxConnections   int `json:"max_connections"`
}

var (
	ErrMaxConnectionsReached = &ConnectionError{"maximum connections reached"}
)

// ConnectionError represents a connection error
type ConnectionError struct {
	msg string
}

func (e *ConnectionError) Error() string {
	return e.msg
}
