package registry

import "sync"

// ConnectionIndex is the concurrent connection-id -> ConnectionBinding
// store. A rebind (host -> player, host -> a different room) overwrites
// atomically; a connection may be bound to at most one room at a time.
type ConnectionIndex struct {
	mu       sync.RWMutex
	bindings map[string]ConnectionBinding
}

// NewConnectionIndex constructs an empty ConnectionIndex.
func NewConnectionIndex() *ConnectionIndex {
	return &ConnectionIndex{
		bindings: make(map[string]ConnectionBinding),
	}
}

// BindHost atomically (re)binds connID as the host of roomCode.
func (ci *ConnectionIndex) BindHost(connID, roomCode string) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.bindings[connID] = ConnectionBinding{
		ConnectionID: connID,
		RoomCode:     roomCode,
		Role:         RoleHost,
	}
}

// BindPlayer atomically (re)binds connID as playerID in roomCode.
func (ci *ConnectionIndex) BindPlayer(connID, roomCode, playerID string) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	ci.bindings[connID] = ConnectionBinding{
		ConnectionID: connID,
		RoomCode:     roomCode,
		Role:         RolePlayer,
		PlayerID:     playerID,
	}
}

// Unbind removes any binding for connID. Idempotent.
func (ci *ConnectionIndex) Unbind(connID string) {
	ci.mu.Lock()
	defer ci.mu.Unlock()
	delete(ci.bindings, connID)
}

// Get returns the binding for connID, if any.
func (ci *ConnectionIndex) Get(connID string) (ConnectionBinding, bool) {
	ci.mu.RLock()
	defer ci.mu.RUnlock()
	b, ok := ci.bindings[connID]
	return b, ok
}

// ListForRoom returns every binding currently pointing at roomCode.
func (ci *ConnectionIndex) ListForRoom(roomCode string) []ConnectionBinding {
	ci.mu.RLock()
	defer ci.mu.RUnlock()

	var out []ConnectionBinding
	for _, b := range ci.bindings {
		if b.RoomCode == roomCode {
			out = append(out, b)
		}
	}
	return out
}
