package registry

import (
	"sync"

	"github.com/partyquiz/server/internal/clock"
	"github.com/partyquiz/server/internal/roomcode"
)

// maxCreateAttempts bounds the retry loop on code-generation collisions.
const maxCreateAttempts = 20

// Registry is the concurrent code -> Room store. The map itself is guarded
// by its own RWMutex; the fields of an individual Room are guarded by that
// Room's own Lock/Unlock (see Room).
type Registry struct {
	clock clock.Clock

	mu    sync.RWMutex
	rooms map[string]*Room
}

// New constructs an empty Registry.
func New(c clock.Clock) *Registry {
	return &Registry{
		clock: c,
		rooms: make(map[string]*Room),
	}
}

// Create generates a unique code, inserts an empty lobby Room, and returns
// it. Safe against concurrent generation collisions: on a lost insert race,
// generation is retried.
func (reg *Registry) Create() (*Room, error) {
	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		code, err := roomcode.Generate()
		if err != nil {
			return nil, err
		}

		reg.mu.Lock()
		if _, exists := reg.rooms[code]; exists {
			reg.mu.Unlock()
			continue
		}
		room := newRoom(code, reg.clock.Now())
		reg.rooms[code] = room
		reg.mu.Unlock()

		return room, nil
	}

	return nil, errTooManyCollisions
}

// Get performs a case-insensitive lookup. Returns (nil, false) for unknown
// codes; it never errors.
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	room, ok := reg.rooms[roomcode.Normalize(code)]
	return room, ok
}

// Remove deletes the room for code, if present. Idempotent.
func (reg *Registry) Remove(code string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, roomcode.Normalize(code))
}

// All returns a snapshot slice of every room currently registered.
func (reg *Registry) All() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()

	rooms := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

// Count returns the number of registered rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

type registryError string

func (e registryError) Error() string { return string(e) }

const errTooManyCollisions = registryError("registry: exhausted room-code generation attempts")
