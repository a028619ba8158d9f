// Package lobby implements the Lobby Manager: the single owner of room
// membership, locking, and host/disconnect bookkeeping before a game
// starts. Every exported operation corresponds to one transport command or
// one janitor sweep step and returns a *apierr.Error on precondition
// failure.
package lobby

import (
	"context"
	"strings"
	"time"

	"github.com/partyquiz/server/internal/apierr"
	"github.com/partyquiz/server/internal/clock"
	"github.com/partyquiz/server/internal/logging"
	"github.com/partyquiz/server/internal/metrics"
	"github.com/partyquiz/server/internal/registry"
	"go.uber.org/zap"
)

const (
	minNameLength = 1
	maxNameLength = 20
)

// Broadcaster fans a lobby state change out to every connection bound to a
// room. The transport layer supplies the concrete implementation.
type Broadcaster interface {
	BroadcastLobbyUpdated(roomCode string, snapshot RoomSnapshot)
	BroadcastGameStarted(roomCode string, info GameSessionInfo)
}

// GameStarter is the seam into the Quiz Orchestrator. The Lobby Manager
// validates start-game preconditions and flips the room into InGame, then
// hands off ownership of play to whatever implements this interface -
// avoiding an import cycle between lobby and the orchestrator package.
type GameStarter interface {
	StartGame(ctx context.Context, room *registry.Room, gameType string) error
}

// Manager is the Lobby Manager. It holds no game-play state of its own; all
// state lives in the injected Registry and ConnectionIndex.
type Manager struct {
	registry    *registry.Registry
	connIndex   *registry.ConnectionIndex
	clock       clock.Clock
	broadcaster Broadcaster
	starter     GameStarter
}

// New constructs a Manager over the given Registry and ConnectionIndex.
func New(reg *registry.Registry, connIndex *registry.ConnectionIndex, clk clock.Clock, broadcaster Broadcaster) *Manager {
	return &Manager{
		registry:    reg,
		connIndex:   connIndex,
		clock:       clk,
		broadcaster: broadcaster,
	}
}

// SetGameStarter wires the orchestrator in after both sides have been
// constructed, breaking the lobby<->orchestrator construction cycle.
func (m *Manager) SetGameStarter(starter GameStarter) {
	m.starter = starter
}

func (m *Manager) broadcast(code string, snapshot RoomSnapshot) {
	if m.broadcaster != nil {
		m.broadcaster.BroadcastLobbyUpdated(code, snapshot)
	}
}

func validateName(name string) (string, *apierr.Error) {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < minNameLength || len(trimmed) > maxNameLength {
		return "", apierr.New(apierr.NameInvalid, "display name must be between 1 and 20 characters")
	}
	return trimmed, nil
}

func nameTaken(room *registry.Room, name string, excludePlayerID string) bool {
	lower := strings.ToLower(name)
	for _, p := range room.Players {
		if p.ID == excludePlayerID {
			continue
		}
		if strings.ToLower(p.DisplayName) == lower {
			return true
		}
	}
	return false
}

// CreateRoom allocates a brand-new lobby room and returns its snapshot. The
// caller (the REST create-room handler) still has to call RegisterHost once
// the host's websocket connects.
func (m *Manager) CreateRoom(ctx context.Context) (RoomSnapshot, error) {
	room, err := m.registry.Create()
	if err != nil {
		return RoomSnapshot{}, err
	}

	metrics.ActiveRooms.Set(float64(m.registry.Count()))
	logging.Info(ctx, "room created", zap.String("room_code", room.Code))

	room.Lock()
	defer room.Unlock()
	return buildSnapshot(room), nil
}

// RegisterHost binds connID as the host of code. Re-registering the same
// connection as host of the room it already hosts is a no-op success;
// registering as host while already hosting a different room is rejected.
func (m *Manager) RegisterHost(ctx context.Context, code, connID string) (RoomSnapshot, error) {
	room, ok := m.registry.Get(code)
	if !ok {
		return RoomSnapshot{}, apierr.New(apierr.RoomNotFound, "room not found")
	}

	if b, bound := m.connIndex.Get(connID); bound && b.Role == registry.RoleHost && b.RoomCode != room.Code {
		return RoomSnapshot{}, apierr.New(apierr.AlreadyHost, "connection already hosts another room")
	}

	room.Lock()
	room.HostConnectionID = connID
	room.HostDisconnectedAt = nil
	snapshot := buildSnapshot(room)
	room.Unlock()

	m.connIndex.BindHost(connID, room.Code)

	logging.Info(ctx, "host registered", zap.String("room_code", room.Code))
	m.broadcast(room.Code, snapshot)
	return snapshot, nil
}

// JoinRoom adds a new player, or reconnects an existing one, to code. On
// reconnect the locked flag and room capacity are both ignored - a returning
// player always gets back in.
func (m *Manager) JoinRoom(ctx context.Context, code, playerID, name, connID string) (RoomSnapshot, error) {
	room, ok := m.registry.Get(code)
	if !ok {
		return RoomSnapshot{}, apierr.New(apierr.RoomNotFound, "room not found")
	}

	trimmedName, nameErr := validateName(name)
	if nameErr != nil {
		return RoomSnapshot{}, nameErr
	}

	room.Lock()
	defer room.Unlock()

	now := m.clock.Now()

	if existing, reconnecting := room.Players[playerID]; reconnecting {
		existing.ConnectionID = connID
		existing.Connected = true
		existing.DisplayName = trimmedName
		existing.LastSeen = now

		m.connIndex.BindPlayer(connID, room.Code, playerID)
		snapshot := buildSnapshot(room)
		logging.Info(ctx, "player reconnected", zap.String("room_code", room.Code), zap.String("player_id", playerID))
		m.broadcast(room.Code, snapshot)
		return snapshot, nil
	}

	if room.Locked {
		return RoomSnapshot{}, apierr.New(apierr.RoomLocked, "room is locked")
	}
	if nameTaken(room, trimmedName, "") {
		return RoomSnapshot{}, apierr.New(apierr.NameTaken, "display name already in use")
	}
	if len(room.Players) >= room.MaxPlayers {
		return RoomSnapshot{}, apierr.New(apierr.RoomFull, "room is full")
	}

	room.Players[playerID] = &registry.Player{
		ID:           playerID,
		DisplayName:  trimmedName,
		ConnectionID: connID,
		Connected:    true,
		LastSeen:     now,
	}
	m.connIndex.BindPlayer(connID, room.Code, playerID)
	metrics.RoomPlayers.WithLabelValues(room.Code).Set(float64(len(room.Players)))

	snapshot := buildSnapshot(room)
	logging.Info(ctx, "player joined", zap.String("room_code", room.Code), zap.String("player_id", playerID))
	m.broadcast(room.Code, snapshot)
	return snapshot, nil
}

// AddBot seats a bot-controlled player in code. Bots carry no transport
// connection (the autoplay driver acts for them through the orchestrator's
// command methods), so they are Connected from the moment they are added
// and never subject to disconnect eviction. skill is clamped to 0..100.
func (m *Manager) AddBot(ctx context.Context, code, playerID, name string, skill int) (RoomSnapshot, error) {
	room, ok := m.registry.Get(code)
	if !ok {
		return RoomSnapshot{}, apierr.New(apierr.RoomNotFound, "room not found")
	}

	trimmedName, nameErr := validateName(name)
	if nameErr != nil {
		return RoomSnapshot{}, nameErr
	}
	if skill < 0 {
		skill = 0
	}
	if skill > 100 {
		skill = 100
	}

	room.Lock()
	defer room.Unlock()

	if room.Status != registry.StatusLobby {
		return RoomSnapshot{}, apierr.New(apierr.InvalidState, "bots can only be added before the game starts")
	}
	if room.Locked {
		return RoomSnapshot{}, apierr.New(apierr.RoomLocked, "room is locked")
	}
	if nameTaken(room, trimmedName, "") {
		return RoomSnapshot{}, apierr.New(apierr.NameTaken, "display name already in use")
	}
	if len(room.Players) >= room.MaxPlayers {
		return RoomSnapshot{}, apierr.New(apierr.RoomFull, "room is full")
	}

	room.Players[playerID] = &registry.Player{
		ID:          playerID,
		DisplayName: trimmedName,
		Connected:   true,
		LastSeen:    m.clock.Now(),
		IsBot:       true,
		BotSkill:    skill,
	}
	metrics.RoomPlayers.WithLabelValues(room.Code).Set(float64(len(room.Players)))

	snapshot := buildSnapshot(room)
	logging.Info(ctx, "bot added", zap.String("room_code", room.Code), zap.String("player_id", playerID))
	m.broadcast(room.Code, snapshot)
	return snapshot, nil
}

// LeaveRoom removes playerID from code outright (not a disconnect - the
// player is gone and will not reconnect under this id).
func (m *Manager) LeaveRoom(ctx context.Context, code, playerID string) (RoomSnapshot, error) {
	room, ok := m.registry.Get(code)
	if !ok {
		return RoomSnapshot{}, apierr.New(apierr.RoomNotFound, "room not found")
	}

	room.Lock()
	defer room.Unlock()

	player, exists := room.Players[playerID]
	if !exists {
		return buildSnapshot(room), nil
	}

	m.connIndex.Unbind(player.ConnectionID)
	delete(room.Players, playerID)
	metrics.RoomPlayers.WithLabelValues(room.Code).Set(float64(len(room.Players)))

	snapshot := buildSnapshot(room)
	logging.Info(ctx, "player left", zap.String("room_code", room.Code), zap.String("player_id", playerID))
	m.broadcast(room.Code, snapshot)
	return snapshot, nil
}

// HandleDisconnect marks whatever connID was bound to as no longer
// connected. Host disconnects start the host-absence clock; player
// disconnects leave the player in the room (eligible for reconnect or later
// janitor eviction).
func (m *Manager) HandleDisconnect(ctx context.Context, connID string) {
	binding, ok := m.connIndex.Get(connID)
	if !ok {
		return
	}
	m.connIndex.Unbind(connID)

	room, ok := m.registry.Get(binding.RoomCode)
	if !ok {
		return
	}

	room.Lock()
	now := m.clock.Now()
	switch binding.Role {
	case registry.RoleHost:
		if room.HostConnectionID == connID {
			room.HostConnectionID = ""
			room.HostDisconnectedAt = &now
		}
	case registry.RolePlayer:
		if p, exists := room.Players[binding.PlayerID]; exists && p.ConnectionID == connID {
			p.Connected = false
			p.ConnectionID = ""
			p.LastSeen = now
		}
	}
	snapshot := buildSnapshot(room)
	room.Unlock()

	logging.Info(ctx, "connection disconnected", zap.String("room_code", room.Code), zap.String("role", string(binding.Role)))
	m.broadcast(room.Code, snapshot)
}

// SetRoomLocked toggles the room's locked flag. Only the current host may
// call this.
func (m *Manager) SetRoomLocked(ctx context.Context, code, connID string, locked bool) (RoomSnapshot, error) {
	room, ok := m.registry.Get(code)
	if !ok {
		return RoomSnapshot{}, apierr.New(apierr.RoomNotFound, "room not found")
	}

	room.Lock()
	defer room.Unlock()

	if room.HostConnectionID != connID {
		return RoomSnapshot{}, apierr.New(apierr.NotHost, "only the host may lock or unlock the room")
	}

	room.Locked = locked
	snapshot := buildSnapshot(room)
	logging.Info(ctx, "room lock changed", zap.String("room_code", room.Code), zap.Bool("locked", locked))
	m.broadcast(room.Code, snapshot)
	return snapshot, nil
}

// minPlayersToStart is the fewest players (excluding the host) a game needs.
const minPlayersToStart = 2

// StartGame validates that connID is host of a Lobby-status room with
// enough players, flips the room to InGame and locked, then hands off to
// the injected GameStarter (the orchestrator) to build and run the actual
// quiz state.
func (m *Manager) StartGame(ctx context.Context, code, connID, gameType string) (RoomSnapshot, error) {
	room, ok := m.registry.Get(code)
	if !ok {
		return RoomSnapshot{}, apierr.New(apierr.RoomNotFound, "room not found")
	}

	room.Lock()
	if room.HostConnectionID != connID {
		room.Unlock()
		return RoomSnapshot{}, apierr.New(apierr.NotHost, "only the host may start the game")
	}
	if room.Status != registry.StatusLobby {
		room.Unlock()
		return RoomSnapshot{}, apierr.New(apierr.RoundAlreadyStarted, "game already started")
	}
	if len(room.Players) < minPlayersToStart {
		room.Unlock()
		return RoomSnapshot{}, apierr.New(apierr.NotEnoughPlayers, "at least two players are required to start")
	}

	startedAt := m.clock.Now()
	room.Status = registry.StatusInGame
	room.Locked = true
	room.Game = &registry.GameSession{GameType: gameType, StartedAt: startedAt}
	snapshot := buildSnapshot(room)
	playerCount := len(room.Players)
	room.Unlock()

	logging.Info(ctx, "game started", zap.String("room_code", room.Code), zap.String("game_type", gameType))
	m.broadcast(room.Code, snapshot)
	if m.broadcaster != nil {
		m.broadcaster.BroadcastGameStarted(room.Code, GameSessionInfo{
			RoomCode:    room.Code,
			GameType:    gameType,
			StartedAt:   startedAt,
			PlayerCount: playerCount,
		})
	}

	if m.starter != nil {
		if err := m.starter.StartGame(ctx, room, gameType); err != nil {
			return snapshot, err
		}
	}
	return snapshot, nil
}

// RemoveDisconnectedPlayers evicts every player in code who has been
// disconnected for at least grace. Returns the number removed.
func (m *Manager) RemoveDisconnectedPlayers(ctx context.Context, code string, grace time.Duration) (int, error) {
	room, ok := m.registry.Get(code)
	if !ok {
		return 0, apierr.New(apierr.RoomNotFound, "room not found")
	}

	room.Lock()
	now := m.clock.Now()
	removed := 0
	for id, p := range room.Players {
		if !p.Connected && now.Sub(p.LastSeen) >= grace {
			delete(room.Players, id)
			removed++
		}
	}
	snapshot := buildSnapshot(room)
	room.Unlock()

	if removed > 0 {
		metrics.RoomPlayers.WithLabelValues(room.Code).Set(float64(len(snapshot.Players)))
		metrics.JanitorPlayersRemoved.Add(float64(removed))
		logging.Info(ctx, "disconnected players evicted", zap.String("room_code", room.Code), zap.Int("count", removed))
		m.broadcast(room.Code, snapshot)
	}
	return removed, nil
}

// HostlessRoomsForCleanup returns the codes of every room with no live host
// connection whose host-absence (or, for a room never assigned a host,
// whose creation) is at least ttl old.
func (m *Manager) HostlessRoomsForCleanup(ttl time.Duration) []string {
	now := m.clock.Now()
	var stale []string

	for _, room := range m.registry.All() {
		room.Lock()
		if room.HostConnectionID == "" {
			reference := room.CreatedAt
			if room.HostDisconnectedAt != nil {
				reference = *room.HostDisconnectedAt
			}
			if now.Sub(reference) >= ttl {
				stale = append(stale, room.Code)
			}
		}
		room.Unlock()
	}
	return stale
}

// RemoveRoom deletes code from the registry. Idempotent.
func (m *Manager) RemoveRoom(ctx context.Context, code string) {
	m.registry.Remove(code)
	metrics.ActiveRooms.Set(float64(m.registry.Count()))
	metrics.JanitorRoomsRemoved.WithLabelValues("hostless_ttl_expired").Inc()
	logging.Info(ctx, "room removed", zap.String("room_code", code))
}

// BotPlayer identifies one bot-controlled player in one room, returned by
// BotPlayers for the autoplay driver to poll.
type BotPlayer struct {
	RoomCode string
	PlayerID string
}

// BotPlayers returns every (roomCode, playerID) pair currently marked
// IsBot across every InGame room, for the autoplay driver to poll.
func (m *Manager) BotPlayers() []BotPlayer {
	var bots []BotPlayer
	for _, room := range m.registry.All() {
		room.Lock()
		if room.Status == registry.StatusInGame {
			for id, p := range room.Players {
				if p.IsBot {
					bots = append(bots, BotPlayer{RoomCode: room.Code, PlayerID: id})
				}
			}
		}
		room.Unlock()
	}
	return bots
}

// AllRoomCodes returns every room code currently registered, used by the
// janitor to sweep disconnected players room-by-room.
func (m *Manager) AllRoomCodes() []string {
	rooms := m.registry.All()
	codes := make([]string, 0, len(rooms))
	for _, r := range rooms {
		codes = append(codes, r.Code)
	}
	return codes
}

// Snapshot renders the current lobby DTO for code, used both for the
// read-room HTTP endpoint and to replay state to a freshly (re)connected
// client.
func (m *Manager) Snapshot(code string) (RoomSnapshot, error) {
	room, ok := m.registry.Get(code)
	if !ok {
		return RoomSnapshot{}, apierr.New(apierr.RoomNotFound, "room not found")
	}

	room.Lock()
	defer room.Unlock()
	return buildSnapshot(room), nil
}
