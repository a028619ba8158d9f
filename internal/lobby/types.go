package lobby

import (
	"sort"
	"time"

	"github.com/partyquiz/server/internal/registry"
)

// PlayerSnapshot is the wire-safe view of a registry.Player.
type PlayerSnapshot struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Connected   bool   `json:"connected"`
	Score       int    `json:"score"`
	IsBot       bool   `json:"isBot"`
}

// RoomSnapshot is the broadcast DTO for LobbyUpdated and for the room-read
// HTTP endpoint.
type RoomSnapshot struct {
	Code               string           `json:"roomCode"`
	Status             registry.Status  `json:"status"`
	Locked             bool             `json:"locked"`
	MaxPlayers         int              `json:"maxPlayers"`
	HasHost            bool             `json:"hasHost"`
	HostDisconnectedAt *time.Time       `json:"hostDisconnectedAt,omitempty"`
	Players            []PlayerSnapshot `json:"players"`
}

// GameSessionInfo is the broadcast DTO for GameStarted.
type GameSessionInfo struct {
	RoomCode    string    `json:"roomCode"`
	GameType    string    `json:"gameType"`
	StartedAt   time.Time `json:"startedAt"`
	PlayerCount int       `json:"playerCount"`
}

// buildSnapshot renders room into its wire DTO. The caller must hold
// room.Lock() for the duration of the call.
func buildSnapshot(room *registry.Room) RoomSnapshot {
	players := make([]PlayerSnapshot, 0, len(room.Players))
	for _, p := range room.Players {
		players = append(players, PlayerSnapshot{
			PlayerID:    p.ID,
			DisplayName: p.DisplayName,
			Connected:   p.Connected,
			Score:       p.Score,
			IsBot:       p.IsBot,
		})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].DisplayName < players[j].DisplayName })

	return RoomSnapshot{
		Code:               room.Code,
		Status:             room.Status,
		Locked:             room.Locked,
		MaxPlayers:         room.MaxPlayers,
		HasHost:            room.HostConnectionID != "",
		HostDisconnectedAt: room.HostDisconnectedAt,
		Players:            players,
	}
}
