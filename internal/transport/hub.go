// Package transport implements the websocket edge: the JSON envelope
// wire format, the per-connection Client pump pair, and the Hub that
// upgrades requests, dispatches inbound commands into the Lobby Manager
// and Quiz Orchestrator, and fans their results back out as outbound
// envelopes.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/partyquiz/server/internal/apierr"
	"github.com/partyquiz/server/internal/lobby"
	"github.com/partyquiz/server/internal/logging"
	"github.com/partyquiz/server/internal/metrics"
	"github.com/partyquiz/server/internal/quiz"
	"github.com/partyquiz/server/internal/ratelimit"
	"github.com/partyquiz/server/internal/registry"
	"go.uber.org/zap"
)

// GameOrchestrator is the subset of *orchestrator.Orchestrator the Hub
// dispatches commands into. The Hub itself implements orchestrator.Broadcaster
// (SendQuizSnapshot) and is injected into the Orchestrator the other way.
type GameOrchestrator interface {
	SnapshotFor(code, viewerID string) (quiz.QuizSnapshot, bool)
	NotifyConnectionChanged(code, playerID string, connected bool)
	SelectCategory(ctx context.Context, code, playerID, category string) error
	SubmitAnswer(ctx context.Context, code, playerID, optionKey string) error
	SubmitRankingVote(ctx context.Context, code, voterID, votedForID string) error
	ActivateBooster(ctx context.Context, code, activatorID, targetID string) error
	NextQuestion(ctx context.Context, code, requestingConnID string) error
}

// Hub is the websocket edge's coordinator. It holds no game state of its
// own; every command is delegated to the Lobby Manager or the Orchestrator
// and the result is pushed back out as an outbound envelope.
type Hub struct {
	lobby     *lobby.Manager
	games     GameOrchestrator
	connIndex *registry.ConnectionIndex
	limiter   *ratelimit.RateLimiter
	upgrader  websocket.Upgrader

	clients sync.Map // connID -> *Client
}

// NewHub constructs a Hub. Both the Lobby Manager and the Orchestrator are
// wired in afterward via SetLobby/SetGames, since each of them in turn needs
// the Hub as its own Broadcaster - the lobby.Manager/orchestrator.Orchestrator
// constructors take the Hub as an interface parameter, so the only way to
// close the cycle is to construct the Hub first with its domain pointers nil
// and fill them in once the other side exists.
func NewHub(connIndex *registry.ConnectionIndex, limiter *ratelimit.RateLimiter) *Hub {
	return &Hub{
		connIndex: connIndex,
		limiter:   limiter,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetLobby wires the Lobby Manager in after both sides have been
// constructed, breaking the Hub<->Manager construction cycle.
func (h *Hub) SetLobby(mgr *lobby.Manager) {
	h.lobby = mgr
}

// SetGames wires the orchestrator in after both sides have been
// constructed, breaking the Hub<->Orchestrator construction cycle.
func (h *Hub) SetGames(games GameOrchestrator) {
	h.games = games
}

// ServeWs upgrades the request to a websocket connection and starts its
// pump goroutines. Unlike the room-scoped join used elsewhere in this
// domain, a single socket may later bind to a room as either a host or a
// player via the RegisterHost/JoinRoom commands, so no room id is required
// up front.
func (h *Hub) ServeWs(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
		return
	}

	connID := uuid.NewString()
	client := newClient(h, conn, connID)
	h.clients.Store(connID, client)
	metrics.IncConnection()

	go client.writePump()
	go client.readPump()
}

// handleDisconnect unregisters a closed connection from both the lobby
// (which may start a host-absence or player-grace clock) and the
// orchestrator (which flips the player's engine-side Connected flag).
func (h *Hub) handleDisconnect(connID string) {
	h.clients.Delete(connID)

	binding, ok := h.connIndex.Get(connID)
	h.lobby.HandleDisconnect(context.Background(), connID)

	if ok && binding.Role == registry.RolePlayer {
		h.games.NotifyConnectionChanged(binding.RoomCode, binding.PlayerID, false)
	}
}

// dispatch routes one inbound envelope to the matching domain operation,
// rate-limiting, timing, and counting it, and writes back either the
// resulting snapshot (via the broadcaster paths triggered inside the
// domain call) or an Error envelope directly to the caller.
func (h *Hub) dispatch(ctx context.Context, c *Client, env InboundEnvelope) {
	if h.limiter != nil && !h.limiter.AllowCommand(ctx, c.connID, env.Method) {
		c.sendEnvelope(errorEnvelope(string(apierr.InvalidState), "too many commands, slow down"))
		return
	}

	start := time.Now()
	err := h.route(ctx, c, env)
	metrics.CommandProcessingDuration.WithLabelValues(env.Method).Observe(time.Since(start).Seconds())

	status := "ok"
	if err != nil {
		status = "error"
		h.sendError(c, err)
	}
	metrics.CommandsTotal.WithLabelValues(env.Method, status).Inc()
}

func (h *Hub) sendError(c *Client, err error) {
	kind, ok := apierr.KindOf(err)
	if !ok {
		logging.Error(context.Background(), "unexpected internal error handling command", zap.Error(err))
		c.sendEnvelope(errorEnvelope("INTERNAL", "something went wrong"))
		return
	}
	c.sendEnvelope(errorEnvelope(string(kind), err.Error()))
}

func (h *Hub) route(ctx context.Context, c *Client, env InboundEnvelope) error {
	switch env.Method {
	case MethodRegisterHost:
		var p RegisterHostPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return apierr.New(apierr.InvalidState, "malformed payload")
		}
		_, err := h.lobby.RegisterHost(ctx, p.RoomCode, c.connID)
		if err == nil {
			h.replayQuizState(p.RoomCode, "", c.connID)
		}
		return err

	case MethodJoinRoom:
		var p JoinRoomPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return apierr.New(apierr.InvalidState, "malformed payload")
		}
		_, err := h.lobby.JoinRoom(ctx, p.RoomCode, p.PlayerID, p.DisplayName, c.connID)
		if err == nil {
			h.games.NotifyConnectionChanged(p.RoomCode, p.PlayerID, true)
			h.replayQuizState(p.RoomCode, p.PlayerID, c.connID)
		}
		return err

	case MethodLeaveRoom:
		var p LeaveRoomPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return apierr.New(apierr.InvalidState, "malformed payload")
		}
		_, err := h.lobby.LeaveRoom(ctx, p.RoomCode, p.PlayerID)
		return err

	case MethodSetRoomLocked:
		var p SetRoomLockedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return apierr.New(apierr.InvalidState, "malformed payload")
		}
		_, err := h.lobby.SetRoomLocked(ctx, p.RoomCode, c.connID, p.Locked)
		return err

	case MethodStartGame:
		var p StartGamePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return apierr.New(apierr.InvalidState, "malformed payload")
		}
		_, err := h.lobby.StartGame(ctx, p.RoomCode, c.connID, p.GameType)
		return err

	case MethodSelectCategory:
		var p SelectCategoryPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return apierr.New(apierr.InvalidState, "malformed payload")
		}
		playerID, err := h.playerIDFor(c.connID, p.PlayerID)
		if err != nil {
			return err
		}
		return h.games.SelectCategory(ctx, p.RoomCode, playerID, p.Category)

	case MethodSubmitAnswer:
		var p SubmitAnswerPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return apierr.New(apierr.InvalidState, "malformed payload")
		}
		playerID, err := h.playerIDFor(c.connID, p.PlayerID)
		if err != nil {
			return err
		}
		return h.games.SubmitAnswer(ctx, p.RoomCode, playerID, p.OptionKey)

	case MethodSubmitRankingVote:
		var p SubmitRankingVotePayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return apierr.New(apierr.InvalidState, "malformed payload")
		}
		playerID, err := h.playerIDFor(c.connID, p.VoterID)
		if err != nil {
			return err
		}
		return h.games.SubmitRankingVote(ctx, p.RoomCode, playerID, p.VotedForID)

	case MethodActivateBooster:
		var p ActivateBoosterPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return apierr.New(apierr.InvalidState, "malformed payload")
		}
		playerID, err := h.playerIDFor(c.connID, "")
		if err != nil {
			return err
		}
		return h.games.ActivateBooster(ctx, p.RoomCode, playerID, p.TargetID)

	case MethodNextQuestion:
		var p NextQuestionPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return apierr.New(apierr.InvalidState, "malformed payload")
		}
		return h.games.NextQuestion(ctx, p.RoomCode, c.connID)

	default:
		return apierr.New(apierr.InvalidState, "unknown method")
	}
}

// playerIDFor resolves the acting player from the connection's binding.
// statedID is the player id the payload claimed, if any; a claim that
// disagrees with the binding is rejected rather than trusted.
func (h *Hub) playerIDFor(connID, statedID string) (string, error) {
	binding, ok := h.connIndex.Get(connID)
	if !ok || binding.Role != registry.RolePlayer {
		return "", apierr.New(apierr.InvalidState, "connection is not joined to a room as a player")
	}
	if statedID != "" && statedID != binding.PlayerID {
		return "", apierr.New(apierr.InvalidState, "player id does not match this connection")
	}
	return binding.PlayerID, nil
}

// replayQuizState pushes the caller's own current QuizSnapshot right after
// a (re)connect, since lobby broadcasts alone don't carry engine state.
func (h *Hub) replayQuizState(roomCode, viewerID, connID string) {
	snapshot, ok := h.games.SnapshotFor(roomCode, viewerID)
	if !ok {
		return
	}
	if client, ok := h.clients.Load(connID); ok {
		client.(*Client).sendEnvelope(quizStateUpdated(snapshot))
	}
}

// BroadcastLobbyUpdated implements lobby.Broadcaster.
func (h *Hub) BroadcastLobbyUpdated(roomCode string, snapshot lobby.RoomSnapshot) {
	h.broadcastToRoom(roomCode, lobbyUpdated(snapshot))
}

// BroadcastGameStarted implements lobby.Broadcaster.
func (h *Hub) BroadcastGameStarted(roomCode string, info lobby.GameSessionInfo) {
	h.broadcastToRoom(roomCode, gameStarted(info))
}

func (h *Hub) broadcastToRoom(roomCode string, env OutboundEnvelope) {
	for _, binding := range h.connIndex.ListForRoom(roomCode) {
		if client, ok := h.clients.Load(binding.ConnectionID); ok {
			client.(*Client).sendEnvelope(env)
		}
	}
}

// SendQuizSnapshot implements orchestrator.Broadcaster.
func (h *Hub) SendQuizSnapshot(connID string, snapshot quiz.QuizSnapshot) {
	if client, ok := h.clients.Load(connID); ok {
		client.(*Client).sendEnvelope(quizStateUpdated(snapshot))
	}
}
