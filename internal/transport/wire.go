package transport

import (
	"encoding/json"

	"github.com/partyquiz/server/internal/lobby"
	"github.com/partyquiz/server/internal/quiz"
)

// InboundEnvelope is the shape of every client-to-server websocket frame: a
// method name and its still-encoded payload, deferred so each method can
// unmarshal into its own struct.
type InboundEnvelope struct {
	Method  string          `json:"method"`
	Payload json.RawMessage `json:"payload"`
}

// Inbound command payloads, one struct per Method.

type RegisterHostPayload struct {
	RoomCode string `json:"roomCode"`
}

type JoinRoomPayload struct {
	RoomCode    string `json:"roomCode"`
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
}

type LeaveRoomPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type SetRoomLockedPayload struct {
	RoomCode string `json:"roomCode"`
	Locked   bool   `json:"locked"`
}

type StartGamePayload struct {
	RoomCode string `json:"roomCode"`
	GameType string `json:"gameType"`
}

// The playerId/voterId fields below are advisory: the server always resolves
// the acting player from the connection's binding, and rejects the command
// when a stated id disagrees with it, so one device cannot act as another.

type SelectCategoryPayload struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId,omitempty"`
	Category string `json:"category"`
}

// SubmitAnswerPayload covers both answering variants: optionKey is A-D
// during a category quiz round and a stringified index 0..3 during a
// dictionary round.
type SubmitAnswerPayload struct {
	RoomCode  string `json:"roomCode"`
	PlayerID  string `json:"playerId,omitempty"`
	OptionKey string `json:"optionKey"`
}

type SubmitRankingVotePayload struct {
	RoomCode   string `json:"roomCode"`
	VoterID    string `json:"voterId,omitempty"`
	VotedForID string `json:"votedForId"`
}

type ActivateBoosterPayload struct {
	RoomCode string `json:"roomCode"`
	TargetID string `json:"targetId,omitempty"`
}

type NextQuestionPayload struct {
	RoomCode string `json:"roomCode"`
}

// Method names, matching the payload structs above one-for-one.
const (
	MethodRegisterHost           = "RegisterHost"
	MethodJoinRoom               = "JoinRoom"
	MethodLeaveRoom              = "LeaveRoom"
	MethodSetRoomLocked          = "SetRoomLocked"
	MethodStartGame              = "StartGame"
	MethodSelectCategory         = "SelectCategory"
	MethodSubmitAnswer           = "SubmitAnswer"
	MethodSubmitRankingVote      = "SubmitRankingVote"
	MethodActivateBooster        = "ActivateBooster"
	MethodNextQuestion           = "NextQuestion"
)

// OutboundEnvelope is the shape of every server-to-client frame.
type OutboundEnvelope struct {
	Event   string `json:"event"`
	Payload any    `json:"payload"`
}

// Event names.
const (
	EventLobbyUpdated     = "LobbyUpdated"
	EventGameStarted      = "GameStarted"
	EventQuizStateUpdated = "QuizStateUpdated"
	EventError            = "Error"
)

// ErrorPayload is the client-facing error event body, mirroring apierr.Error.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func lobbyUpdated(snapshot lobby.RoomSnapshot) OutboundEnvelope {
	return OutboundEnvelope{Event: EventLobbyUpdated, Payload: snapshot}
}

func gameStarted(info lobby.GameSessionInfo) OutboundEnvelope {
	return OutboundEnvelope{Event: EventGameStarted, Payload: info}
}

func quizStateUpdated(snapshot quiz.QuizSnapshot) OutboundEnvelope {
	return OutboundEnvelope{Event: EventQuizStateUpdated, Payload: snapshot}
}

func errorEnvelope(code, message string) OutboundEnvelope {
	return OutboundEnvelope{Event: EventError, Payload: ErrorPayload{Code: code, Message: message}}
}
