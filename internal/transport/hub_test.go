package transport

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/partyquiz/server/internal/clock"
	"github.com/partyquiz/server/internal/lobby"
	"github.com/partyquiz/server/internal/quiz"
	"github.com/partyquiz/server/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn is a no-op wsConnection; dispatch tests never touch the wire
// itself, only the Client.send channel.
type fakeConn struct{}

func (fakeConn) ReadMessage() (int, []byte, error)   { return 0, nil, nil }
func (fakeConn) WriteMessage(int, []byte) error      { return nil }
func (fakeConn) Close() error                        { return nil }
func (fakeConn) SetWriteDeadline(time.Time) error    { return nil }
func (fakeConn) SetReadDeadline(time.Time) error     { return nil }
func (fakeConn) SetPongHandler(func(string) error)   {}

type fakeGames struct {
	snapshot     quiz.QuizSnapshot
	hasSnapshot  bool
	lastMethod   string
	lastPlayerID string
}

func (f *fakeGames) SendQuizSnapshot(string, quiz.QuizSnapshot) {}

func (f *fakeGames) SnapshotFor(_, _ string) (quiz.QuizSnapshot, bool) {
	return f.snapshot, f.hasSnapshot
}

func (f *fakeGames) NotifyConnectionChanged(_, playerID string, _ bool) {
	f.lastMethod, f.lastPlayerID = "NotifyConnectionChanged", playerID
}

func (f *fakeGames) SelectCategory(_ context.Context, _, playerID, _ string) error {
	f.lastMethod, f.lastPlayerID = "SelectCategory", playerID
	return nil
}

func (f *fakeGames) SubmitAnswer(_ context.Context, _, playerID, _ string) error {
	f.lastMethod, f.lastPlayerID = "SubmitAnswer", playerID
	return nil
}

func (f *fakeGames) SubmitRankingVote(_ context.Context, _, playerID, _ string) error {
	f.lastMethod, f.lastPlayerID = "SubmitRankingVote", playerID
	return nil
}

func (f *fakeGames) ActivateBooster(_ context.Context, _, playerID, _ string) error {
	f.lastMethod, f.lastPlayerID = "ActivateBooster", playerID
	return nil
}

func (f *fakeGames) NextQuestion(_ context.Context, _, _ string) error {
	f.lastMethod = "NextQuestion"
	return nil
}

func newTestHub(t *testing.T) (*Hub, *fakeGames, *registry.Registry, *registry.ConnectionIndex) {
	t.Helper()
	clk := clock.NewFake(time.Now())
	reg := registry.New(clk)
	connIndex := registry.NewConnectionIndex()
	games := &fakeGames{}

	hub := &Hub{
		connIndex: connIndex,
		games:     games,
	}
	mgr := lobby.New(reg, connIndex, clk, hub)
	hub.lobby = mgr
	return hub, games, reg, connIndex
}

func envelope(t *testing.T, method string, payload any) InboundEnvelope {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return InboundEnvelope{Method: method, Payload: data}
}

func drainEnvelope(t *testing.T, c *Client) OutboundEnvelope {
	t.Helper()
	select {
	case raw := <-c.send:
		var env OutboundEnvelope
		require.NoError(t, json.Unmarshal(raw, &env))
		return env
	case <-time.After(time.Second):
		require.Fail(t, "no envelope sent")
		return OutboundEnvelope{}
	}
}

func TestDispatch_JoinRoom_BroadcastsLobbyUpdated(t *testing.T) {
	hub, _, reg, _ := newTestHub(t)
	room, err := reg.Create()
	require.NoError(t, err)

	client := newClient(hub, fakeConn{}, "conn-1")
	hub.clients.Store(client.connID, client)

	env := envelope(t, MethodJoinRoom, JoinRoomPayload{RoomCode: room.Code, PlayerID: "p1", DisplayName: "Alice"})
	hub.dispatch(context.Background(), client, env)

	out := drainEnvelope(t, client)
	assert.Equal(t, EventLobbyUpdated, out.Event)
}

func TestDispatch_UnknownMethod_SendsErrorEnvelope(t *testing.T) {
	hub, _, _, _ := newTestHub(t)
	client := newClient(hub, fakeConn{}, "conn-1")
	hub.clients.Store(client.connID, client)

	hub.dispatch(context.Background(), client, InboundEnvelope{Method: "DoesNotExist"})

	out := drainEnvelope(t, client)
	assert.Equal(t, EventError, out.Event)
}

func TestDispatch_SubmitAnswer_RequiresPlayerBinding(t *testing.T) {
	hub, games, _, _ := newTestHub(t)
	client := newClient(hub, fakeConn{}, "conn-1")
	hub.clients.Store(client.connID, client)

	env := envelope(t, MethodSubmitAnswer, SubmitAnswerPayload{RoomCode: "ABCD", OptionKey: "A"})
	hub.dispatch(context.Background(), client, env)

	out := drainEnvelope(t, client)
	assert.Equal(t, EventError, out.Event)
	assert.Empty(t, games.lastMethod)
}

func TestDispatch_SubmitAnswer_RoutesToBoundPlayer(t *testing.T) {
	hub, games, _, connIndex := newTestHub(t)
	connIndex.BindPlayer("conn-1", "ABCD", "p1")
	client := newClient(hub, fakeConn{}, "conn-1")
	hub.clients.Store(client.connID, client)

	env := envelope(t, MethodSubmitAnswer, SubmitAnswerPayload{RoomCode: "ABCD", OptionKey: "A"})
	hub.dispatch(context.Background(), client, env)

	assert.Equal(t, "SubmitAnswer", games.lastMethod)
	assert.Equal(t, "p1", games.lastPlayerID)
}

func TestDispatch_SubmitAnswer_RejectsMismatchedStatedPlayer(t *testing.T) {
	hub, games, _, connIndex := newTestHub(t)
	connIndex.BindPlayer("conn-1", "ABCD", "p1")
	client := newClient(hub, fakeConn{}, "conn-1")
	hub.clients.Store(client.connID, client)

	env := envelope(t, MethodSubmitAnswer, SubmitAnswerPayload{RoomCode: "ABCD", PlayerID: "p2", OptionKey: "A"})
	hub.dispatch(context.Background(), client, env)

	out := drainEnvelope(t, client)
	assert.Equal(t, EventError, out.Event)
	assert.Empty(t, games.lastMethod)
}

func TestHandleDisconnect_NotifiesOrchestratorForPlayers(t *testing.T) {
	hub, games, _, connIndex := newTestHub(t)
	connIndex.BindPlayer("conn-1", "ABCD", "p1")
	client := newClient(hub, fakeConn{}, "conn-1")
	hub.clients.Store(client.connID, client)

	hub.handleDisconnect("conn-1")

	_, bound := connIndex.Get("conn-1")
	assert.False(t, bound)
	assert.Equal(t, "NotifyConnectionChanged", games.lastMethod)
	assert.Equal(t, "p1", games.lastPlayerID)
}
