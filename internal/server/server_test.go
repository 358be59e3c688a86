package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/require"

	"github.com/topogame/dice-dominion-sub000/internal/config"
	"github.com/topogame/dice-dominion-sub000/internal/database"
	"github.com/topogame/dice-dominion-sub000/internal/dice"
	"github.com/topogame/dice-dominion-sub000/internal/game"
	"github.com/topogame/dice-dominion-sub000/internal/protocol"
)

func newTestServer(t *testing.T, faces ...int) *Server {
	t.Helper()
	srv, err := New(config.Config{
		Port:   30000,
		DBPath: filepath.Join(t.TempDir(), "dice.db"),
	})
	require.NoError(t, err)
	if len(faces) > 0 {
		srv.hub.newRNG = func() (game.RNG, uint64, error) { return dice.Faces(faces...), 0, nil }
	}
	t.Cleanup(func() { srv.Stop(context.Background()) })
	return srv
}

func send(t *testing.T, h *Hub, c *Client, msgType protocol.MessageType, payload any) string {
	t.Helper()
	msg, err := protocol.NewMessage(msgType, payload)
	require.NoError(t, err)
	h.Handle(c, msg)
	return msg.ID
}

// expect skips queued messages until one of msgType arrives.
func expect(t *testing.T, c *Client, msgType protocol.MessageType) *protocol.Message {
	t.Helper()
	timeout := time.After(time.Second)
	for {
		select {
		case msg := <-c.send:
			if msg.Type == msgType {
				return msg
			}
		case <-timeout:
			t.Fatalf("no %s message", msgType)
		}
	}
}

func expectError(t *testing.T, c *Client, code protocol.ErrorCode) {
	t.Helper()
	var p protocol.ErrorPayload
	require.NoError(t, expect(t, c, protocol.TypeError).ParsePayload(&p))
	require.Equal(t, code, p.Code, p.Message)
}

func drain(c *Client) {
	for {
		select {
		case <-c.send:
		default:
			return
		}
	}
}

func lastState(t *testing.T, c *Client) protocol.GameStatePayload {
	t.Helper()
	var last *protocol.Message
	for {
		select {
		case msg := <-c.send:
			if msg.Type == protocol.TypeGameState {
				last = msg
			}
			continue
		default:
		}
		break
	}
	require.NotNil(t, last, "no game_state queued")
	var p protocol.GameStatePayload
	require.NoError(t, last.ParsePayload(&p))
	return p
}

func createMatch(t *testing.T, srv *Server, c *Client, p protocol.CreateMatchPayload) string {
	t.Helper()
	id := send(t, srv.hub, c, protocol.TypeCreateMatch, p)
	msg := expect(t, c, protocol.TypeMatchCreated)
	require.Equal(t, id, msg.ID)
	var created protocol.MatchCreatedPayload
	require.NoError(t, msg.ParsePayload(&created))
	require.NotEmpty(t, created.MatchID)
	return created.MatchID
}

func joinMatch(t *testing.T, srv *Server, c *Client, matchID, token string) protocol.JoinedMatchPayload {
	t.Helper()
	send(t, srv.hub, c, protocol.TypeJoinMatch, protocol.JoinMatchPayload{MatchID: matchID, Token: token})
	var joined protocol.JoinedMatchPayload
	require.NoError(t, expect(t, c, protocol.TypeJoinedMatch).ParsePayload(&joined))
	return joined
}

func TestHub_PlayThroughFirstPlacement(t *testing.T) {
	srv := newTestServer(t, 5, 2, 3)
	c1, c2 := NewClient(srv.hub, nil), NewClient(srv.hub, nil)

	matchID := createMatch(t, srv, c1, protocol.CreateMatchPayload{PlayerCount: 2, MapType: game.MapFlat})

	j1 := joinMatch(t, srv, c1, matchID, "")
	require.Equal(t, "player1", j1.PlayerID)
	require.Len(t, j1.Token, 64)
	require.Equal(t, game.PhaseSetup, lastState(t, c1).Phase.Kind)

	j2 := joinMatch(t, srv, c2, matchID, "")
	require.Equal(t, "player2", j2.PlayerID)
	st := lastState(t, c2)
	require.Equal(t, game.PhaseTurnOrderRoll, st.Phase.Kind)
	require.Equal(t, "player1", st.CurrentPlayerID)

	info, err := srv.db.GetMatch(matchID)
	require.NoError(t, err)
	require.Equal(t, database.MatchStatusPlaying, info.Status)

	send(t, srv.hub, c2, protocol.TypeRollTurnOrder, nil)
	expectError(t, c2, protocol.ErrCodeNotYourTurn)

	send(t, srv.hub, c1, protocol.TypeRollTurnOrder, nil)
	var rolled protocol.DiceRolledPayload
	require.NoError(t, expect(t, c2, protocol.TypeDiceRolled).ParsePayload(&rolled))
	require.Equal(t, protocol.DiceRolledPayload{PlayerID: "player1", Purpose: "turn_order", Roll: 5}, rolled)

	send(t, srv.hub, c2, protocol.TypeRollTurnOrder, nil)
	st = lastState(t, c1)
	require.Equal(t, game.PhaseSelectOption, st.Phase.Kind)
	require.Equal(t, "player1", st.CurrentPlayerID)

	var state game.GameState
	require.NoError(t, json.Unmarshal(st.State, &state))
	require.Equal(t, []string{"player1", "player2"}, state.TurnOrder)
	require.Equal(t, game.StatusPlaying, state.Status)

	send(t, srv.hub, c1, protocol.TypeSelectOption, protocol.SelectOptionPayload{Option: game.OptionB})
	expectError(t, c1, protocol.ErrCodeNoAttackOptions)

	send(t, srv.hub, c1, protocol.TypeSelectOption, protocol.SelectOptionPayload{Option: game.OptionA})
	send(t, srv.hub, c1, protocol.TypeRollDice, nil)
	require.NoError(t, expect(t, c1, protocol.TypeDiceRolled).ParsePayload(&rolled))
	require.Equal(t, 3, rolled.Roll)

	st = lastState(t, c1)
	require.Equal(t, game.PhasePlacing, st.Phase.Kind)
	require.Equal(t, 3, st.Phase.PlacementsRemaining)
	require.Contains(t, st.ValidPlacements, game.Position{X: 3, Y: 15})
	require.Empty(t, lastState(t, c2).ValidPlacements)

	send(t, srv.hub, c1, protocol.TypePlaceAt, protocol.CellPayload{X: 9, Y: 9})
	expectError(t, c1, protocol.ErrCodeInvalidPlacement)

	send(t, srv.hub, c1, protocol.TypePlaceAt, protocol.CellPayload{X: 3, Y: 15})
	st = lastState(t, c1)
	require.Equal(t, 2, st.Phase.PlacementsRemaining)

	history, err := srv.db.GetMatchHistory(matchID)
	require.NoError(t, err)
	require.NotEmpty(t, history)

	snap, err := srv.db.LoadSnapshot(matchID)
	require.NoError(t, err)
	require.Contains(t, string(snap), `"placementsRemaining":2`)
}

func TestHub_JoinErrors(t *testing.T) {
	srv := newTestServer(t)
	c1, c2, c3 := NewClient(srv.hub, nil), NewClient(srv.hub, nil), NewClient(srv.hub, nil)

	send(t, srv.hub, c1, protocol.TypeJoinMatch, protocol.JoinMatchPayload{MatchID: "nope"})
	expectError(t, c1, protocol.ErrCodeMatchNotFound)

	send(t, srv.hub, c1, protocol.TypeCreateMatch, protocol.CreateMatchPayload{PlayerCount: 7})
	expectError(t, c1, protocol.ErrCodeBadRequest)

	send(t, srv.hub, c1, protocol.TypeEndTurn, nil)
	expectError(t, c1, protocol.ErrCodeNotInMatch)

	matchID := createMatch(t, srv, c1, protocol.CreateMatchPayload{PlayerCount: 2})
	joinMatch(t, srv, c1, matchID, "")

	send(t, srv.hub, c1, protocol.TypeJoinMatch, protocol.JoinMatchPayload{MatchID: matchID})
	expectError(t, c1, protocol.ErrCodeBadRequest)

	joinMatch(t, srv, c2, matchID, "")

	send(t, srv.hub, c3, protocol.TypeJoinMatch, protocol.JoinMatchPayload{MatchID: matchID})
	expectError(t, c3, protocol.ErrCodeMatchFull)

	send(t, srv.hub, c3, protocol.TypeJoinMatch, protocol.JoinMatchPayload{MatchID: matchID, Token: "bogus"})
	expectError(t, c3, protocol.ErrCodeNotInMatch)

	send(t, srv.hub, c3, "teleport", nil)
	expectError(t, c3, protocol.ErrCodeBadRequest)
}

func TestHub_ReconnectWithToken(t *testing.T) {
	srv := newTestServer(t, 4, 1)
	c1, c2 := NewClient(srv.hub, nil), NewClient(srv.hub, nil)

	matchID := createMatch(t, srv, c1, protocol.CreateMatchPayload{PlayerCount: 2})
	j1 := joinMatch(t, srv, c1, matchID, "")
	joinMatch(t, srv, c2, matchID, "")

	room, _ := c1.Seat()
	require.NotNil(t, room)
	room.leave(c1)
	st := lastState(t, c2)
	var state game.GameState
	require.NoError(t, json.Unmarshal(st.State, &state))
	require.False(t, state.Players["player1"].IsConnected)

	back := NewClient(srv.hub, nil)
	rejoined := joinMatch(t, srv, back, matchID, j1.Token)
	require.Equal(t, "player1", rejoined.PlayerID)

	send(t, srv.hub, back, protocol.TypeRollTurnOrder, nil)
	require.NoError(t, expect(t, c2, protocol.TypeDiceRolled).ParsePayload(&protocol.DiceRolledPayload{}))
}

func TestHub_RestoresRoomFromDatabase(t *testing.T) {
	srv := newTestServer(t, 6, 2)
	c1, c2 := NewClient(srv.hub, nil), NewClient(srv.hub, nil)

	matchID := createMatch(t, srv, c1, protocol.CreateMatchPayload{PlayerCount: 2})
	j1 := joinMatch(t, srv, c1, matchID, "")
	joinMatch(t, srv, c2, matchID, "")
	send(t, srv.hub, c1, protocol.TypeRollTurnOrder, nil)

	srv.hub.mu.Lock()
	delete(srv.hub.rooms, matchID)
	srv.hub.mu.Unlock()

	back := NewClient(srv.hub, nil)
	joinMatch(t, srv, back, matchID, j1.Token)
	st := lastState(t, back)
	require.Equal(t, game.PhaseTurnOrderRoll, st.Phase.Kind)
	require.Len(t, st.Phase.Rolls, 1)
	require.Equal(t, "player2", st.CurrentPlayerID)
}

func TestRoom_TurnTimerForcesTimeouts(t *testing.T) {
	srv := newTestServer(t, 3, 5)
	c1, c2 := NewClient(srv.hub, nil), NewClient(srv.hub, nil)

	matchID := createMatch(t, srv, c1, protocol.CreateMatchPayload{PlayerCount: 2})
	room, err := srv.hub.room(matchID)
	require.NoError(t, err)
	room.mu.Lock()
	room.turnTimer = 30 * time.Millisecond
	room.mu.Unlock()

	joinMatch(t, srv, c1, matchID, "")
	joinMatch(t, srv, c2, matchID, "")

	require.Eventually(t, func() bool {
		room.mu.Lock()
		defer room.mu.Unlock()
		return room.match.State().CurrentTurn >= 2
	}, 3*time.Second, 10*time.Millisecond)

	room.mu.Lock()
	order := append([]string{}, room.match.State().TurnOrder...)
	room.mu.Unlock()
	require.Equal(t, []string{"player2", "player1"}, order)

	history, err := srv.db.GetMatchHistory(matchID)
	require.NoError(t, err)
	timeouts := 0
	for _, ev := range history {
		if ev.EventType == "timeout" {
			timeouts++
		}
	}
	require.GreaterOrEqual(t, timeouts, 2)
	drain(c1)
	drain(c2)
}

// winByCastleHit sets player1 next to player2's one-HP castle and plays the
// attack that ends the match. The server's dice must be Faces(6, 1).
func winByCastleHit(t *testing.T, srv *Server) (string, *Client, *Client) {
	t.Helper()
	c1, c2 := NewClient(srv.hub, nil), NewClient(srv.hub, nil)

	matchID := createMatch(t, srv, c1, protocol.CreateMatchPayload{PlayerCount: 2})
	joinMatch(t, srv, c1, matchID, "")
	joinMatch(t, srv, c2, matchID, "")
	send(t, srv.hub, c1, protocol.TypeRollTurnOrder, nil)
	send(t, srv.hub, c2, protocol.TypeRollTurnOrder, nil)

	room, err := srv.hub.room(matchID)
	require.NoError(t, err)
	room.mu.Lock()
	s := room.match.State()
	cell := &s.Grid[1][14]
	cell.Type = game.CellUnit
	cell.Owner = game.PlayerOwner("player1")
	s.Players["player1"].UnitCount++
	s.Players["player2"].CastleHP = 1
	room.mu.Unlock()

	// player1 rolls 6 against 1.
	send(t, srv.hub, c1, protocol.TypeSelectOption, protocol.SelectOptionPayload{Option: game.OptionB})
	send(t, srv.hub, c1, protocol.TypeSelectAttacker, protocol.CellPayload{X: 14, Y: 1})
	send(t, srv.hub, c1, protocol.TypeSelectTarget, protocol.CellPayload{X: 15, Y: 1})

	var combat protocol.CombatResultPayload
	require.NoError(t, expect(t, c2, protocol.TypeCombatResult).ParsePayload(&combat))
	require.True(t, combat.Rolls.AttackerWins)
	require.Equal(t, "player2", combat.Outcome.EliminatedPlayer)

	var elim protocol.PlayerEliminatedPayload
	require.NoError(t, expect(t, c2, protocol.TypePlayerEliminated).ParsePayload(&elim))
	require.Equal(t, protocol.PlayerEliminatedPayload{PlayerID: "player2", EliminatedBy: "player1"}, elim)

	var over protocol.GameOverPayload
	require.NoError(t, expect(t, c2, protocol.TypeGameOver).ParsePayload(&over))
	require.Equal(t, "player1", over.Winner)

	return matchID, c1, c2
}

func TestRoom_GameOverRecordsWinner(t *testing.T) {
	srv := newTestServer(t, 6, 1)
	matchID, c1, _ := winByCastleHit(t, srv)

	info, err := srv.db.GetMatch(matchID)
	require.NoError(t, err)
	require.Equal(t, database.MatchStatusFinished, info.Status)
	require.Equal(t, "player1", info.Winner)

	send(t, srv.hub, c1, protocol.TypeEndTurn, nil)
	expectError(t, c1, protocol.ErrCodeGameOver)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want protocol.ErrorCode
	}{
		{game.ErrNotYourTurn, protocol.ErrCodeNotYourTurn},
		{game.ErrPlayerEliminated, protocol.ErrCodeNotYourTurn},
		{game.ErrInvalidAttacker, protocol.ErrCodeInvalidTarget},
		{game.ErrInvalidTarget, protocol.ErrCodeInvalidTarget},
		{game.ErrInvalidPlacement, protocol.ErrCodeInvalidPlacement},
		{game.ErrNoAttackOptions, protocol.ErrCodeNoAttackOptions},
		{game.ErrGameOver, protocol.ErrCodeGameOver},
		{fmt.Errorf("%w: placing", game.ErrInvalidAction), protocol.ErrCodeInvalidAction},
		{game.ErrInvalidTransition, protocol.ErrCodeInvalidAction},
		{game.ErrUnknownMapType, protocol.ErrCodeBadRequest},
		{database.ErrMatchNotFound, protocol.ErrCodeMatchNotFound},
		{database.ErrSeatNotFound, protocol.ErrCodeNotInMatch},
		{errMatchFull, protocol.ErrCodeMatchFull},
		{errors.New("disk on fire"), protocol.ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			require.Equal(t, tt.want, errorCode(tt.err))
		})
	}
}

func TestServer_HTTPAndWebSocket(t *testing.T) {
	srv := newTestServer(t)
	go srv.hub.Run()

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.Equal(t, "ok", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() *protocol.Message {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		msg, err := protocol.Decode(data)
		require.NoError(t, err)
		return msg
	}

	require.Equal(t, protocol.TypeWelcome, read().Type)

	msg, err := protocol.NewMessage(protocol.TypeCreateMatch, protocol.CreateMatchPayload{PlayerCount: 3, MapType: game.MapRiver})
	require.NoError(t, err)
	data, err := msg.Encode()
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))

	reply := read()
	require.Equal(t, protocol.TypeMatchCreated, reply.Type)
	require.Equal(t, msg.ID, reply.ID)
	var created protocol.MatchCreatedPayload
	require.NoError(t, reply.ParsePayload(&created))

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{not json`)))
	require.Equal(t, protocol.TypeError, read().Type)

	resp, err = http.Get(ts.URL + "/api/matches")
	require.NoError(t, err)
	defer resp.Body.Close()
	var matches []database.MatchInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&matches))
	require.Len(t, matches, 1)
	require.Equal(t, created.MatchID, matches[0].ID)
	require.Equal(t, 3, matches[0].PlayerCount)
	require.Equal(t, "river", matches[0].MapType)
}

func TestServer_MatchHistory(t *testing.T) {
	srv := newTestServer(t, 6, 2)
	c1, c2 := NewClient(srv.hub, nil), NewClient(srv.hub, nil)
	matchID := createMatch(t, srv, c1, protocol.CreateMatchPayload{PlayerCount: 2})
	joinMatch(t, srv, c1, matchID, "")
	joinMatch(t, srv, c2, matchID, "")
	send(t, srv.hub, c1, protocol.TypeRollTurnOrder, nil)
	send(t, srv.hub, c2, protocol.TypeRollTurnOrder, nil)

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	get := func(path string) (int, matchHistory) {
		t.Helper()
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var h matchHistory
		if resp.StatusCode == http.StatusOK {
			require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&h))
		}
		return resp.StatusCode, h
	}

	status, all := get("/api/matches/" + matchID + "/history")
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, matchID, all.MatchID)
	require.Equal(t, 1, all.Turn)
	require.NotEmpty(t, all.Events)
	rolls := 0
	for _, ev := range all.Events {
		require.Equal(t, matchID, ev.MatchID)
		if ev.EventType == "turn_order" && ev.PlayerID != "" {
			rolls++
		}
	}
	require.Equal(t, 2, rolls)

	last := all.Events[len(all.Events)-1].ID
	status, tail := get(fmt.Sprintf("/api/matches/%s/history?since=%d", matchID, all.Events[0].ID))
	require.Equal(t, http.StatusOK, status)
	require.Len(t, tail.Events, len(all.Events)-1)
	require.Equal(t, last, tail.Events[len(tail.Events)-1].ID)

	status, none := get(fmt.Sprintf("/api/matches/%s/history?since=%d", matchID, last))
	require.Equal(t, http.StatusOK, status)
	require.NotNil(t, none.Events)
	require.Empty(t, none.Events)
	require.Equal(t, 1, none.Turn)

	status, _ = get("/api/matches/" + matchID + "/history?since=abc")
	require.Equal(t, http.StatusBadRequest, status)

	status, _ = get("/api/matches/nope/history")
	require.Equal(t, http.StatusNotFound, status)

	resp, err := http.Post(ts.URL+"/api/matches/"+matchID+"/history", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	drain(c1)
	drain(c2)
}
