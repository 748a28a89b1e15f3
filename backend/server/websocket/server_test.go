package websocket_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gurshaan17/2d-metaverse/backend/hub"
	"github.com/gurshaan17/2d-metaverse/backend/model"
	websocketServer "github.com/gurshaan17/2d-metaverse/backend/server/websocket"
	sw "github.com/gurshaan17/2d-metaverse/backend/switch"
	"github.com/rs/zerolog"
)

const readTimeout = 2 * time.Second

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	logger := zerolog.Nop()
	gateway := hub.New(hub.Config{
		Logger: &logger,
		Switch: sw.NewSwitch(&logger),
	})
	srv := websocketServer.NewServer(websocketServer.Config{
		Logger:     &logger,
		Gateway:    gateway,
		ListenAddr: "127.0.0.1:0",
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func writeEvent(t *testing.T, conn *websocket.Conn, name string, payload any) {
	t.Helper()
	ev, err := model.NewEvent(name, payload)
	if err != nil {
		t.Fatalf("failed to build %s event: %v", name, err)
	}
	b, err := json.Marshal(&ev)
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}
	if err = conn.WriteMessage(websocket.TextMessage, b); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn, wantName string) model.Event {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		t.Fatalf("failed to set read deadline: %v", err)
	}
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read (want %s): %v", wantName, err)
	}
	var ev model.Event
	if err = json.Unmarshal(b, &ev); err != nil {
		t.Fatalf("failed to decode envelope %q: %v", b, err)
	}
	if ev.Name != wantName {
		t.Fatalf("got event %s, want %s (payload %s)", ev.Name, wantName, ev.Data)
	}
	return ev
}

func decode[T any](t *testing.T, ev model.Event) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(ev.Data, &v); err != nil {
		t.Fatalf("failed to decode %s payload: %v", ev.Name, err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := ts.Client().Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status: got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "ok") {
		t.Fatalf("healthz body: %q", body)
	}
}

func TestPresenceFlowOverWebsocket(t *testing.T) {
	ts := newTestServer(t)

	c1 := dial(t, ts)
	writeEvent(t, c1, model.EventPlayerJoin, model.PlayerJoin{Room: "r1", Name: "alice", X: 5, Y: 6})
	roster := decode[[]model.Player](t, readEvent(t, c1, model.EventPlayersSync))
	if len(roster) != 1 || roster[0].Name != "alice" {
		t.Fatalf("first joiner roster: %v", roster)
	}

	c2 := dial(t, ts)
	writeEvent(t, c2, model.EventPlayerJoin, model.PlayerJoin{Room: "r1", Name: "bob", X: 7, Y: 8})
	roster = decode[[]model.Player](t, readEvent(t, c2, model.EventPlayersSync))
	if len(roster) != 2 || roster[0].Name != "alice" || roster[1].Name != "bob" {
		t.Fatalf("second joiner roster: %v", roster)
	}

	bob := decode[model.Player](t, readEvent(t, c1, model.EventPlayerJoined))
	if bob.Name != "bob" || bob.X != 7 || bob.Y != 8 {
		t.Fatalf("player-joined payload: %+v", bob)
	}

	writeEvent(t, c2, model.EventPlayerMove, model.PlayerMove{Room: "r1", X: 70, Y: 80, Direction: "down"})
	moved := decode[model.Player](t, readEvent(t, c1, model.EventPlayerMoved))
	if moved.ID != bob.ID || moved.X != 70 || moved.Direction != "down" {
		t.Fatalf("player-moved payload: %+v", moved)
	}

	// disconnect runs the full leave sequence toward the survivor
	if err := c2.Close(); err != nil {
		t.Fatalf("failed to close second connection: %v", err)
	}
	if id := decode[string](t, readEvent(t, c1, model.EventPlayerLeft)); id != bob.ID {
		t.Fatalf("player-left id: got %q, want %q", id, bob.ID)
	}
	roster = decode[[]model.Player](t, readEvent(t, c1, model.EventChatMembers))
	if len(roster) != 1 || roster[0].Name != "alice" {
		t.Fatalf("roster after leave: %v", roster)
	}
}

func TestDisconnectDuringJoinLeavesNoTrace(t *testing.T) {
	ts := newTestServer(t)

	// hammer the join/close window: a connection dropping while its
	// join is still being dispatched must not leave an avatar in the
	// room or a dead wire in the broadcast group
	for i := 0; i < 20; i++ {
		c := dial(t, ts)
		writeEvent(t, c, model.EventPlayerJoin, model.PlayerJoin{Room: "r-churn", Name: "ghost", X: 1, Y: 1})
		if err := c.Close(); err != nil {
			t.Fatalf("failed to close churned connection: %v", err)
		}
	}

	// cleanup is asynchronous; poll via fresh roster snapshots until
	// only the observer remains
	obs := dial(t, ts)
	deadline := time.Now().Add(5 * time.Second)
	for {
		writeEvent(t, obs, model.EventPlayerJoin, model.PlayerJoin{Room: "r-churn", Name: "observer", X: 2, Y: 2})
		roster := decode[[]model.Player](t, readEvent(t, obs, model.EventPlayersSync))
		if len(roster) == 1 && roster[0].Name == "observer" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("phantom players survived disconnect: %v", roster)
		}
		time.Sleep(200 * time.Millisecond)
	}
}

func TestSignalingFlowOverWebsocket(t *testing.T) {
	ts := newTestServer(t)

	c1 := dial(t, ts)
	writeEvent(t, c1, model.EventJoinRoom, model.VideoJoin{RoomID: "v1", UserName: "alice"})
	// joinRoom is not acknowledged to the joiner, so give the hub a
	// moment before the second join fans out newUser
	time.Sleep(100 * time.Millisecond)

	c2 := dial(t, ts)
	writeEvent(t, c2, model.EventJoinRoom, model.VideoJoin{RoomID: "v1", UserName: "bob"})

	peer := decode[model.PeerInfo](t, readEvent(t, c1, model.EventNewUser))
	if peer.UserName != "bob" || peer.UserID == "" {
		t.Fatalf("newUser payload: %+v", peer)
	}

	// bob claims someone else's identity; alice must see bob's real id
	writeEvent(t, c2, model.EventOffer, model.SignalIn{
		SDP:      json.RawMessage(`{"type":"offer","sdp":"v=0"}`),
		RoomID:   "v1",
		UserID:   "not-bob",
		UserName: "bob",
	})
	offer := decode[model.SignalOut](t, readEvent(t, c1, model.EventOffer))
	if offer.UserID != peer.UserID {
		t.Fatalf("relayed sender id: got %q, want %q", offer.UserID, peer.UserID)
	}
	if string(offer.Offer) != `{"type":"offer","sdp":"v=0"}` {
		t.Fatalf("offer payload: %s", offer.Offer)
	}

	writeEvent(t, c1, model.EventAnswer, model.SignalIn{
		SDP:    json.RawMessage(`{"type":"answer"}`),
		RoomID: "v1",
	})
	answer := decode[model.SignalOut](t, readEvent(t, c2, model.EventAnswer))
	if string(answer.Answer) != `{"type":"answer"}` || answer.UserID == peer.UserID {
		t.Fatalf("answer payload: %+v", answer)
	}

	if err := c2.Close(); err != nil {
		t.Fatalf("failed to close second connection: %v", err)
	}
	if id := decode[string](t, readEvent(t, c1, model.EventUserDisconnected)); id != peer.UserID {
		t.Fatalf("userDisconnected id: got %q, want %q", id, peer.UserID)
	}
}

func TestChatRelayOverWebsocket(t *testing.T) {
	ts := newTestServer(t)

	c1 := dial(t, ts)
	writeEvent(t, c1, model.EventChatConnect, model.ChatConnect{Name: "alice", SpaceID: "s1"})
	// chatConnect is not acknowledged to the joiner either
	time.Sleep(100 * time.Millisecond)

	c2 := dial(t, ts)
	writeEvent(t, c2, model.EventChatConnect, model.ChatConnect{Name: "bob", SpaceID: "s1"})
	// no presence members yet, so the roster broadcast is empty
	roster := decode[[]model.Player](t, readEvent(t, c1, model.EventChatMembers))
	if len(roster) != 0 {
		t.Fatalf("roster without presence members: %v", roster)
	}

	msg := model.ChatMessage{
		Sender:    "alice",
		Message:   "hi bob",
		Timestamp: "2024-06-01T10:00:00Z",
		RoomID:    "s1",
	}
	writeEvent(t, c1, model.EventSendMessage, msg)
	if got := decode[model.ChatMessage](t, readEvent(t, c2, model.EventReceiveMessage)); got != msg {
		t.Fatalf("relayed message: %+v", got)
	}
}
