package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"

	"durak/internal/durak"
	"durak/internal/room"
	"durak/internal/storage"
)

// --- Test environment ---

type testEnv struct {
	ts       *httptest.Server
	registry *room.Registry
	store    *storage.Store
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := storage.New(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := zap.NewNop().Sugar()
	registry := room.NewRegistry(durak.DefaultRules(), room.DefaultConfig(), log, store)
	srv := New(registry, store, log)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, registry: registry, store: store}
}

// --- Context helpers ---

func timeoutCtx(t *testing.T) (context.Context, context.CancelFunc) {
	t.Helper()
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// --- REST API helpers ---

func createRoomViaAPI(t *testing.T, ts *httptest.Server, players ...string) string {
	t.Helper()
	body, _ := json.Marshal(createRoomRequest{Players: players})
	resp, err := http.Post(ts.URL+"/api/rooms", "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var result createRoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result.RoomID
}

func getJSON(t *testing.T, ts *httptest.Server, path string, wantStatus int, v any) {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != wantStatus {
		t.Fatalf("GET %s: expected %d, got %d", path, wantStatus, resp.StatusCode)
	}
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
}

// --- WebSocket helpers ---

func wsURL(ts *httptest.Server, roomID string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/rooms/" + roomID + "/ws"
}

type wsTestClient struct {
	t    *testing.T
	conn *websocket.Conn
	ctx  context.Context
}

func dialAndJoin(t *testing.T, ctx context.Context, ts *httptest.Server, roomID, playerID string) *wsTestClient {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, wsURL(ts, roomID), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	c := &wsTestClient{t: t, conn: conn, ctx: ctx}
	c.send("join", joinPayload{PlayerID: playerID})
	return c
}

func (c *wsTestClient) send(msgType string, payload any) {
	c.t.Helper()
	p, _ := json.Marshal(payload)
	msg, _ := json.Marshal(WSMessage{Type: msgType, Payload: p})
	if err := c.conn.Write(c.ctx, websocket.MessageText, msg); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *wsTestClient) sendMove(mp movePayload) {
	c.t.Helper()
	c.send("move", mp)
}

// read returns the next message, or an error when the connection drops.
func (c *wsTestClient) read() (WSMessage, error) {
	_, data, err := c.conn.Read(c.ctx)
	if err != nil {
		return WSMessage{}, err
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return WSMessage{}, fmt.Errorf("unmarshal frame: %w", err)
	}
	return msg, nil
}

// waitFor reads frames until one of the given type arrives.
func (c *wsTestClient) waitFor(msgType string) WSMessage {
	c.t.Helper()
	for {
		msg, err := c.read()
		if err != nil {
			c.t.Fatalf("waiting for %q frame: %v", msgType, err)
		}
		if msg.Type == msgType {
			return msg
		}
	}
}

func decodeState(t *testing.T, msg WSMessage) durak.View {
	t.Helper()
	var v durak.View
	if err := json.Unmarshal(msg.Payload, &v); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	return v
}

func decodeError(t *testing.T, msg WSMessage) errorPayload {
	t.Helper()
	var e errorPayload
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	return e
}
