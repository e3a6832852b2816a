package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"nhooyr.io/websocket"

	"durak/internal/durak"
	"durak/internal/room"
)

// WSMessage is the JSON envelope for WebSocket messages.
type WSMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type joinPayload struct {
	PlayerID string `json:"playerId"`
}

type movePayload struct {
	Action      string      `json:"action"` // attack, defend, take, pass
	Card        *durak.Card `json:"card,omitempty"`
	AttackIndex int         `json:"attackIndex"`
}

type eventEnvelope struct {
	Seq   uint64 `json:"seq"`
	Type  string `json:"type"`
	Event any    `json:"event"`
}

type errorPayload struct {
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
}

// wsClient serializes writes to one connection: the reader loop answers with
// error frames while the relay goroutine pushes events, and the websocket
// library allows only one writer at a time.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsClient) write(ctx context.Context, msgType string, payload any) error {
	p, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	msg, err := json.Marshal(WSMessage{Type: msgType, Payload: p})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.Write(ctx, websocket.MessageText, msg)
}

func (c *wsClient) writeError(ctx context.Context, message, reason string) {
	c.write(ctx, "error", errorPayload{Message: message, Reason: reason})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("id")
	actor, err := s.registry.Get(roomID)
	if err != nil {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // allow any origin for dev
	})
	if err != nil {
		s.log.Warnw("websocket accept", "room", roomID, "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	client := &wsClient{conn: conn}

	// First message must be a join identifying the player.
	_, data, err := conn.Read(ctx)
	if err != nil {
		return
	}
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Type != "join" {
		client.writeError(ctx, "first message must be a join", "")
		return
	}
	var join joinPayload
	if err := json.Unmarshal(msg.Payload, &join); err != nil || join.PlayerID == "" {
		client.writeError(ctx, "invalid join payload", "")
		return
	}
	playerID := join.PlayerID

	// Fail closed: only the two seated players may connect.
	players := actor.Players()
	if playerID != players[0] && playerID != players[1] {
		client.writeError(ctx, "not a participant of this room", string(durak.ReasonNotAParticipant))
		return
	}

	actor.OnPlayerReconnect(playerID)
	defer actor.OnPlayerDisconnect(playerID)

	sub := actor.Attach(64)
	defer actor.Detach(sub)

	// Initial state snapshot, redacted for this player.
	if view, err := actor.View(ctx, playerID); err == nil {
		client.write(ctx, "state", view)
	}

	// Relay: forward event batches, each followed by a fresh snapshot.
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		for batch := range sub.C {
			for _, e := range batch.Events {
				env := eventEnvelope{Seq: batch.Seq, Type: durak.EventName(e), Event: e}
				if err := client.write(ctx, "event", env); err != nil {
					return
				}
			}
			view, err := actor.View(ctx, playerID)
			if err != nil {
				return // room shut down
			}
			if err := client.write(ctx, "state", view); err != nil {
				return
			}
		}
	}()

	// Reader: handle incoming moves until the client goes away.
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			break
		}
		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			client.writeError(ctx, "invalid message", "")
			continue
		}
		s.handleWSMessage(ctx, client, actor, playerID, msg)
	}

	s.log.Infow("player disconnected", "room", roomID, "player", playerID)
	actor.Detach(sub)
	<-relayDone
}

func (s *Server) handleWSMessage(ctx context.Context, client *wsClient, actor *room.Actor, playerID string, msg WSMessage) {
	switch msg.Type {
	case "move":
		var mp movePayload
		if err := json.Unmarshal(msg.Payload, &mp); err != nil {
			client.writeError(ctx, "invalid move payload", "")
			return
		}
		mv, err := decodeMove(mp)
		if err != nil {
			client.writeError(ctx, err.Error(), "")
			return
		}
		if _, err := actor.SubmitMove(ctx, playerID, mv); err != nil {
			// Rejections go to the submitter only; accepted moves reach
			// everyone through the event stream.
			if im, ok := durak.AsIllegalMove(err); ok {
				client.writeError(ctx, im.Error(), string(im.Reason))
				return
			}
			client.writeError(ctx, "room unavailable", "")
		}
	default:
		client.writeError(ctx, "unknown message type: "+msg.Type, "")
	}
}

func decodeMove(mp movePayload) (durak.Move, error) {
	switch mp.Action {
	case "attack":
		if mp.Card == nil {
			return nil, fmt.Errorf("attack requires a card")
		}
		return durak.PlaceAttack{Card: *mp.Card}, nil
	case "defend":
		if mp.Card == nil {
			return nil, fmt.Errorf("defend requires a card")
		}
		return durak.PlaceDefense{AttackIndex: mp.AttackIndex, Card: *mp.Card}, nil
	case "take":
		return durak.TakeCards{}, nil
	case "pass":
		return durak.PassTurn{}, nil
	default:
		return nil, fmt.Errorf("unknown action: %s", mp.Action)
	}
}
