package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sia12-web/uniHood-sub008/internal/hub"
	"github.com/sia12-web/uniHood-sub008/internal/room"
	"github.com/sia12-web/uniHood-sub008/internal/session"
	"github.com/sia12-web/uniHood-sub008/pkg/types"
)

const writeTimeout = 3 * time.Second

// connCtx is the per-connection state, allocated once at connect time and
// threaded through every handler. The player identity is pinned by the
// first join_game and used for all later intents from this connection.
type connCtx struct {
	connID   string
	playerID string
	rm       *room.Room
	outbox   chan room.Event
}

func (c *connCtx) joined() bool { return c.rm != nil }

// Handler accepts persistent connections and runs the channel protocol:
// a join_game subscribes the connection to its session's broadcast group,
// then make_move / request_rematch intents flow to the room actor, and
// every event the room emits is pumped back out by a writer goroutine.
func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		cc := &connCtx{connID: uuid.NewString()}
		log := log.With(zap.String("conn_id", cc.connID))

		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		defer func() {
			if cc.joined() {
				cc.rm.Send(room.Unsubscribe{ConnID: cc.connID})
				log.Info("connection closed")
			}
		}()

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				// Abrupt drop: leave the session untouched, the room
				// unsubscribes via the defer above.
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				writeError(writeCtx, conn, "bad json")
				continue
			}

			switch cm.Type {
			case types.EvtJoinGame:
				if cc.joined() {
					writeError(writeCtx, conn, "already joined a session")
					continue
				}
				reply := make(chan *room.Room, 1)
				h.Inbox() <- hub.GetSession{ID: cm.SessionID, Reply: reply}
				rm := <-reply
				if rm == nil {
					writeError(writeCtx, conn, session.ErrSessionNotFound.Error())
					continue
				}

				outbox := make(chan room.Event, 8)
				if !rm.Send(room.Subscribe{ConnID: cc.connID, Outbox: outbox}) {
					// Removed between lookup and subscribe.
					writeError(writeCtx, conn, session.ErrSessionNotFound.Error())
					continue
				}
				cc.rm = rm
				cc.playerID = cm.PlayerID
				cc.outbox = outbox
				go writePump(writeCtx, conn, cc.outbox)
				log.Info("connection joined session",
					zap.String("session_id", rm.ID()),
					zap.String("player_id", cc.playerID))

			case types.EvtMakeMove:
				if !cc.joined() {
					writeError(writeCtx, conn, "join a session first")
					continue
				}
				if !cc.rm.Send(room.MakeMove{ConnID: cc.connID, PlayerID: cc.playerID, Index: cm.Index}) {
					writeError(writeCtx, conn, session.ErrSessionNotFound.Error())
				}

			case types.EvtRequestRematch:
				if !cc.joined() {
					writeError(writeCtx, conn, "join a session first")
					continue
				}
				if !cc.rm.Send(room.RequestRematch{ConnID: cc.connID, PlayerID: cc.playerID}) {
					writeError(writeCtx, conn, session.ErrSessionNotFound.Error())
				}

			default:
				writeError(writeCtx, conn, "unknown type")
			}
		}
	}
}

// writePump drains the room outbox onto the wire until the room closes it
// or the connection dies.
func writePump(ctx context.Context, conn *websocket.Conn, outbox <-chan room.Event) {
	for ev := range outbox {
		var msg types.ServerMessage
		switch e := ev.(type) {
		case room.Update:
			msg = types.ServerMessage{Type: types.EvtGameUpdate, Game: e.Game}
		case room.Failure:
			msg = types.ServerMessage{Type: types.EvtError, Message: e.Err.Error()}
		default:
			continue
		}
		writeMsg(ctx, conn, msg)
	}
}

func writeMsg(ctx context.Context, conn *websocket.Conn, msg types.ServerMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	_ = conn.Write(wctx, websocket.MessageText, payload)
	cancel()
}

func writeError(ctx context.Context, conn *websocket.Conn, text string) {
	writeMsg(ctx, conn, types.ServerMessage{Type: types.EvtError, Message: text})
}
