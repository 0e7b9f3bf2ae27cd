// Package client is a thin session controller for the game server: fetch
// a snapshot over HTTP, subscribe to the channel, send intents, and hand
// every received snapshot to the caller. It keeps no game state of its
// own; on channel loss callers should re-fetch a snapshot before
// resubscribing, since the channel replays nothing.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coder/websocket"

	"github.com/sia12-web/uniHood-sub008/pkg/types"
)

type CreateResult struct {
	SessionID string     `json:"sessionId"`
	Code      string     `json:"code"`
	PlayerID  string     `json:"playerId"`
	Role      types.Role `json:"role"`
}

type JoinResult struct {
	SessionID    string          `json:"sessionId"`
	PlayerID     string          `json:"playerId"`
	Role         types.Role      `json:"role"`
	InitialState *types.Snapshot `json:"initialState"`
}

// Controller drives one participant's view of a session.
type Controller struct {
	base string
	http *http.Client

	conn      *websocket.Conn
	sessionID string
	playerID  string

	// OnUpdate receives every snapshot the server broadcasts. OnError
	// receives rejections addressed to this connection. Both must be set
	// before Connect.
	OnUpdate func(*types.Snapshot)
	OnError  func(string)
}

func New(baseURL string) *Controller {
	return &Controller{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{},
	}
}

// Create starts a new session; the caller is seated as player X.
func (c *Controller) Create(ctx context.Context) (CreateResult, error) {
	var out CreateResult
	err := c.post(ctx, "/games", nil, &out)
	return out, err
}

// Join seats the caller in the session behind code, as O or a spectator.
func (c *Controller) Join(ctx context.Context, code string) (JoinResult, error) {
	var out JoinResult
	err := c.post(ctx, "/games/join", map[string]string{"code": code}, &out)
	return out, err
}

// Snapshot fetches the current state without touching it.
func (c *Controller) Snapshot(ctx context.Context, code string) (*types.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/games/"+code, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get game: status %d", resp.StatusCode)
	}
	var snap types.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Connect opens the channel and issues join_game. Received events are
// dispatched to OnUpdate/OnError until the connection dies or ctx ends.
func (c *Controller) Connect(ctx context.Context, sessionID, playerID string) error {
	wsURL := strings.Replace(c.base, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return err
	}
	c.conn = conn
	c.sessionID = sessionID
	c.playerID = playerID

	if err := c.send(ctx, types.ClientMessage{
		Type:      types.EvtJoinGame,
		SessionID: sessionID,
		PlayerID:  playerID,
	}); err != nil {
		conn.Close(websocket.StatusInternalError, "join failed")
		return err
	}

	go c.readLoop(ctx)
	return nil
}

// SendMove submits a move intent for the pinned player.
func (c *Controller) SendMove(ctx context.Context, index int) error {
	return c.send(ctx, types.ClientMessage{
		Type:      types.EvtMakeMove,
		SessionID: c.sessionID,
		PlayerID:  c.playerID,
		Index:     index,
	})
}

// SendRematch asks for the finished game to be reset.
func (c *Controller) SendRematch(ctx context.Context) error {
	return c.send(ctx, types.ClientMessage{
		Type:      types.EvtRequestRematch,
		SessionID: c.sessionID,
		PlayerID:  c.playerID,
	})
}

func (c *Controller) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *Controller) readLoop(ctx context.Context) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}
		var msg types.ServerMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		switch msg.Type {
		case types.EvtGameUpdate:
			if c.OnUpdate != nil {
				c.OnUpdate(msg.Game)
			}
		case types.EvtError:
			if c.OnError != nil {
				c.OnError(msg.Message)
			}
		}
	}
}

func (c *Controller) send(ctx context.Context, msg types.ClientMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.conn.Write(ctx, websocket.MessageText, payload)
}

func (c *Controller) post(ctx context.Context, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
