package types

// Client -> server event names.
const (
	EvtJoinGame       = "join_game"
	EvtMakeMove       = "make_move"
	EvtRequestRematch = "request_rematch"
)

// Server -> client event names.
const (
	EvtGameUpdate = "game_update"
	EvtError      = "error"
)

// ClientMessage is every client -> server channel event. Type selects the
// event; the other fields are filled as each event requires.
type ClientMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId,omitempty"`
	PlayerID  string `json:"playerId,omitempty"`
	Index     int    `json:"index"`
}

// ServerMessage is every server -> client channel event: a game_update
// carrying the full snapshot, or an error delivered only to the offending
// connection.
type ServerMessage struct {
	Type    string    `json:"type"`
	Game    *Snapshot `json:"game,omitempty"`
	Message string    `json:"message,omitempty"`
}
