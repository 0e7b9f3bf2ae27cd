package types

import "time"

// Role is a participant's place in the session: one of the two seats, or
// the audience. Assigned at join time in arrival order and fixed
// thereafter.
type Role string

const (
	RoleX         Role = "X"
	RoleO         Role = "O"
	RoleSpectator Role = "Spectator"
)

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// WinnerDraw is the Winner value for a full board with no completed line.
const WinnerDraw = "draw"

// Participant is one connected party: a seated player or a spectator.
type Participant struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// Snapshot is the complete serialized session state, as returned by the
// lifecycle endpoints and embedded in every game_update event.
type Snapshot struct {
	ID          string        `json:"id"`
	Code        string        `json:"code"`
	Players     []Participant `json:"players"`
	Spectators  []Participant `json:"spectators"`
	Board       [9]string     `json:"board"`
	Turn        string        `json:"turn"`
	Status      Status        `json:"status"`
	Winner      string        `json:"winner,omitempty"`
	WinningLine *[3]int       `json:"winningLine,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
}
