package session

import (
	"errors"
	"time"

	"github.com/sia12-web/uniHood-sub008/internal/engine"
	"github.com/sia12-web/uniHood-sub008/pkg/types"
)

var ErrSessionNotFound = errors.New("session not found")
var ErrNotYourTurn = errors.New("not your turn")
var ErrInvalidMove = errors.New("invalid move")
var ErrGameNotActive = errors.New("game is not active")
var ErrRematchNotAllowed = errors.New("rematch not allowed")

// roleMark maps a player role to its board mark, MarkEmpty for spectators.
func roleMark(r types.Role) engine.Mark {
	switch r {
	case types.RoleX:
		return engine.MarkX
	case types.RoleO:
		return engine.MarkO
	default:
		return engine.MarkEmpty
	}
}

// Session is the authoritative state of one match plus its audience.
// It is a plain value with no internal locking; the room actor owns the
// only mutable copy and serializes every transition.
type Session struct {
	ID          string
	Code        string
	Players     []types.Participant
	Spectators  []types.Participant
	Board       engine.Board
	Turn        engine.Mark
	Status      types.Status
	Winner      string
	WinningLine *[3]int
	CreatedAt   time.Time
}

func New(id, code string) *Session {
	return &Session{
		ID:        id,
		Code:      code,
		Board:     engine.NewBoard(),
		Turn:      engine.MarkX,
		Status:    types.StatusWaiting,
		CreatedAt: time.Now().UTC(),
	}
}

// Seat admits a new participant: the first arrival plays X, the second
// plays O (flipping the session to playing), everyone after that watches.
func (s *Session) Seat(participantID string) types.Participant {
	var p types.Participant
	switch len(s.Players) {
	case 0:
		p = types.Participant{ID: participantID, Role: types.RoleX}
		s.Players = append(s.Players, p)
	case 1:
		p = types.Participant{ID: participantID, Role: types.RoleO}
		s.Players = append(s.Players, p)
		if s.Status == types.StatusWaiting {
			s.Status = types.StatusPlaying
		}
	default:
		p = types.Participant{ID: participantID, Role: types.RoleSpectator}
		s.Spectators = append(s.Spectators, p)
	}
	return p
}

func (s *Session) player(participantID string) (types.Participant, bool) {
	for _, p := range s.Players {
		if p.ID == participantID {
			return p, true
		}
	}
	return types.Participant{}, false
}

// ApplyMove validates and applies one move. On rejection the session is
// left untouched and a sentinel error describes why. On acceptance the
// cell is marked, terminal conditions are evaluated, and either the game
// finishes or the turn flips.
func (s *Session) ApplyMove(participantID string, index int) error {
	p, ok := s.player(participantID)
	if !ok || roleMark(p.Role) != s.Turn {
		// Spectators and off-turn players land here alike: neither
		// holds the role the current turn belongs to.
		return ErrNotYourTurn
	}
	if s.Status != types.StatusPlaying {
		return ErrGameNotActive
	}
	if !engine.IsLegalMove(s.Board, index) {
		return ErrInvalidMove
	}

	s.Board[index] = roleMark(p.Role)

	if winner, line, won := engine.EvaluateWin(s.Board); won {
		s.Status = types.StatusFinished
		s.Winner = string(winner)
		s.WinningLine = &line
		return nil
	}
	if engine.IsDraw(s.Board) {
		s.Status = types.StatusFinished
		s.Winner = types.WinnerDraw
		return nil
	}
	s.Turn = s.Turn.Other()
	return nil
}

// Rematch resets the board for another game between the same players.
// Membership is untouched: roles persist across rematches. starter is the
// role that opens the new game.
func (s *Session) Rematch(participantID string, starter engine.Mark) error {
	if _, ok := s.player(participantID); !ok {
		return ErrRematchNotAllowed
	}
	if s.Status != types.StatusFinished {
		return ErrRematchNotAllowed
	}
	s.Board = engine.NewBoard()
	s.Status = types.StatusPlaying
	s.Winner = ""
	s.WinningLine = nil
	s.Turn = starter
	return nil
}

// Snapshot copies the current state into its wire shape. Slices and the
// winning line are copied so the caller can hand the result to another
// goroutine safely.
func (s *Session) Snapshot() *types.Snapshot {
	snap := &types.Snapshot{
		ID:         s.ID,
		Code:       s.Code,
		Players:    append([]types.Participant{}, s.Players...),
		Spectators: append([]types.Participant{}, s.Spectators...),
		Turn:       string(s.Turn),
		Status:     s.Status,
		Winner:     s.Winner,
		CreatedAt:  s.CreatedAt,
	}
	for i, cell := range s.Board {
		snap.Board[i] = string(cell)
	}
	if s.WinningLine != nil {
		line := *s.WinningLine
		snap.WinningLine = &line
	}
	return snap
}
