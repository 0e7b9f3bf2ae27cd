package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sia12-web/uniHood-sub008/internal/hub"
	"github.com/sia12-web/uniHood-sub008/internal/room"
	"github.com/sia12-web/uniHood-sub008/internal/session"
	"github.com/sia12-web/uniHood-sub008/pkg/types"
)

type createResponse struct {
	SessionID string     `json:"sessionId"`
	Code      string     `json:"code"`
	PlayerID  string     `json:"playerId"`
	Role      types.Role `json:"role"`
}

type joinRequest struct {
	Code string `json:"code"`
}

type joinResponse struct {
	SessionID    string          `json:"sessionId"`
	PlayerID     string          `json:"playerId"`
	Role         types.Role      `json:"role"`
	InitialState *types.Snapshot `json:"initialState"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateGame allocates a session and seats the caller as the first player,
// who always plays X.
func CreateGame(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.CreateResult, 1)
		h.Inbox() <- hub.CreateSession{Reply: reply}
		res := <-reply
		if res.Err != nil {
			log.Error("create session failed", zap.Error(res.Err))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create session"})
			return
		}

		seat, ok := res.Room.SeatParticipant(uuid.NewString())
		if !ok {
			// Swept between creation and seating; vanishingly rare.
			log.Error("created session shut down before seating")
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to create session"})
			return
		}
		writeJSON(w, http.StatusCreated, createResponse{
			SessionID: res.Room.ID(),
			Code:      res.Room.Code(),
			PlayerID:  seat.Participant.ID,
			Role:      seat.Participant.Role,
		})
	}
}

// JoinGame seats the caller in the session behind a code: the second
// arrival plays O, everyone after that spectates. The full snapshot comes
// back so the client can render before the first broadcast arrives.
func JoinGame(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req joinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing code"})
			return
		}

		rm := getByCode(h, req.Code)
		if rm == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: session.ErrSessionNotFound.Error()})
			return
		}

		// The registry may remove the room between our lookup and the
		// seat rendezvous; a dead room reads as not found.
		seat, ok := rm.SeatParticipant(uuid.NewString())
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: session.ErrSessionNotFound.Error()})
			return
		}
		writeJSON(w, http.StatusOK, joinResponse{
			SessionID:    rm.ID(),
			PlayerID:     seat.Participant.ID,
			Role:         seat.Participant.Role,
			InitialState: seat.Game,
		})
	}
}

// GetGame returns the full current snapshot. Clients use it as the
// stateless fallback after a channel drop, since the channel replays
// nothing.
func GetGame(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm := getByCode(h, chi.URLParam(r, "code"))
		if rm == nil {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: session.ErrSessionNotFound.Error()})
			return
		}

		view, ok := rm.State()
		if !ok {
			writeJSON(w, http.StatusNotFound, errorResponse{Error: session.ErrSessionNotFound.Error()})
			return
		}
		writeJSON(w, http.StatusOK, view.Game)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func getByCode(h *hub.Hub, code string) *room.Room {
	reply := make(chan *room.Room, 1)
	h.Inbox() <- hub.GetByCode{Code: code, Reply: reply}
	return <-reply
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
