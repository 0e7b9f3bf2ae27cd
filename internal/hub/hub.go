package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sia12-web/uniHood-sub008/internal/room"
	"github.com/sia12-web/uniHood-sub008/internal/session"
)

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

// maxCodeAttempts bounds collision retries during creation. With a 36^6
// code space the bound only trips if the registry is effectively full, and
// then the caller gets an explicit error instead of a hung request.
const maxCodeAttempts = 100

var ErrCodeSpaceExhausted = errors.New("could not allocate a free session code")

type HubMsg interface{ isHubMsg() }

// CreateSession allocates a session with a fresh id and a collision-free
// code and replies with its room.
type CreateSession struct {
	Reply chan CreateResult
}

type CreateResult struct {
	Room *room.Room
	Err  error
}

// GetSession looks a room up by session id. The reply may be nil; absence
// is a normal outcome, not an error.
type GetSession struct {
	ID    string
	Reply chan *room.Room
}

// GetByCode looks a room up through the code index. The reply may be nil.
type GetByCode struct {
	Code  string
	Reply chan *room.Room
}

// RemoveSession tears a session down and frees its code for reuse.
type RemoveSession struct{ ID string }

type ShutdownHub struct{}

func (CreateSession) isHubMsg() {}
func (GetSession) isHubMsg()    {}
func (GetByCode) isHubMsg()     {}
func (RemoveSession) isHubMsg() {}
func (ShutdownHub) isHubMsg()   {}

// Options tunes the registry.
type Options struct {
	// SessionTTL removes sessions idle longer than this, regardless of
	// status. Zero disables the sweep.
	SessionTTL    time.Duration
	SweepInterval time.Duration

	Room   room.Options // applied to every room this hub creates
	Logger *zap.Logger
}

// Hub is the session registry: an id-keyed map of rooms plus a code -> id
// side index, both owned by a single goroutine so that creation (with its
// collision retry) and removal update the two maps atomically.
type Hub struct {
	inbox chan HubMsg
	rooms map[string]*room.Room // session id -> room
	codes map[string]string     // active code -> session id
	opts  Options
	log   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Room.Logger == nil {
		opts.Room.Logger = opts.Logger
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Minute
	}

	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		codes:  make(map[string]string),
		opts:   opts,
		log:    opts.Logger,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) loop() {
	var sweep <-chan time.Time
	if h.opts.SessionTTL > 0 {
		ticker := time.NewTicker(h.opts.SweepInterval)
		defer ticker.Stop()
		sweep = ticker.C
	}

	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case <-sweep:
			h.sweepIdle()

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateSession:
				code, err := h.newCode()
				if err != nil {
					msg.Reply <- CreateResult{Err: err}
					break
				}
				st := session.New(uuid.NewString(), code)
				rm := room.NewRoom(h.ctx, st, h.opts.Room)
				h.rooms[st.ID] = rm
				h.codes[code] = st.ID
				h.log.Info("session created",
					zap.String("session_id", st.ID),
					zap.String("code", code))
				msg.Reply <- CreateResult{Room: rm}

			case GetSession:
				msg.Reply <- h.rooms[msg.ID] // may be nil

			case GetByCode:
				var rm *room.Room
				if id, ok := h.codes[msg.Code]; ok {
					rm = h.rooms[id]
				}
				msg.Reply <- rm

			case RemoveSession:
				h.remove(msg.ID, "removed")

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for _, rm := range h.rooms {
		rm.Send(room.Shutdown{})
	}
	clear(h.rooms)
	clear(h.codes)
	h.cancel()
}

// remove deletes from both maps together; the code becomes reusable the
// moment the session is gone.
func (h *Hub) remove(id, reason string) {
	rm, ok := h.rooms[id]
	if !ok {
		return
	}
	rm.Send(room.Shutdown{})
	delete(h.rooms, id)
	delete(h.codes, rm.Code())
	h.log.Info("session removed",
		zap.String("session_id", id),
		zap.String("reason", reason))
}

func (h *Hub) sweepIdle() {
	for id, rm := range h.rooms {
		if rm.IdleFor() > h.opts.SessionTTL {
			h.remove(id, "idle")
		}
	}
}

// newCode draws codes until one misses the active-code index, up to
// maxCodeAttempts.
func (h *Hub) newCode() (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := generateCode()
		if err != nil {
			return "", err
		}
		if _, taken := h.codes[code]; !taken {
			return code, nil
		}
		h.log.Warn("collision on code, regenerating", zap.String("code", code))
	}
	return "", ErrCodeSpaceExhausted
}

func generateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}
