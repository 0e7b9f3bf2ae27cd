package room

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sia12-web/uniHood-sub008/internal/engine"
	"github.com/sia12-web/uniHood-sub008/internal/session"
	"github.com/sia12-web/uniHood-sub008/pkg/types"
)

type Msg interface{ isRoomMsg() }

// Subscribe registers a connection with the session's broadcast group and
// immediately sends it the current snapshot on its outbox.
type Subscribe struct {
	ConnID string
	Outbox chan Event // where this connection wants to receive events
}

func (Subscribe) isRoomMsg() {}

// Unsubscribe removes a connection from the broadcast group. Session state
// is untouched: a departed player keeps their seat and may reconnect.
type Unsubscribe struct{ ConnID string }

func (Unsubscribe) isRoomMsg() {}

// Seat admits a participant (player X, player O, or spectator, in arrival
// order) and replies with the assigned role plus the resulting snapshot.
type Seat struct {
	ParticipantID string
	Reply         chan SeatResult
}

func (Seat) isRoomMsg() {}

type SeatResult struct {
	Participant types.Participant
	Game        *types.Snapshot
}

// MakeMove asks the room to apply one move. Rejections are delivered only
// to ConnID's outbox; acceptances are broadcast to the whole group.
type MakeMove struct {
	ConnID   string
	PlayerID string
	Index    int
}

func (MakeMove) isRoomMsg() {}

// RequestRematch resets a finished game for the same participants.
type RequestRematch struct {
	ConnID   string
	PlayerID string
}

func (RequestRematch) isRoomMsg() {}

// GetState reflects internal state without data races (tests and the
// lifecycle snapshot endpoint).
type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type View struct {
	NumSubscribers int
	Game           *types.Snapshot
}

// Event is what subscribers receive on their outbox.
type Event interface{ isEvent() }

// Update carries the full snapshot after an accepted mutation, or on join.
type Update struct{ Game *types.Snapshot }

func (Update) isEvent() {}

// Failure is sent only to the connection whose request was rejected.
type Failure struct{ Err error }

func (Failure) isEvent() {}

// MatchResult is handed to the Recorder when a game reaches finished.
type MatchResult struct {
	SessionID   string
	Code        string
	Winner      string
	WinningLine *[3]int
	FinishedAt  time.Time
}

// Recorder archives finished matches. Implementations must not block the
// caller; the room invokes Record synchronously inside its loop.
type Recorder interface {
	Record(res MatchResult)
}

// Options tunes a room. Zero values fall back to defaults.
type Options struct {
	RematchStarter engine.Mark // role that opens a rematch game, default X
	Recorder       Recorder    // optional finished-match archive
	Logger         *zap.Logger
}

// Room is the single writer for one session: every transition against the
// session state flows through its inbox and is applied by one goroutine,
// so subscribers always observe the same strictly-ordered snapshot
// sequence.
type Room struct {
	id   string
	code string

	inbox      chan Msg
	state      *session.Session
	subs       map[string]chan Event
	starter    engine.Mark
	recorder   Recorder
	log        *zap.Logger
	lastActive atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

func NewRoom(parent context.Context, state *session.Session, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)
	if opts.RematchStarter == engine.MarkEmpty {
		opts.RematchStarter = engine.MarkX
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := &Room{
		id:       state.ID,
		code:     state.Code,
		inbox:    make(chan Msg, 64), // small buffer
		state:    state,
		subs:     make(map[string]chan Event),
		starter:  opts.RematchStarter,
		recorder: opts.Recorder,
		log:      opts.Logger.With(zap.String("session_id", state.ID), zap.String("code", state.Code)),
		ctx:      ctx,
		cancel:   cancel,
	}
	r.touch()

	go r.loop()
	return r
}

func (r *Room) ID() string   { return r.id }
func (r *Room) Code() string { return r.code }

// Inbox exposes the message channel to the transport layer and tests.
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Done is closed once the room has shut down. Callers holding a stale
// *Room pointer (the registry may have removed the session between their
// lookup and their send) select on it so they never block against a loop
// that is no longer running.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// Send delivers msg to the room loop, reporting false if the room has
// shut down. A true result only means the message was accepted into the
// inbox; rendezvous replies must still select on Done.
func (r *Room) Send(msg Msg) bool {
	// Checked first: the inbox buffer stays writable after the loop
	// exits, so the combined select below could otherwise accept a
	// message no one will read.
	select {
	case <-r.ctx.Done():
		return false
	default:
	}
	select {
	case r.inbox <- msg:
		return true
	case <-r.ctx.Done():
		return false
	}
}

// SeatParticipant is the request/response form of Seat. ok is false when
// the room shut down before replying.
func (r *Room) SeatParticipant(participantID string) (SeatResult, bool) {
	reply := make(chan SeatResult, 1)
	if !r.Send(Seat{ParticipantID: participantID, Reply: reply}) {
		return SeatResult{}, false
	}
	select {
	case res := <-reply:
		return res, true
	case <-r.ctx.Done():
		// The loop may have replied just before shutting down.
		select {
		case res := <-reply:
			return res, true
		default:
			return SeatResult{}, false
		}
	}
}

// State is the request/response form of GetState. ok is false when the
// room shut down before replying.
func (r *Room) State() (View, bool) {
	reply := make(chan View, 1)
	if !r.Send(GetState{Reply: reply}) {
		return View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-r.ctx.Done():
		select {
		case v := <-reply:
			return v, true
		default:
			return View{}, false
		}
	}
}

// IdleFor reports how long ago the room last processed any message. Safe
// to call from outside the loop; the registry's sweep uses it.
func (r *Room) IdleFor() time.Duration {
	return time.Since(time.Unix(0, r.lastActive.Load()))
}

func (r *Room) touch() {
	r.lastActive.Store(time.Now().UnixNano())
}

func (r *Room) loop() {
	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case m := <-r.inbox:
			r.touch()
			switch msg := m.(type) {
			case Subscribe:
				// Register + send current snapshot immediately, so a
				// connection that joins after state has advanced is not
				// stuck waiting for the next mutation.
				r.subs[msg.ConnID] = msg.Outbox
				r.send(msg.ConnID, Update{Game: r.state.Snapshot()})

			case Unsubscribe:
				// Departure is recorded for logging only: no forfeit, no
				// membership change, the seat stays reserved.
				delete(r.subs, msg.ConnID)
				r.log.Info("subscriber left", zap.String("conn_id", msg.ConnID))

			case Seat:
				p := r.state.Seat(msg.ParticipantID)
				msg.Reply <- SeatResult{Participant: p, Game: r.state.Snapshot()}
				r.log.Info("participant seated",
					zap.String("participant_id", p.ID),
					zap.String("role", string(p.Role)))
				r.broadcast(Update{Game: r.state.Snapshot()})

			case MakeMove:
				if err := r.state.ApplyMove(msg.PlayerID, msg.Index); err != nil {
					r.send(msg.ConnID, Failure{Err: err})
					break
				}
				if r.state.Status == types.StatusFinished {
					r.log.Info("game finished", zap.String("winner", r.state.Winner))
					if r.recorder != nil {
						r.recorder.Record(MatchResult{
							SessionID:   r.id,
							Code:        r.code,
							Winner:      r.state.Winner,
							WinningLine: r.state.WinningLine,
							FinishedAt:  time.Now().UTC(),
						})
					}
				}
				r.broadcast(Update{Game: r.state.Snapshot()})

			case RequestRematch:
				if err := r.state.Rematch(msg.PlayerID, r.starter); err != nil {
					r.send(msg.ConnID, Failure{Err: err})
					break
				}
				r.log.Info("rematch started", zap.String("starter", string(r.starter)))
				r.broadcast(Update{Game: r.state.Snapshot()})

			case GetState:
				msg.Reply <- View{
					NumSubscribers: len(r.subs),
					Game:           r.state.Snapshot(),
				}

			case Shutdown:
				r.shutdown()
				return
			}
		}
	}
}

func (r *Room) shutdown() {
	for id, ch := range r.subs {
		close(ch) // tell subscriber no more events
		delete(r.subs, id)
	}
	r.cancel()
}

// send delivers one event to a single subscriber, dropping the subscriber
// if its outbox is full.
func (r *Room) send(connID string, ev Event) {
	ch, ok := r.subs[connID]
	if !ok {
		return
	}
	select {
	case ch <- ev:
	default:
		close(ch)
		delete(r.subs, connID)
		r.log.Warn("dropped slow subscriber", zap.String("conn_id", connID))
	}
}

// broadcast fans the event out to every subscriber. Delivery is
// fire-and-forget: a slow or dead connection is dropped and recovers via
// the stateless snapshot endpoint.
func (r *Room) broadcast(ev Event) {
	for id, ch := range r.subs {
		select {
		case ch <- ev:
			// ok
		default:
			close(ch)
			delete(r.subs, id)
			r.log.Warn("dropped slow subscriber", zap.String("conn_id", id))
		}
	}
}
