package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sia12-web/uniHood-sub008/internal/engine"
	"github.com/sia12-web/uniHood-sub008/internal/session"
	"github.com/sia12-web/uniHood-sub008/pkg/types"
)

// helper: receive one event with a timeout so tests never hang
func recvEvent(t *testing.T, ch <-chan Event, within time.Duration) Event {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			t.Fatalf("subscriber outbox closed unexpectedly")
		}
		return ev
	case <-time.After(within):
		t.Fatalf("timed out waiting for event")
		return nil // unreachable
	}
}

func recvUpdate(t *testing.T, ch <-chan Event, within time.Duration) *types.Snapshot {
	t.Helper()
	ev := recvEvent(t, ch, within)
	up, ok := ev.(Update)
	if !ok {
		t.Fatalf("want Update, got %T: %+v", ev, ev)
	}
	return up.Game
}

func recvFailure(t *testing.T, ch <-chan Event, within time.Duration) error {
	t.Helper()
	ev := recvEvent(t, ch, within)
	f, ok := ev.(Failure)
	if !ok {
		t.Fatalf("want Failure, got %T: %+v", ev, ev)
	}
	return f.Err
}

func recvNoEvent(t *testing.T, ch <-chan Event, within time.Duration) {
	t.Helper()
	select {
	case ev, ok := <-ch:
		if !ok {
			return // closed is fine; no further events possible
		}
		t.Fatalf("expected no event within %v, but got %T: %+v", within, ev, ev)
	case <-time.After(within):
		// good: nothing arrived
	}
}

func seat(t *testing.T, r *Room, id string) types.Participant {
	t.Helper()
	reply := make(chan SeatResult, 1)
	r.Inbox() <- Seat{ParticipantID: id, Reply: reply}
	select {
	case res := <-reply:
		return res.Participant
	case <-time.After(time.Second):
		t.Fatalf("timed out seating %s", id)
		return types.Participant{}
	}
}

func view(t *testing.T, r *Room) View {
	t.Helper()
	reply := make(chan View, 1)
	r.Inbox() <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for view")
		return View{}
	}
}

func newTestRoom(t *testing.T, opts Options) *Room {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewRoom(ctx, session.New("s1", "ABC123"), opts)
}

func TestRoom_SubscribeSendsCurrentSnapshotImmediately(t *testing.T) {
	r := newTestRoom(t, Options{})
	seat(t, r, "p1")

	out := make(chan Event, 8)
	r.Inbox() <- Subscribe{ConnID: "c1", Outbox: out}

	snap := recvUpdate(t, out, time.Second)
	if snap.Status != types.StatusWaiting {
		t.Fatalf("want waiting snapshot on join, got %v", snap.Status)
	}
	if len(snap.Players) != 1 || snap.Players[0].Role != types.RoleX {
		t.Fatalf("want one seated X player, got %+v", snap.Players)
	}
}

func TestRoom_ErrorGoesOnlyToOffender(t *testing.T) {
	r := newTestRoom(t, Options{})
	p1 := seat(t, r, "p1")
	seat(t, r, "p2")
	_ = p1

	out1 := make(chan Event, 8)
	out2 := make(chan Event, 8)
	r.Inbox() <- Subscribe{ConnID: "c1", Outbox: out1}
	r.Inbox() <- Subscribe{ConnID: "c2", Outbox: out2}
	_ = recvUpdate(t, out1, time.Second)
	_ = recvUpdate(t, out2, time.Second)

	// O moves while it is X's turn: only c2 hears about it.
	r.Inbox() <- MakeMove{ConnID: "c2", PlayerID: "p2", Index: 0}

	err := recvFailure(t, out2, time.Second)
	if !errors.Is(err, session.ErrNotYourTurn) {
		t.Fatalf("want ErrNotYourTurn, got %v", err)
	}
	recvNoEvent(t, out1, 100*time.Millisecond)
}

func TestRoom_DropSlowSubscriber(t *testing.T) {
	r := newTestRoom(t, Options{})
	seat(t, r, "p1")

	out := make(chan Event, 1)
	r.Inbox() <- Subscribe{ConnID: "c1", Outbox: out}
	// Do not drain: the join snapshot fills the buffer, so the next
	// broadcast overflows and drops the subscriber.
	seat(t, r, "p2")

	v := view(t, r)
	if v.NumSubscribers != 0 {
		t.Fatalf("expected slow subscriber to be dropped; NumSubscribers=%d", v.NumSubscribers)
	}
}

func TestRoom_DisconnectLeavesStateUntouched(t *testing.T) {
	r := newTestRoom(t, Options{})
	seat(t, r, "p1")
	seat(t, r, "p2")

	out := make(chan Event, 8)
	r.Inbox() <- Subscribe{ConnID: "c1", Outbox: out}
	_ = recvUpdate(t, out, time.Second)

	r.Inbox() <- Unsubscribe{ConnID: "c1"}

	v := view(t, r)
	if v.NumSubscribers != 0 {
		t.Fatalf("want 0 subscribers, got %d", v.NumSubscribers)
	}
	if len(v.Game.Players) != 2 || v.Game.Status != types.StatusPlaying {
		t.Fatalf("disconnect mutated session state: %+v", v.Game)
	}
}

type captureRecorder struct {
	results chan MatchResult
}

func (c *captureRecorder) Record(res MatchResult) { c.results <- res }

// Full walkthrough: create, join, play to a win, get rejected after the
// end, rematch.
func TestRoom_FullGameScenario(t *testing.T) {
	rec := &captureRecorder{results: make(chan MatchResult, 1)}
	r := newTestRoom(t, Options{Recorder: rec})

	p1 := seat(t, r, "p1")
	if p1.Role != types.RoleX {
		t.Fatalf("creator: want X, got %v", p1.Role)
	}

	out := make(chan Event, 32)
	r.Inbox() <- Subscribe{ConnID: "c1", Outbox: out}
	first := recvUpdate(t, out, time.Second)
	if first.Status != types.StatusWaiting {
		t.Fatalf("want waiting, got %v", first.Status)
	}

	p2 := seat(t, r, "p2")
	if p2.Role != types.RoleO {
		t.Fatalf("second joiner: want O, got %v", p2.Role)
	}
	snap := recvUpdate(t, out, time.Second)
	if snap.Status != types.StatusPlaying {
		t.Fatalf("two players: want playing, got %v", snap.Status)
	}

	move := func(connID, playerID string, index int) {
		r.Inbox() <- MakeMove{ConnID: connID, PlayerID: playerID, Index: index}
	}

	move("c1", "p1", 0)
	snap = recvUpdate(t, out, time.Second)
	if snap.Board[0] != "X" || snap.Turn != "O" {
		t.Fatalf("after p1 move: board[0]=%q turn=%q", snap.Board[0], snap.Turn)
	}

	// p2 hits the occupied cell: rejection, no broadcast, board unchanged.
	move("c1", "p2", 0)
	if err := recvFailure(t, out, time.Second); !errors.Is(err, session.ErrInvalidMove) {
		t.Fatalf("want ErrInvalidMove, got %v", err)
	}

	move("c1", "p2", 4)
	snap = recvUpdate(t, out, time.Second)
	if snap.Board[4] != "O" || snap.Turn != "X" {
		t.Fatalf("after p2 move: board[4]=%q turn=%q", snap.Board[4], snap.Turn)
	}

	move("c1", "p1", 1)
	_ = recvUpdate(t, out, time.Second)
	move("c1", "p2", 3)
	_ = recvUpdate(t, out, time.Second)

	// X completes the top row.
	move("c1", "p1", 2)
	snap = recvUpdate(t, out, time.Second)
	if snap.Status != types.StatusFinished || snap.Winner != "X" {
		t.Fatalf("want finished with winner X, got %v/%q", snap.Status, snap.Winner)
	}
	if snap.WinningLine == nil || *snap.WinningLine != [3]int{0, 1, 2} {
		t.Fatalf("want winning line [0 1 2], got %v", snap.WinningLine)
	}

	select {
	case res := <-rec.results:
		if res.Winner != "X" || res.SessionID != "s1" {
			t.Fatalf("recorded wrong result: %+v", res)
		}
	case <-time.After(time.Second):
		t.Fatalf("finished match was not recorded")
	}

	// Moves after the end are rejected.
	move("c1", "p1", 5)
	if err := recvFailure(t, out, time.Second); !errors.Is(err, session.ErrGameNotActive) {
		t.Fatalf("want ErrGameNotActive, got %v", err)
	}

	r.Inbox() <- RequestRematch{ConnID: "c1", PlayerID: "p1"}
	snap = recvUpdate(t, out, time.Second)
	if snap.Status != types.StatusPlaying || snap.Turn != "X" {
		t.Fatalf("after rematch: want playing with X to start, got %v/%q", snap.Status, snap.Turn)
	}
	for i, cell := range snap.Board {
		if cell != "" {
			t.Fatalf("after rematch: board[%d]=%q, want empty", i, cell)
		}
	}
	if snap.Winner != "" || snap.WinningLine != nil {
		t.Fatalf("after rematch: winner not cleared: %q %v", snap.Winner, snap.WinningLine)
	}
}

func TestRoom_RematchRejectedMidGame(t *testing.T) {
	r := newTestRoom(t, Options{})
	seat(t, r, "p1")
	seat(t, r, "p2")

	out := make(chan Event, 8)
	r.Inbox() <- Subscribe{ConnID: "c1", Outbox: out}
	_ = recvUpdate(t, out, time.Second)

	r.Inbox() <- RequestRematch{ConnID: "c1", PlayerID: "p1"}
	if err := recvFailure(t, out, time.Second); !errors.Is(err, session.ErrRematchNotAllowed) {
		t.Fatalf("want ErrRematchNotAllowed, got %v", err)
	}
}

func TestRoom_ConfigurableRematchStarter(t *testing.T) {
	r := newTestRoom(t, Options{RematchStarter: engine.MarkO})
	seat(t, r, "p1")
	seat(t, r, "p2")

	out := make(chan Event, 32)
	r.Inbox() <- Subscribe{ConnID: "c1", Outbox: out}
	_ = recvUpdate(t, out, time.Second)

	for _, mv := range []struct {
		player string
		index  int
	}{{"p1", 0}, {"p2", 4}, {"p1", 1}, {"p2", 3}, {"p1", 2}} {
		r.Inbox() <- MakeMove{ConnID: "c1", PlayerID: mv.player, Index: mv.index}
		_ = recvUpdate(t, out, time.Second)
	}

	r.Inbox() <- RequestRematch{ConnID: "c1", PlayerID: "p2"}
	snap := recvUpdate(t, out, time.Second)
	if snap.Turn != "O" {
		t.Fatalf("want configured starter O, got %q", snap.Turn)
	}
}

func TestRoom_ShutdownClosesOutboxes(t *testing.T) {
	r := newTestRoom(t, Options{})
	out := make(chan Event, 8)
	r.Inbox() <- Subscribe{ConnID: "c1", Outbox: out}
	_ = recvUpdate(t, out, time.Second)

	r.Inbox() <- Shutdown{}

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-out:
			if !ok {
				return // closed, as expected
			}
		case <-deadline:
			t.Fatalf("outbox not closed after shutdown")
		}
	}
}

func TestRoom_SendAfterShutdownReportsFalse(t *testing.T) {
	r := newTestRoom(t, Options{})
	r.Inbox() <- Shutdown{}
	<-r.Done()

	if ok := r.Send(Unsubscribe{ConnID: "c1"}); ok {
		t.Fatalf("Send accepted a message after shutdown")
	}
}

func TestRoom_SeatAfterShutdownReturnsPromptly(t *testing.T) {
	r := newTestRoom(t, Options{})
	r.Inbox() <- Shutdown{}
	<-r.Done()

	done := make(chan bool, 1)
	go func() {
		_, ok := r.SeatParticipant("p1")
		done <- ok
	}()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("seat against a dead room reported success")
		}
	case <-time.After(time.Second):
		t.Fatalf("seat against a dead room blocked")
	}
}

func TestRoom_StateAfterShutdownReturnsPromptly(t *testing.T) {
	r := newTestRoom(t, Options{})
	seat(t, r, "p1")
	r.Inbox() <- Shutdown{}
	<-r.Done()

	done := make(chan bool, 1)
	go func() {
		_, ok := r.State()
		done <- ok
	}()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("state query against a dead room reported success")
		}
	case <-time.After(time.Second):
		t.Fatalf("state query against a dead room blocked")
	}
}
