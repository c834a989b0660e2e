package core

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vovakirdan/wirechat-relay/internal/store"
	"github.com/vovakirdan/wirechat-relay/internal/store/memory"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// expectNoEvent fails if an event of kind shows up on ch within wait.
func expectNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, wait time.Duration) {
	t.Helper()

	deadline := time.Now().Add(wait)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func mustError(t *testing.T, ch <-chan *Event, code string) {
	t.Helper()

	ev := mustEvent(t, ch, EventError)
	if ev.Error == nil || ev.Error.Code != code {
		t.Fatalf("expected %s error, got %+v", code, ev)
	}
}

func assertMembers(t *testing.T, ev *Event, want ...string) {
	t.Helper()

	if want == nil {
		want = []string{}
	}
	if !reflect.DeepEqual(ev.Members, want) {
		t.Fatalf("members = %v, want %v", ev.Members, want)
	}
}

func startHub(t *testing.T, messages MessageLog) *Hub {
	t.Helper()
	return startHubWithOptions(t, messages, HubOptions{StoreTimeout: time.Second})
}

func startHubWithOptions(t *testing.T, messages MessageLog, opts HubOptions) *Hub {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub(messages, nil, nil, opts)
	go hub.Run(ctx)
	return hub
}

// waitMembers polls the registry until room lists exactly want.
func waitMembers(t *testing.T, hub *Hub, room string, want ...string) {
	t.Helper()

	if want == nil {
		want = []string{}
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := hub.Members().ListMembers(room)
		if reflect.DeepEqual(got, want) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("registry[%s] = %v, want %v", room, got, want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// waitSignal fails the test if ch stays silent.
func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("%s never happened", what)
	}
}

// connect registers a client and joins it to room, consuming its own join events.
func connect(t *testing.T, hub *Hub, id, room, username string) *Client {
	t.Helper()

	c := NewClient(id, 0)
	hub.RegisterClient(c)
	c.Commands <- &Command{Kind: CommandJoinRoom, Room: room, User: username}
	mustEvent(t, c.Events, EventMemberList)
	mustEvent(t, c.Events, EventHistory)
	return c
}

var errBackend = errors.New("backend unavailable")

// fakeLog wraps the memory store with failure switches and gates.
// Fields are set before the hub starts and never changed afterwards.
type fakeLog struct {
	*memory.Store
	insertErr  error
	historyErr error
	renameErr  error
	renameGate chan struct{}
	// renameEntered receives once RenameAuthor starts, if non-nil.
	renameEntered chan struct{}

	insertGate    chan struct{}
	insertEntered chan struct{}
	// historyGate holds ListMessagesByRoom for gatedRoom only.
	historyGate chan struct{}
	gatedRoom   string

	// inFlight counts InsertMessage calls that have not returned.
	inFlight atomic.Int32
}

// hold blocks on gate, if set, until it is closed or ctx ends.
func hold(ctx context.Context, entered, gate chan struct{}) error {
	if entered != nil {
		entered <- struct{}{}
	}
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func newFakeLog() *fakeLog {
	return &fakeLog{Store: memory.New()}
}

func (f *fakeLog) InsertMessage(ctx context.Context, room, username, body string) (*store.Message, error) {
	f.inFlight.Add(1)
	defer f.inFlight.Add(-1)

	if err := hold(ctx, f.insertEntered, f.insertGate); err != nil {
		return nil, err
	}
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	return f.Store.InsertMessage(ctx, room, username, body)
}

func (f *fakeLog) ListMessagesByRoom(ctx context.Context, room string) ([]*store.Message, error) {
	if room == f.gatedRoom {
		if err := hold(ctx, nil, f.historyGate); err != nil {
			return nil, err
		}
	}
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return f.Store.ListMessagesByRoom(ctx, room)
}

func (f *fakeLog) RenameAuthor(ctx context.Context, room, oldUsername, newUsername string) (int64, error) {
	if err := hold(ctx, f.renameEntered, f.renameGate); err != nil {
		return 0, err
	}
	if f.renameErr != nil {
		return 0, f.renameErr
	}
	return f.Store.RenameAuthor(ctx, room, oldUsername, newUsername)
}
