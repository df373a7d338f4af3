package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"quiz-battle-service/internal/domain"
	"quiz-battle-service/internal/infra/memory"
)

// recorder is a Conn that keeps every event it is sent.
type recorder struct {
	mu     sync.Mutex
	events []domain.Event
	taken  map[string]int
}

func newRecorder() *recorder {
	return &recorder{taken: make(map[string]int)}
}

func (r *recorder) Send(ev domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// next returns the next not yet consumed event called name, waiting for it to
// arrive.
func (r *recorder) next(t *testing.T, name string) domain.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		r.mu.Lock()
		seen := 0
		for _, ev := range r.events {
			if ev.Name != name {
				continue
			}
			if seen == r.taken[name] {
				r.taken[name]++
				r.mu.Unlock()
				return ev
			}
			seen++
		}
		r.mu.Unlock()
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s event", name)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (r *recorder) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

var (
	alice = domain.Identity{ID: 1, Name: "alice", Rating: 1000}
	bob   = domain.Identity{ID: 2, Name: "bob", Rating: 1000}
	carol = domain.Identity{ID: 3, Name: "carol", Rating: 1000}
)

func testTasks() []domain.Task {
	return []domain.Task{
		{ID: 1, Level: 1, Category: "algebra", Condition: "x + 1 = 2", Answer: "1"},
		{ID: 2, Level: 2, Category: "algebra", Condition: "2x = 4", Answer: "2"},
		{ID: 3, Level: 3, Category: "geometry", Condition: "sides of a triangle", Answer: "3"},
	}
}

func answerOf(taskID int64) string {
	for _, task := range testTasks() {
		if task.ID == taskID {
			return task.Answer
		}
	}
	return ""
}

type harness struct {
	svc       *BattleService
	users     *memory.UserDirectory
	history   *memory.HistoryStore
	analytics *memory.AnalyticsSink
	ctx       context.Context
}

// newHarness builds a service on in-memory collaborators with an instant
// countdown. configure may adjust deps before the service is built.
func newHarness(t *testing.T, opts Options, configure func(ctx context.Context, deps *Deps)) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	users := memory.NewUserDirectory(
		memory.Account{Token: "t1", Identity: alice},
		memory.Account{Token: "t2", Identity: bob},
		memory.Account{Token: "t3", Identity: carol},
	)
	history := memory.NewHistoryStore()
	analytics := memory.NewAnalyticsSink()
	deps := Deps{
		Users:     users,
		Tasks:     memory.NewTaskCatalog(memory.NewStaticTaskLoader(testTasks()), time.Minute),
		History:   history,
		Analytics: analytics,
	}
	if configure != nil {
		configure(ctx, &deps)
	}
	if opts.CountdownSeconds == 0 {
		opts.CountdownSeconds = -1
	}
	svc := NewBattleService(ctx, deps, opts)
	t.Cleanup(func() {
		cancel()
		svc.Wait()
	})
	return &harness{svc: svc, users: users, history: history, analytics: analytics, ctx: ctx}
}

func intPtr(v int) *int { return &v }

// seat creates a room hosted by alice with bob joined.
func (h *harness) seat(t *testing.T, count, timeLimit int) (*Room, *recorder, *recorder) {
	t.Helper()
	hostConn, guestConn := newRecorder(), newRecorder()
	summary, err := h.svc.CreateRoom(h.ctx, alice, hostConn, "duel", MatchSettings{Count: intPtr(count), TimeLimit: intPtr(timeLimit)})
	require.NoError(t, err)
	_, err = h.svc.JoinRoom(h.ctx, bob, guestConn, summary.ID)
	require.NoError(t, err)
	room, ok := h.svc.Registry().Get(summary.ID)
	require.True(t, ok)
	return room, hostConn, guestConn
}

// play seats both players and starts the match, returning once the tasks are
// revealed.
func (h *harness) play(t *testing.T, count, timeLimit int) (*Room, *recorder, *recorder, []domain.PublicTask) {
	t.Helper()
	room, hostConn, guestConn := h.seat(t, count, timeLimit)
	require.NoError(t, h.svc.StartGame(h.ctx, alice, MatchSettings{}))
	ev := hostConn.next(t, domain.EventTasksSelected)
	guestConn.next(t, domain.EventTasksSelected)
	return room, hostConn, guestConn, ev.Data.(tasksPayload).Tasks
}
