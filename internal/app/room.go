package app

import (
	"sync"
	"time"

	"quiz-battle-service/internal/domain"
)

// PlayerStats is one participant's progress within a room.
type PlayerStats struct {
	UserID int64
	Name   string
	Rating int

	Points  int
	Solved  []int64
	Answers map[int64]string

	// SolveTimes holds seconds from reveal to each correct answer, in solve
	// order. ReportedTimes is the per-task list the client sent at the end.
	SolveTimes    []int
	ReportedTimes []int
	TimesReported bool
	Finished      bool

	conn    Conn
	pending map[int64]bool
}

func newPlayerStats(user domain.Identity, conn Conn) *PlayerStats {
	return &PlayerStats{
		UserID:  user.ID,
		Name:    user.Name,
		Rating:  user.Rating,
		Answers: make(map[int64]string),
		conn:    conn,
		pending: make(map[int64]bool),
	}
}

func (p *PlayerStats) solved(taskID int64) bool {
	for _, id := range p.Solved {
		if id == taskID {
			return true
		}
	}
	return false
}

func (p *PlayerStats) connected() bool {
	return p.conn != nil
}

// Room is a single head-to-head match. Everything below mu is guarded by it.
type Room struct {
	ID        int64
	Name      string
	HostID    int64
	CreatedAt time.Time

	mu         sync.Mutex
	now        func() time.Time
	unit       time.Duration
	status     domain.RoomStatus
	filter     domain.TaskFilter
	timeLimit  int
	tasks      []domain.Task
	host       *PlayerStats
	guest      *PlayerStats
	starting   bool
	revealed   bool
	revealedAt time.Time
	timer      *time.Timer
	timerGen   uint64
	finalizing bool
	// job is the scored result, fixed the first time the match is ready so a
	// retried persist writes the same ratings.
	job *finalizeJob
	// graceExpired is set once the finishing phase outlived its deadline;
	// players who never reported are scored on server-recorded times.
	graceExpired bool
	publishedAt  time.Time
}

func newRoom(id int64, name string, host domain.Identity, conn Conn, filter domain.TaskFilter, timeLimit int, now func() time.Time, unit time.Duration) *Room {
	return &Room{
		ID:        id,
		Name:      name,
		HostID:    host.ID,
		CreatedAt: now(),
		now:       now,
		unit:      unit,
		status:    domain.StatusWaiting,
		filter:    filter,
		timeLimit: timeLimit,
		host:      newPlayerStats(host, conn),
	}
}

// Status returns the current protocol state.
func (r *Room) Status() domain.RoomStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Summary returns the public listing view.
func (r *Room) Summary() domain.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaryLocked()
}

func (r *Room) summaryLocked() domain.RoomSummary {
	summary := domain.RoomSummary{
		ID:     r.ID,
		Name:   r.Name,
		Host:   r.HostID,
		Status: r.status,
	}
	if r.guest != nil {
		other := r.guest.UserID
		summary.Other = &other
	}
	return summary
}

func (r *Room) playerLocked(userID int64) *PlayerStats {
	if r.host != nil && r.host.UserID == userID {
		return r.host
	}
	if r.guest != nil && r.guest.UserID == userID {
		return r.guest
	}
	return nil
}

func (r *Room) opponentLocked(userID int64) *PlayerStats {
	if r.host != nil && r.host.UserID == userID {
		return r.guest
	}
	return r.host
}

func (r *Room) playersLocked() []*PlayerStats {
	players := make([]*PlayerStats, 0, 2)
	if r.host != nil {
		players = append(players, r.host)
	}
	if r.guest != nil {
		players = append(players, r.guest)
	}
	return players
}

func (r *Room) taskLocked(taskID int64) (domain.Task, bool) {
	for _, t := range r.tasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return domain.Task{}, false
}

// broadcastLocked sends ev to every attached participant.
func (r *Room) broadcastLocked(ev domain.Event) {
	for _, p := range r.playersLocked() {
		sendTo(p, ev)
	}
}

func sendTo(p *PlayerStats, ev domain.Event) {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Send(ev)
}

func (r *Room) totalPointsLocked() int {
	total := 0
	for _, t := range r.tasks {
		total += t.Points()
	}
	return total
}

func (r *Room) elapsedLocked() time.Duration {
	if !r.revealed {
		return 0
	}
	return r.now().Sub(r.revealedAt)
}

func (r *Room) remainingLocked() int {
	if r.status != domain.StatusStarted || !r.revealed {
		return 0
	}
	left := time.Duration(r.timeLimit)*r.unit - r.elapsedLocked()
	if left < 0 {
		return 0
	}
	return int(left.Round(r.unit) / r.unit)
}

// scheduleTimerLocked replaces the outstanding timer. fire receives the
// generation it was armed with so stale callbacks can be recognized.
func (r *Room) scheduleTimerLocked(d time.Duration, fire func(gen uint64)) {
	r.cancelTimerLocked()
	gen := r.timerGen
	r.timer = time.AfterFunc(d, func() { fire(gen) })
}

func (r *Room) cancelTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.timerGen++
}

func (r *Room) stateLocked(viewer int64) domain.GameState {
	state := domain.GameState{
		RoomID:           r.ID,
		Name:             r.Name,
		Status:           r.status,
		TimeLimit:        r.timeLimit,
		RemainingSeconds: r.remainingLocked(),
		Players:          make([]domain.PlayerState, 0, 2),
	}
	if r.revealed {
		state.Tasks = make([]domain.PublicTask, 0, len(r.tasks))
		for _, t := range r.tasks {
			state.Tasks = append(state.Tasks, t.Public())
		}
	}
	for _, p := range r.playersLocked() {
		ps := domain.PlayerState{
			UserID:    p.UserID,
			Name:      p.Name,
			Points:    p.Points,
			Solved:    len(p.Solved),
			Finished:  p.Finished,
			Connected: p.connected(),
		}
		if p.UserID == viewer && len(p.Answers) > 0 {
			ps.Answers = make(map[int64]string, len(p.Answers))
			for id, a := range p.Answers {
				ps.Answers[id] = a
			}
		}
		state.Players = append(state.Players, ps)
	}
	return state
}
