package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"quiz-battle-service/internal/domain"
)

const (
	reasonCompleted = "completed"
	reasonTimeUp    = "time_up"

	persistTimeout = 10 * time.Second
)

// Options tunes match timing and rating. Zero values fall back to defaults.
// TimeUnit is the length of one "second" of time limits and solve times.
// FinishGrace bounds how long a finishing match waits for solve time lists.
// PresenceRefresh is how often an active room is republished to the
// observer.
type Options struct {
	CountdownSeconds int
	Tick             time.Duration
	TimeUnit         time.Duration
	DefaultTimeLimit int
	DefaultTaskCount int
	KFactor          float64
	FinishGrace      time.Duration
	PresenceRefresh  time.Duration
}

func (o Options) withDefaults() Options {
	if o.CountdownSeconds < 0 {
		o.CountdownSeconds = 0
	} else if o.CountdownSeconds == 0 {
		o.CountdownSeconds = 5
	}
	if o.Tick <= 0 {
		o.Tick = time.Second
	}
	if o.TimeUnit <= 0 {
		o.TimeUnit = time.Second
	}
	if o.DefaultTimeLimit <= 0 {
		o.DefaultTimeLimit = 600
	}
	if o.DefaultTaskCount <= 0 {
		o.DefaultTaskCount = 5
	}
	if o.KFactor <= 0 {
		o.KFactor = DefaultKFactor
	}
	if o.FinishGrace <= 0 {
		o.FinishGrace = 30 * time.Second
	}
	if o.PresenceRefresh <= 0 {
		o.PresenceRefresh = time.Minute
	}
	return o
}

// Deps are the collaborators of BattleService. Analytics, Observer and
// Grading may be nil.
type Deps struct {
	Users     UserDirectory
	Tasks     TaskCatalog
	History   HistoryRepository
	Analytics AnalyticsSink
	Observer  RoomObserver
	Grading   *GradingAdapter
	Logger    *zap.Logger
}

// MatchSettings overrides task selection and timing. Nil fields keep the
// current value.
type MatchSettings struct {
	LevelStart    *int
	LevelEnd      *int
	Category      *string
	Subcategories []string
	Count         *int
	TimeLimit     *int
}

func (m MatchSettings) apply(filter *domain.TaskFilter, timeLimit *int) error {
	next := *filter
	limit := *timeLimit
	if m.LevelStart != nil {
		next.LevelStart = *m.LevelStart
	}
	if m.LevelEnd != nil {
		next.LevelEnd = *m.LevelEnd
	}
	if m.Category != nil {
		next.Category = *m.Category
	}
	if m.Subcategories != nil {
		next.Subcategories = append([]string(nil), m.Subcategories...)
	}
	if m.Count != nil {
		next.Count = *m.Count
	}
	if m.TimeLimit != nil {
		limit = *m.TimeLimit
	}
	switch {
	case next.Count <= 0:
		return fmt.Errorf("%w: count must be positive", domain.ErrMissingParam)
	case limit <= 0:
		return fmt.Errorf("%w: time_limit must be positive", domain.ErrMissingParam)
	case next.LevelEnd > 0 && next.LevelEnd < next.LevelStart:
		return fmt.Errorf("%w: level_end below level_start", domain.ErrMissingParam)
	}
	*filter = next
	*timeLimit = limit
	return nil
}

// BattleService runs head-to-head matches. One instance owns one Registry and
// is shared by every connection.
type BattleService struct {
	registry  *Registry
	users     UserDirectory
	tasks     TaskCatalog
	history   HistoryRepository
	analytics AnalyticsSink
	grading   *GradingAdapter
	logger    *zap.Logger
	opts      Options
	ctx       context.Context

	lobbyMu sync.Mutex
	lobby   map[Conn]int64
}

// NewBattleService wires the match engine. ctx bounds countdowns, grading and
// result persistence; cancel it on shutdown.
func NewBattleService(ctx context.Context, deps Deps, opts Options) *BattleService {
	opts = opts.withDefaults()
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := NewRegistry(deps.Observer)
	registry.unit = opts.TimeUnit
	registry.refresh = opts.PresenceRefresh
	return &BattleService{
		registry:  registry,
		users:     deps.Users,
		tasks:     deps.Tasks,
		history:   deps.History,
		analytics: deps.Analytics,
		grading:   deps.Grading,
		logger:    logger,
		opts:      opts,
		ctx:       ctx,
		lobby:     make(map[Conn]int64),
	}
}

// Registry exposes the room registry, mostly for listings and tests.
func (s *BattleService) Registry() *Registry {
	return s.registry
}

// Authenticate resolves a bearer token to a user.
func (s *BattleService) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	identity, err := s.users.Authenticate(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			return domain.Identity{}, err
		}
		return domain.Identity{}, fmt.Errorf("authenticate: %w", err)
	}
	return identity, nil
}

// Connect registers an idle connection so it receives room announcements.
func (s *BattleService) Connect(conn Conn) {
	s.lobbyMu.Lock()
	defer s.lobbyMu.Unlock()
	if _, ok := s.lobby[conn]; !ok {
		s.lobby[conn] = 0
	}
}

// Touch records that caller speaks through conn. If caller belongs to a room
// but has no attached handle (a reconnect), conn is attached to the room.
func (s *BattleService) Touch(caller domain.Identity, conn Conn) {
	s.lobbyMu.Lock()
	s.lobby[conn] = caller.ID
	s.lobbyMu.Unlock()

	room, ok := s.registry.ByUser(caller.ID)
	if !ok {
		return
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	p := room.playerLocked(caller.ID)
	if p == nil {
		return
	}
	s.registry.refreshLocked(room)
	// Ratings are frozen at start; the directory may already hold the
	// result of a partially persisted match.
	if room.status == domain.StatusWaiting {
		p.Name = caller.Name
		p.Rating = caller.Rating
	}
	if p.connected() {
		return
	}
	p.conn = conn
	sendTo(room.opponentLocked(caller.ID), domain.Event{Name: domain.EventPlayerJoined, Data: playerPayload{
		UserID:      caller.ID,
		Name:        caller.Name,
		Rating:      caller.Rating,
		Reconnected: true,
	}})
	s.logger.Info("player reattached", zap.Int64("room_id", room.ID), zap.Int64("user_id", caller.ID))
}

// CreateRoom opens a room hosted by caller.
func (s *BattleService) CreateRoom(_ context.Context, caller domain.Identity, conn Conn, name string, settings MatchSettings) (domain.RoomSummary, error) {
	filter := domain.TaskFilter{Count: s.opts.DefaultTaskCount, Random: true}
	timeLimit := s.opts.DefaultTimeLimit
	if err := settings.apply(&filter, &timeLimit); err != nil {
		return domain.RoomSummary{}, err
	}
	room, err := s.registry.Create(caller, conn, name, filter, timeLimit)
	if err != nil {
		return domain.RoomSummary{}, err
	}
	summary := room.Summary()
	_ = conn.Send(domain.Event{Name: domain.EventYourRoomCreated, Data: roomRef{RoomID: room.ID, Name: room.Name}})
	s.announce(caller.ID, domain.Event{Name: domain.EventRoomCreated, Data: summary})
	s.logger.Info("room created", zap.Int64("room_id", room.ID), zap.Int64("host_id", caller.ID), zap.String("name", name))
	return summary, nil
}

// announce sends ev to every connection whose user is not in a room.
func (s *BattleService) announce(exclude int64, ev domain.Event) {
	s.lobbyMu.Lock()
	targets := make([]Conn, 0, len(s.lobby))
	for conn, userID := range s.lobby {
		if userID == exclude && userID != 0 {
			continue
		}
		if userID != 0 {
			if _, busy := s.registry.ByUser(userID); busy {
				continue
			}
		}
		targets = append(targets, conn)
	}
	s.lobbyMu.Unlock()
	for _, conn := range targets {
		_ = conn.Send(ev)
	}
}

// JoinRoom seats caller as the opponent in a waiting room.
func (s *BattleService) JoinRoom(_ context.Context, caller domain.Identity, conn Conn, roomID int64) (domain.RoomSummary, error) {
	if _, busy := s.registry.ByUser(caller.ID); busy {
		return domain.RoomSummary{}, domain.ErrAlreadyInRoom
	}
	room, ok := s.registry.Get(roomID)
	if !ok {
		return domain.RoomSummary{}, domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	switch {
	case room.HostID == caller.ID:
		return domain.RoomSummary{}, domain.ErrOwnRoom
	case room.status != domain.StatusWaiting:
		return domain.RoomSummary{}, domain.ErrWrongState
	case room.guest != nil:
		return domain.RoomSummary{}, domain.ErrRoomFull
	}
	if err := s.registry.Join(caller, room, conn); err != nil {
		return domain.RoomSummary{}, err
	}
	s.registry.publishLocked(room)

	summary := room.summaryLocked()
	sendTo(room.guest, domain.Event{Name: domain.EventJoinSuccessful, Data: joinPayload{Room: summary, HostName: room.host.Name}})
	sendTo(room.host, domain.Event{Name: domain.EventPlayerJoined, Data: playerPayload{
		UserID: caller.ID,
		Name:   caller.Name,
		Rating: caller.Rating,
	}})
	s.logger.Info("room joined", zap.Int64("room_id", room.ID), zap.Int64("user_id", caller.ID))
	return summary, nil
}

// LeaveRoom leaves a waiting room. A departing host dissolves the room.
func (s *BattleService) LeaveRoom(_ context.Context, caller domain.Identity) error {
	room, ok := s.registry.ByUser(caller.ID)
	if !ok {
		return domain.ErrNotInRoom
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	p := room.playerLocked(caller.ID)
	if p == nil {
		return domain.ErrNotInRoom
	}
	if room.status != domain.StatusWaiting {
		return domain.ErrWrongState
	}
	sendTo(p, domain.Event{Name: domain.EventRoomLeft, Data: roomRef{RoomID: room.ID, Name: room.Name}})
	s.departLocked(room, caller.ID)
	return nil
}

func (s *BattleService) departLocked(room *Room, userID int64) {
	if userID == room.HostID {
		room.status = domain.StatusClosed
		room.cancelTimerLocked()
		sendTo(room.guest, domain.Event{Name: domain.EventRoomDeleted, Data: roomRef{RoomID: room.ID, Name: room.Name}})
		s.registry.Remove(room)
		s.logger.Info("room dissolved", zap.Int64("room_id", room.ID), zap.Int64("host_id", userID))
		return
	}
	var name string
	if room.guest != nil {
		name = room.guest.Name
	}
	s.registry.Vacate(userID, room)
	s.registry.publishLocked(room)
	sendTo(room.host, domain.Event{Name: domain.EventPlayerLeft, Data: playerLeftPayload{UserID: userID, Name: name}})
	s.logger.Info("room vacated", zap.Int64("room_id", room.ID), zap.Int64("user_id", userID))
}

// StartGame selects the tasks and starts the countdown. Only the host may
// start, only from waiting and only with an opponent seated.
func (s *BattleService) StartGame(ctx context.Context, caller domain.Identity, settings MatchSettings) error {
	room, ok := s.registry.ByUser(caller.ID)
	if !ok {
		return domain.ErrNotInRoom
	}

	room.mu.Lock()
	if err := checkStartLocked(room, caller.ID); err != nil {
		room.mu.Unlock()
		return err
	}
	filter, timeLimit := room.filter, room.timeLimit
	if err := settings.apply(&filter, &timeLimit); err != nil {
		room.mu.Unlock()
		return err
	}
	room.starting = true
	room.mu.Unlock()

	tasks, err := s.tasks.QueryTasks(ctx, filter)

	room.mu.Lock()
	defer room.mu.Unlock()
	room.starting = false
	if err != nil {
		if errors.Is(err, domain.ErrNoTasks) {
			return err
		}
		s.logger.Error("query tasks", zap.Int64("room_id", room.ID), zap.Error(err))
		return fmt.Errorf("query tasks: %w", err)
	}
	if len(tasks) == 0 {
		return domain.ErrNoTasks
	}
	if room.status != domain.StatusWaiting {
		return domain.ErrWrongState
	}
	if room.guest == nil {
		return domain.ErrNoOpponent
	}

	room.filter = filter
	room.timeLimit = timeLimit
	room.tasks = tasks
	room.status = domain.StatusStarted
	s.registry.publishLocked(room)
	room.broadcastLocked(domain.Event{Name: domain.EventCountdownStarted, Data: countdownStartedPayload{
		Seconds:   s.opts.CountdownSeconds,
		TaskCount: len(tasks),
		TimeLimit: timeLimit,
	}})
	s.logger.Info("game started", zap.Int64("room_id", room.ID), zap.Int("tasks", len(tasks)), zap.Int("time_limit", timeLimit))
	go s.runCountdown(room)
	return nil
}

func checkStartLocked(room *Room, callerID int64) error {
	switch {
	case room.HostID != callerID:
		return domain.ErrNotHost
	case room.status != domain.StatusWaiting || room.starting:
		return domain.ErrWrongState
	case room.guest == nil:
		return domain.ErrNoOpponent
	}
	return nil
}

func (s *BattleService) runCountdown(room *Room) {
	tick := time.NewTimer(s.opts.Tick)
	defer tick.Stop()
	for remaining := s.opts.CountdownSeconds; remaining > 0; remaining-- {
		room.mu.Lock()
		if room.status != domain.StatusStarted {
			room.mu.Unlock()
			return
		}
		room.broadcastLocked(domain.Event{Name: domain.EventCountdown, Data: countdownPayload{Remaining: remaining}})
		room.mu.Unlock()

		tick.Reset(s.opts.Tick)
		select {
		case <-tick.C:
		case <-s.ctx.Done():
			return
		}
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.status != domain.StatusStarted {
		return
	}
	room.revealed = true
	room.revealedAt = room.now()
	public := make([]domain.PublicTask, 0, len(room.tasks))
	for _, t := range room.tasks {
		public = append(public, t.Public())
	}
	room.broadcastLocked(domain.Event{Name: domain.EventTasksSelected, Data: tasksPayload{Tasks: public, TimeLimit: room.timeLimit}})
	room.scheduleTimerLocked(time.Duration(room.timeLimit)*room.unit, func(gen uint64) {
		s.onTimeUp(room, gen)
	})
}

func (s *BattleService) onTimeUp(room *Room, gen uint64) {
	_ = s.withRoom(room, func() error {
		if gen != room.timerGen || room.status != domain.StatusStarted {
			return nil
		}
		room.timer = nil
		s.enterFinishingLocked(room, reasonTimeUp)
		return nil
	})
}

func (s *BattleService) enterFinishingLocked(room *Room, reason string) {
	room.status = domain.StatusFinishing
	for _, p := range room.playersLocked() {
		p.Finished = true
	}
	s.armFinishGraceLocked(room)
	s.registry.publishLocked(room)
	room.broadcastLocked(domain.Event{Name: domain.EventGameFinished, Data: gameFinishedPayload{RoomID: room.ID, Reason: reason}})
	s.logger.Info("game finishing", zap.Int64("room_id", room.ID), zap.String("reason", reason))
}

// withRoom runs fn under the room lock and completes the match afterwards if
// fn left it ready for scoring.
func (s *BattleService) withRoom(room *Room, fn func() error) error {
	room.mu.Lock()
	err := fn()
	job := s.prepareFinalizeLocked(room)
	room.mu.Unlock()
	if job != nil {
		s.finalize(room, job)
	}
	return err
}

// SubmitAnswer grades an answer to one of the match tasks. Each (player, task)
// pair is graded at most once. With CheckOracle the verdict is delivered
// asynchronously as a check_result event.
func (s *BattleService) SubmitAnswer(_ context.Context, caller domain.Identity, taskID int64, answer string, mode CheckMode) error {
	room, ok := s.registry.ByUser(caller.ID)
	if !ok {
		return domain.ErrNotInRoom
	}
	async := mode == CheckOracle && s.grading != nil

	var task domain.Task
	err := s.withRoom(room, func() error {
		p, t, err := checkAnswerLocked(room, caller.ID, taskID)
		if err != nil {
			return err
		}
		task = t
		if async {
			p.pending[taskID] = true
			return nil
		}
		s.applyAnswerLocked(room, p, task, answer, ExactMatch(task.Answer, answer))
		return nil
	})
	if err != nil || !async {
		return err
	}

	s.grading.Submit(task, answer, func(correct bool, gradeErr error) {
		_ = s.withRoom(room, func() error {
			p := room.playerLocked(caller.ID)
			if p == nil {
				return nil
			}
			delete(p.pending, taskID)
			if gradeErr != nil {
				sendTo(p, domain.NewErrorEvent(fmt.Errorf("grade answer: %w", gradeErr)))
				return nil
			}
			if room.status != domain.StatusStarted {
				s.logger.Info("grading result dropped", zap.Int64("room_id", room.ID), zap.Int64("task_id", taskID))
				sendTo(p, domain.NewErrorEvent(fmt.Errorf("%w: task %d was graded after the match ended", domain.ErrWrongState, taskID)))
				return nil
			}
			s.applyAnswerLocked(room, p, task, answer, correct)
			return nil
		})
	})
	return nil
}

func checkAnswerLocked(room *Room, userID, taskID int64) (*PlayerStats, domain.Task, error) {
	if room.status != domain.StatusStarted {
		return nil, domain.Task{}, domain.ErrWrongState
	}
	if !room.revealed {
		return nil, domain.Task{}, domain.ErrCountdown
	}
	p := room.playerLocked(userID)
	if p == nil {
		return nil, domain.Task{}, domain.ErrNotInRoom
	}
	if p.Finished {
		return nil, domain.Task{}, domain.ErrWrongState
	}
	task, ok := room.taskLocked(taskID)
	if !ok {
		return nil, domain.Task{}, domain.ErrTaskNotFound
	}
	if p.solved(taskID) {
		return nil, domain.Task{}, domain.ErrAlreadySolved
	}
	if _, answered := p.Answers[taskID]; answered || p.pending[taskID] {
		return nil, domain.Task{}, domain.ErrAlreadyAnswered
	}
	return p, task, nil
}

func (s *BattleService) applyAnswerLocked(room *Room, p *PlayerStats, task domain.Task, answer string, correct bool) {
	p.Answers[task.ID] = answer
	awarded := 0
	if correct {
		awarded = task.Points()
		p.Points += awarded
		p.Solved = append(p.Solved, task.ID)
		p.SolveTimes = append(p.SolveTimes, int(room.elapsedLocked()/room.unit))
	}
	sendTo(p, domain.Event{Name: domain.EventCheckResult, Data: checkResultPayload{
		TaskID:  task.ID,
		Correct: correct,
		Awarded: awarded,
		Points:  p.Points,
	}})
	if correct {
		sendTo(room.opponentLocked(p.UserID), domain.Event{Name: domain.EventOtherSolved, Data: otherSolvedPayload{
			UserID: p.UserID,
			Points: p.Points,
			Solved: len(p.Solved),
		}})
	}
	if len(p.Answers) == len(room.tasks) {
		s.markFinishedLocked(room, p)
	}
}

func (s *BattleService) markFinishedLocked(room *Room, p *PlayerStats) {
	if p.Finished {
		return
	}
	p.Finished = true
	sendTo(room.opponentLocked(p.UserID), domain.Event{Name: domain.EventOtherFinished, Data: playerPayload{UserID: p.UserID, Name: p.Name}})
	if bothFinishedLocked(room) {
		s.enterFinishingLocked(room, reasonCompleted)
	}
}

func bothFinishedLocked(room *Room) bool {
	return room.host != nil && room.guest != nil && room.host.Finished && room.guest.Finished
}

// Finish marks caller as done. times, when given, is the caller's per-task
// solve time list.
func (s *BattleService) Finish(_ context.Context, caller domain.Identity, times []int) error {
	room, ok := s.registry.ByUser(caller.ID)
	if !ok {
		return domain.ErrNotInRoom
	}
	return s.withRoom(room, func() error {
		p := room.playerLocked(caller.ID)
		if p == nil {
			return domain.ErrNotInRoom
		}
		switch room.status {
		case domain.StatusStarted:
			if !room.revealed {
				return domain.ErrCountdown
			}
			if times != nil {
				recordTimes(p, times)
			}
			s.markFinishedLocked(room, p)
			return nil
		case domain.StatusFinishing:
			if times != nil {
				recordTimes(p, times)
				sendTo(p, domain.Event{Name: domain.EventTimesAccepted, Data: roomRef{RoomID: room.ID, Name: room.Name}})
			}
			return nil
		default:
			return domain.ErrWrongState
		}
	})
}

// ReportTimes stores caller's per-task solve times once the match is
// finishing. The match is scored when both lists are in.
func (s *BattleService) ReportTimes(_ context.Context, caller domain.Identity, times []int) error {
	room, ok := s.registry.ByUser(caller.ID)
	if !ok {
		return domain.ErrNotInRoom
	}
	return s.withRoom(room, func() error {
		p := room.playerLocked(caller.ID)
		if p == nil {
			return domain.ErrNotInRoom
		}
		if room.status != domain.StatusFinishing {
			return domain.ErrWrongState
		}
		recordTimes(p, times)
		sendTo(p, domain.Event{Name: domain.EventTimesAccepted, Data: roomRef{RoomID: room.ID, Name: room.Name}})
		return nil
	})
}

func recordTimes(p *PlayerStats, times []int) {
	p.ReportedTimes = append([]int(nil), times...)
	p.TimesReported = true
}

// SendChat relays a chat line to both participants.
func (s *BattleService) SendChat(_ context.Context, caller domain.Identity, message string) error {
	room, ok := s.registry.ByUser(caller.ID)
	if !ok {
		return domain.ErrNotInRoom
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	p := room.playerLocked(caller.ID)
	if p == nil {
		return domain.ErrNotInRoom
	}
	room.broadcastLocked(domain.Event{Name: domain.EventChatMessage, Data: chatPayload{UserID: p.UserID, Name: p.Name, Message: message}})
	return nil
}

// GameState snapshots caller's room.
func (s *BattleService) GameState(_ context.Context, caller domain.Identity) (domain.GameState, error) {
	room, ok := s.registry.ByUser(caller.ID)
	if !ok {
		return domain.GameState{}, domain.ErrNotInRoom
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.playerLocked(caller.ID) == nil {
		return domain.GameState{}, domain.ErrNotInRoom
	}
	return room.stateLocked(caller.ID), nil
}

// Disconnect detaches conn. A waiting room is left as with LeaveRoom; a match
// in progress keeps the player's seat so they can reattach.
func (s *BattleService) Disconnect(conn Conn, userID int64) {
	s.lobbyMu.Lock()
	delete(s.lobby, conn)
	s.lobbyMu.Unlock()
	if userID == 0 {
		return
	}
	room, ok := s.registry.ByUser(userID)
	if !ok {
		return
	}
	_ = s.withRoom(room, func() error {
		p := room.playerLocked(userID)
		if p == nil || p.conn != conn {
			return nil
		}
		p.conn = nil
		switch room.status {
		case domain.StatusWaiting:
			s.departLocked(room, userID)
		case domain.StatusStarted, domain.StatusFinishing:
			sendTo(room.opponentLocked(userID), domain.Event{Name: domain.EventPlayerLeft, Data: playerLeftPayload{
				UserID: userID,
				Name:   p.Name,
				Paused: true,
			}})
			s.logger.Info("player disconnected mid-match", zap.Int64("room_id", room.ID), zap.Int64("user_id", userID))
		}
		return nil
	})
}

// Rooms lists live rooms in creation order.
func (s *BattleService) Rooms() []domain.RoomSummary {
	rooms := s.registry.Rooms()
	out := make([]domain.RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.Summary())
	}
	return out
}

// Room returns a single room summary.
func (s *BattleService) Room(roomID int64) (domain.RoomSummary, error) {
	room, ok := s.registry.Get(roomID)
	if !ok {
		return domain.RoomSummary{}, domain.ErrRoomNotFound
	}
	return room.Summary(), nil
}

// Wait blocks until in-flight grading calls have reported.
func (s *BattleService) Wait() {
	if s.grading != nil {
		s.grading.Wait()
	}
}

type roomRef struct {
	RoomID int64  `json:"room_id"`
	Name   string `json:"name"`
}

type joinPayload struct {
	Room     domain.RoomSummary `json:"room"`
	HostName string             `json:"host_name"`
}

type playerPayload struct {
	UserID      int64  `json:"user_id"`
	Name        string `json:"name"`
	Rating      int    `json:"rating,omitempty"`
	Reconnected bool   `json:"reconnected,omitempty"`
}

type playerLeftPayload struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Paused bool   `json:"paused"`
}

type countdownStartedPayload struct {
	Seconds   int `json:"seconds"`
	TaskCount int `json:"task_count"`
	TimeLimit int `json:"time_limit"`
}

type countdownPayload struct {
	Remaining int `json:"remaining"`
}

type tasksPayload struct {
	Tasks     []domain.PublicTask `json:"tasks"`
	TimeLimit int                 `json:"time_limit"`
}

type checkResultPayload struct {
	TaskID  int64 `json:"task_id"`
	Correct bool  `json:"correct"`
	Awarded int   `json:"awarded"`
	Points  int   `json:"points"`
}

type otherSolvedPayload struct {
	UserID int64 `json:"user_id"`
	Points int   `json:"points"`
	Solved int   `json:"solved"`
}

type gameFinishedPayload struct {
	RoomID int64  `json:"room_id"`
	Reason string `json:"reason"`
}

type chatPayload struct {
	UserID  int64  `json:"user_id"`
	Name    string `json:"name"`
	Message string `json:"message"`
}
