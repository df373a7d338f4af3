package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"quiz-battle-service/internal/domain"
	"quiz-battle-service/internal/infra/memory"
)

func TestCreateJoinAndStart(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	hostConn, guestConn, idleConn := newRecorder(), newRecorder(), newRecorder()
	h.svc.Connect(hostConn)
	h.svc.Touch(alice, hostConn)
	h.svc.Connect(idleConn)
	h.svc.Touch(carol, idleConn)

	summary, err := h.svc.CreateRoom(h.ctx, alice, hostConn, "duel", MatchSettings{Count: intPtr(2), TimeLimit: intPtr(60)})
	require.NoError(t, err)
	require.Equal(t, int64(1), summary.ID)
	require.Equal(t, domain.StatusWaiting, summary.Status)

	created := hostConn.next(t, domain.EventYourRoomCreated).Data.(roomRef)
	require.Equal(t, summary.ID, created.RoomID)
	announced := idleConn.next(t, domain.EventRoomCreated).Data.(domain.RoomSummary)
	require.Equal(t, "duel", announced.Name)
	require.Zero(t, hostConn.count(domain.EventRoomCreated))

	_, err = h.svc.JoinRoom(h.ctx, bob, guestConn, summary.ID)
	require.NoError(t, err)
	joined := guestConn.next(t, domain.EventJoinSuccessful).Data.(joinPayload)
	require.Equal(t, "alice", joined.HostName)
	require.Equal(t, bob.ID, *joined.Room.Other)
	require.Equal(t, bob.ID, hostConn.next(t, domain.EventPlayerJoined).Data.(playerPayload).UserID)

	require.NoError(t, h.svc.StartGame(h.ctx, alice, MatchSettings{}))
	started := hostConn.next(t, domain.EventCountdownStarted).Data.(countdownStartedPayload)
	require.Equal(t, 2, started.TaskCount)
	require.Equal(t, 60, started.TimeLimit)
	guestConn.next(t, domain.EventCountdownStarted)

	tasks := guestConn.next(t, domain.EventTasksSelected).Data.(tasksPayload)
	require.Len(t, tasks.Tasks, 2)
	hostConn.next(t, domain.EventTasksSelected)
}

func TestRoomIDsIncrease(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	first, err := h.svc.CreateRoom(h.ctx, alice, newRecorder(), "one", MatchSettings{})
	require.NoError(t, err)
	second, err := h.svc.CreateRoom(h.ctx, bob, newRecorder(), "two", MatchSettings{})
	require.NoError(t, err)
	require.Equal(t, first.ID+1, second.ID)

	rooms := h.svc.Rooms()
	require.Len(t, rooms, 2)
	require.Equal(t, "one", rooms[0].Name)

	_, err = h.svc.CreateRoom(h.ctx, alice, newRecorder(), "again", MatchSettings{})
	require.ErrorIs(t, err, domain.ErrAlreadyInRoom)
}

func TestCreateRoomValidatesSettings(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	_, err := h.svc.CreateRoom(h.ctx, alice, newRecorder(), "bad", MatchSettings{Count: intPtr(0)})
	require.ErrorIs(t, err, domain.ErrMissingParam)
	_, err = h.svc.CreateRoom(h.ctx, alice, newRecorder(), "bad", MatchSettings{LevelStart: intPtr(3), LevelEnd: intPtr(1)})
	require.ErrorIs(t, err, domain.ErrMissingParam)
	require.Zero(t, h.svc.Registry().Len())
}

func TestJoinRejections(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	room, _, _ := h.seat(t, 2, 60)

	_, err := h.svc.JoinRoom(h.ctx, carol, newRecorder(), room.ID)
	require.ErrorIs(t, err, domain.ErrRoomFull)
	_, err = h.svc.JoinRoom(h.ctx, carol, newRecorder(), 99)
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, err = h.svc.JoinRoom(h.ctx, bob, newRecorder(), room.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyInRoom)
}

func TestStartRequiresHostAndOpponent(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	hostConn := newRecorder()
	summary, err := h.svc.CreateRoom(h.ctx, alice, hostConn, "solo", MatchSettings{Count: intPtr(1)})
	require.NoError(t, err)

	require.ErrorIs(t, h.svc.StartGame(h.ctx, alice, MatchSettings{}), domain.ErrNoOpponent)
	require.ErrorIs(t, h.svc.StartGame(h.ctx, carol, MatchSettings{}), domain.ErrNotInRoom)

	_, err = h.svc.JoinRoom(h.ctx, bob, newRecorder(), summary.ID)
	require.NoError(t, err)
	require.ErrorIs(t, h.svc.StartGame(h.ctx, bob, MatchSettings{}), domain.ErrNotHost)
}

func TestStartWithoutMatchingTasksStaysWaiting(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	room, _, _ := h.seat(t, 2, 60)

	err := h.svc.StartGame(h.ctx, alice, MatchSettings{Category: strPtr("history")})
	require.ErrorIs(t, err, domain.ErrNoTasks)
	require.Equal(t, domain.StatusWaiting, room.Status())
}

func TestStartedRejectsSecondStart(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	room, _, _, _ := h.play(t, 2, 60)

	require.ErrorIs(t, h.svc.StartGame(h.ctx, alice, MatchSettings{}), domain.ErrWrongState)
	require.Equal(t, domain.StatusStarted, room.Status())
}

func TestWaitingRejectsAnswersAndFinish(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	h.seat(t, 2, 60)

	require.ErrorIs(t, h.svc.SubmitAnswer(h.ctx, bob, 1, "1", CheckExact), domain.ErrWrongState)
	require.ErrorIs(t, h.svc.Finish(h.ctx, alice, nil), domain.ErrWrongState)
	require.ErrorIs(t, h.svc.ReportTimes(h.ctx, alice, []int{1}), domain.ErrWrongState)
	require.ErrorIs(t, h.svc.SubmitAnswer(h.ctx, carol, 1, "1", CheckExact), domain.ErrNotInRoom)
}

func TestCountdownRejectsAnswers(t *testing.T) {
	h := newHarness(t, Options{CountdownSeconds: 3, Tick: time.Hour}, nil)
	_, hostConn, _ := h.seat(t, 2, 60)
	require.NoError(t, h.svc.StartGame(h.ctx, alice, MatchSettings{}))

	require.Equal(t, 3, hostConn.next(t, domain.EventCountdown).Data.(countdownPayload).Remaining)
	require.ErrorIs(t, h.svc.SubmitAnswer(h.ctx, alice, 1, "1", CheckExact), domain.ErrCountdown)
	require.ErrorIs(t, h.svc.Finish(h.ctx, alice, nil), domain.ErrCountdown)

	state, err := h.svc.GameState(h.ctx, alice)
	require.NoError(t, err)
	require.Equal(t, domain.StatusStarted, state.Status)
	require.Empty(t, state.Tasks)
}

func TestCountdownTicksBeforeReveal(t *testing.T) {
	h := newHarness(t, Options{CountdownSeconds: 2, Tick: 5 * time.Millisecond}, nil)
	_, hostConn, _ := h.seat(t, 1, 60)
	require.NoError(t, h.svc.StartGame(h.ctx, alice, MatchSettings{}))

	require.Equal(t, 2, hostConn.next(t, domain.EventCountdown).Data.(countdownPayload).Remaining)
	require.Equal(t, 1, hostConn.next(t, domain.EventCountdown).Data.(countdownPayload).Remaining)
	hostConn.next(t, domain.EventTasksSelected)
	require.Equal(t, 2, hostConn.count(domain.EventCountdown))
}

func TestAnswerScoringAndNotifications(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	_, hostConn, guestConn, tasks := h.play(t, 2, 60)
	task := tasks[0]

	require.NoError(t, h.svc.SubmitAnswer(h.ctx, alice, task.ID, " "+answerOf(task.ID)+" ", CheckExact))
	result := hostConn.next(t, domain.EventCheckResult).Data.(checkResultPayload)
	require.True(t, result.Correct)
	require.Equal(t, task.Points, result.Awarded)
	require.Equal(t, task.Points, result.Points)

	solved := guestConn.next(t, domain.EventOtherSolved).Data.(otherSolvedPayload)
	require.Equal(t, alice.ID, solved.UserID)
	require.Equal(t, task.Points, solved.Points)
	require.Equal(t, 1, solved.Solved)

	require.NoError(t, h.svc.SubmitAnswer(h.ctx, bob, task.ID, "wrong", CheckExact))
	miss := guestConn.next(t, domain.EventCheckResult).Data.(checkResultPayload)
	require.False(t, miss.Correct)
	require.Zero(t, miss.Points)
	require.Equal(t, 1, guestConn.count(domain.EventOtherSolved))
}

func TestDuplicateAnswersRejected(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	_, _, _, tasks := h.play(t, 2, 60)

	require.NoError(t, h.svc.SubmitAnswer(h.ctx, alice, tasks[0].ID, answerOf(tasks[0].ID), CheckExact))
	require.ErrorIs(t, h.svc.SubmitAnswer(h.ctx, alice, tasks[0].ID, answerOf(tasks[0].ID), CheckExact), domain.ErrAlreadySolved)

	require.NoError(t, h.svc.SubmitAnswer(h.ctx, bob, tasks[0].ID, "wrong", CheckExact))
	require.ErrorIs(t, h.svc.SubmitAnswer(h.ctx, bob, tasks[0].ID, answerOf(tasks[0].ID), CheckExact), domain.ErrAlreadyAnswered)

	require.ErrorIs(t, h.svc.SubmitAnswer(h.ctx, bob, 404, "x", CheckExact), domain.ErrTaskNotFound)
}

func TestConcurrentAnswersCountOnce(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	room, _, _, tasks := h.play(t, 2, 60)

	var accepted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := h.svc.SubmitAnswer(h.ctx, alice, tasks[0].ID, answerOf(tasks[0].ID), CheckExact)
			if err == nil {
				accepted.Add(1)
				return
			}
			if !errors.Is(err, domain.ErrAlreadySolved) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	// Both players answering different tasks at once must both land.
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := h.svc.SubmitAnswer(h.ctx, bob, tasks[1].ID, answerOf(tasks[1].ID), CheckExact); err != nil {
			t.Errorf("bob answer: %v", err)
		}
	}()
	wg.Wait()

	require.Equal(t, int32(1), accepted.Load())
	room.mu.Lock()
	defer room.mu.Unlock()
	require.Equal(t, tasks[0].Points, room.host.Points)
	require.Equal(t, []int64{tasks[0].ID}, room.host.Solved)
	require.Equal(t, tasks[1].Points, room.guest.Points)
}

func TestHostDisconnectInWaitingDissolvesRoom(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	room, hostConn, guestConn := h.seat(t, 2, 60)

	h.svc.Disconnect(hostConn, alice.ID)
	h.svc.Disconnect(hostConn, alice.ID)

	guestConn.next(t, domain.EventRoomDeleted)
	require.Equal(t, 1, guestConn.count(domain.EventRoomDeleted))
	require.Equal(t, domain.StatusClosed, room.Status())
	_, err := h.svc.Room(room.ID)
	require.ErrorIs(t, err, domain.ErrRoomNotFound)
	_, busy := h.svc.Registry().ByUser(bob.ID)
	require.False(t, busy)
	require.Zero(t, h.svc.Registry().Len())
}

func TestGuestLeaveVacatesSlot(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	room, hostConn, guestConn := h.seat(t, 2, 60)

	require.NoError(t, h.svc.LeaveRoom(h.ctx, bob))
	guestConn.next(t, domain.EventRoomLeft)
	left := hostConn.next(t, domain.EventPlayerLeft).Data.(playerLeftPayload)
	require.Equal(t, bob.ID, left.UserID)
	require.False(t, left.Paused)

	summary := room.Summary()
	require.Nil(t, summary.Other)
	require.Equal(t, domain.StatusWaiting, summary.Status)
	require.ErrorIs(t, h.svc.LeaveRoom(h.ctx, bob), domain.ErrNotInRoom)

	_, err := h.svc.JoinRoom(h.ctx, carol, newRecorder(), room.ID)
	require.NoError(t, err)
}

func TestLeaveRoomOnlyWhileWaiting(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	room, _, _, _ := h.play(t, 2, 60)

	require.ErrorIs(t, h.svc.LeaveRoom(h.ctx, bob), domain.ErrWrongState)
	require.Equal(t, domain.StatusStarted, room.Status())
}

func TestTimeUpFinishesMatch(t *testing.T) {
	h := newHarness(t, Options{TimeUnit: 10 * time.Millisecond}, nil)
	room, hostConn, guestConn, tasks := h.play(t, 2, 20)
	require.NoError(t, h.svc.SubmitAnswer(h.ctx, alice, tasks[0].ID, answerOf(tasks[0].ID), CheckExact))

	finished := hostConn.next(t, domain.EventGameFinished).Data.(gameFinishedPayload)
	require.Equal(t, reasonTimeUp, finished.Reason)
	guestConn.next(t, domain.EventGameFinished)
	require.Equal(t, domain.StatusFinishing, room.Status())
	require.ErrorIs(t, h.svc.SubmitAnswer(h.ctx, bob, tasks[1].ID, answerOf(tasks[1].ID), CheckExact), domain.ErrWrongState)

	require.NoError(t, h.svc.ReportTimes(h.ctx, alice, []int{1, 0}))
	hostConn.next(t, domain.EventTimesAccepted)
	require.Zero(t, hostConn.count(domain.EventScores))
	require.NoError(t, h.svc.ReportTimes(h.ctx, bob, []int{0, 0}))

	scores := guestConn.next(t, domain.EventScores).Data.(domain.MatchResult)
	require.Equal(t, 1, scores.Player1Correct)
	require.Zero(t, scores.Player2Correct)
	require.Equal(t, tasks[0].Points, scores.Player1Points)
	total := tasks[0].Points + tasks[1].Points
	require.Equal(t, total, scores.TotalPoints)
	wantHost, wantGuest := CalculateRating(1000, 1000, ScoreRatio(tasks[0].Points, total), 0, DefaultKFactor)
	require.Equal(t, wantHost, scores.Player1Rating)
	require.Equal(t, wantGuest, scores.Player2Rating)
	require.Greater(t, scores.Player1Rating, scores.Player2Rating)
	hostConn.next(t, domain.EventScores)
	require.Equal(t, domain.StatusClosed, room.Status())
	require.Zero(t, h.svc.Registry().Len())
}

func TestEarlyFinishCancelsTimer(t *testing.T) {
	h := newHarness(t, Options{TimeUnit: 10 * time.Millisecond}, nil)
	room, hostConn, guestConn, _ := h.play(t, 2, 30)

	require.NoError(t, h.svc.Finish(h.ctx, alice, nil))
	require.Equal(t, alice.ID, guestConn.next(t, domain.EventOtherFinished).Data.(playerPayload).UserID)
	require.NoError(t, h.svc.Finish(h.ctx, bob, nil))

	finished := hostConn.next(t, domain.EventGameFinished).Data.(gameFinishedPayload)
	require.Equal(t, reasonCompleted, finished.Reason)

	time.Sleep(500 * time.Millisecond)
	require.Equal(t, 1, hostConn.count(domain.EventGameFinished))
	require.Equal(t, 1, guestConn.count(domain.EventGameFinished))
	require.Equal(t, domain.StatusFinishing, room.Status())
}

func TestAnsweringEveryTaskFinishesPlayer(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	_, hostConn, guestConn, tasks := h.play(t, 2, 60)

	for _, task := range tasks {
		require.NoError(t, h.svc.SubmitAnswer(h.ctx, alice, task.ID, answerOf(task.ID), CheckExact))
	}
	guestConn.next(t, domain.EventOtherFinished)
	require.NoError(t, h.svc.Finish(h.ctx, alice, nil))

	for _, task := range tasks {
		require.NoError(t, h.svc.SubmitAnswer(h.ctx, bob, task.ID, "nope", CheckExact))
	}
	require.Equal(t, reasonCompleted, hostConn.next(t, domain.EventGameFinished).Data.(gameFinishedPayload).Reason)

	require.NoError(t, h.svc.Finish(h.ctx, alice, []int{3, 4}))
	hostConn.next(t, domain.EventTimesAccepted)
	require.NoError(t, h.svc.ReportTimes(h.ctx, bob, []int{0, 0}))

	scores := hostConn.next(t, domain.EventScores).Data.(domain.MatchResult)
	require.Equal(t, 2, scores.Player1Correct)
	require.Equal(t, 3.5, scores.Player1AvgTime)
	require.Zero(t, scores.Player2AvgTime)
	require.Equal(t, 1016, scores.Player1Rating)
	require.Equal(t, 984, scores.Player2Rating)
	require.Equal(t, 16, scores.Player1Delta)

	rating, _ := h.users.Rating(alice.ID)
	require.Equal(t, 1016, rating)
	rating, _ = h.users.Rating(bob.ID)
	require.Equal(t, 984, rating)

	records := h.history.Records()
	require.Len(t, records, 1)
	require.Equal(t, []int{3, 4}, records[0].SolveTimes1)
	require.Equal(t, 2, records[0].Result1)
	require.Equal(t, 1016, records[0].Rating1)

	require.Equal(t, memory.Counters{Solved: 2, Attempted: 2}, h.analytics.Counters(alice.ID))
	require.Equal(t, memory.Counters{Solved: 0, Attempted: 2}, h.analytics.Counters(bob.ID))
}

type flakyUsers struct {
	*memory.UserDirectory
	failures atomic.Int32
}

func (f *flakyUsers) UpdateRating(ctx context.Context, userID int64, rating int) error {
	if f.failures.Add(-1) >= 0 {
		return errors.New("database unavailable")
	}
	return f.UserDirectory.UpdateRating(ctx, userID, rating)
}

func TestPersistFailureKeepsRoomFinishing(t *testing.T) {
	var users *flakyUsers
	h := newHarness(t, Options{}, func(_ context.Context, deps *Deps) {
		users = &flakyUsers{UserDirectory: deps.Users.(*memory.UserDirectory)}
		users.failures.Store(1)
		deps.Users = users
	})
	room, hostConn, guestConn, _ := h.play(t, 2, 60)

	require.NoError(t, h.svc.Finish(h.ctx, alice, []int{0, 0}))
	require.NoError(t, h.svc.Finish(h.ctx, bob, nil))
	require.NoError(t, h.svc.ReportTimes(h.ctx, bob, []int{0, 0}))

	failure := guestConn.next(t, domain.EventError).Data.(domain.ErrorPayload)
	require.Equal(t, domain.KindInternal, failure.Kind)
	require.Equal(t, domain.StatusFinishing, room.Status())
	require.Zero(t, hostConn.count(domain.EventScores))
	require.Empty(t, h.history.Records())

	require.NoError(t, h.svc.ReportTimes(h.ctx, alice, []int{0, 0}))
	hostConn.next(t, domain.EventScores)
	require.Len(t, h.history.Records(), 1)
	require.Equal(t, domain.StatusClosed, room.Status())
}

func TestDisconnectMidMatchPausesAndReattaches(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	room, hostConn, guestConn, tasks := h.play(t, 2, 60)

	h.svc.Disconnect(guestConn, bob.ID)
	left := hostConn.next(t, domain.EventPlayerLeft).Data.(playerLeftPayload)
	require.True(t, left.Paused)
	require.Equal(t, domain.StatusStarted, room.Status())

	state, err := h.svc.GameState(h.ctx, alice)
	require.NoError(t, err)
	require.Len(t, state.Players, 2)
	require.False(t, state.Players[1].Connected)
	require.Len(t, state.Tasks, 2)
	require.Positive(t, state.RemainingSeconds)

	require.NoError(t, h.svc.SubmitAnswer(h.ctx, alice, tasks[0].ID, answerOf(tasks[0].ID), CheckExact))

	again := newRecorder()
	h.svc.Touch(bob, again)
	back := hostConn.next(t, domain.EventPlayerJoined).Data.(playerPayload)
	require.True(t, back.Reconnected)

	require.NoError(t, h.svc.SubmitAnswer(h.ctx, bob, tasks[0].ID, answerOf(tasks[0].ID), CheckExact))
	require.True(t, again.next(t, domain.EventCheckResult).Data.(checkResultPayload).Correct)

	state, err = h.svc.GameState(h.ctx, bob)
	require.NoError(t, err)
	require.True(t, state.Players[1].Connected)
	require.Equal(t, answerOf(tasks[0].ID), state.Players[1].Answers[tasks[0].ID])
	require.Nil(t, state.Players[0].Answers)
}

func TestDetachedPlayerCountsAsReported(t *testing.T) {
	h := newHarness(t, Options{TimeUnit: 10 * time.Millisecond}, nil)
	_, hostConn, guestConn, tasks := h.play(t, 2, 20)
	require.NoError(t, h.svc.SubmitAnswer(h.ctx, bob, tasks[0].ID, answerOf(tasks[0].ID), CheckExact))

	h.svc.Disconnect(guestConn, bob.ID)
	hostConn.next(t, domain.EventGameFinished)

	require.NoError(t, h.svc.ReportTimes(h.ctx, alice, []int{0, 0}))
	scores := hostConn.next(t, domain.EventScores).Data.(domain.MatchResult)
	require.Equal(t, 1, scores.Player2Correct)
	require.Zero(t, guestConn.count(domain.EventScores))
}

func TestDisconnectWhileFinishingCompletesMatch(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	_, hostConn, guestConn, _ := h.play(t, 2, 60)

	require.NoError(t, h.svc.Finish(h.ctx, alice, []int{0, 0}))
	require.NoError(t, h.svc.Finish(h.ctx, bob, nil))
	hostConn.next(t, domain.EventGameFinished)

	h.svc.Disconnect(guestConn, bob.ID)
	hostConn.next(t, domain.EventScores)
	require.Zero(t, h.svc.Registry().Len())
}

func TestChatReachesBothPlayers(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	_, hostConn, guestConn := h.seat(t, 2, 60)

	require.NoError(t, h.svc.SendChat(h.ctx, bob, "good luck"))
	msg := hostConn.next(t, domain.EventChatMessage).Data.(chatPayload)
	require.Equal(t, "good luck", msg.Message)
	require.Equal(t, "bob", msg.Name)
	guestConn.next(t, domain.EventChatMessage)
	require.ErrorIs(t, h.svc.SendChat(h.ctx, carol, "hi"), domain.ErrNotInRoom)
}

type gateGrader struct {
	release chan struct{}
	verdict bool
	err     error
}

func (g *gateGrader) Grade(ctx context.Context, _ domain.Task, _ string) (bool, error) {
	select {
	case <-g.release:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	return g.verdict, g.err
}

func TestOracleGradingIsAsync(t *testing.T) {
	grader := &gateGrader{release: make(chan struct{}), verdict: true}
	h := newHarness(t, Options{}, func(ctx context.Context, deps *Deps) {
		deps.Grading = NewGradingAdapter(ctx, grader, time.Second, 4, nil)
	})
	_, hostConn, guestConn, tasks := h.play(t, 2, 60)

	require.NoError(t, h.svc.SubmitAnswer(h.ctx, alice, tasks[0].ID, "one", CheckOracle))
	require.ErrorIs(t, h.svc.SubmitAnswer(h.ctx, alice, tasks[0].ID, "one", CheckOracle), domain.ErrAlreadyAnswered)

	// Other rooms and the opponent are not held up by the pending call.
	require.NoError(t, h.svc.SubmitAnswer(h.ctx, bob, tasks[0].ID, answerOf(tasks[0].ID), CheckExact))
	guestConn.next(t, domain.EventCheckResult)
	require.Zero(t, hostConn.count(domain.EventCheckResult))

	close(grader.release)
	result := hostConn.next(t, domain.EventCheckResult).Data.(checkResultPayload)
	require.True(t, result.Correct)
	require.Equal(t, tasks[0].Points, result.Points)
	require.ErrorIs(t, h.svc.SubmitAnswer(h.ctx, alice, tasks[0].ID, "one", CheckOracle), domain.ErrAlreadySolved)
}

func TestOracleFailureAllowsRetry(t *testing.T) {
	grader := &gateGrader{release: make(chan struct{}), err: errors.New("oracle down")}
	close(grader.release)
	h := newHarness(t, Options{}, func(ctx context.Context, deps *Deps) {
		deps.Grading = NewGradingAdapter(ctx, grader, time.Second, 4, nil)
	})
	_, hostConn, _, tasks := h.play(t, 2, 60)

	require.NoError(t, h.svc.SubmitAnswer(h.ctx, alice, tasks[0].ID, "one", CheckOracle))
	failure := hostConn.next(t, domain.EventError).Data.(domain.ErrorPayload)
	require.Equal(t, domain.KindInternal, failure.Kind)

	require.NoError(t, h.svc.SubmitAnswer(h.ctx, alice, tasks[0].ID, answerOf(tasks[0].ID), CheckExact))
	require.True(t, hostConn.next(t, domain.EventCheckResult).Data.(checkResultPayload).Correct)
}

func TestOracleModeWithoutGraderFallsBackToExact(t *testing.T) {
	h := newHarness(t, Options{}, nil)
	_, hostConn, _, tasks := h.play(t, 2, 60)

	require.NoError(t, h.svc.SubmitAnswer(h.ctx, alice, tasks[0].ID, answerOf(tasks[0].ID), CheckOracle))
	require.True(t, hostConn.next(t, domain.EventCheckResult).Data.(checkResultPayload).Correct)
}

func strPtr(v string) *string { return &v }

// nthFailure fails exactly the failOn-th UpdateRating call.
type nthFailure struct {
	*memory.UserDirectory
	failOn int32
	calls  atomic.Int32
}

func (f *nthFailure) UpdateRating(ctx context.Context, userID int64, rating int) error {
	if f.calls.Add(1) == f.failOn {
		return errors.New("database unavailable")
	}
	return f.UserDirectory.UpdateRating(ctx, userID, rating)
}

func TestRetryAfterPartialPersistAppliesRatingOnce(t *testing.T) {
	h := newHarness(t, Options{}, func(_ context.Context, deps *Deps) {
		deps.Users = &nthFailure{UserDirectory: deps.Users.(*memory.UserDirectory), failOn: 2}
	})
	room, hostConn, guestConn, tasks := h.play(t, 2, 60)

	for _, task := range tasks {
		require.NoError(t, h.svc.SubmitAnswer(h.ctx, alice, task.ID, answerOf(task.ID), CheckExact))
	}
	require.NoError(t, h.svc.Finish(h.ctx, bob, nil))
	require.NoError(t, h.svc.ReportTimes(h.ctx, alice, []int{1, 1}))
	require.NoError(t, h.svc.ReportTimes(h.ctx, bob, []int{0, 0}))

	require.Equal(t, domain.KindInternal, hostConn.next(t, domain.EventError).Data.(domain.ErrorPayload).Kind)
	require.Equal(t, domain.StatusFinishing, room.Status())
	stored, _ := h.users.Rating(alice.ID)
	require.Equal(t, 1016, stored)

	// Alice's next message carries the rating the directory already holds.
	current, err := h.svc.Authenticate(h.ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, 1016, current.Rating)
	h.svc.Touch(current, hostConn)
	require.NoError(t, h.svc.ReportTimes(h.ctx, alice, []int{1, 1}))

	scores := guestConn.next(t, domain.EventScores).Data.(domain.MatchResult)
	require.Equal(t, 1016, scores.Player1Rating)
	require.Equal(t, 16, scores.Player1Delta)
	require.Equal(t, 984, scores.Player2Rating)
	require.Equal(t, -16, scores.Player2Delta)

	aliceRating, _ := h.users.Rating(alice.ID)
	bobRating, _ := h.users.Rating(bob.ID)
	require.Equal(t, 1016, aliceRating)
	require.Equal(t, 984, bobRating)
	require.Len(t, h.history.Records(), 1)
}

func TestFinishingGraceScoresSilentPlayer(t *testing.T) {
	h := newHarness(t, Options{FinishGrace: 50 * time.Millisecond}, nil)
	room, hostConn, guestConn, tasks := h.play(t, 2, 60)

	require.NoError(t, h.svc.SubmitAnswer(h.ctx, alice, tasks[0].ID, answerOf(tasks[0].ID), CheckExact))
	require.NoError(t, h.svc.Finish(h.ctx, alice, nil))
	require.NoError(t, h.svc.Finish(h.ctx, bob, nil))
	require.NoError(t, h.svc.ReportTimes(h.ctx, bob, []int{0, 0}))

	// Alice stays connected and never reports her times.
	scores := guestConn.next(t, domain.EventScores).Data.(domain.MatchResult)
	hostConn.next(t, domain.EventScores)
	require.Equal(t, 1, scores.Player1Correct)
	require.Equal(t, domain.StatusClosed, room.Status())
	require.Zero(t, h.svc.Registry().Len())

	records := h.history.Records()
	require.Len(t, records, 1)
	require.Len(t, records[0].SolveTimes1, 1)

	_, err := h.svc.CreateRoom(h.ctx, bob, guestConn, "rematch", MatchSettings{})
	require.NoError(t, err)
}

func TestLateOracleVerdictReportsStateError(t *testing.T) {
	grader := &gateGrader{release: make(chan struct{}), verdict: true}
	h := newHarness(t, Options{}, func(ctx context.Context, deps *Deps) {
		deps.Grading = NewGradingAdapter(ctx, grader, 5*time.Second, 4, nil)
	})
	room, hostConn, _, tasks := h.play(t, 2, 60)

	require.NoError(t, h.svc.SubmitAnswer(h.ctx, alice, tasks[0].ID, "one", CheckOracle))
	require.NoError(t, h.svc.Finish(h.ctx, alice, nil))
	require.NoError(t, h.svc.Finish(h.ctx, bob, nil))
	require.Equal(t, domain.StatusFinishing, room.Status())

	close(grader.release)
	failure := hostConn.next(t, domain.EventError).Data.(domain.ErrorPayload)
	require.Equal(t, domain.KindState, failure.Kind)
	require.Zero(t, hostConn.count(domain.EventCheckResult))
}

func TestObserverFollowsRoomStatus(t *testing.T) {
	obs := &observerLog{}
	h := newHarness(t, Options{}, func(_ context.Context, deps *Deps) {
		deps.Observer = obs
	})
	room, hostConn, _, _ := h.play(t, 2, 60)

	require.NoError(t, h.svc.Finish(h.ctx, alice, nil))
	require.NoError(t, h.svc.Finish(h.ctx, bob, nil))
	require.Equal(t, []domain.RoomStatus{domain.StatusWaiting, domain.StatusStarted, domain.StatusFinishing}, obs.statuses())

	require.NoError(t, h.svc.ReportTimes(h.ctx, alice, nil))
	require.NoError(t, h.svc.ReportTimes(h.ctx, bob, nil))
	hostConn.next(t, domain.EventScores)
	require.Equal(t, domain.StatusClosed, room.Status())

	obs.mu.Lock()
	defer obs.mu.Unlock()
	require.Equal(t, []int64{room.ID}, obs.opened)
	require.Equal(t, []int64{room.ID}, obs.closed)
}
