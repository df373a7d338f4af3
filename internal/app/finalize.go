package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"quiz-battle-service/internal/domain"
)

type finalizeJob struct {
	result   domain.MatchResult
	record   domain.BattleRecord
	attempts []attempt

	// Steps already persisted. A retry resumes after them.
	rated    map[int64]bool
	recorded bool
	counted  bool
}

type attempt struct {
	userID    int64
	solved    int
	attempted int
}

// prepareFinalizeLocked scores the match once it is finishing and both solve
// time lists are in. A detached player counts as having reported, as does
// everyone once the finishing grace period ran out; the server-recorded
// times stand in for missing lists. It returns nil when not ready or when
// another goroutine is already finalizing. The score is computed once and
// reused by every retry.
func (s *BattleService) prepareFinalizeLocked(room *Room) *finalizeJob {
	if room.status != domain.StatusFinishing || room.finalizing || room.host == nil || room.guest == nil {
		return nil
	}
	if room.job == nil {
		for _, p := range room.playersLocked() {
			if !p.TimesReported && p.connected() && !room.graceExpired {
				return nil
			}
		}
		room.job = s.scoreLocked(room)
	}
	room.finalizing = true
	return room.job
}

func (s *BattleService) scoreLocked(room *Room) *finalizeJob {
	host, guest := room.host, room.guest
	total := room.totalPointsLocked()
	newHost, newGuest := CalculateRating(
		host.Rating, guest.Rating,
		ScoreRatio(host.Points, total), ScoreRatio(guest.Points, total),
		s.opts.KFactor,
	)
	now := room.now()
	return &finalizeJob{
		result: domain.MatchResult{
			RoomID:         room.ID,
			Player1ID:      host.UserID,
			Player2ID:      guest.UserID,
			Player1Points:  host.Points,
			Player2Points:  guest.Points,
			Player1Correct: len(host.Solved),
			Player2Correct: len(guest.Solved),
			Player1AvgTime: AverageSolveTime(solvedTimes(host, room.tasks)),
			Player2AvgTime: AverageSolveTime(solvedTimes(guest, room.tasks)),
			Player1Rating:  newHost,
			Player2Rating:  newGuest,
			Player1Delta:   newHost - host.Rating,
			Player2Delta:   newGuest - guest.Rating,
			TotalPoints:    total,
		},
		record: domain.BattleRecord{
			Player1ID:   host.UserID,
			Player2ID:   guest.UserID,
			Result1:     len(host.Solved),
			Result2:     len(guest.Solved),
			Points1:     host.Points,
			Points2:     guest.Points,
			SolveTimes1: historyTimes(host),
			SolveTimes2: historyTimes(guest),
			Rating1:     newHost,
			Rating2:     newGuest,
			Date:        now,
		},
		attempts: []attempt{
			{userID: host.UserID, solved: len(host.Solved), attempted: len(host.Answers)},
			{userID: guest.UserID, solved: len(guest.Solved), attempted: len(guest.Answers)},
		},
		rated: make(map[int64]bool, 2),
	}
}

// solvedTimes returns the solve times of solved tasks only. A reported list
// aligned with the task order wins over the server's own measurements.
func solvedTimes(p *PlayerStats, tasks []domain.Task) []int {
	if !p.TimesReported || len(p.ReportedTimes) != len(tasks) {
		return p.SolveTimes
	}
	out := make([]int, 0, len(p.Solved))
	for i, t := range tasks {
		if p.solved(t.ID) {
			out = append(out, p.ReportedTimes[i])
		}
	}
	return out
}

func historyTimes(p *PlayerStats) []int {
	if p.TimesReported {
		return append([]int(nil), p.ReportedTimes...)
	}
	return append([]int(nil), p.SolveTimes...)
}

// finalize persists ratings and history, then broadcasts the scores and
// reclaims the room. The writes happen first so a client refreshing after the
// broadcast sees the new rating.
func (s *BattleService) finalize(room *Room, job *finalizeJob) {
	ctx, cancel := context.WithTimeout(s.ctx, persistTimeout)
	defer cancel()
	err := s.persist(ctx, job)

	room.mu.Lock()
	defer room.mu.Unlock()
	if err != nil {
		room.finalizing = false
		s.logger.Error("persist match result", zap.Int64("room_id", room.ID), zap.Error(err))
		room.broadcastLocked(domain.NewErrorEvent(domain.ErrInternal))
		s.armFinishGraceLocked(room)
		return
	}
	room.broadcastLocked(domain.Event{Name: domain.EventScores, Data: job.result})
	room.status = domain.StatusClosed
	room.cancelTimerLocked()
	s.registry.Remove(room)
	s.logger.Info("match finished",
		zap.Int64("room_id", room.ID),
		zap.Int64("player1", job.result.Player1ID),
		zap.Int64("player2", job.result.Player2ID),
		zap.Int("player1_points", job.result.Player1Points),
		zap.Int("player2_points", job.result.Player2Points),
		zap.Int("player1_rating", job.result.Player1Rating),
		zap.Int("player2_rating", job.result.Player2Rating),
	)
}

func (s *BattleService) persist(ctx context.Context, job *finalizeJob) error {
	ratings := []struct {
		userID int64
		rating int
	}{
		{job.result.Player1ID, job.result.Player1Rating},
		{job.result.Player2ID, job.result.Player2Rating},
	}
	for _, r := range ratings {
		if job.rated[r.userID] {
			continue
		}
		if err := s.users.UpdateRating(ctx, r.userID, r.rating); err != nil {
			return fmt.Errorf("update rating of %d: %w", r.userID, err)
		}
		job.rated[r.userID] = true
	}
	if s.history != nil && !job.recorded {
		if err := s.history.RecordMatch(ctx, job.record); err != nil {
			return fmt.Errorf("record match: %w", err)
		}
		job.recorded = true
	}
	if s.analytics != nil && !job.counted {
		for _, a := range job.attempts {
			if err := s.analytics.RecordAttempts(ctx, a.userID, a.solved, a.attempted); err != nil {
				s.logger.Warn("record analytics", zap.Int64("user_id", a.userID), zap.Error(err))
			}
		}
		job.counted = true
	}
	return nil
}

// armFinishGraceLocked bounds the finishing phase. When the timer fires,
// players who have not reported are scored on server-recorded times.
func (s *BattleService) armFinishGraceLocked(room *Room) {
	room.scheduleTimerLocked(s.opts.FinishGrace, func(gen uint64) {
		_ = s.withRoom(room, func() error {
			if gen != room.timerGen || room.status != domain.StatusFinishing {
				return nil
			}
			room.timer = nil
			if !room.graceExpired {
				room.graceExpired = true
				s.logger.Info("finishing grace expired", zap.Int64("room_id", room.ID))
			}
			return nil
		})
	})
}
