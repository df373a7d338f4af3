package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"quiz-battle-service/internal/domain"
)

// CheckMode selects how an answer is graded.
type CheckMode string

const (
	CheckExact  CheckMode = "exact"
	CheckOracle CheckMode = "oracle"
)

// ParseCheckMode maps the wire value onto a mode; empty means exact.
func ParseCheckMode(raw string) (CheckMode, bool) {
	switch CheckMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", CheckExact:
		return CheckExact, true
	case CheckOracle:
		return CheckOracle, true
	default:
		return "", false
	}
}

// ExactMatch compares answers after trimming surrounding whitespace.
func ExactMatch(canonical, submitted string) bool {
	return strings.TrimSpace(canonical) == strings.TrimSpace(submitted)
}

// ExactGrader is the cheap, synchronous grading path.
type ExactGrader struct{}

func (ExactGrader) Grade(_ context.Context, task domain.Task, answer string) (bool, error) {
	return ExactMatch(task.Answer, answer), nil
}

// GradingAdapter runs a slow Grader off the caller's goroutine. Requests from
// different connections run concurrently up to maxInFlight.
type GradingAdapter struct {
	grader  Grader
	timeout time.Duration
	sem     *semaphore.Weighted
	ctx     context.Context
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewGradingAdapter wraps grader. ctx bounds the lifetime of in-flight calls;
// it should outlive individual connections.
func NewGradingAdapter(ctx context.Context, grader Grader, timeout time.Duration, maxInFlight int, logger *zap.Logger) *GradingAdapter {
	if maxInFlight <= 0 {
		maxInFlight = 64
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradingAdapter{
		grader:  grader,
		timeout: timeout,
		sem:     semaphore.NewWeighted(int64(maxInFlight)),
		ctx:     ctx,
		logger:  logger,
	}
}

// Submit grades asynchronously and calls done with the verdict. It never blocks.
func (a *GradingAdapter) Submit(task domain.Task, answer string, done func(correct bool, err error)) {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.sem.Acquire(a.ctx, 1); err != nil {
			done(false, err)
			return
		}
		defer a.sem.Release(1)

		ctx, cancel := context.WithTimeout(a.ctx, a.timeout)
		defer cancel()
		started := time.Now()
		correct, err := a.grader.Grade(ctx, task, answer)
		if err != nil {
			a.logger.Warn("grading failed", zap.Int64("task_id", task.ID), zap.Duration("elapsed", time.Since(started)), zap.Error(err))
		}
		done(correct, err)
	}()
}

// Wait blocks until every submitted grading call has reported.
func (a *GradingAdapter) Wait() {
	a.wg.Wait()
}
