package memory

import (
	"context"
	"errors"
	"testing"

	"quiz-battle-service/internal/domain"
)

func TestUserDirectoryAuthenticates(t *testing.T) {
	dir := NewUserDirectory(Account{Token: "t1", Identity: domain.Identity{ID: 1, Name: "alice", Rating: 1000}})

	user, err := dir.Authenticate(context.Background(), "t1")
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if user.ID != 1 || user.Name != "alice" {
		t.Fatalf("unexpected identity %+v", user)
	}
	if _, err := dir.Authenticate(context.Background(), "nope"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUserDirectoryUpdatesRating(t *testing.T) {
	dir := NewUserDirectory(Account{Token: "t1", Identity: domain.Identity{ID: 1, Name: "alice", Rating: 1000}})

	if err := dir.UpdateRating(context.Background(), 1, 1016); err != nil {
		t.Fatalf("update rating: %v", err)
	}
	user, _ := dir.Authenticate(context.Background(), "t1")
	if user.Rating != 1016 {
		t.Fatalf("expected rating 1016, got %d", user.Rating)
	}
	if err := dir.UpdateRating(context.Background(), 9, 1000); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAnalyticsSinkAccumulates(t *testing.T) {
	sink := NewAnalyticsSink()
	_ = sink.RecordAttempts(context.Background(), 1, 1, 2)
	_ = sink.RecordAttempts(context.Background(), 1, 2, 2)

	if got := sink.Counters(1); got.Solved != 3 || got.Attempted != 4 {
		t.Fatalf("unexpected counters %+v", got)
	}
}
