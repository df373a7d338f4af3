package domain

import "errors"

var (
	// ErrMissingParam is returned when a command lacks a required field.
	ErrMissingParam = errors.New("wrong params")
	// ErrMalformed indicates an inbound payload that could not be decoded.
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownCommand is returned for an unrecognized command tag.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUnauthorized is returned when a bearer token does not resolve to a user.
	ErrUnauthorized = errors.New("failed to verify token")
	// ErrNotHost is returned when a host-only action is attempted by someone else.
	ErrNotHost = errors.New("only the host can do this")
	// ErrNotInRoom is returned when the caller does not belong to any room.
	ErrNotInRoom = errors.New("you are not in a room")

	// ErrAlreadyInRoom is returned when a user tries to create or join a second room.
	ErrAlreadyInRoom = errors.New("already in a room")
	// ErrRoomFull is returned when the occupant slot is already taken.
	ErrRoomFull = errors.New("room is full")
	// ErrOwnRoom is returned when the host tries to join their own room.
	ErrOwnRoom = errors.New("cannot join your own room")
	// ErrNoOpponent is returned when the host starts a game alone.
	ErrNoOpponent = errors.New("waiting for an opponent")
	// ErrWrongState is returned for a command issued in the wrong room status.
	ErrWrongState = errors.New("command not allowed in current room state")
	// ErrCountdown is returned while the tasks have not been revealed yet.
	ErrCountdown = errors.New("tasks have not been revealed yet")
	// ErrAlreadySolved is returned for a repeated submission on a solved task.
	ErrAlreadySolved = errors.New("task already solved")
	// ErrAlreadyAnswered is returned for a repeated submission on an answered task.
	ErrAlreadyAnswered = errors.New("task already answered")

	// ErrRoomNotFound is returned for an unknown room id.
	ErrRoomNotFound = errors.New("room not found")
	// ErrTaskNotFound is returned when a task id is not part of the match.
	ErrTaskNotFound = errors.New("task not found")
	// ErrNoTasks indicates the task filter matched nothing.
	ErrNoTasks = errors.New("no tasks match the filter")
	// ErrUserNotFound is returned by directories for unknown user ids.
	ErrUserNotFound = errors.New("user not found")

	// ErrInternal is what callers see when a collaborator failed.
	ErrInternal = errors.New("internal error")
)

// Kind classifies an error for reporting to clients.
type Kind string

const (
	KindProtocol     Kind = "protocol"
	KindUnauthorized Kind = "unauthorized"
	KindState        Kind = "state"
	KindNotFound     Kind = "not_found"
	KindInternal     Kind = "internal"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrMissingParam, KindProtocol},
	{ErrMalformed, KindProtocol},
	{ErrUnknownCommand, KindProtocol},
	{ErrUnauthorized, KindUnauthorized},
	{ErrNotHost, KindUnauthorized},
	{ErrNotInRoom, KindUnauthorized},
	{ErrOwnRoom, KindUnauthorized},
	{ErrAlreadyInRoom, KindState},
	{ErrRoomFull, KindState},
	{ErrNoOpponent, KindState},
	{ErrWrongState, KindState},
	{ErrCountdown, KindState},
	{ErrAlreadySolved, KindState},
	{ErrAlreadyAnswered, KindState},
	{ErrRoomNotFound, KindNotFound},
	{ErrTaskNotFound, KindNotFound},
	{ErrNoTasks, KindNotFound},
	{ErrUserNotFound, KindNotFound},
}

// KindOf maps err onto a reportable kind. Anything unrecognized is internal.
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
