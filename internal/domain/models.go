package domain

import (
	"cmp"
	"fmt"
	"math/rand"
	"slices"
	"strings"
	"time"
)

// Identity is the authenticated caller as returned by the user directory.
type Identity struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Rating int    `json:"rating"`
}

// Task is a catalog record, including its canonical answer.
type Task struct {
	ID          int64    `json:"id"`
	Level       int      `json:"level"`
	Category    string   `json:"category"`
	Subcategory []string `json:"subcategory"`
	Condition   string   `json:"condition"`
	Solution    string   `json:"solution,omitempty"`
	Answer      string   `json:"answer"`
	Source      string   `json:"source,omitempty"`
	AnswerType  string   `json:"answer_type,omitempty"`
}

// Points is the value of solving the task; it derives from the level only.
func (t Task) Points() int {
	return t.Level * 10
}

// Public strips everything a player must not see before solving.
func (t Task) Public() PublicTask {
	return PublicTask{
		ID:          t.ID,
		Level:       t.Level,
		Category:    t.Category,
		Subcategory: t.Subcategory,
		Condition:   t.Condition,
		AnswerType:  t.AnswerType,
		Points:      t.Points(),
	}
}

// PublicTask is the task as revealed to players.
type PublicTask struct {
	ID          int64    `json:"id"`
	Level       int      `json:"level"`
	Category    string   `json:"category"`
	Subcategory []string `json:"subcategory"`
	Condition   string   `json:"condition"`
	AnswerType  string   `json:"answer_type,omitempty"`
	Points      int      `json:"points"`
}

// TaskFilter selects tasks for a match.
type TaskFilter struct {
	LevelStart    int      `json:"level_start"`
	LevelEnd      int      `json:"level_end"`
	Category      string   `json:"category"`
	Subcategories []string `json:"subcategory"`
	Count         int      `json:"count"`
	Random        bool     `json:"random"`
}

// Matches reports whether the task satisfies the level range, category and
// subcategory overlap. Empty category or subcategory set match anything.
func (f TaskFilter) Matches(t Task) bool {
	if t.Level < f.LevelStart || (f.LevelEnd > 0 && t.Level > f.LevelEnd) {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if len(f.Subcategories) == 0 {
		return true
	}
	for _, want := range f.Subcategories {
		for _, have := range t.Subcategory {
			if want == have {
				return true
			}
		}
	}
	return false
}

// PoolKey identifies the candidate pool of the filter, ignoring Count and Random.
func (f TaskFilter) PoolKey() string {
	subs := slices.Clone(f.Subcategories)
	slices.Sort(subs)
	return fmt.Sprintf("%d:%d:%s:%s", f.LevelStart, f.LevelEnd, f.Category, strings.Join(subs, ","))
}

// Pick takes Count tasks from pool: a uniform sample when Random is set,
// otherwise the lowest ids. A pool smaller than Count is returned whole.
func (f TaskFilter) Pick(pool []Task) []Task {
	picked := slices.Clone(pool)
	if f.Random {
		rand.Shuffle(len(picked), func(i, j int) { picked[i], picked[j] = picked[j], picked[i] })
	} else {
		slices.SortFunc(picked, func(a, b Task) int { return cmp.Compare(a.ID, b.ID) })
	}
	if f.Count > 0 && len(picked) > f.Count {
		picked = picked[:f.Count]
	}
	return picked
}

// RoomStatus is the match protocol state. It only moves forward.
type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusStarted   RoomStatus = "started"
	StatusFinishing RoomStatus = "finishing"
	StatusClosed    RoomStatus = "closed"
)

// RoomSummary is the public listing view of a room.
type RoomSummary struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Host   int64      `json:"host"`
	Other  *int64     `json:"other"`
	Status RoomStatus `json:"status"`
}

// PlayerState is one side of a game_state snapshot.
type PlayerState struct {
	UserID    int64            `json:"user_id"`
	Name      string           `json:"name"`
	Points    int              `json:"points"`
	Solved    int              `json:"solved"`
	Finished  bool             `json:"finished"`
	Connected bool             `json:"connected"`
	Answers   map[int64]string `json:"answers,omitempty"`
}

// GameState answers get_game_state.
type GameState struct {
	RoomID           int64         `json:"room_id"`
	Name             string        `json:"name"`
	Status           RoomStatus    `json:"status"`
	TimeLimit        int           `json:"time_limit"`
	RemainingSeconds int           `json:"remaining_seconds"`
	Tasks            []PublicTask  `json:"tasks,omitempty"`
	Players          []PlayerState `json:"players"`
}

// BattleRecord is the persisted history entry of a finished match.
type BattleRecord struct {
	Player1ID   int64     `json:"id1"`
	Player2ID   int64     `json:"id2"`
	Result1     int       `json:"result1"`
	Result2     int       `json:"result2"`
	Points1     int       `json:"points1"`
	Points2     int       `json:"points2"`
	SolveTimes1 []int     `json:"solvingtime1"`
	SolveTimes2 []int     `json:"solvingtime2"`
	Rating1     int       `json:"rating1"`
	Rating2     int       `json:"rating2"`
	Date        time.Time `json:"date"`
}

// MatchResult is the final score payload broadcast to both players.
type MatchResult struct {
	RoomID         int64   `json:"room_id"`
	Player1ID      int64   `json:"player1_id"`
	Player2ID      int64   `json:"player2_id"`
	Player1Points  int     `json:"player1_points"`
	Player2Points  int     `json:"player2_points"`
	Player1Correct int     `json:"player1_correct"`
	Player2Correct int     `json:"player2_correct"`
	Player1AvgTime float64 `json:"player1_avg_time"`
	Player2AvgTime float64 `json:"player2_avg_time"`
	Player1Rating  int     `json:"player1_rating"`
	Player2Rating  int     `json:"player2_rating"`
	Player1Delta   int     `json:"player1_delta"`
	Player2Delta   int     `json:"player2_delta"`
	TotalPoints    int     `json:"total_points"`
}

// Event is one outbound protocol message.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data,omitempty"`
}

// Outbound event names.
const (
	EventYourRoomCreated  = "your_room_created"
	EventRoomCreated      = "room_created"
	EventPlayerJoined     = "player_joined"
	EventJoinSuccessful   = "join_successful"
	EventRoomDeleted      = "room_deleted"
	EventRoomLeft         = "room_left"
	EventPlayerLeft       = "player_left"
	EventCountdownStarted = "countdown_started"
	EventCountdown        = "countdown"
	EventTasksSelected    = "tasks_selected"
	EventCheckResult      = "check_result"
	EventOtherSolved      = "other_solved"
	EventOtherFinished    = "other_finished"
	EventGameFinished     = "game_finished"
	EventTimesAccepted    = "times_accepted"
	EventScores           = "scores"
	EventChatMessage      = "chat_message"
	EventGameState        = "game_state"
	EventError            = "error"
)

// ErrorPayload is the data of an error event.
type ErrorPayload struct {
	Message string `json:"message"`
	Kind    Kind   `json:"kind"`
}

// NewErrorEvent builds the error event reported for err. Internal failures are
// reported with a generic message.
func NewErrorEvent(err error) Event {
	kind := KindOf(err)
	msg := err.Error()
	if kind == KindInternal {
		msg = ErrInternal.Error()
	}
	return Event{Name: EventError, Data: ErrorPayload{Message: msg, Kind: kind}}
}
