package http

import (
	"encoding/json"
	"fmt"

	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
)

// envelope carries the fields every inbound message has. The tag is read from
// "event", falling back to the older "cmd".
type envelope struct {
	Event string `json:"event"`
	Cmd   string `json:"cmd"`
	Token string `json:"token"`
}

func (e envelope) tag() string {
	if e.Event != "" {
		return e.Event
	}
	return e.Cmd
}

// command is the closed set of inbound commands.
type command interface {
	validate() error
}

type matchFields struct {
	LevelStart  *int     `json:"level_start"`
	LevelEnd    *int     `json:"level_end"`
	Category    *string  `json:"category"`
	Subcategory []string `json:"subcategory"`
	Count       *int     `json:"count"`
	TimeLimit   *int     `json:"time_limit"`
}

func (m matchFields) settings() app.MatchSettings {
	return app.MatchSettings{
		LevelStart:    m.LevelStart,
		LevelEnd:      m.LevelEnd,
		Category:      m.Category,
		Subcategories: m.Subcategory,
		Count:         m.Count,
		TimeLimit:     m.TimeLimit,
	}
}

type createRoomCommand struct {
	Name *string `json:"name"`
	matchFields
}

type joinRoomCommand struct {
	RoomID *int64 `json:"room_id"`
}

type leaveRoomCommand struct{}

type startGameCommand struct {
	matchFields
}

type sendAnswerCommand struct {
	TaskID *int64  `json:"task_id"`
	Answer *string `json:"answer"`
	Check  string  `json:"check"`
}

type chatCommand struct {
	Message *string `json:"message"`
}

type gameStateCommand struct{}

type finishCommand struct {
	Times []int `json:"times"`
}

type playerTimesCommand struct {
	Times []int `json:"times"`
}

// unknownCommand stands in for any tag outside the protocol.
type unknownCommand struct {
	Tag string
}

func (c *createRoomCommand) validate() error {
	if c.Name == nil || *c.Name == "" {
		return missing("name")
	}
	return nil
}

func (c *joinRoomCommand) validate() error {
	if c.RoomID == nil {
		return missing("room_id")
	}
	return nil
}

func (*leaveRoomCommand) validate() error { return nil }

func (*startGameCommand) validate() error { return nil }

func (c *sendAnswerCommand) validate() error {
	if c.TaskID == nil {
		return missing("task_id")
	}
	if c.Answer == nil {
		return missing("answer")
	}
	if _, ok := app.ParseCheckMode(c.Check); !ok {
		return fmt.Errorf("%w: unknown check mode %q", domain.ErrMissingParam, c.Check)
	}
	return nil
}

func (c *chatCommand) validate() error {
	if c.Message == nil || *c.Message == "" {
		return missing("message")
	}
	return nil
}

func (*gameStateCommand) validate() error { return nil }

func (*finishCommand) validate() error { return nil }

func (c *playerTimesCommand) validate() error {
	if c.Times == nil {
		return missing("times")
	}
	return nil
}

func (c unknownCommand) validate() error {
	return fmt.Errorf("%w: %s", domain.ErrUnknownCommand, c.Tag)
}

func missing(field string) error {
	return fmt.Errorf("%w: %s is required", domain.ErrMissingParam, field)
}

// decodeCommand parses one inbound frame. Validation of the command's own
// fields is left to the caller so it can authenticate first.
func decodeCommand(raw []byte) (envelope, command, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return env, nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}

	var cmd command
	switch env.tag() {
	case "":
		return env, nil, missing("event")
	case "create_room":
		cmd = &createRoomCommand{}
	case "join_room":
		cmd = &joinRoomCommand{}
	case "leave_room":
		cmd = &leaveRoomCommand{}
	case "start_game":
		cmd = &startGameCommand{}
	case "send_answer":
		cmd = &sendAnswerCommand{}
	case "send_to_chat":
		cmd = &chatCommand{}
	case "get_game_state":
		cmd = &gameStateCommand{}
	case "finish":
		cmd = &finishCommand{}
	case "player_times":
		cmd = &playerTimesCommand{}
	default:
		return env, unknownCommand{Tag: env.tag()}, nil
	}
	if err := json.Unmarshal(raw, cmd); err != nil {
		return env, nil, fmt.Errorf("%w: %v", domain.ErrMalformed, err)
	}
	return env, cmd, nil
}
