package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

var (
	errConnClosed = errors.New("connection closed")
	errSendFull   = errors.New("send buffer full")
)

type WSHandler struct {
	service  *app.BattleService
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

func NewWSHandler(service *app.BattleService, logger *zap.Logger) *WSHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

// wsConn is the room-facing handle of one websocket. Sends are queued and
// written by a single writer goroutine so gorilla never sees concurrent writes.
type wsConn struct {
	id     string
	mu     sync.Mutex
	send   chan domain.Event
	closed bool
	logger *zap.Logger
}

func newWSConn(logger *zap.Logger) *wsConn {
	id := uuid.NewString()
	return &wsConn{
		id:     id,
		send:   make(chan domain.Event, sendBuffer),
		logger: logger.With(zap.String("conn_id", id)),
	}
}

func (c *wsConn) Send(ev domain.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errConnClosed
	}
	select {
	case c.send <- ev:
		return nil
	default:
		c.logger.Warn("dropping outbound event", zap.String("event", ev.Name))
		return errSendFull
	}
}

func (c *wsConn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ServeWS upgrades the request and runs the command loop until the transport fails.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	client := newWSConn(h.logger)
	client.logger.Debug("client connected", zap.String("remote", r.RemoteAddr))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for ev := range client.send {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				client.logger.Info("ws write error", zap.Error(err))
				// Unblocks the reader; the loop below then cleans up.
				_ = conn.Close()
				for range client.send {
				}
				return
			}
		}
	}()

	h.service.Connect(client)
	ctx := r.Context()
	seen := make(map[int64]struct{})
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				client.logger.Info("ws read error", zap.Error(err))
			}
			break
		}
		h.handleMessage(ctx, client, raw, seen)
	}

	h.service.Disconnect(client, 0)
	for userID := range seen {
		h.service.Disconnect(client, userID)
	}
	client.close()
	<-writerDone
	client.logger.Debug("client disconnected")
}

func (h *WSHandler) handleMessage(ctx context.Context, client *wsConn, raw []byte, seen map[int64]struct{}) {
	env, cmd, err := decodeCommand(raw)
	if err != nil {
		h.reportError(client, err)
		return
	}
	caller, err := h.service.Authenticate(ctx, env.Token)
	if err != nil {
		h.reportError(client, err)
		return
	}
	seen[caller.ID] = struct{}{}
	h.service.Touch(caller, client)

	if err := cmd.validate(); err != nil {
		h.reportError(client, err)
		return
	}
	if err := h.dispatch(ctx, client, caller, cmd); err != nil {
		h.reportError(client, err)
	}
}

func (h *WSHandler) dispatch(ctx context.Context, client *wsConn, caller domain.Identity, cmd command) error {
	switch c := cmd.(type) {
	case *createRoomCommand:
		_, err := h.service.CreateRoom(ctx, caller, client, *c.Name, c.settings())
		return err
	case *joinRoomCommand:
		_, err := h.service.JoinRoom(ctx, caller, client, *c.RoomID)
		return err
	case *leaveRoomCommand:
		return h.service.LeaveRoom(ctx, caller)
	case *startGameCommand:
		return h.service.StartGame(ctx, caller, c.settings())
	case *sendAnswerCommand:
		mode, _ := app.ParseCheckMode(c.Check)
		return h.service.SubmitAnswer(ctx, caller, *c.TaskID, *c.Answer, mode)
	case *chatCommand:
		return h.service.SendChat(ctx, caller, *c.Message)
	case *gameStateCommand:
		state, err := h.service.GameState(ctx, caller)
		if err != nil {
			return err
		}
		return client.Send(domain.Event{Name: domain.EventGameState, Data: state})
	case *finishCommand:
		return h.service.Finish(ctx, caller, c.Times)
	case *playerTimesCommand:
		return h.service.ReportTimes(ctx, caller, c.Times)
	case unknownCommand:
		return c.validate()
	default:
		return fmt.Errorf("%w: %T", domain.ErrUnknownCommand, cmd)
	}
}

func (h *WSHandler) reportError(client *wsConn, err error) {
	if domain.KindOf(err) == domain.KindInternal {
		client.logger.Error("command failed", zap.Error(err))
	} else {
		client.logger.Debug("command rejected", zap.Error(err))
	}
	_ = client.Send(domain.NewErrorEvent(err))
}
