package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"quiz-battle-service/internal/app"
	"quiz-battle-service/internal/domain"
)

// RoomsHandler serves the read-only room listing.
type RoomsHandler struct {
	service *app.BattleService
	logger  *zap.Logger
}

func NewRoomsHandler(service *app.BattleService, logger *zap.Logger) *RoomsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomsHandler{service: service, logger: logger}
}

func (h *RoomsHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": h.service.Rooms()})
}

func (h *RoomsHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	if !h.authorize(w, r) {
		return
	}
	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, domain.ErrMissingParam)
		return
	}
	room, err := h.service.Room(id)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomsHandler) authorize(w http.ResponseWriter, r *http.Request) bool {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	if _, err := h.service.Authenticate(r.Context(), token); err != nil {
		if errors.Is(err, domain.ErrUnauthorized) {
			writeError(w, http.StatusForbidden, err)
		} else {
			h.logger.Error("authenticate listing request", zap.Error(err))
			writeError(w, http.StatusInternalServerError, domain.ErrInternal)
		}
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, domain.ErrorPayload{Message: err.Error(), Kind: domain.KindOf(err)})
}
