package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"spendview/internal/domain"
	"spendview/internal/service"
)

// HistoryHandler atiende GET /chat-history.
type HistoryHandler struct {
	logger  *zap.Logger
	history *service.HistoryService
}

func NewHistoryHandler(logger *zap.Logger, history *service.HistoryService) *HistoryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryHandler{logger: logger, history: history}
}

type historyItem struct {
	domain.Interaction
	HasImage bool `json:"has_image"`
	HasAudio bool `json:"has_audio"`
}

// List devuelve las ultimas interacciones de la sesion, la mas nueva primero.
func (h *HistoryHandler) List(c *gin.Context) {
	session, ok := GetSession(c)
	if !ok || session.ID == "" {
		respondError(c, service.ErrMissingSession)
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	items, err := h.history.ListRecent(c.Request.Context(), session.ID, limit)
	if err != nil {
		if !errors.Is(err, service.ErrHistoryDisabled) {
			h.logger.Error("list history failed", zap.String("session_id", session.ID), zap.Error(err))
		}
		respondError(c, err)
		return
	}

	out := make([]historyItem, 0, len(items))
	for _, it := range items {
		out = append(out, historyItem{Interaction: it, HasImage: it.HasImage(), HasAudio: it.HasAudio()})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": out})
}
