package service

import (
	"context"
	"errors"
	"strings"

	"spendview/internal/domain"
	"spendview/internal/repository"
)

// MaxHistoryItems es el tope de interacciones que devuelve /chat-history.
const MaxHistoryItems = 20

// HistoryService lista las interacciones recientes de una sesion.
type HistoryService struct {
	repo repository.InteractionRepository
	max  int
}

var (
	ErrHistoryDisabled = errors.New("chat history is disabled")
	ErrMissingSession  = errors.New("no session ID found")
)

func NewHistoryService(repo repository.InteractionRepository, max int) *HistoryService {
	if max <= 0 || max > MaxHistoryItems {
		max = MaxHistoryItems
	}
	return &HistoryService{repo: repo, max: max}
}

func (s *HistoryService) Enabled() bool {
	return s != nil && s.repo != nil
}

// ListRecent devuelve hasta limit interacciones, la mas nueva primero. limit fuera de 1..max se ajusta.
func (s *HistoryService) ListRecent(ctx context.Context, sessionID string, limit int) ([]domain.Interaction, error) {
	if !s.Enabled() {
		return nil, ErrHistoryDisabled
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, ErrMissingSession
	}
	if limit <= 0 || limit > s.max {
		limit = s.max
	}

	items, err := s.repo.ListRecentBySession(ctx, sessionID, limit)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Interaction{}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
