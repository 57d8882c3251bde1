package services

import (
	"context"
	"strings"
	"time"

	"github.com/ahmetk3436/promptdesk/internal/models"
	"github.com/ahmetk3436/promptdesk/internal/store"
	"github.com/google/uuid"
)

// StatusService records client status checks.
type StatusService struct {
	store store.Store
}

func NewStatusService(st store.Store) *StatusService {
	return &StatusService{store: st}
}

func (s *StatusService) Create(ctx context.Context, clientName string) (*models.StatusCheck, error) {
	if strings.TrimSpace(clientName) == "" {
		return nil, invalid("client_name is required")
	}
	sc := &models.StatusCheck{
		ID:         uuid.NewString(),
		ClientName: clientName,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.store.CreateStatusCheck(ctx, sc); err != nil {
		return nil, err
	}
	return sc, nil
}

// List returns status checks newest first.
func (s *StatusService) List(ctx context.Context, skip, limit int) ([]models.StatusCheck, error) {
	if skip < 0 || limit < 0 {
		return nil, invalid("skip and limit must not be negative")
	}
	if limit == 0 {
		return []models.StatusCheck{}, nil
	}
	return s.store.ListStatusChecks(ctx, skip, limit)
}
