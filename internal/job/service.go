package job

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/garage/internal/apperr"
)

type Repository interface {
	GetJob(ctx context.Context, siteID, id uuid.UUID) (*Job, []LineItem, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, siteID, id uuid.UUID) (*Job, []LineItem, error) {
	j, lines, err := s.repo.GetJob(ctx, siteID, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil, apperr.Wrap(apperr.KindNotFound, err.Error(), err).WithOp("get job")
	}

	return j, lines, err
}
