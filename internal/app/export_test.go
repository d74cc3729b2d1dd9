package service

import (
	"context"
	"time"

	"github.com/okian/genie/internal/domain/model"
)

func (s *Service) QueryStep(ctx context.Context) (time.Duration, error) { return s.queryStep(ctx) }

func (s *Service) PublishStep(ctx context.Context) (time.Duration, error) { return s.publishStep(ctx) }

func (s *Service) EnqueueRound(ctx context.Context, r *model.CompetitionRound) error {
	return s.scoring.Enqueue(ctx, r)
}
