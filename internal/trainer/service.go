package trainer

import (
	"context"

	"kickgym/internal/db"
	"kickgym/internal/logger"
)

type Service interface {
	Create(ctx context.Context, req CreateTrainerRequest) (*Trainer, error)
	List(ctx context.Context) ([]Trainer, error)
	Get(ctx context.Context, id int) (*Trainer, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateTrainerRequest) (*Trainer, error) {
	t, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, db.Wrap(err)
	}
	logger.Info("trainer created", "trainer_id", t.ID, "name", t.Name)
	return t, nil
}

func (s *service) List(ctx context.Context) ([]Trainer, error) {
	trainers, err := s.repo.List(ctx, true)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return trainers, nil
}

func (s *service) Get(ctx context.Context, id int) (*Trainer, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, db.Wrap(err)
	}
	return t, nil
}
