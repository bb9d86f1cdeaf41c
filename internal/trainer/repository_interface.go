package trainer

import "context"

type Repository interface {
	Create(ctx context.Context, req CreateTrainerRequest) (*Trainer, error)
	List(ctx context.Context, onlyActive bool) ([]Trainer, error)
	GetByID(ctx context.Context, id int) (*Trainer, error)
	// GetByIDForUpdate locks the trainer row; reservations use it to guard slot capacity.
	GetByIDForUpdate(ctx context.Context, id int) (*Trainer, error)
}
