package item

import (
	"context"

	"shoplite/internal/domain"
)

type Repository interface {
	Search(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error)
	GetByID(ctx context.Context, id string) (*domain.Item, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Item, error)
	Create(ctx context.Context, it domain.Item) (*domain.Item, error)
	Update(ctx context.Context, id string, patch domain.ItemPatch) (*domain.Item, error)
	Delete(ctx context.Context, id string) error
}
