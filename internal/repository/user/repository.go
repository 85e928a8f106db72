package user

import (
	"context"

	"shoplite/internal/domain"
)

// Repository persists users together with their cart document.
type Repository interface {
	Create(ctx context.Context, u domain.User) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	SaveCart(ctx context.Context, userID string, cart domain.Cart) error
}
