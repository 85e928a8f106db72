package user

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"shoplite/internal/db"
	"shoplite/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type postgresRepo struct {
	pool   db.Querier
	logger *zap.Logger
}

// NewPostgres returns a Repository backed by Postgres.
func NewPostgres(pool db.Querier, logger *zap.Logger) Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &postgresRepo{pool: pool, logger: logger}
}

const userColumns = `id::text, name, email, password_hash, is_admin, cart, created_at, updated_at`

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	cartJSON, err := encodeCart(u.Cart)
	if err != nil {
		return nil, err
	}
	const q = `
INSERT INTO users (name, email, password_hash, is_admin, cart)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + userColumns
	created, err := r.scanUser(r.pool.QueryRow(ctx, q,
		u.Name,
		strings.ToLower(strings.TrimSpace(u.Email)),
		u.PasswordHash,
		u.IsAdmin,
		cartJSON,
	))
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			r.logger.Debug("user repo: duplicate email", zap.String("email", u.Email))
		}
		return nil, err
	}
	return created, nil
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE lower(email) = lower($1)
LIMIT 1
`
	return r.scanUser(r.pool.QueryRow(ctx, q, strings.TrimSpace(email)))
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrUserNotFound
	}
	const q = `
SELECT ` + userColumns + `
FROM users
WHERE id = $1
LIMIT 1
`
	return r.scanUser(r.pool.QueryRow(ctx, q, id))
}

// SaveCart overwrites the stored cart. Concurrent writers race; the last one wins.
func (r *postgresRepo) SaveCart(ctx context.Context, userID string, cart domain.Cart) error {
	if _, err := uuid.Parse(userID); err != nil {
		return domain.ErrUserNotFound
	}
	cartJSON, err := encodeCart(cart)
	if err != nil {
		return err
	}
	cmd, err := r.pool.Exec(ctx, `
UPDATE users
SET cart = $2, updated_at = now()
WHERE id = $1
`, userID, cartJSON)
	if err != nil {
		r.logger.Error("user repo: save cart", zap.String("user_id", userID), zap.Error(err))
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	r.logger.Debug("user repo: cart saved", zap.String("user_id", userID), zap.Int("lines", len(cart.Lines)))
	return nil
}

func (r *postgresRepo) scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var cartJSON []byte
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.IsAdmin,
		&cartJSON,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		if db.IsUniqueViolation(err) {
			return nil, domain.ErrAlreadyExists
		}
		r.logger.Error("user repo: scan", zap.Error(err))
		return nil, err
	}
	cart, err := decodeCart(cartJSON)
	if err != nil {
		r.logger.Error("user repo: decode cart", zap.String("user_id", u.ID), zap.Error(err))
		return nil, err
	}
	u.Cart = cart
	return &u, nil
}

func encodeCart(c domain.Cart) ([]byte, error) {
	lines := c.Lines
	if lines == nil {
		lines = []domain.LineItem{}
	}
	return json.Marshal(lines)
}

func decodeCart(raw []byte) (domain.Cart, error) {
	var c domain.Cart
	if len(raw) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c.Lines); err != nil {
		return c, err
	}
	return c, nil
}
