package item

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shoplite/internal/db"
	"shoplite/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
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

const itemColumns = `id::text, title, description, price::text, category, image_url, stock, created_at, updated_at`

// buildSearchQuery renders the listing query for f. Every filter is bound as a
// parameter; free text goes through websearch_to_tsquery so it is tokenized
// rather than matched as a substring.
func buildSearchQuery(f domain.ItemFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Search != nil && strings.TrimSpace(*f.Search) != "" {
		add("search_vector @@ websearch_to_tsquery('english', $%d)", strings.TrimSpace(*f.Search))
	}
	if f.Category != nil && *f.Category != "" {
		add("category = $%d", *f.Category)
	}
	if f.MinPrice != nil {
		add("price >= $%d::numeric", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		add("price <= $%d::numeric", f.MaxPrice.String())
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(itemColumns)
	b.WriteString("\nFROM items")
	if len(conds) > 0 {
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString("\nORDER BY created_at DESC, id")
	return b.String(), args
}

func (r *postgresRepo) Search(ctx context.Context, f domain.ItemFilter) ([]domain.Item, error) {
	q, args := buildSearchQuery(f)
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		r.logger.Error("item repo: search", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	result := []domain.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *it)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("item repo: search rows", zap.Error(err))
		return nil, err
	}
	r.logger.Debug("item repo: search", zap.Int("count", len(result)), zap.Int("filters", len(args)))
	return result, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrItemNotFound
	}
	const q = `
SELECT ` + itemColumns + `
FROM items
WHERE id = $1
`
	it, err := scanItem(r.pool.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		r.logger.Error("item repo: get", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return it, nil
}

// GetByIDs loads the items that still exist among ids, keyed by normalized id.
// Malformed and unknown ids are simply absent from the result.
func (r *postgresRepo) GetByIDs(ctx context.Context, ids []string) (map[string]domain.Item, error) {
	out := make(map[string]domain.Item, len(ids))
	valid := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		u, err := uuid.Parse(strings.TrimSpace(id))
		if err != nil {
			continue
		}
		s := u.String()
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		valid = append(valid, s)
	}
	if len(valid) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `
SELECT `+itemColumns+`
FROM items
WHERE id = ANY($1::uuid[])
`, valid)
	if err != nil {
		r.logger.Error("item repo: get many", zap.Int("ids", len(valid)), zap.Error(err))
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out[domain.NormalizeItemID(it.ID)] = *it
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresRepo) Create(ctx context.Context, it domain.Item) (*domain.Item, error) {
	const q = `
INSERT INTO items (title, description, price, category, image_url, stock)
VALUES ($1, $2, $3::numeric, $4, $5, $6)
RETURNING ` + itemColumns
	created, err := scanItem(r.pool.QueryRow(ctx, q,
		it.Title,
		it.Description,
		it.Price.String(),
		it.Category,
		it.ImageURL,
		it.Stock,
	))
	if err != nil {
		r.logger.Error("item repo: create", zap.String("title", it.Title), zap.Error(err))
		return nil, err
	}
	r.logger.Info("item repo: created", zap.String("id", created.ID), zap.String("title", created.Title))
	return created, nil
}

func (r *postgresRepo) Update(ctx context.Context, id string, p domain.ItemPatch) (*domain.Item, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrItemNotFound
	}
	if p.Empty() {
		return r.GetByID(ctx, id)
	}

	sets := []string{}
	args := []any{id}
	set := func(col string, arg any) {
		args = append(args, arg)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Title != nil {
		set("title", *p.Title)
	}
	if p.Description != nil {
		set("description", *p.Description)
	}
	if p.Price != nil {
		args = append(args, p.Price.String())
		sets = append(sets, fmt.Sprintf("price = $%d::numeric", len(args)))
	}
	if p.Category != nil {
		set("category", *p.Category)
	}
	if p.ImageURL != nil {
		set("image_url", *p.ImageURL)
	}
	if p.Stock != nil {
		set("stock", *p.Stock)
	}
	sets = append(sets, "updated_at = now()")

	q := "UPDATE items SET " + strings.Join(sets, ", ") + "\nWHERE id = $1\nRETURNING " + itemColumns
	updated, err := scanItem(r.pool.QueryRow(ctx, q, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		r.logger.Error("item repo: update", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	r.logger.Info("item repo: updated", zap.String("id", id))
	return updated, nil
}

// Delete removes the item. Deleting an absent item is not an error.
func (r *postgresRepo) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return nil
	}
	cmd, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("item repo: delete", zap.String("id", id), zap.Error(err))
		return err
	}
	r.logger.Info("item repo: deleted", zap.String("id", id), zap.Int64("rows", cmd.RowsAffected()))
	return nil
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var (
		it    domain.Item
		price string
	)
	if err := row.Scan(
		&it.ID,
		&it.Title,
		&it.Description,
		&price,
		&it.Category,
		&it.ImageURL,
		&it.Stock,
		&it.CreatedAt,
		&it.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(price)
	if err != nil {
		return nil, fmt.Errorf("item %s: parse price %q: %w", it.ID, price, err)
	}
	it.Price = d
	return &it, nil
}
