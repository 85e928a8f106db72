package seed

import (
	"context"
	"fmt"

	"shoplite/internal/db"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type itemSeed struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Category    string
	ImageURL    string
}

var catalog = []itemSeed{
	{"Wireless Headphones", "Bluetooth over-ear, noise cancelling, 30h battery.", decimal.NewFromInt(2599), "Electronics", "/images/headphones.svg"},
	{"Smartwatch", "Heart-rate, SpO₂, GPS and app notifications.", decimal.NewFromInt(4999), "Electronics", "/images/smartwatch.svg"},
	{"Bluetooth Speaker", "Portable 10W speaker with deep bass, IPX5.", decimal.NewFromInt(1499), "Electronics", "/images/bluetooth-speaker.svg"},
	{"Gaming Mouse", "Ergonomic, 6 buttons, 12,000 DPI optical sensor.", decimal.NewFromInt(1299), "Electronics", "/images/gaming-mouse.svg"},
	{"Power Bank 10000mAh", "Dual USB output, fast charge, LED indicators.", decimal.NewFromInt(1299), "Electronics", "/images/power-bank.svg"},

	{"Running Shoes", "Lightweight cushioning, breathable mesh upper.", decimal.NewFromInt(2999), "Sports", "/images/running-shoes.svg"},
	{"Yoga Mat", "6mm anti-skid mat for home workouts & yoga.", decimal.NewFromInt(699), "Sports", "/images/yoga-mat.svg"},
	{"Stainless Water Bottle 1L", "Insulated, keeps drinks cold for 18h.", decimal.NewFromInt(499), "Sports", "/images/water-bottle.svg"},

	{"Coffee Maker", "Drip brewer with reusable filter, 4-cup capacity.", decimal.NewFromInt(1799), "Home", "/images/coffee-maker.svg"},
	{"Electric Kettle", "1.7L auto shut-off, concealed heating element.", decimal.NewFromInt(899), "Home", "/images/electric-kettle.svg"},
	{"LED Desk Lamp", "3 color modes, touch dimmer, USB powered.", decimal.NewFromInt(1099), "Home", "/images/desk-lamp.svg"},
	{"Office Chair", "Ergonomic mesh back with lumbar support.", decimal.NewFromInt(6499), "Home", "/images/office-chair.svg"},
}

// Options tunes a seed run.
type Options struct {
	// Reset deletes every item before seeding.
	Reset bool
}

// Apply inserts the demo catalog. Items are matched by title, so running it
// twice leaves one row per demo item.
func Apply(ctx context.Context, q db.Querier, opts Options, logger *zap.Logger) (int, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Reset {
		tag, err := q.Exec(ctx, `DELETE FROM items`)
		if err != nil {
			return 0, fmt.Errorf("clear items: %w", err)
		}
		logger.Info("cleared items", zap.Int64("deleted", tag.RowsAffected()))
	}

	for _, it := range catalog {
		if err := upsertItem(ctx, q, it); err != nil {
			return 0, fmt.Errorf("upsert item %q: %w", it.Title, err)
		}
	}
	logger.Info("seeded items", zap.Int("count", len(catalog)))
	return len(catalog), nil
}

func upsertItem(ctx context.Context, q db.Querier, it itemSeed) error {
	const stmt = `
WITH updated AS (
    UPDATE items
    SET description = $2, price = $3::numeric, category = $4, image_url = $5, updated_at = now()
    WHERE title = $1
    RETURNING id
)
INSERT INTO items (title, description, price, category, image_url)
SELECT $1, $2, $3::numeric, $4, $5
WHERE NOT EXISTS (SELECT 1 FROM updated)
`
	_, err := q.Exec(ctx, stmt, it.Title, it.Description, it.Price.String(), it.Category, it.ImageURL)
	return err
}
