// Package guestcart is the pre-authentication cart kept in the client's local
// store. Lines carry a snapshot of the item taken when it was added.
//
// Unlike the server cart, quantities here never drop below 1: SetQuantity and
// BumpBy clamp, and only Remove deletes a line.
package guestcart

import (
	"encoding/json"
	"fmt"
	"sync"

	"shoplite/internal/domain"
	"shoplite/internal/localstore"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Key is the local store slot holding the guest cart.
const Key = "cart"

// Line is one guest cart entry.
type Line struct {
	ItemID   string          `json:"itemId"`
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	ImageURL string          `json:"imageUrl"`
	Qty      int             `json:"qty"`
}

// Snapshot captures the fields of an item stored with a guest line.
func Snapshot(it domain.Item) Line {
	return Line{
		ItemID:   domain.NormalizeItemID(it.ID),
		Title:    it.Title,
		Price:    it.Price,
		ImageURL: it.ImageURL,
	}
}

type Cart struct {
	store  localstore.Store
	logger *zap.Logger
	// serializes read-modify-write within this process; other tabs may still
	// overwrite, last write wins.
	mu sync.Mutex
}

func New(store localstore.Store, logger *zap.Logger) *Cart {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cart{store: store, logger: logger}
}

// Items returns the stored lines. Missing or unreadable data is an empty cart.
func (c *Cart) Items() []Line {
	raw, ok, err := c.store.Get(Key)
	if err != nil {
		c.logger.Warn("guest cart read failed", zap.Error(err))
		return []Line{}
	}
	if !ok {
		return []Line{}
	}
	return c.decode(raw)
}

func (c *Cart) decode(raw []byte) []Line {
	var lines []Line
	if err := json.Unmarshal(raw, &lines); err != nil {
		c.logger.Debug("guest cart unreadable, treating as empty", zap.Error(err))
		return []Line{}
	}
	if lines == nil {
		return []Line{}
	}
	return lines
}

// Add increments the line for l.ItemID by qty, inserting the snapshot when
// the item is not yet in the cart. qty below 1 counts as 1.
func (c *Cart) Add(l Line, qty int) ([]Line, error) {
	l.ItemID = domain.NormalizeItemID(l.ItemID)
	if l.ItemID == "" {
		return nil, fmt.Errorf("guestcart: item id required")
	}
	qty = max(qty, 1)
	return c.update(func(lines []Line) []Line {
		if i := find(lines, l.ItemID); i >= 0 {
			lines[i].Qty += qty
			return lines
		}
		l.Qty = qty
		return append(lines, l)
	})
}

// SetQuantity replaces the quantity of itemID, clamped to at least 1. Unknown
// items are ignored.
func (c *Cart) SetQuantity(itemID string, qty int) ([]Line, error) {
	return c.update(func(lines []Line) []Line {
		if i := find(lines, itemID); i >= 0 {
			lines[i].Qty = max(qty, 1)
		}
		return lines
	})
}

// BumpBy adds delta (which may be negative) to the quantity of itemID. The
// result never drops below 1.
func (c *Cart) BumpBy(itemID string, delta int) ([]Line, error) {
	return c.update(func(lines []Line) []Line {
		if i := find(lines, itemID); i >= 0 {
			lines[i].Qty = max(max(lines[i].Qty, 1)+delta, 1)
		}
		return lines
	})
}

func (c *Cart) Remove(itemID string) ([]Line, error) {
	return c.update(func(lines []Line) []Line {
		if i := find(lines, itemID); i >= 0 {
			return append(lines[:i], lines[i+1:]...)
		}
		return lines
	})
}

func (c *Cart) Clear() error {
	_, err := c.update(func([]Line) []Line { return []Line{} })
	return err
}

// Count is the sum of all quantities.
func (c *Cart) Count() int {
	n := 0
	for _, l := range c.Items() {
		n += max(l.Qty, 0)
	}
	return n
}

// Total is the sum of price times quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Items() {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(max(l.Qty, 0)))))
	}
	return total
}

// LineItems converts the guest cart into merge input for the server.
func (c *Cart) LineItems() []domain.LineItem {
	lines := c.Items()
	out := make([]domain.LineItem, 0, len(lines))
	for _, l := range lines {
		out = append(out, domain.LineItem{ItemID: l.ItemID, Quantity: max(l.Qty, 1)})
	}
	return out
}

// Subscribe calls fn with the current lines after every change to the cart
// slot, whether made here or in another view of the store. Local changes are
// delivered while the cart is locked, so fn must not mutate the cart.
func (c *Cart) Subscribe(fn func([]Line)) (unsubscribe func()) {
	return c.store.Subscribe(func(ev localstore.Event) {
		if ev.Key != Key {
			return
		}
		if ev.Deleted {
			fn([]Line{})
			return
		}
		fn(c.decode(ev.Value))
	})
}

func (c *Cart) update(mutate func([]Line) []Line) ([]Line, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	lines := mutate(c.Items())
	raw, err := json.Marshal(lines)
	if err != nil {
		return nil, fmt.Errorf("guestcart: encode: %w", err)
	}
	if err := c.store.Set(Key, raw); err != nil {
		return nil, fmt.Errorf("guestcart: save: %w", err)
	}
	return lines, nil
}

func find(lines []Line, itemID string) int {
	id := domain.NormalizeItemID(itemID)
	for i, l := range lines {
		if domain.NormalizeItemID(l.ItemID) == id {
			return i
		}
	}
	return -1
}
