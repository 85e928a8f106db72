package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// LineItem is one (item, quantity) pair of a cart. Quantity is always >= 1
// once stored.
type LineItem struct {
	ItemID   string `json:"item"`
	Quantity int    `json:"quantity"`
}

// Cart is the set of line items owned by one user, keyed by item id.
type Cart struct {
	Lines []LineItem
}

// ResolvedLine is a line item joined with the catalog. Item is nil when the
// referenced item no longer exists.
type ResolvedLine struct {
	ItemID   string
	Item     *Item
	Quantity int
}

func (c *Cart) index(itemID string) int {
	id := NormalizeItemID(itemID)
	for i, line := range c.Lines {
		if NormalizeItemID(line.ItemID) == id {
			return i
		}
	}
	return -1
}

// Quantity returns the quantity held for itemID, or 0.
func (c *Cart) Quantity(itemID string) int {
	if i := c.index(itemID); i >= 0 {
		return c.Lines[i].Quantity
	}
	return 0
}

// Add increments the line for itemID by qty, inserting it when absent.
// A line whose quantity ends at or below zero is dropped.
func (c *Cart) Add(itemID string, qty int) {
	id := NormalizeItemID(itemID)
	if i := c.index(id); i >= 0 {
		c.Lines[i].Quantity += qty
		if c.Lines[i].Quantity <= 0 {
			c.removeAt(i)
		}
		return
	}
	if qty <= 0 {
		return
	}
	c.Lines = append(c.Lines, LineItem{ItemID: id, Quantity: qty})
}

// SetQuantity replaces the quantity of an existing line. qty <= 0 removes it.
func (c *Cart) SetQuantity(itemID string, qty int) error {
	i := c.index(itemID)
	if i < 0 {
		return ErrLineNotFound
	}
	if qty <= 0 {
		c.removeAt(i)
		return nil
	}
	c.Lines[i].Quantity = qty
	return nil
}

// Remove deletes the line for itemID.
func (c *Cart) Remove(itemID string) error {
	i := c.index(itemID)
	if i < 0 {
		return ErrLineNotFound
	}
	c.removeAt(i)
	return nil
}

func (c *Cart) Clear() {
	c.Lines = []LineItem{}
}

// Merge folds incoming lines into the cart additively, as repeated Add calls.
func (c *Cart) Merge(lines []LineItem) {
	for _, line := range lines {
		c.Add(line.ItemID, line.Quantity)
	}
}

// ItemIDs lists the referenced item ids in cart order.
func (c *Cart) ItemIDs() []string {
	ids := make([]string, 0, len(c.Lines))
	for _, line := range c.Lines {
		ids = append(ids, line.ItemID)
	}
	return ids
}

// Resolve joins the cart with catalog items keyed by id.
func (c *Cart) Resolve(items map[string]Item) []ResolvedLine {
	out := make([]ResolvedLine, 0, len(c.Lines))
	for _, line := range c.Lines {
		rl := ResolvedLine{ItemID: line.ItemID, Quantity: line.Quantity}
		if it, ok := items[NormalizeItemID(line.ItemID)]; ok {
			item := it
			rl.Item = &item
		}
		out = append(out, rl)
	}
	return out
}

func (c *Cart) removeAt(i int) {
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}

// NormalizeItemID canonicalizes an item identifier for comparison: UUIDs are
// rendered in lowercase hyphenated form, anything else is trimmed.
func NormalizeItemID(raw string) string {
	s := strings.TrimSpace(raw)
	if u, err := uuid.Parse(s); err == nil {
		return u.String()
	}
	return s
}

// ItemRef is an item reference as clients send it: a bare identifier or an
// object carrying "_id" or "id". Decoding always yields the normalized id.
type ItemRef string

func (r *ItemRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ItemRef(NormalizeItemID(s))
		return nil
	case '{':
		var obj struct {
			UnderscoreID *ItemRef `json:"_id"`
			ID           *ItemRef `json:"id"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		switch {
		case obj.UnderscoreID != nil && *obj.UnderscoreID != "":
			*r = *obj.UnderscoreID
		case obj.ID != nil:
			*r = *obj.ID
		default:
			*r = ""
		}
		return nil
	case '[', 't', 'f':
		return fmt.Errorf("item reference: unexpected JSON %s", data)
	default:
		*r = ItemRef(NormalizeItemID(string(data)))
		return nil
	}
}

func (r ItemRef) String() string { return string(r) }
