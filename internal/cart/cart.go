// Package cart keeps shopper carts of resolved variants in redis.
package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-catalog/internal/catalog"
)

// Line is a cart line with a stable identifier.
type Line struct {
	ID string `json:"id"`
	catalog.CartLine
}

// Cart is the shopper's basket.
type Cart struct {
	ID        string    `json:"id"`
	Lines     []Line    `json:"lines"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Total sums unit price times quantity over every line.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// ItemCount sums the quantities.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Lines {
		n += l.Quantity
	}
	return n
}

func (c *Cart) find(lineID string) int {
	for i, l := range c.Lines {
		if l.ID == lineID {
			return i
		}
	}
	return -1
}

// matching finds the line holding the same item with the same selections.
func (c *Cart) matching(line catalog.CartLine) int {
	for i, l := range c.Lines {
		if l.ItemID == line.ItemID && l.SelectedOptions.Equal(line.SelectedOptions) {
			return i
		}
	}
	return -1
}

// QuantityFor sums the quantity of every line for one item, across selections.
func (c *Cart) QuantityFor(line catalog.CartLine) int {
	n := 0
	for _, l := range c.Lines {
		if l.ItemID == line.ItemID {
			n += l.Quantity
		}
	}
	return n
}
