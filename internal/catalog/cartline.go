package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-catalog/pkg/types"
)

// CartLine is a resolved variant handed to the cart together with the
// attribute values the shopper picked on the way.
type CartLine struct {
	ItemID          uuid.UUID             `json:"itemId"`
	Name            string                `json:"name"`
	Image           string                `json:"image,omitempty"`
	UnitPrice       decimal.Decimal       `json:"unitPrice"`
	Quantity        int                   `json:"quantity"`
	SelectedOptions types.SelectedOptions `json:"selectedOptions"`
	TracksStock     bool                  `json:"tracksStock"`
}

// Subtotal is unit price times quantity.
func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// NewCartLine builds a line for it with the given selections.
func NewCartLine(it Item, qty int, selected types.SelectedOptions) CartLine {
	return CartLine{
		ItemID:          it.ID,
		Name:            it.Name,
		Image:           it.DisplayImage(),
		UnitPrice:       it.Price,
		Quantity:        qty,
		SelectedOptions: selected.Clone(),
		TracksStock:     it.TracksStock,
	}
}
