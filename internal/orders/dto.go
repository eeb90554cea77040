package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-catalog/pkg/db/models"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	pkgpagination "github.com/angelmondragon/storefront-catalog/pkg/pagination"
	"github.com/angelmondragon/storefront-catalog/pkg/types"
)

type ListParams struct {
	Status enums.OrderStatus
	pkgpagination.Params
}

type ListResult struct {
	Orders []OrderDTO                  `json:"orders"`
	Cursor string                      `json:"cursor"`
	Counts map[enums.OrderStatus]int64 `json:"counts"`
}

type OrderDTO struct {
	ID               uuid.UUID           `json:"id"`
	CustomerName     string              `json:"customer_name"`
	CustomerPhone    string              `json:"customer_phone"`
	CustomerEmail    string              `json:"customer_email"`
	Instructions     string              `json:"instructions"`
	Status           enums.OrderStatus   `json:"status"`
	PaymentMethod    enums.PaymentMethod `json:"payment_method"`
	PaymentReference *string             `json:"payment_reference,omitempty"`
	TotalAmount      string              `json:"total_amount"`
	Lines            []LineDTO           `json:"lines"`
	CreatedAt        time.Time           `json:"created_at"`
}

type LineDTO struct {
	ItemID          uuid.UUID             `json:"item_id"`
	Name            string                `json:"name"`
	UnitPrice       string                `json:"unit_price"`
	Quantity        int                   `json:"quantity"`
	Subtotal        string                `json:"subtotal"`
	SelectedOptions types.SelectedOptions `json:"selected_options"`
}

func FromModel(m models.Order) OrderDTO {
	out := OrderDTO{
		ID:               m.ID,
		CustomerName:     m.CustomerName,
		CustomerPhone:    m.CustomerPhone,
		CustomerEmail:    m.CustomerEmail,
		Instructions:     m.Instructions,
		Status:           m.Status,
		PaymentMethod:    m.PaymentMethod,
		PaymentReference: m.PaymentReference,
		TotalAmount:      m.TotalAmount.StringFixed(2),
		Lines:            make([]LineDTO, 0, len(m.Lines)),
		CreatedAt:        m.CreatedAt,
	}
	for _, l := range m.Lines {
		out.Lines = append(out.Lines, LineDTO{
			ItemID:          l.ItemID,
			Name:            l.Name,
			UnitPrice:       l.UnitPrice.StringFixed(2),
			Quantity:        l.Quantity,
			Subtotal:        l.Subtotal.StringFixed(2),
			SelectedOptions: l.SelectedOptions,
		})
	}
	return out
}
