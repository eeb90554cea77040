package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	"github.com/angelmondragon/storefront-catalog/pkg/types"
)

// Order is a placed shopper order shown on the owner dashboard.
type Order struct {
	ID               uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CustomerName     string              `gorm:"column:customer_name;not null"`
	CustomerPhone    string              `gorm:"column:customer_phone;not null"`
	CustomerEmail    string              `gorm:"column:customer_email;not null"`
	Instructions     string              `gorm:"column:instructions;not null"`
	Status           enums.OrderStatus   `gorm:"column:status;type:text;not null"`
	PaymentMethod    enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentReference *string             `gorm:"column:payment_reference"`
	TotalAmount      decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Lines            []OrderLine         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderLine snapshots a resolved cart line at purchase time.
type OrderLine struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	ItemID          uuid.UUID             `gorm:"column:item_id;type:uuid;not null"`
	Name            string                `gorm:"column:name;not null"`
	UnitPrice       decimal.Decimal       `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Quantity        int                   `gorm:"column:quantity;not null"`
	Subtotal        decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	SelectedOptions types.SelectedOptions `gorm:"column:selected_options;type:jsonb;not null"`
	TracksStock     bool                  `gorm:"column:tracks_stock;not null;default:false"`
}

func (l *OrderLine) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
