package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-catalog/pkg/enums"
)

// Item is a sellable catalog entry. Attribute and media order is carried by Position.
type Item struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name         string          `gorm:"column:name;not null"`
	Description  string          `gorm:"column:description;not null;default:''"`
	Price        decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	PrimaryImage string          `gorm:"column:primary_image;not null;default:''"`
	Stock        int             `gorm:"column:stock;not null;default:0"`
	TracksStock  bool            `gorm:"column:tracks_stock;not null;default:false"`
	Attributes   []ItemAttribute `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	Media        []ItemMedia     `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Item) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// ItemAttribute stores one owner-authored attribute of an item.
type ItemAttribute struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	ItemID     uuid.UUID `gorm:"column:item_id;type:uuid;not null;index;uniqueIndex:uq_item_attributes_position"`
	Position   int       `gorm:"column:position;not null;uniqueIndex:uq_item_attributes_position"`
	Name       string    `gorm:"column:name;not null"`
	Values     []string  `gorm:"column:attr_values;type:jsonb;serializer:json;not null"`
	IsCategory bool      `gorm:"column:is_category;not null;default:false"`
	IsLead     bool      `gorm:"column:is_lead;not null;default:false"`
}

func (a *ItemAttribute) BeforeCreate(*gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ItemMedia is a gallery entry.
type ItemMedia struct {
	ID       uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ItemID   uuid.UUID       `gorm:"column:item_id;type:uuid;not null;index"`
	Position int             `gorm:"column:position;not null"`
	Kind     enums.MediaKind `gorm:"column:kind;type:text;not null"`
	URL      string          `gorm:"column:url;not null"`
}

func (ItemMedia) TableName() string {
	return "item_media"
}

func (m *ItemMedia) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
