package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-catalog/pkg/db/models"
)

// GormStockStore reads and swaps items.stock. The compare-and-swap is a single
// conditional UPDATE so concurrent writers cannot both win.
type GormStockStore struct {
	db *gorm.DB
}

func NewGormStockStore(db *gorm.DB) *GormStockStore {
	return &GormStockStore{db: db}
}

func (s *GormStockStore) WithTx(tx *gorm.DB) *GormStockStore {
	if tx == nil {
		return s
	}
	return &GormStockStore{db: tx}
}

func (s *GormStockStore) Load(ctx context.Context, itemID uuid.UUID) (Level, error) {
	var row models.Item
	err := s.db.WithContext(ctx).
		Select("id", "stock", "tracks_stock").
		Where("id = ?", itemID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Level{}, ErrNotFound
		}
		return Level{}, err
	}
	return Level{Stock: row.Stock, TracksStock: row.TracksStock}, nil
}

func (s *GormStockStore) CompareAndSwap(ctx context.Context, itemID uuid.UUID, expected, next int) (bool, error) {
	if next < 0 {
		next = 0
	}
	res := s.db.WithContext(ctx).
		Model(&models.Item{}).
		Where("id = ? AND stock = ?", itemID, expected).
		Update("stock", next)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
