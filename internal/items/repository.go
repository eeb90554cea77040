package items

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	pkgdb "github.com/angelmondragon/storefront-catalog/pkg/db"
	"github.com/angelmondragon/storefront-catalog/pkg/db/models"
)

var (
	ErrNotFound = errors.New("item not found")
	// ErrConflict means a concurrent write claimed the same attribute slots.
	ErrConflict = errors.New("item edited concurrently")
)

func classifyWrite(err error) error {
	if pkgdb.IsUniqueViolation(err, "") {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}

// Repository persists catalog items with their ordered attributes and media.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func withPositions(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

// List returns every item in catalog order (oldest first).
func (r *Repository) List(ctx context.Context) ([]catalog.Item, error) {
	var rows []models.Item
	err := r.db.WithContext(ctx).
		Preload("Attributes", withPositions).
		Preload("Media", withPositions).
		Order("created_at ASC, id ASC").
		Find(&rows).
		Error
	if err != nil {
		return nil, err
	}
	out := make([]catalog.Item, 0, len(rows))
	for _, row := range rows {
		out = append(out, fromModel(row))
	}
	return out, nil
}

// FindByID loads one item with its associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (catalog.Item, error) {
	var row models.Item
	err := r.db.WithContext(ctx).
		Preload("Attributes", withPositions).
		Preload("Media", withPositions).
		Take(&row, "id = ?", id).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return catalog.Item{}, ErrNotFound
		}
		return catalog.Item{}, err
	}
	return fromModel(row), nil
}

// Create inserts the item and its children and returns the new id.
func (r *Repository) Create(ctx context.Context, it catalog.Item) (uuid.UUID, error) {
	row := toModel(it)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return uuid.Nil, classifyWrite(err)
	}
	return row.ID, nil
}

// Update overwrites the item columns and replaces attributes and media.
func (r *Repository) Update(ctx context.Context, it catalog.Item) error {
	row := toModel(it)
	tx := r.db.WithContext(ctx)
	res := tx.Model(&models.Item{}).
		Where("id = ?", it.ID).
		Updates(map[string]any{
			"name":          row.Name,
			"description":   row.Description,
			"price":         row.Price,
			"primary_image": row.PrimaryImage,
			"stock":         row.Stock,
			"tracks_stock":  row.TracksStock,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	if err := r.deleteChildren(tx, it.ID); err != nil {
		return err
	}
	if len(row.Attributes) > 0 {
		if err := tx.Create(&row.Attributes).Error; err != nil {
			return classifyWrite(err)
		}
	}
	if len(row.Media) > 0 {
		if err := tx.Create(&row.Media).Error; err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the item. Children are removed explicitly so drivers without
// cascading foreign keys behave the same.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := r.deleteChildren(tx, id); err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(&models.Item{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) deleteChildren(tx *gorm.DB, id uuid.UUID) error {
	if err := tx.Where("item_id = ?", id).Delete(&models.ItemAttribute{}).Error; err != nil {
		return err
	}
	return tx.Where("item_id = ?", id).Delete(&models.ItemMedia{}).Error
}
