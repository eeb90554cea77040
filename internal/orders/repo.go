package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-catalog/pkg/db/models"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	pkgpagination "github.com/angelmondragon/storefront-catalog/pkg/pagination"
)

var (
	ErrNotFound      = errors.New("order not found")
	ErrStatusChanged = errors.New("order status changed concurrently")
)

// Repository persists orders and their lines.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the order together with its lines.
func (r *Repository) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Take(&order, "id = ?", id).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

type listQuery struct {
	status enums.OrderStatus
	limit  int
	cursor *pkgpagination.Cursor
}

// List returns orders of one status, newest first, using cursor pagination.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Order, error) {
	query := r.db.WithContext(ctx).Model(&models.Order{}).Preload("Lines").Where("status = ?", opts.status)
	if opts.cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", opts.cursor.CreatedAt, opts.cursor.CreatedAt, opts.cursor.ID)
	}
	query = query.Order("created_at DESC").Order("id DESC").Limit(opts.limit)

	var rows []models.Order
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CountByStatus returns how many orders sit in each status.
func (r *Repository) CountByStatus(ctx context.Context) (map[enums.OrderStatus]int64, error) {
	type row struct {
		Status enums.OrderStatus
		Count  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).
		Error
	if err != nil {
		return nil, err
	}
	out := map[enums.OrderStatus]int64{}
	for _, c := range rows {
		out[c.Status] = c.Count
	}
	return out, nil
}

// UpdateStatus moves an order from one status to another. It fails with
// ErrStatusChanged when the stored status is no longer from.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStatusChanged
	}
	return nil
}

// Delete removes the order and its lines.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("order_id = ?", id).Delete(&models.OrderLine{}).Error; err != nil {
		return err
	}
	res := tx.Where("id = ?", id).Delete(&models.Order{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
