package outbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-catalog/pkg/db/models"
)

const (
	defaultDLQPage = 50
	maxDLQPage     = 500
)

// ErrDLQEntryNotFound is returned by Replay for an unknown entry id.
var ErrDLQEntryNotFound = errors.New("dead-letter entry not found")

// DLQRepository keeps outbox rows the relay gave up on, for inspection and
// manual replay.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// InsertTx records entry inside the relay's transaction.
func (r *DLQRepository) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if entry.ErrorMessage != nil {
		msg := truncate(*entry.ErrorMessage)
		entry.ErrorMessage = &msg
	}
	return tx.Create(&entry).Error
}

// List returns the newest entries first. limit is clamped to [1, 500] with 50
// as the default.
func (r *DLQRepository) List(ctx context.Context, limit int) ([]models.OutboxDLQ, error) {
	switch {
	case limit <= 0:
		limit = defaultDLQPage
	case limit > maxDLQPage:
		limit = maxDLQPage
	}
	var rows []models.OutboxDLQ
	err := r.db.WithContext(ctx).Order("failed_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

// Replay hands a dead-lettered event back to the relay and removes the entry.
// The original outbox row gets a fresh attempt budget; if it is gone the
// stored payload is queued again under the same event id.
func (r *DLQRepository) Replay(ctx context.Context, entryID uuid.UUID) (uuid.UUID, error) {
	var eventID uuid.UUID
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.OutboxDLQ
		if err := tx.Take(&entry, "id = ?", entryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDLQEntryNotFound
			}
			return err
		}
		eventID = entry.EventID

		res := tx.Model(&models.OutboxEvent{}).
			Where("id = ? AND published_at IS NULL", entry.EventID).
			Updates(map[string]any{"attempt_count": 0, "last_error": nil})
		if res.Error != nil {
			return fmt.Errorf("reset outbox row %s: %w", entry.EventID, res.Error)
		}
		if res.RowsAffected == 0 {
			requeued := models.OutboxEvent{
				ID:            entry.EventID,
				EventType:     entry.EventType,
				AggregateType: entry.AggregateType,
				AggregateID:   entry.AggregateID,
				Payload:       entry.Payload,
			}
			if err := tx.Create(&requeued).Error; err != nil {
				return fmt.Errorf("requeue %s: %w", entry.EventID, err)
			}
		}
		return tx.Delete(&models.OutboxDLQ{}, "id = ?", entry.ID).Error
	})
	if err != nil {
		return uuid.Nil, err
	}
	return eventID, nil
}
