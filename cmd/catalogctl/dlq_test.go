package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-catalog/pkg/db/models"
	"github.com/angelmondragon/storefront-catalog/pkg/enums"
	"github.com/angelmondragon/storefront-catalog/pkg/outbox"
)

type fakeDLQ struct {
	rows     []models.OutboxDLQ
	limit    int
	replayed []uuid.UUID
}

func (f *fakeDLQ) List(_ context.Context, limit int) ([]models.OutboxDLQ, error) {
	f.limit = limit
	return f.rows, nil
}

func (f *fakeDLQ) Replay(_ context.Context, id uuid.UUID) (uuid.UUID, error) {
	for _, row := range f.rows {
		if row.ID == id {
			f.replayed = append(f.replayed, id)
			return row.EventID, nil
		}
	}
	return uuid.Nil, outbox.ErrDLQEntryNotFound
}

func useFakeDLQ(t *testing.T, store *fakeDLQ) {
	t.Helper()
	prev := dlqStoreFor
	dlqStoreFor = func(context.Context) (dlqStore, func(), error) { return store, func() {}, nil }
	t.Cleanup(func() { dlqStoreFor = prev })
}

func TestDLQListPrintsEntries(t *testing.T) {
	msg := "publish timeout"
	entry := models.OutboxDLQ{
		ID:            uuid.New(),
		EventID:       uuid.New(),
		EventType:     enums.EventOrderPlaced,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		ErrorReason:   enums.OutboxDLQReasonMaxAttempts,
		ErrorMessage:  &msg,
		AttemptCount:  10,
		FailedAt:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	store := &fakeDLQ{rows: []models.OutboxDLQ{entry}}
	useFakeDLQ(t, store)

	out, err := run(t, "dlq", "list", "--limit", "5")
	require.NoError(t, err)
	assert.Equal(t, 5, store.limit)

	var views []dlqView
	require.NoError(t, json.Unmarshal([]byte(out), &views))
	require.Len(t, views, 1)
	assert.Equal(t, entry.EventID, views[0].EventID)
	assert.Equal(t, "order:"+entry.AggregateID.String(), views[0].Aggregate)
	assert.Equal(t, msg, views[0].Error)
}

func TestDLQReplayRequeuesEachEntry(t *testing.T) {
	entry := models.OutboxDLQ{ID: uuid.New(), EventID: uuid.New()}
	store := &fakeDLQ{rows: []models.OutboxDLQ{entry}}
	useFakeDLQ(t, store)

	out, err := run(t, "dlq", "replay", entry.ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, entry.EventID.String())
	assert.Equal(t, []uuid.UUID{entry.ID}, store.replayed)

	_, err = run(t, "dlq", "replay", "not-a-uuid")
	require.Error(t, err)

	_, err = run(t, "dlq", "replay", uuid.NewString())
	require.ErrorIs(t, err, outbox.ErrDLQEntryNotFound)
}
