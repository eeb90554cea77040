package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-catalog/internal/catalog"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

type snapshotRebuilder interface {
	Rebuild(ctx context.Context) ([]catalog.Item, error)
}

// NewSnapshotRefreshJob rebuilds the cached catalog from the database once
// per cycle, independent of catalog change events.
func NewSnapshotRefreshJob(logg *logger.Logger, cache snapshotRebuilder) (Job, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cache == nil {
		return nil, fmt.Errorf("snapshot cache required")
	}
	return &snapshotRefreshJob{logg: logg, cache: cache}, nil
}

type snapshotRefreshJob struct {
	logg  *logger.Logger
	cache snapshotRebuilder
}

func (j *snapshotRefreshJob) Name() string { return "snapshot_refresh" }

func (j *snapshotRefreshJob) Run(ctx context.Context) error {
	items, err := j.cache.Rebuild(ctx)
	if err != nil {
		return fmt.Errorf("rebuild snapshot: %w", err)
	}
	j.logg.Info(j.logg.WithField(ctx, "items", len(items)), "cron.snapshot_refreshed")
	return nil
}
