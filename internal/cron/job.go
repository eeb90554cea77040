// Package cron runs periodic maintenance for the storefront: pruning the
// outbox and refreshing the catalog snapshot when events were missed.
package cron

import (
	"context"

	"gorm.io/gorm"
)

// Job is one maintenance task. Jobs in a cycle run in registration order and
// a failing job does not stop the ones after it.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
