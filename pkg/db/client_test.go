package db

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-catalog/pkg/config"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
)

type testModel struct {
	ID   int
	Name string `gorm:"uniqueIndex"`
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file:db_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}

func TestWithTx_CommitsAndRollbacks(t *testing.T) {
	db := newTestDB(t)
	client := NewFromConn(db)

	ctx := context.Background()
	if err := client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Create(&testModel{Name: "committed"}).Error
	}); err != nil {
		t.Fatalf("WithTx commit failed: %v", err)
	}

	err := client.WithTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&testModel{Name: "rolled"}).Error; err != nil {
			return err
		}
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected WithTx to return an error")
	}

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed after rollback: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected rollback to keep 1 record, got %d", count)
	}
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	db := newTestDB(t)
	client := NewFromConn(db)

	func() {
		defer func() {
			if r := recover(); r == nil {
				t.Fatalf("expected panic to propagate")
			}
		}()
		_ = client.WithTx(context.Background(), func(tx *gorm.DB) error {
			if err := tx.Create(&testModel{Name: "panicky"}).Error; err != nil {
				return err
			}
			panic("boom")
		})
	}()

	var count int64
	if err := db.Model(&testModel{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no rows after panic, got %d", count)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := newTestDB(t)
	if err := db.Create(&testModel{Name: "dup"}).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	err := db.Create(&testModel{Name: "dup"}).Error
	if !IsUniqueViolation(err, "") {
		t.Fatalf("expected sqlite unique violation, got %v", err)
	}

	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_orders_ref"}
	if !IsUniqueViolation(pgErr, "ux_orders_ref") {
		t.Fatalf("expected pg constraint match")
	}
	if IsUniqueViolation(pgErr, "other") {
		t.Fatalf("unexpected match on different constraint")
	}
	if IsUniqueViolation(&pgconn.PgError{Code: "23503"}, "") {
		t.Fatalf("foreign key violation should not match")
	}
	if IsUniqueViolation(nil, "") {
		t.Fatalf("nil should not match")
	}
}

func TestDialectorFor(t *testing.T) {
	if _, err := dialectorFor(config.DBConfig{Driver: "postgres"}); err == nil {
		t.Fatal("expected missing DSN error")
	}
	if _, err := dialectorFor(config.DBConfig{DSN: "x", Driver: "mysql"}); err == nil {
		t.Fatal("expected unsupported driver error")
	}
	for driver, want := range map[string]string{"": "postgres", "Postgres": "postgres", "sqlite": "sqlite"} {
		d, err := dialectorFor(config.DBConfig{DSN: "file::memory:", Driver: driver})
		if err != nil {
			t.Fatalf("driver %q: %v", driver, err)
		}
		if d.Name() != want {
			t.Fatalf("driver %q: got dialector %s", driver, d.Name())
		}
	}
}

func TestQueryLoggerWritesSlowAndFailedStatements(t *testing.T) {
	var buf bytes.Buffer
	q := queryLogger{logg: logger.New(logger.Options{ServiceName: "db-test", Output: &buf}), slow: time.Millisecond}
	stmt := func() (string, int64) { return "SELECT * FROM items", 3 }

	q.Trace(context.Background(), time.Now(), stmt, gorm.ErrRecordNotFound)
	if buf.Len() != 0 {
		t.Fatalf("fast not-found lookups should stay quiet: %s", buf.String())
	}
	q.Trace(context.Background(), time.Now().Add(-time.Second), stmt, nil)
	if !strings.Contains(buf.String(), "slow query") || !strings.Contains(buf.String(), `"rows":3`) {
		t.Fatalf("expected slow query line: %s", buf.String())
	}
	buf.Reset()
	q.Trace(context.Background(), time.Now(), stmt, errors.New("deadlock detected"))
	if !strings.Contains(buf.String(), "query failed") || !strings.Contains(buf.String(), "deadlock detected") {
		t.Fatalf("expected failed query line: %s", buf.String())
	}
}
