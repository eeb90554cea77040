// Package pagination implements keyset pages ordered newest first by
// (created_at, id). Cursors are opaque and safe to put in a query string.
package pagination

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100

	cursorLen = 8 + 16
)

var errCursorLength = errors.New("cursor has the wrong length")

// Params holds the page request as it arrives from a controller.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor identifies the last row of the previous page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// NormalizeLimit maps a missing limit to DefaultLimit and caps it at MaxLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// LimitWithBuffer is the row count to fetch: one past the page, so the caller
// can tell whether another page follows.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// Trim cuts rows fetched with LimitWithBuffer back to the page and reports
// whether more rows follow.
func Trim[T any](rows []T, limit int) ([]T, bool) {
	limit = NormalizeLimit(limit)
	if len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}

// EncodeCursor packs the timestamp in nanoseconds followed by the id bytes.
func EncodeCursor(c Cursor) string {
	buf := make([]byte, cursorLen)
	binary.BigEndian.PutUint64(buf, uint64(c.CreatedAt.UnixNano()))
	copy(buf[8:], c.ID[:])
	return base64.RawURLEncoding.EncodeToString(buf)
}

// ParseCursor reverses EncodeCursor. A blank value means the first page and
// yields a nil cursor.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	if len(raw) != cursorLen {
		return nil, errCursorLength
	}
	id, err := uuid.FromBytes(raw[8:])
	if err != nil {
		return nil, fmt.Errorf("cursor id: %w", err)
	}
	return &Cursor{
		CreatedAt: time.Unix(0, int64(binary.BigEndian.Uint64(raw))).UTC(),
		ID:        id,
	}, nil
}
