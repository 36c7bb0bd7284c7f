// Package pagination implements keyset paging over (created_at, id) in
// descending order. Cursors are opaque to clients.
package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

var ErrMalformedCursor = errors.New("malformed cursor")

// Params carries the raw query inputs. Limit is clamped by NormalizeLimit.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor identifies the last row already returned to the client.
type Cursor struct {
	CreatedAt time.Time `json:"t"`
	ID        uuid.UUID `json:"id"`
}

func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// Newest orders by (created_at, id) descending, resumes after cursor when it
// is set, and fetches one row past the page so Trim can detect a next page.
func Newest(cursor *Cursor, limit int) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if cursor != nil {
			db = db.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
		}
		return db.Order("created_at DESC").Order("id DESC").Limit(NormalizeLimit(limit) + 1)
	}
}

func EncodeCursor(c Cursor) string {
	raw, _ := json.Marshal(Cursor{CreatedAt: c.CreatedAt.UTC(), ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(raw)
}

// ParseCursor returns nil for a blank value, meaning the first page.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}
	if c.ID == uuid.Nil || c.CreatedAt.IsZero() {
		return nil, ErrMalformedCursor
	}
	return &c, nil
}

// Trim cuts rows fetched through Newest down to the page size. The returned
// cursor is empty on the last page.
func Trim[T any](rows []T, limit int, key func(T) Cursor) ([]T, string) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, ""
	}
	rows = rows[:limit]
	return rows, EncodeCursor(key(rows[len(rows)-1]))
}
