package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// DefaultLimit is the page size used when the caller sends none.
	DefaultLimit = 25
	// MaxLimit caps how many rows a single page may return.
	MaxLimit = 100
)

// Params carries cursor pagination inputs from controllers to services.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the keyset position of the last row on a page.
type Cursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Page is a window of rows plus the cursor for the following window.
type Page[T any] struct {
	Items      []T    `json:"items"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// NormalizeLimit applies DefaultLimit and MaxLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer is the normalized limit plus one row used to detect a next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

func EncodeCursor(cursor Cursor) string {
	payload := cursor.CreatedAt.UTC().Format(time.RFC3339Nano) + "|" + cursor.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}

// ParseCursor decodes a cursor string. An empty value yields a nil cursor.
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	rawTime, rawID, ok := strings.Cut(string(decoded), "|")
	if !ok {
		return nil, fmt.Errorf("invalid cursor format")
	}

	createdAt, err := time.Parse(time.RFC3339Nano, rawTime)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor id: %w", err)
	}
	return &Cursor{CreatedAt: createdAt, ID: id}, nil
}

// Keyset orders query newest first and resumes strictly after cursor.
// The caller's table must expose created_at and id columns.
func Keyset(query *gorm.DB, cursor *Cursor, limit int) *gorm.DB {
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	return query.Order("created_at DESC").Order("id DESC").Limit(LimitWithBuffer(limit))
}

// Paginate trims rows fetched with Keyset to the page size and derives the
// next cursor from the last kept row.
func Paginate[T any](rows []T, limit int, key func(T) Cursor) Page[T] {
	limit = NormalizeLimit(limit)
	page := Page[T]{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		page.NextCursor = EncodeCursor(key(rows[limit-1]))
	}
	if page.Items == nil {
		page.Items = []T{}
	}
	return page
}
