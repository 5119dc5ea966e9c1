package pagination

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type row struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

func rowKey(r row) Cursor { return Cursor{CreatedAt: r.CreatedAt, ID: r.ID} }

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, DefaultLimit, NormalizeLimit(-5))
	require.Equal(t, 10, NormalizeLimit(10))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+1))
	require.Equal(t, 11, LimitWithBuffer(10))
}

func TestCursorRoundTrip(t *testing.T) {
	in := Cursor{CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 123, time.UTC), ID: uuid.New()}
	out, err := ParseCursor(EncodeCursor(in))
	require.NoError(t, err)
	require.True(t, in.CreatedAt.Equal(out.CreatedAt))
	require.Equal(t, in.ID, out.ID)

	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, empty)

	_, err = ParseCursor("%%%")
	require.Error(t, err)
}

func TestKeysetWalksAllRowsWithoutGaps(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&row{}))

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	seen := map[uuid.UUID]bool{}
	for i := 0; i < 7; i++ {
		// two rows share each timestamp to exercise the id tiebreak
		r := row{ID: uuid.New(), CreatedAt: base.Add(time.Duration(i/2) * time.Minute)}
		require.NoError(t, db.Create(&r).Error)
	}

	var cursor *Cursor
	pages := 0
	for {
		var rows []row
		require.NoError(t, Keyset(db.Model(&row{}), cursor, 3).Find(&rows).Error)
		page := Paginate(rows, 3, rowKey)
		for _, r := range page.Items {
			require.False(t, seen[r.ID], "row returned twice")
			seen[r.ID] = true
		}
		pages++
		if page.NextCursor == "" {
			break
		}
		cursor, err = ParseCursor(page.NextCursor)
		require.NoError(t, err)
	}
	require.Len(t, seen, 7)
	require.Equal(t, 3, pages)
}

func TestPaginateEmpty(t *testing.T) {
	page := Paginate[row](nil, 10, rowKey)
	require.NotNil(t, page.Items)
	require.Empty(t, page.Items)
	require.Empty(t, page.NextCursor)
}
