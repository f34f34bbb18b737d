package repository

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/gallery/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func seed(t *testing.T, repo *ImageRepository, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		img := &domain.Image{
			ID:          fmt.Sprintf("img-%02d", i),
			Title:       fmt.Sprintf("Image %d", i),
			Description: "seeded",
			URL:         fmt.Sprintf("https://x/%d.png", i),
			Ts:          int64(100 + i/2), // pairs share a timestamp
		}
		require.NoError(t, repo.Create(context.Background(), img))
	}
}

func TestImageRepository_CreateAssignsIDAndTs(t *testing.T) {
	repo := NewImageRepository(setupDB(t))

	img := &domain.Image{Title: "Sunset", Description: "Orange", URL: "https://x/s.png"}
	require.NoError(t, repo.Create(context.Background(), img))
	assert.NotEmpty(t, img.ID)
	assert.NotZero(t, img.Ts)

	got, err := repo.GetByID(context.Background(), img.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sunset", got.Title)
}

func TestImageRepository_ListAfterWalksAllPages(t *testing.T) {
	repo := NewImageRepository(setupDB(t))
	seed(t, repo, 7)

	var seen []string
	cursor := ""
	pages := 0
	for {
		items, next, err := repo.ListAfter(context.Background(), cursor, 3)
		require.NoError(t, err)
		pages++
		for _, img := range items {
			seen = append(seen, img.ID)
		}
		if next == "" {
			break
		}
		cursor = next
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"img-00", "img-01", "img-02", "img-03", "img-04", "img-05", "img-06"}, seen)

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), count)
}

func TestImageRepository_ListAfterExactMultiple(t *testing.T) {
	repo := NewImageRepository(setupDB(t))
	seed(t, repo, 4)

	items, next, err := repo.ListAfter(context.Background(), "", 4)
	require.NoError(t, err)
	assert.Len(t, items, 4)
	assert.Empty(t, next, "no cursor when nothing follows")
}

func TestImageRepository_ListAfterEmpty(t *testing.T) {
	repo := NewImageRepository(setupDB(t))

	items, next, err := repo.ListAfter(context.Background(), "", 6)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Empty(t, next)
}

func TestImageRepository_InvalidCursor(t *testing.T) {
	repo := NewImageRepository(setupDB(t))

	for _, cursor := range []string{"!!!", encodeRaw("no-colon"), encodeRaw("abc:id"), encodeRaw("12:")} {
		_, _, err := repo.ListAfter(context.Background(), cursor, 3)
		assert.ErrorIs(t, err, ErrInvalidCursor, cursor)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	ts, id, err := DecodeCursor(EncodeCursor(1700000000123456, "a:b"))
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123456), ts)
	assert.Equal(t, "a:b", id)
}

// encodeRaw encodes an arbitrary payload the way cursors are encoded.
func encodeRaw(payload string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(payload))
}
