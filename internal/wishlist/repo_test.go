package wishlist

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercatolabs/storefront-backend/pkg/db/models"
)

func setupWishlistTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS wishlist_items (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  listing_id TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (user_id, listing_id)
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedWishlistRow(t *testing.T, repo Repository, userID, listingID uuid.UUID, at time.Time) *models.WishlistItem {
	t.Helper()
	item := &models.WishlistItem{
		ID:        uuid.New(),
		UserID:    userID,
		ListingID: listingID,
		CreatedAt: at,
	}
	require.NoError(t, repo.Create(context.Background(), item))
	return item
}

func TestWishlistRepoFindByUserAndListing(t *testing.T) {
	db := setupWishlistTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	listingID := uuid.New()

	seeded := seedWishlistRow(t, repo, userID, listingID, time.Now().UTC())

	found, err := repo.FindByUserAndListing(context.Background(), userID, listingID)
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, found.ID)

	_, err = repo.FindByUserAndListing(context.Background(), userID, uuid.New())
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestWishlistRepoListByUserNewestFirst(t *testing.T) {
	db := setupWishlistTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	older := seedWishlistRow(t, repo, userID, uuid.New(), time.Now().UTC().Add(-time.Hour))
	newer := seedWishlistRow(t, repo, userID, uuid.New(), time.Now().UTC())
	seedWishlistRow(t, repo, uuid.New(), uuid.New(), time.Now().UTC())

	rows, err := repo.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, newer.ID, rows[0].ID)
	assert.Equal(t, older.ID, rows[1].ID)
}

func TestWishlistRepoDeleteByUser(t *testing.T) {
	db := setupWishlistTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	otherID := uuid.New()

	seedWishlistRow(t, repo, userID, uuid.New(), time.Now().UTC())
	seedWishlistRow(t, repo, userID, uuid.New(), time.Now().UTC())
	kept := seedWishlistRow(t, repo, otherID, uuid.New(), time.Now().UTC())

	require.NoError(t, repo.DeleteByUser(context.Background(), userID))

	rows, err := repo.ListByUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	otherRows, err := repo.ListByUser(context.Background(), otherID)
	require.NoError(t, err)
	require.Len(t, otherRows, 1)
	assert.Equal(t, kept.ID, otherRows[0].ID)
}
