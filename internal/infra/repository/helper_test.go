package repository

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/totegamma/community/internal/domain"
	"github.com/totegamma/community/internal/infra/database"
)

type queryCounter struct {
	n int
}

// newTestDB opens a private in-memory sqlite database with the full schema.
// The returned counter is incremented once per SELECT round trip.
func newTestDB(t *testing.T) (*gorm.DB, *queryCounter) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, database.Migrate(db))

	counter := &queryCounter{}
	err = db.Callback().Query().After("gorm:query").Register("test:count_queries", func(*gorm.DB) {
		counter.n++
	})
	require.NoError(t, err)

	return db, counter
}

func createPost(t *testing.T, store *Store, accountID int64, title string, mutate ...func(*domain.Post)) domain.Post {
	t.Helper()
	ctx := context.Background()

	author, err := store.Authors().FindMember(ctx, accountID)
	if err != nil {
		author, err = store.Authors().CreateMember(ctx, accountID, "member")
		require.NoError(t, err)
	}

	post := domain.Post{
		Title:    title,
		Content:  "content of " + title,
		Category: domain.CategoryFreeBoard,
		Author:   author,
	}
	for _, m := range mutate {
		m(&post)
	}
	post, err = store.Posts().Create(ctx, post)
	require.NoError(t, err)
	return post
}
