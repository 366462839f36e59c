package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totegamma/community/internal/domain"
	"github.com/totegamma/community/internal/usecase"
)

func TestPostCreateGetUpdate(t *testing.T) {
	db, _ := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	post := createPost(t, store, 1, "hello", func(p *domain.Post) { p.Tags = []string{"wine", "beer"} })

	got, err := store.Posts().Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Title)
	assert.Equal(t, []string{"wine", "beer"}, got.Tags)
	assert.Equal(t, domain.Member{AccountID: 1, DisplayName: "member"}, got.Author.Identity)

	got.Title = "changed"
	got.Category = domain.CategoryQnA
	got.Tags = []string{"soju"}
	updated, err := store.Posts().Update(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "changed", updated.Title)
	assert.Equal(t, domain.CategoryQnA, updated.Category)
	assert.Equal(t, []string{"soju"}, updated.Tags)

	_, err = store.Posts().Get(ctx, 9999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestPostCounters(t *testing.T) {
	db, _ := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	post := createPost(t, store, 1, "p")

	require.NoError(t, store.Posts().IncrementViews(ctx, post.ID))
	require.NoError(t, store.Posts().IncrementViews(ctx, post.ID))
	require.NoError(t, store.Posts().AdjustLikes(ctx, post.ID, 1))
	require.NoError(t, store.Posts().AdjustLikes(ctx, post.ID, -1))
	require.NoError(t, store.Posts().AdjustLikes(ctx, post.ID, -1))

	got, err := store.Posts().Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Views)
	assert.Equal(t, int64(0), got.Likes)

	assert.ErrorIs(t, store.Posts().IncrementViews(ctx, 9999), domain.ErrNotFound)
}

func titles(page domain.Page[domain.PostSummary]) []string {
	out := make([]string, len(page.Content))
	for i, p := range page.Content {
		out[i] = p.Title
	}
	return out
}

func TestPostListings(t *testing.T) {
	db, _ := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	req := domain.PageRequest{Size: 10}

	createPost(t, store, 1, "Red Wine Notes", func(p *domain.Post) {
		p.Tags = []string{"wine"}
		p.Category = domain.CategoryLiquorReview
	})
	createPost(t, store, 2, "cheap beer", func(p *domain.Post) { p.Tags = []string{"beer"} })
	createPost(t, store, 1, "question", func(p *domain.Post) { p.Category = domain.CategoryQnA })

	page, err := store.Posts().ListByTag(ctx, "wine", req)
	require.NoError(t, err)
	assert.Equal(t, []string{"Red Wine Notes"}, titles(page))

	page, err = store.Posts().Search(ctx, "WINE", req)
	require.NoError(t, err)
	assert.Equal(t, []string{"Red Wine Notes"}, titles(page))

	page, err = store.Posts().ListRecent(ctx, "", req)
	require.NoError(t, err)
	assert.Equal(t, []string{"question", "cheap beer", "Red Wine Notes"}, titles(page))

	page, err = store.Posts().ListRecent(ctx, domain.CategoryFreeBoard, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"cheap beer"}, titles(page))

	page, err = store.Posts().ListByMember(ctx, 1, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"question", "Red Wine Notes"}, titles(page))

	tags, err := store.Posts().AllTags(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"beer", "wine"}, tags)
}

func TestPostSearchMatchesWildcardsLiterally(t *testing.T) {
	db, _ := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	req := domain.PageRequest{Page: 0, Size: 10}

	createPost(t, store, 1, "100% malt")
	createPost(t, store, 1, "snake_case tips")
	createPost(t, store, 1, "plain title")
	createPost(t, store, 1, `C:\path`)

	page, err := store.Posts().Search(ctx, "%", req)
	require.NoError(t, err)
	assert.Equal(t, []string{"100% malt"}, titles(page))

	page, err = store.Posts().Search(ctx, "_", req)
	require.NoError(t, err)
	assert.Equal(t, []string{"snake_case tips"}, titles(page))

	page, err = store.Posts().Search(ctx, `\`, req)
	require.NoError(t, err)
	assert.Equal(t, []string{`C:\path`}, titles(page))

	page, err = store.Posts().Search(ctx, "0% M", req)
	require.NoError(t, err)
	assert.Equal(t, []string{"100% malt"}, titles(page))
}

func TestPostPopularListings(t *testing.T) {
	db, _ := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	req := domain.PageRequest{Size: 10}

	a := createPost(t, store, 1, "a")
	b := createPost(t, store, 1, "b")
	c := createPost(t, store, 1, "c", func(p *domain.Post) { p.Category = domain.CategoryEvent })

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Posts().IncrementViews(ctx, a.ID))
	}
	require.NoError(t, store.Posts().IncrementViews(ctx, c.ID))
	require.NoError(t, store.Posts().AdjustLikes(ctx, b.ID, 2))
	require.NoError(t, store.Posts().AdjustLikes(ctx, c.ID, 1))

	page, err := store.Posts().ListPopularByViews(ctx, "", req)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "b"}, titles(page))

	page, err = store.Posts().ListPopularByLikes(ctx, "", req)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, titles(page))

	page, err = store.Posts().ListPopularByLikes(ctx, domain.CategoryFreeBoard, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, titles(page))
}

func TestPostSummaryCounts(t *testing.T) {
	db, _ := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	post := createPost(t, store, 1, "p")
	createPost(t, store, 1, "q")
	author, err := store.Authors().FindMember(ctx, 1)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := store.Comments().Create(ctx, domain.Comment{PostID: post.ID, Content: "c", Author: author})
		require.NoError(t, err)
	}
	_, err = store.Attachments().Create(ctx, domain.Attachment{PostID: post.ID, OriginalName: "a.png", StoredName: "a.png", URL: "/uploads/a.png"})
	require.NoError(t, err)
	require.NoError(t, store.Likes().Add(ctx, 5, post.ID))

	page, err := store.Posts().ListRecent(ctx, "", domain.PageRequest{Size: 10})
	require.NoError(t, err)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "q", page.Content[0].Title)
	assert.Equal(t, int64(0), page.Content[0].CommentCount)
	assert.False(t, page.Content[0].HasAttachments)
	assert.Equal(t, int64(2), page.Content[1].CommentCount)
	assert.True(t, page.Content[1].HasAttachments)

	liked, err := store.Posts().ListLikedBy(ctx, 5, domain.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"p"}, titles(liked))
}

func TestPostPagination(t *testing.T) {
	db, _ := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		createPost(t, store, 1, "p")
	}

	page, err := store.Posts().ListRecent(ctx, "", domain.PageRequest{Page: 2, Size: 2})
	require.NoError(t, err)
	assert.Len(t, page.Content, 1)
	assert.Equal(t, int64(5), page.TotalElements)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.Last)
	assert.False(t, page.HasNext)
	assert.True(t, page.HasPrevious)

	page, err = store.Posts().ListRecent(ctx, "", domain.PageRequest{Page: 9, Size: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.Equal(t, int64(5), page.TotalElements)
}

func TestPostDelete(t *testing.T) {
	db, _ := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	post := createPost(t, store, 1, "p", func(p *domain.Post) { p.Tags = []string{"x"} })

	require.NoError(t, store.Posts().Delete(ctx, post.ID))
	_, err := store.Posts().Get(ctx, post.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, store.Posts().Delete(ctx, post.ID), domain.ErrNotFound)

	tags, err := store.Posts().AllTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestStoreAtomicRollsBack(t *testing.T) {
	db, _ := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.Atomic(ctx, func(tx usecase.Store) error {
		author, err := tx.Authors().CreateMember(ctx, 3, "carol")
		if err != nil {
			return err
		}
		if _, err := tx.Posts().Create(ctx, domain.Post{Title: "t", Content: "c", Category: domain.CategoryQnA, Author: author}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Authors().FindMember(ctx, 3)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	page, err := store.Posts().ListRecent(ctx, "", domain.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
}

func TestCommentRepository(t *testing.T) {
	db, _ := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	post := createPost(t, store, 1, "p")
	author, err := store.Authors().CreateAnonymous(ctx, domain.Anonymous{Email: "a@example.com", SecretHash: "h"})
	require.NoError(t, err)

	first, err := store.Comments().Create(ctx, domain.Comment{PostID: post.ID, Content: "one", Author: author})
	require.NoError(t, err)
	_, err = store.Comments().Create(ctx, domain.Comment{PostID: post.ID, Content: "two", Author: author})
	require.NoError(t, err)

	list, err := store.Comments().ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "one", list[0].Content)
	assert.True(t, list[0].Author.IsAnonymous())

	updated, err := store.Comments().UpdateContent(ctx, first.ID, "uno")
	require.NoError(t, err)
	assert.Equal(t, "uno", updated.Content)

	byAuthor, err := store.Comments().ListByAuthor(ctx, author.ID)
	require.NoError(t, err)
	assert.Len(t, byAuthor, 2)

	require.NoError(t, store.Comments().Delete(ctx, first.ID))
	_, err = store.Comments().Get(ctx, first.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttachmentRepository(t *testing.T) {
	db, _ := newTestDB(t)
	store := NewStore(db)
	ctx := context.Background()
	post := createPost(t, store, 1, "p")

	a, err := store.Attachments().Create(ctx, domain.Attachment{PostID: post.ID, OriginalName: "a.txt", StoredName: "a_1.txt", URL: "/uploads/a_1.txt", Size: 3})
	require.NoError(t, err)
	_, err = store.Attachments().Create(ctx, domain.Attachment{PostID: post.ID, OriginalName: "b.txt", StoredName: "b_1.txt", URL: "/uploads/b_1.txt", Size: 3})
	require.NoError(t, err)

	got, err := store.Attachments().Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/a_1.txt", got.URL)

	require.NoError(t, store.Attachments().Delete(ctx, a.ID))
	list, err := store.Attachments().ListByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Attachments().DeleteByPost(ctx, post.ID))
	list, err = store.Attachments().ListByPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
