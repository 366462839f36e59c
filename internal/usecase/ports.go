package usecase

import (
	"context"
	"io"

	"github.com/totegamma/community/internal/domain"
)

// AuthorRepository defines persistence for authors.
type AuthorRepository interface {
	FindMember(ctx context.Context, accountID int64) (domain.Author, error)
	// CreateMember returns domain.ErrConflict when a member with the same
	// account id already exists.
	CreateMember(ctx context.Context, accountID int64, displayName string) (domain.Author, error)
	CreateAnonymous(ctx context.Context, identity domain.Anonymous) (domain.Author, error)
	Get(ctx context.Context, id int64) (domain.Author, error)
	Delete(ctx context.Context, id int64) error
}

// PostRepository defines persistence and listing queries for posts.
type PostRepository interface {
	Create(ctx context.Context, post domain.Post) (domain.Post, error)
	Get(ctx context.Context, id int64) (domain.Post, error)
	Update(ctx context.Context, post domain.Post) (domain.Post, error)
	Delete(ctx context.Context, id int64) error
	IncrementViews(ctx context.Context, id int64) error
	AdjustLikes(ctx context.Context, id int64, delta int64) error

	ListByTag(ctx context.Context, tag string, req domain.PageRequest) (domain.Page[domain.PostSummary], error)
	Search(ctx context.Context, keyword string, req domain.PageRequest) (domain.Page[domain.PostSummary], error)
	ListPopularByViews(ctx context.Context, category domain.Category, req domain.PageRequest) (domain.Page[domain.PostSummary], error)
	ListPopularByLikes(ctx context.Context, category domain.Category, req domain.PageRequest) (domain.Page[domain.PostSummary], error)
	ListRecent(ctx context.Context, category domain.Category, req domain.PageRequest) (domain.Page[domain.PostSummary], error)
	ListLikedBy(ctx context.Context, viewerID int64, req domain.PageRequest) (domain.Page[domain.PostSummary], error)
	ListByMember(ctx context.Context, accountID int64, req domain.PageRequest) (domain.Page[domain.PostSummary], error)
	AllTags(ctx context.Context) ([]string, error)
}

// CommentRepository defines persistence for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment domain.Comment) (domain.Comment, error)
	Get(ctx context.Context, id int64) (domain.Comment, error)
	UpdateContent(ctx context.Context, id int64, content string) (domain.Comment, error)
	Delete(ctx context.Context, id int64) error
	ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error)
	ListByAuthor(ctx context.Context, authorID int64) ([]domain.Comment, error)
}

// LikeRepository owns the (viewer, post) like relation.
type LikeRepository interface {
	// Add returns domain.ErrConflict when the pair already exists.
	Add(ctx context.Context, viewerID, postID int64) error
	// Remove reports whether a pair was deleted.
	Remove(ctx context.Context, viewerID, postID int64) (bool, error)
	// LikedPostIDs returns the subset of postIDs liked by viewerID in one round trip.
	LikedPostIDs(ctx context.Context, viewerID int64, postIDs []int64) ([]int64, error)
	DeleteByPost(ctx context.Context, postID int64) error
}

// AttachmentRepository defines persistence for attachment metadata.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment domain.Attachment) (domain.Attachment, error)
	Get(ctx context.Context, id int64) (domain.Attachment, error)
	ListByPost(ctx context.Context, postID int64) ([]domain.Attachment, error)
	Delete(ctx context.Context, id int64) error
	DeleteByPost(ctx context.Context, postID int64) error
}

// Store groups the repositories and runs them inside one transaction.
type Store interface {
	Authors() AuthorRepository
	Posts() PostRepository
	Comments() CommentRepository
	Likes() LikeRepository
	Attachments() AttachmentRepository
	// Atomic runs fn against a transactional Store. Any error returned by fn
	// rolls back every write made through it.
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

// Hasher is a one-way salted hash for anonymous secrets.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) bool
}

// FileMeta describes an uploaded file before it is stored.
type FileMeta struct {
	OriginalName string
	ContentType  string
	Size         int64
}

// StoredFile is the result of AttachmentStorage.Store.
type StoredFile struct {
	StoredName string
	URL        string
}

// AttachmentStorage persists attachment bytes outside the database.
type AttachmentStorage interface {
	Store(ctx context.Context, r io.Reader, meta FileMeta) (StoredFile, error)
	Delete(ctx context.Context, url string) error
}

// ViewCounter decides whether a view of a post by a viewer should be counted.
type ViewCounter interface {
	ShouldCount(ctx context.Context, postID int64, viewerKey string) bool
}

// TagCache caches the distinct tag list.
type TagCache interface {
	Get(ctx context.Context) ([]string, bool)
	Set(ctx context.Context, tags []string)
	Invalidate(ctx context.Context)
}
