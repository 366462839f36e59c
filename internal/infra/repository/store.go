package repository

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/totegamma/community/internal/usecase"
)

// Store bundles the gorm repositories. Inside Atomic every repository shares
// the transaction handle.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Authors() usecase.AuthorRepository         { return NewAuthorRepository(s.db) }
func (s *Store) Posts() usecase.PostRepository             { return NewPostRepository(s.db) }
func (s *Store) Comments() usecase.CommentRepository       { return NewCommentRepository(s.db) }
func (s *Store) Likes() usecase.LikeRepository             { return NewLikeRepository(s.db) }
func (s *Store) Attachments() usecase.AttachmentRepository { return NewAttachmentRepository(s.db) }

func (s *Store) Atomic(ctx context.Context, fn func(tx usecase.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
