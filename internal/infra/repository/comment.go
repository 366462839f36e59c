package repository

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/community/internal/domain"
	"github.com/totegamma/community/internal/infra/database/models"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) Create(ctx context.Context, comment domain.Comment) (domain.Comment, error) {
	now := time.Now()
	model := models.Comment{
		PostID:    comment.PostID,
		AuthorID:  comment.Author.ID,
		Content:   comment.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error; err != nil {
		return domain.Comment{}, errors.Wrap(err, "failed to create comment")
	}

	comment.ID = model.ID
	comment.CreatedAt = model.CreatedAt
	comment.UpdatedAt = model.UpdatedAt
	return comment, nil
}

func (r *CommentRepository) Get(ctx context.Context, id int64) (domain.Comment, error) {
	var model models.Comment
	err := r.db.WithContext(ctx).Preload("Author").Where("id = ?", id).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Comment{}, domain.NotFoundError{Resource: "comment"}
	}
	if err != nil {
		return domain.Comment{}, errors.Wrap(err, "failed to get comment")
	}
	return toDomainComment(model), nil
}

func (r *CommentRepository) UpdateContent(ctx context.Context, id int64, content string) (domain.Comment, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"content":    content,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return domain.Comment{}, errors.Wrap(result.Error, "failed to update comment")
	}
	if result.RowsAffected == 0 {
		return domain.Comment{}, domain.NotFoundError{Resource: "comment"}
	}
	return r.Get(ctx, id)
}

func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Comment{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete comment")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "comment"}
	}
	return nil
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error) {
	var rows []models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list comments")
	}
	return toDomainComments(rows), nil
}

func (r *CommentRepository) ListByAuthor(ctx context.Context, authorID int64) ([]domain.Comment, error) {
	var rows []models.Comment
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list comments")
	}
	return toDomainComments(rows), nil
}

func toDomainComments(rows []models.Comment) []domain.Comment {
	out := make([]domain.Comment, len(rows))
	for i, row := range rows {
		out[i] = toDomainComment(row)
	}
	return out
}

func toDomainComment(m models.Comment) domain.Comment {
	return domain.Comment{
		ID:        m.ID,
		PostID:    m.PostID,
		Content:   m.Content,
		Author:    toDomainAuthor(m.Author),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
