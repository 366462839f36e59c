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

type AttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) *AttachmentRepository {
	return &AttachmentRepository{db: db}
}

func (r *AttachmentRepository) Create(ctx context.Context, attachment domain.Attachment) (domain.Attachment, error) {
	model := models.PostAttachment{
		PostID:       attachment.PostID,
		OriginalName: attachment.OriginalName,
		StoredName:   attachment.StoredName,
		URL:          attachment.URL,
		ContentType:  attachment.ContentType,
		Size:         attachment.Size,
		CreatedAt:    time.Now(),
	}
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&model).Error; err != nil {
		return domain.Attachment{}, errors.Wrap(err, "failed to create attachment")
	}
	return toDomainAttachment(model), nil
}

func (r *AttachmentRepository) Get(ctx context.Context, id int64) (domain.Attachment, error) {
	var model models.PostAttachment
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Attachment{}, domain.NotFoundError{Resource: "attachment"}
	}
	if err != nil {
		return domain.Attachment{}, errors.Wrap(err, "failed to get attachment")
	}
	return toDomainAttachment(model), nil
}

func (r *AttachmentRepository) ListByPost(ctx context.Context, postID int64) ([]domain.Attachment, error) {
	var rows []models.PostAttachment
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).Order("id ASC").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list attachments")
	}
	out := make([]domain.Attachment, len(rows))
	for i, row := range rows {
		out[i] = toDomainAttachment(row)
	}
	return out, nil
}

func (r *AttachmentRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.PostAttachment{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete attachment")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "attachment"}
	}
	return nil
}

func (r *AttachmentRepository) DeleteByPost(ctx context.Context, postID int64) error {
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.PostAttachment{}).Error
	if err != nil {
		return errors.Wrap(err, "failed to delete attachments")
	}
	return nil
}

func toDomainAttachment(m models.PostAttachment) domain.Attachment {
	return domain.Attachment{
		ID:           m.ID,
		PostID:       m.PostID,
		OriginalName: m.OriginalName,
		StoredName:   m.StoredName,
		URL:          m.URL,
		ContentType:  m.ContentType,
		Size:         m.Size,
		CreatedAt:    m.CreatedAt,
	}
}
