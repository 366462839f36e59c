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

type LikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

// Add inserts the pair. The unique index on (viewer_id, post_id) is the only
// arbiter: a skipped insert or a duplicate-key error both mean the pair exists.
func (r *LikeRepository) Add(ctx context.Context, viewerID, postID int64) error {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "viewer_id"}, {Name: "post_id"}},
		DoNothing: true,
	}).Omit(clause.Associations).Create(&models.PostLike{
		ViewerID:  viewerID,
		PostID:    postID,
		CreatedAt: time.Now(),
	})
	if isDuplicateKey(result.Error) {
		return domain.ConflictError{Resource: "like"}
	}
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to add like")
	}
	if result.RowsAffected == 0 {
		return domain.ConflictError{Resource: "like"}
	}
	return nil
}

func (r *LikeRepository) Remove(ctx context.Context, viewerID, postID int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("viewer_id = ? AND post_id = ?", viewerID, postID).
		Delete(&models.PostLike{})
	if result.Error != nil {
		return false, errors.Wrap(result.Error, "failed to remove like")
	}
	return result.RowsAffected > 0, nil
}

func (r *LikeRepository) LikedPostIDs(ctx context.Context, viewerID int64, postIDs []int64) ([]int64, error) {
	if len(postIDs) == 0 {
		return []int64{}, nil
	}

	var liked []int64
	err := r.db.WithContext(ctx).
		Model(&models.PostLike{}).
		Where("viewer_id = ? AND post_id IN ?", viewerID, postIDs).
		Pluck("post_id", &liked).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to check likes")
	}
	return liked, nil
}

func (r *LikeRepository) DeleteByPost(ctx context.Context, postID int64) error {
	err := r.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&models.PostLike{}).Error
	if err != nil {
		return errors.Wrap(err, "failed to delete likes")
	}
	return nil
}
