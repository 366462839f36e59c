package usecase

import (
	"context"

	"github.com/pkg/errors"

	"github.com/totegamma/community/internal/domain"
)

// LikeUsecase owns the like relation between viewers and posts.
type LikeUsecase struct {
	store Store
}

func NewLikeUsecase(store Store) *LikeUsecase {
	return &LikeUsecase{store: store}
}

// Add records that viewerID likes postID. A second Add of the same pair fails
// with domain.ErrConflict.
func (uc *LikeUsecase) Add(ctx context.Context, viewerID, postID int64) error {
	ctx, span := tracer.Start(ctx, "Like.Usecase.Add")
	defer span.End()

	err := uc.store.Atomic(ctx, func(tx Store) error {
		if _, err := tx.Posts().Get(ctx, postID); err != nil {
			return err
		}
		if err := tx.Likes().Add(ctx, viewerID, postID); err != nil {
			return err
		}
		return tx.Posts().AdjustLikes(ctx, postID, 1)
	})
	if err != nil && !errors.Is(err, domain.ErrConflict) && !errors.Is(err, domain.ErrNotFound) {
		span.RecordError(err)
	}
	return err
}

// Remove deletes the pair if present. Removing an absent pair is not an error.
func (uc *LikeUsecase) Remove(ctx context.Context, viewerID, postID int64) error {
	ctx, span := tracer.Start(ctx, "Like.Usecase.Remove")
	defer span.End()

	err := uc.store.Atomic(ctx, func(tx Store) error {
		removed, err := tx.Likes().Remove(ctx, viewerID, postID)
		if err != nil {
			return err
		}
		if !removed {
			return nil
		}
		return tx.Posts().AdjustLikes(ctx, postID, -1)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// BatchCheckLiked returns the set of postIDs liked by viewerID using a single
// lookup. An empty input does not touch storage.
func (uc *LikeUsecase) BatchCheckLiked(ctx context.Context, viewerID int64, postIDs []int64) (map[int64]bool, error) {
	ctx, span := tracer.Start(ctx, "Like.Usecase.BatchCheckLiked")
	defer span.End()

	liked := make(map[int64]bool)
	if len(postIDs) == 0 {
		return liked, nil
	}

	ids, err := uc.store.Likes().LikedPostIDs(ctx, viewerID, postIDs)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}
