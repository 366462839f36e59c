package usecase

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/totegamma/community/internal/domain"
)

// CreateCommentInput is the input for commenting on a post.
type CreateCommentInput struct {
	PostID     int64
	Content    string
	Credential domain.Credential
}

type CommentUsecase struct {
	store   Store
	authors *AuthorUsecase
	perms   *PermissionUsecase
}

func NewCommentUsecase(store Store, authors *AuthorUsecase, perms *PermissionUsecase) *CommentUsecase {
	return &CommentUsecase{store: store, authors: authors, perms: perms}
}

func (uc *CommentUsecase) Create(ctx context.Context, input CreateCommentInput) (domain.Comment, error) {
	ctx, span := tracer.Start(ctx, "Comment.Usecase.Create")
	defer span.End()

	content, err := validateCommentContent(input.Content)
	if err != nil {
		return domain.Comment{}, err
	}

	var created domain.Comment
	err = uc.store.Atomic(ctx, func(tx Store) error {
		if _, err := tx.Posts().Get(ctx, input.PostID); err != nil {
			return err
		}
		author, err := uc.authors.ResolveOrCreate(ctx, tx, input.Credential)
		if err != nil {
			return err
		}
		created, err = tx.Comments().Create(ctx, domain.Comment{
			PostID:  input.PostID,
			Content: content,
			Author:  author,
		})
		return err
	})
	if err != nil {
		span.RecordError(err)
		return domain.Comment{}, err
	}
	return created, nil
}

// ListByPost returns the comments of a post, oldest first.
func (uc *CommentUsecase) ListByPost(ctx context.Context, postID int64) ([]domain.Comment, error) {
	ctx, span := tracer.Start(ctx, "Comment.Usecase.ListByPost")
	defer span.End()

	if _, err := uc.store.Posts().Get(ctx, postID); err != nil {
		return nil, err
	}
	return uc.store.Comments().ListByPost(ctx, postID)
}

// ListByAuthor returns the comments written by an author.
func (uc *CommentUsecase) ListByAuthor(ctx context.Context, authorID int64) ([]domain.Comment, error) {
	ctx, span := tracer.Start(ctx, "Comment.Usecase.ListByAuthor")
	defer span.End()

	return uc.store.Comments().ListByAuthor(ctx, authorID)
}

func (uc *CommentUsecase) Update(ctx context.Context, id int64, content string, cred domain.Credential) (domain.Comment, error) {
	ctx, span := tracer.Start(ctx, "Comment.Usecase.Update")
	defer span.End()

	content, err := validateCommentContent(content)
	if err != nil {
		return domain.Comment{}, err
	}

	var updated domain.Comment
	err = uc.store.Atomic(ctx, func(tx Store) error {
		comment, err := tx.Comments().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := uc.perms.VerifyOwnership(comment.Author, cred); err != nil {
			return err
		}
		updated, err = tx.Comments().UpdateContent(ctx, id, content)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return domain.Comment{}, err
	}
	return updated, nil
}

func (uc *CommentUsecase) Delete(ctx context.Context, id int64, cred domain.Credential) error {
	ctx, span := tracer.Start(ctx, "Comment.Usecase.Delete")
	defer span.End()

	err := uc.store.Atomic(ctx, func(tx Store) error {
		comment, err := tx.Comments().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := uc.perms.VerifyOwnership(comment.Author, cred); err != nil {
			return err
		}
		return deleteComment(ctx, tx, comment)
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// VerifyAnonymous checks anonymous credentials for a comment without changing it.
func (uc *CommentUsecase) VerifyAnonymous(ctx context.Context, id int64, email, secret string) error {
	ctx, span := tracer.Start(ctx, "Comment.Usecase.VerifyAnonymous")
	defer span.End()

	comment, err := uc.store.Comments().Get(ctx, id)
	if err != nil {
		return err
	}
	return uc.perms.VerifyChallenge(comment.Author, email, secret)
}

// deleteComment removes a comment and, if it was written anonymously, its author.
func deleteComment(ctx context.Context, tx Store, comment domain.Comment) error {
	if err := tx.Comments().Delete(ctx, comment.ID); err != nil {
		return errors.Wrapf(err, "failed to delete comment %d", comment.ID)
	}
	if comment.Author.IsAnonymous() {
		if err := tx.Authors().Delete(ctx, comment.Author.ID); err != nil {
			return errors.Wrapf(err, "failed to delete author of comment %d", comment.ID)
		}
	}
	return nil
}

func validateCommentContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", domain.NewValidationError("content", "content is required")
	}
	if len([]rune(content)) > domain.MaxCommentLength {
		return "", domain.NewValidationError("content", "content is too long")
	}
	return content, nil
}
