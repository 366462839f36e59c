package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"

	"github.com/totegamma/community/internal/domain"
)

// CreatePostInput is the validated input for creating a post.
type CreatePostInput struct {
	Title      string
	Content    string
	Category   string
	Tags       []string
	Credential domain.Credential
}

// UpdatePostInput replaces the editable fields of a post.
type UpdatePostInput struct {
	Title      string
	Content    string
	Category   string
	Tags       []string
	Credential domain.Credential
}

// Viewer identifies who is reading a post. AccountID is nil for
// unauthenticated readers; Key is used to de-duplicate views.
type Viewer struct {
	AccountID *int64
	Key       string
}

// PostDetail is a post with everything shown on its page.
type PostDetail struct {
	Post        domain.Post
	Comments    []domain.Comment
	Attachments []domain.Attachment
	IsLiked     bool
}

type PostUsecase struct {
	store   Store
	authors *AuthorUsecase
	perms   *PermissionUsecase
	likes   *LikeUsecase
	storage AttachmentStorage
	views   ViewCounter
	tags    TagCache
}

func NewPostUsecase(
	store Store,
	authors *AuthorUsecase,
	perms *PermissionUsecase,
	likes *LikeUsecase,
	storage AttachmentStorage,
	views ViewCounter,
	tags TagCache,
) *PostUsecase {
	return &PostUsecase{
		store:   store,
		authors: authors,
		perms:   perms,
		likes:   likes,
		storage: storage,
		views:   views,
		tags:    tags,
	}
}

func (uc *PostUsecase) Create(ctx context.Context, input CreatePostInput) (domain.Post, error) {
	ctx, span := tracer.Start(ctx, "Post.Usecase.Create")
	defer span.End()

	post, err := buildPost(input.Title, input.Content, input.Category, input.Tags)
	if err != nil {
		return domain.Post{}, err
	}

	var created domain.Post
	err = uc.store.Atomic(ctx, func(tx Store) error {
		author, err := uc.authors.ResolveOrCreate(ctx, tx, input.Credential)
		if err != nil {
			return err
		}
		post.Author = author
		created, err = tx.Posts().Create(ctx, post)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return domain.Post{}, err
	}

	uc.invalidateTags(ctx)
	span.SetAttributes(attribute.Int64("postId", created.ID))
	return created, nil
}

// Get returns a post with its comments and attachments. When countView is set
// the view counter is consulted before the views column is incremented.
func (uc *PostUsecase) Get(ctx context.Context, id int64, viewer Viewer, countView bool) (PostDetail, error) {
	ctx, span := tracer.Start(ctx, "Post.Usecase.Get")
	defer span.End()

	if countView && (uc.views == nil || uc.views.ShouldCount(ctx, id, viewer.Key)) {
		err := uc.store.Posts().IncrementViews(ctx, id)
		if err != nil {
			span.RecordError(err)
			return PostDetail{}, err
		}
	}

	post, err := uc.store.Posts().Get(ctx, id)
	if err != nil {
		return PostDetail{}, err
	}

	comments, err := uc.store.Comments().ListByPost(ctx, id)
	if err != nil {
		span.RecordError(err)
		return PostDetail{}, err
	}

	attachments, err := uc.store.Attachments().ListByPost(ctx, id)
	if err != nil {
		span.RecordError(err)
		return PostDetail{}, err
	}

	detail := PostDetail{
		Post:        post,
		Comments:    comments,
		Attachments: attachments,
	}

	if viewer.AccountID != nil {
		liked, err := uc.likes.BatchCheckLiked(ctx, *viewer.AccountID, []int64{id})
		if err != nil {
			return PostDetail{}, err
		}
		detail.IsLiked = liked[id]
	}

	return detail, nil
}

func (uc *PostUsecase) Update(ctx context.Context, id int64, input UpdatePostInput) (domain.Post, error) {
	ctx, span := tracer.Start(ctx, "Post.Usecase.Update")
	defer span.End()

	fields, err := buildPost(input.Title, input.Content, input.Category, input.Tags)
	if err != nil {
		return domain.Post{}, err
	}

	var updated domain.Post
	err = uc.store.Atomic(ctx, func(tx Store) error {
		post, err := tx.Posts().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := uc.perms.VerifyOwnership(post.Author, input.Credential); err != nil {
			return err
		}

		post.Title = fields.Title
		post.Content = fields.Content
		post.Category = fields.Category
		post.Tags = fields.Tags

		updated, err = tx.Posts().Update(ctx, post)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return domain.Post{}, err
	}

	uc.invalidateTags(ctx)
	return updated, nil
}

// Delete removes a post and everything that belongs to it in one transaction:
// likes, comments and their anonymous authors, attachment rows, the post and
// the post's anonymous author. Stored attachment files are removed after the
// commit; a file that cannot be removed is logged and left behind.
func (uc *PostUsecase) Delete(ctx context.Context, id int64, cred domain.Credential) error {
	ctx, span := tracer.Start(ctx, "Post.Usecase.Delete")
	defer span.End()

	var attachments []domain.Attachment
	err := uc.store.Atomic(ctx, func(tx Store) error {
		post, err := tx.Posts().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := uc.perms.VerifyOwnership(post.Author, cred); err != nil {
			return err
		}

		if err := tx.Likes().DeleteByPost(ctx, id); err != nil {
			return errors.Wrap(err, "failed to delete likes")
		}

		comments, err := tx.Comments().ListByPost(ctx, id)
		if err != nil {
			return err
		}
		for _, comment := range comments {
			if err := deleteComment(ctx, tx, comment); err != nil {
				return err
			}
		}

		attachments, err = tx.Attachments().ListByPost(ctx, id)
		if err != nil {
			return err
		}
		if err := tx.Attachments().DeleteByPost(ctx, id); err != nil {
			return errors.Wrap(err, "failed to delete attachments")
		}

		if err := tx.Posts().Delete(ctx, id); err != nil {
			return err
		}
		if post.Author.IsAnonymous() {
			if err := tx.Authors().Delete(ctx, post.Author.ID); err != nil {
				return errors.Wrap(err, "failed to delete author")
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	for _, attachment := range attachments {
		if err := uc.storage.Delete(ctx, attachment.URL); err != nil {
			span.RecordError(err)
			slog.WarnContext(ctx, "failed to remove attachment file of deleted post",
				slog.Int64("postId", id),
				slog.Int64("attachmentId", attachment.ID),
				slog.String("error", err.Error()),
				slog.String("module", "post"),
			)
		}
	}

	slog.InfoContext(ctx, "post deleted", slog.Int64("postId", id), slog.String("module", "post"))
	uc.invalidateTags(ctx)
	return nil
}

// VerifyAnonymous checks anonymous credentials for a post without changing it.
func (uc *PostUsecase) VerifyAnonymous(ctx context.Context, id int64, email, secret string) error {
	ctx, span := tracer.Start(ctx, "Post.Usecase.VerifyAnonymous")
	defer span.End()

	post, err := uc.store.Posts().Get(ctx, id)
	if err != nil {
		return err
	}
	return uc.perms.VerifyChallenge(post.Author, email, secret)
}

// Tags returns the distinct tags used by posts.
func (uc *PostUsecase) Tags(ctx context.Context) ([]string, error) {
	ctx, span := tracer.Start(ctx, "Post.Usecase.Tags")
	defer span.End()

	if uc.tags != nil {
		if tags, ok := uc.tags.Get(ctx); ok {
			return tags, nil
		}
	}

	tags, err := uc.store.Posts().AllTags(ctx)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if uc.tags != nil {
		uc.tags.Set(ctx, tags)
	}
	return tags, nil
}

func (uc *PostUsecase) invalidateTags(ctx context.Context) {
	if uc.tags != nil {
		uc.tags.Invalidate(ctx)
	}
}

func buildPost(title, content, category string, tags []string) (domain.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Post{}, domain.NewValidationError("title", "title is required")
	}
	if len([]rune(title)) > domain.MaxTitleLength {
		return domain.Post{}, domain.NewValidationError("title", "title is too long")
	}
	if strings.TrimSpace(content) == "" {
		return domain.Post{}, domain.NewValidationError("content", "content is required")
	}

	cat, ok := domain.ParseCategory(category)
	if !ok {
		return domain.Post{}, domain.NewValidationError("category", "unknown category "+category)
	}

	normalized := normalizeTags(tags)
	for _, tag := range normalized {
		if len([]rune(tag)) > domain.MaxTagLength {
			return domain.Post{}, domain.NewValidationError("tags", "tag is too long")
		}
	}
	if domain.JoinedTagsLength(normalized) > domain.MaxTagsLength {
		return domain.Post{}, domain.NewValidationError("tags", "tags are too long")
	}

	return domain.Post{
		Title:    title,
		Content:  content,
		Category: cat,
		Tags:     normalized,
	}, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
