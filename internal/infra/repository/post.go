package repository

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/totegamma/community/internal/domain"
	"github.com/totegamma/community/internal/infra/database/models"
)

const summaryColumns = "posts.*, " +
	"(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count, " +
	"EXISTS (SELECT 1 FROM post_attachments WHERE post_attachments.post_id = posts.id) AS has_attachments"

// likeEscaper makes user input match literally inside a LIKE pattern.
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

type PostRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{db: db}
}

func preloadTags(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *PostRepository) Create(ctx context.Context, post domain.Post) (domain.Post, error) {
	now := time.Now()
	model := models.Post{
		Title:     post.Title,
		Content:   post.Content,
		Category:  string(post.Category),
		AuthorID:  post.Author.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&model).Error; err != nil {
			return err
		}
		return replaceTags(tx, model.ID, post.Tags)
	})
	if err != nil {
		return domain.Post{}, errors.Wrap(err, "failed to create post")
	}

	post.ID = model.ID
	post.CreatedAt = model.CreatedAt
	post.UpdatedAt = model.UpdatedAt
	if post.Tags == nil {
		post.Tags = []string{}
	}
	return post, nil
}

func (r *PostRepository) Get(ctx context.Context, id int64) (domain.Post, error) {
	var model models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Tags", preloadTags).
		Where("id = ?", id).
		Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.Post{}, domain.NotFoundError{Resource: "post"}
	}
	if err != nil {
		return domain.Post{}, errors.Wrap(err, "failed to get post")
	}
	return toDomainPost(model), nil
}

func (r *PostRepository) Update(ctx context.Context, post domain.Post) (domain.Post, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Post{}).
			Where("id = ?", post.ID).
			Updates(map[string]any{
				"title":      post.Title,
				"content":    post.Content,
				"category":   string(post.Category),
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NotFoundError{Resource: "post"}
		}
		return replaceTags(tx, post.ID, post.Tags)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Post{}, err
		}
		return domain.Post{}, errors.Wrap(err, "failed to update post")
	}
	return r.Get(ctx, post.ID)
}

func (r *PostRepository) Delete(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&models.PostTag{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ?", id).Delete(&models.Post{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NotFoundError{Resource: "post"}
		}
		return nil
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return errors.Wrap(err, "failed to delete post")
	}
	return err
}

func (r *PostRepository) IncrementViews(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1))
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to increment views")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "post"}
	}
	return nil
}

// AdjustLikes shifts the denormalised like counter, never below zero.
func (r *PostRepository) AdjustLikes(ctx context.Context, id int64, delta int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", id).
		UpdateColumn("likes", gorm.Expr("CASE WHEN likes + ? < 0 THEN 0 ELSE likes + ? END", delta, delta))
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to adjust likes")
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError{Resource: "post"}
	}
	return nil
}

func (r *PostRepository) ListByTag(ctx context.Context, tag string, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("EXISTS (SELECT 1 FROM post_tags WHERE post_tags.post_id = posts.id AND post_tags.tag = ?)", tag)
	}, "", req)
}

func (r *PostRepository) Search(ctx context.Context, keyword string, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	pattern := "%" + likeEscaper.Replace(strings.ToLower(keyword)) + "%"
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where(`LOWER(posts.title) LIKE ? ESCAPE '\' OR LOWER(posts.content) LIKE ? ESCAPE '\'`, pattern, pattern)
	}, "", req)
}

func (r *PostRepository) ListPopularByViews(ctx context.Context, category domain.Category, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	return r.list(ctx, byCategory(category), "posts.views DESC", req)
}

func (r *PostRepository) ListPopularByLikes(ctx context.Context, category domain.Category, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	return r.list(ctx, byCategory(category), "posts.likes DESC", req)
}

func (r *PostRepository) ListRecent(ctx context.Context, category domain.Category, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	return r.list(ctx, byCategory(category), "", req)
}

func (r *PostRepository) ListLikedBy(ctx context.Context, viewerID int64, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("EXISTS (SELECT 1 FROM post_likes WHERE post_likes.post_id = posts.id AND post_likes.viewer_id = ?)", viewerID)
	}, "", req)
}

func (r *PostRepository) ListByMember(ctx context.Context, accountID int64, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("posts.author_id IN (SELECT id FROM authors WHERE kind = ? AND account_id = ?)", string(domain.AuthorKindMember), accountID)
	}, "", req)
}

func (r *PostRepository) AllTags(ctx context.Context) ([]string, error) {
	var tags []string
	err := r.db.WithContext(ctx).
		Model(&models.PostTag{}).
		Distinct("tag").
		Order("tag ASC").
		Pluck("tag", &tags).Error
	if err != nil {
		return nil, errors.Wrap(err, "failed to list tags")
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

func byCategory(category domain.Category) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if category == "" {
			return db
		}
		return db.Where("posts.category = ?", string(category))
	}
}

// list counts and fetches one page. Ties are broken by recency then id so
// pages are stable.
func (r *PostRepository) list(ctx context.Context, filter func(*gorm.DB) *gorm.DB, order string, req domain.PageRequest) (domain.Page[domain.PostSummary], error) {
	var total int64
	err := filter(r.db.WithContext(ctx).Model(&models.Post{})).Count(&total).Error
	if err != nil {
		return domain.Page[domain.PostSummary]{}, errors.Wrap(err, "failed to count posts")
	}
	if total == 0 || int64(req.Offset()) >= total {
		return domain.NewPage[domain.PostSummary](nil, req, total), nil
	}

	query := filter(r.db.WithContext(ctx).Model(&models.Post{})).
		Select(summaryColumns).
		Preload("Author").
		Preload("Tags", preloadTags)
	if order != "" {
		query = query.Order(order)
	}

	var rows []models.Post
	err = query.
		Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(req.Size).
		Offset(req.Offset()).
		Find(&rows).Error
	if err != nil {
		return domain.Page[domain.PostSummary]{}, errors.Wrap(err, "failed to list posts")
	}

	content := make([]domain.PostSummary, len(rows))
	for i, row := range rows {
		content[i] = toDomainSummary(row)
	}
	return domain.NewPage(content, req, total), nil
}

func replaceTags(tx *gorm.DB, postID int64, tags []string) error {
	if err := tx.Where("post_id = ?", postID).Delete(&models.PostTag{}).Error; err != nil {
		return err
	}
	if len(tags) == 0 {
		return nil
	}
	rows := make([]models.PostTag, len(tags))
	for i, tag := range tags {
		rows[i] = models.PostTag{PostID: postID, Position: i, Tag: tag}
	}
	return tx.Create(&rows).Error
}

func tagValues(tags []models.PostTag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Tag
	}
	return out
}

func toDomainPost(m models.Post) domain.Post {
	return domain.Post{
		ID:        m.ID,
		Title:     m.Title,
		Content:   m.Content,
		Category:  domain.Category(m.Category),
		Tags:      tagValues(m.Tags),
		Author:    toDomainAuthor(m.Author),
		Views:     m.Views,
		Likes:     m.Likes,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toDomainSummary(m models.Post) domain.PostSummary {
	return domain.PostSummary{
		ID:             m.ID,
		Title:          m.Title,
		Category:       domain.Category(m.Category),
		Tags:           tagValues(m.Tags),
		Author:         toDomainAuthor(m.Author),
		Views:          m.Views,
		Likes:          m.Likes,
		CommentCount:   m.CommentCount,
		HasAttachments: m.HasAttachments,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}
