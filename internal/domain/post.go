package domain

import (
	"strings"
	"time"
)

// Category classifies a post on the board.
type Category string

const (
	CategoryFreeBoard    Category = "FREE_BOARD"
	CategoryPriceInfo    Category = "PRICE_INFO"
	CategoryLiquorReview Category = "LIQUOR_REVIEW"
	CategoryQnA          Category = "QNA"
	CategoryEvent        Category = "EVENT"
)

// CategoryAll is accepted by listings and means no category restriction.
const CategoryAll = "ALL"

var categories = []Category{
	CategoryFreeBoard,
	CategoryPriceInfo,
	CategoryLiquorReview,
	CategoryQnA,
	CategoryEvent,
}

// Categories returns every known category.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory resolves a category name case-insensitively.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, c := range categories {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

const (
	MaxTitleLength    = 500
	MaxTagsLength     = 1000
	MaxCommentLength  = 1000
	MaxTagLength      = 255
	MaxFileNameLength = 255
)

type Post struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Category  Category  `json:"category"`
	Tags      []string  `json:"tags"`
	Author    Author    `json:"-"`
	Views     int64     `json:"views"`
	Likes     int64     `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PostSummary is one row of a listing page.
type PostSummary struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	Category       Category  `json:"category"`
	Tags           []string  `json:"tags"`
	Author         Author    `json:"-"`
	Views          int64     `json:"views"`
	Likes          int64     `json:"likes"`
	CommentCount   int64     `json:"commentCount"`
	HasAttachments bool      `json:"hasAttachments"`
	IsLiked        bool      `json:"isLikedByCurrentUser"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Comment struct {
	ID        int64     `json:"id"`
	PostID    int64     `json:"postId"`
	Content   string    `json:"content"`
	Author    Author    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Attachment struct {
	ID           int64     `json:"id"`
	PostID       int64     `json:"postId"`
	OriginalName string    `json:"originalName"`
	StoredName   string    `json:"storedName"`
	URL          string    `json:"url"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
}

// JoinedTagsLength is the length of the tags when stored comma separated.
func JoinedTagsLength(tags []string) int {
	return len(strings.Join(tags, ","))
}
