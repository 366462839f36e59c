package presenter

import (
	"time"

	"github.com/totegamma/community/internal/domain"
	"github.com/totegamma/community/internal/usecase"
)

// AuthorView is the public face of an author. Emails and secret hashes are
// never part of it.
type AuthorView struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"displayName"`
	IsAnonymous bool   `json:"isAnonymous"`
	AccountID   *int64 `json:"externalAccountId,omitempty"`
}

func NewAuthorView(a domain.Author) AuthorView {
	return AuthorView{
		ID:          a.ID,
		DisplayName: a.DisplayName(),
		IsAnonymous: a.IsAnonymous(),
		AccountID:   a.AccountID(),
	}
}

type PostView struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Content   string          `json:"content"`
	Category  domain.Category `json:"category"`
	Tags      []string        `json:"tags"`
	Author    AuthorView      `json:"author"`
	Views     int64           `json:"views"`
	Likes     int64           `json:"likes"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

func NewPostView(p domain.Post) PostView {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return PostView{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Category:  p.Category,
		Tags:      tags,
		Author:    NewAuthorView(p.Author),
		Views:     p.Views,
		Likes:     p.Likes,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

type PostDetailView struct {
	PostView
	Comments             []CommentView       `json:"comments"`
	Attachments          []domain.Attachment `json:"attachments"`
	IsLikedByCurrentUser bool                `json:"isLikedByCurrentUser"`
}

func NewPostDetailView(d usecase.PostDetail) PostDetailView {
	attachments := d.Attachments
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return PostDetailView{
		PostView:             NewPostView(d.Post),
		Comments:             NewCommentViews(d.Comments),
		Attachments:          attachments,
		IsLikedByCurrentUser: d.IsLiked,
	}
}

type PostSummaryView struct {
	domain.PostSummary
	Author AuthorView `json:"author"`
}

func NewPostSummaryPage(page domain.Page[domain.PostSummary]) domain.Page[PostSummaryView] {
	content := make([]PostSummaryView, len(page.Content))
	for i, s := range page.Content {
		if s.Tags == nil {
			s.Tags = []string{}
		}
		content[i] = PostSummaryView{PostSummary: s, Author: NewAuthorView(s.Author)}
	}
	return domain.Page[PostSummaryView]{
		Content:       content,
		Page:          page.Page,
		Size:          page.Size,
		TotalElements: page.TotalElements,
		TotalPages:    page.TotalPages,
		First:         page.First,
		Last:          page.Last,
		HasNext:       page.HasNext,
		HasPrevious:   page.HasPrevious,
	}
}

type CommentView struct {
	ID        int64      `json:"id"`
	PostID    int64      `json:"postId"`
	Content   string     `json:"content"`
	Author    AuthorView `json:"author"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func NewCommentView(c domain.Comment) CommentView {
	return CommentView{
		ID:        c.ID,
		PostID:    c.PostID,
		Content:   c.Content,
		Author:    NewAuthorView(c.Author),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func NewCommentViews(comments []domain.Comment) []CommentView {
	out := make([]CommentView, len(comments))
	for i, c := range comments {
		out[i] = NewCommentView(c)
	}
	return out
}
