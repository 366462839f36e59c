package models

import (
	"time"
)

type Author struct {
	ID                  int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Kind                string    `json:"kind" gorm:"type:varchar(16);not null"`
	AccountID           *int64    `json:"accountId" gorm:"uniqueIndex:idx_authors_account_id"`
	DisplayName         string    `json:"displayName" gorm:"type:varchar(255)"`
	AnonymousEmail      string    `json:"-" gorm:"type:varchar(255)"`
	AnonymousSecretHash string    `json:"-" gorm:"type:varchar(255)"`
	CreatedAt           time.Time `json:"createdAt" gorm:"not null"`
}

type Post struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title     string    `json:"title" gorm:"type:varchar(500);not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	Category  string    `json:"category" gorm:"type:varchar(32);not null;index"`
	AuthorID  int64     `json:"authorId" gorm:"not null;index"`
	Author    Author    `json:"author" gorm:"foreignKey:AuthorID"`
	Tags      []PostTag `json:"tags" gorm:"foreignKey:PostID"`
	Views     int64     `json:"views" gorm:"not null;default:0"`
	Likes     int64     `json:"likes" gorm:"not null;default:0"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;index"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null"`

	CommentCount   int64 `json:"commentCount" gorm:"->;-:migration"`
	HasAttachments bool  `json:"hasAttachments" gorm:"->;-:migration"`
}

type PostTag struct {
	PostID   int64  `json:"postId" gorm:"primaryKey;autoIncrement:false"`
	Position int    `json:"position" gorm:"primaryKey;autoIncrement:false"`
	Tag      string `json:"tag" gorm:"type:varchar(255);not null;index"`
}

type Comment struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	PostID    int64     `json:"postId" gorm:"not null;index"`
	Post      Post      `json:"-" gorm:"foreignKey:PostID"`
	AuthorID  int64     `json:"authorId" gorm:"not null;index"`
	Author    Author    `json:"author" gorm:"foreignKey:AuthorID"`
	Content   string    `json:"content" gorm:"type:varchar(1000);not null"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null"`
}

type PostLike struct {
	ID        int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	ViewerID  int64     `json:"viewerId" gorm:"not null;uniqueIndex:idx_post_likes_viewer_post,priority:1"`
	PostID    int64     `json:"postId" gorm:"not null;uniqueIndex:idx_post_likes_viewer_post,priority:2;index"`
	Post      Post      `json:"-" gorm:"foreignKey:PostID"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null"`
}

type PostAttachment struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	PostID       int64     `json:"postId" gorm:"not null;index"`
	Post         Post      `json:"-" gorm:"foreignKey:PostID"`
	OriginalName string    `json:"originalName" gorm:"type:varchar(255);not null"`
	StoredName   string    `json:"storedName" gorm:"type:varchar(255);not null"`
	URL          string    `json:"url" gorm:"type:varchar(1024);not null"`
	ContentType  string    `json:"contentType" gorm:"type:varchar(255)"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt" gorm:"not null"`
}
