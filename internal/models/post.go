package models

import (
	"time"

	"gorm.io/gorm"
)

// MaxPostTextLength bounds both post and comment text.
const MaxPostTextLength = 500

// Post is a unit of content created by a user.
type Post struct {
	gorm.Model
	AuthorID uint   `gorm:"not null;index"`
	Text     string `gorm:"size:500;not null"`
	ImageURL string `gorm:"size:1024"`
	VideoURL string `gorm:"size:1024"`

	Author   User       `gorm:"foreignKey:AuthorID"`
	Likes    []PostLike `gorm:"foreignKey:PostID"`
	Comments []Comment  `gorm:"foreignKey:PostID"`
}

// PostLike records that a user likes a post. The composite key allows at most
// one like per user and post.
type PostLike struct {
	PostID    uint `gorm:"primaryKey;autoIncrement:false"`
	UserID    uint `gorm:"primaryKey;autoIncrement:false"`
	CreatedAt time.Time
}

// Comment is an append-only entry on a post.
type Comment struct {
	ID        uint   `gorm:"primarykey"`
	PostID    uint   `gorm:"not null;index"`
	UserID    uint   `gorm:"not null"`
	Text      string `gorm:"size:500;not null"`
	CreatedAt time.Time

	User User `gorm:"foreignKey:UserID"`
}
