// Package post holds the post timeline and the like/comment interactions.
package post

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"campusconnect/backend/internal/apperror"
	"campusconnect/backend/internal/media"
	"campusconnect/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service manages posts, likes and comments.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Likes is the like set of a post after a toggle.
type Likes struct {
	UserIDs []uint
	Liked   bool
}

// NormalizeText trims text and checks it is present and within the length limit.
// field names the text in error messages.
func NormalizeText(text, field string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", apperror.NewInvalidOperation(field + " text is required")
	}
	if utf8.RuneCountInString(text) > models.MaxPostTextLength {
		return "", apperror.NewInvalidOperation(field + " text is too long")
	}
	return text, nil
}

// Create stores a new post. attachment may be nil.
func (s *Service) Create(ctx context.Context, authorID uint, text string, attachment *media.Result) (*models.Post, error) {
	text, err := NormalizeText(text, "Post")
	if err != nil {
		return nil, err
	}

	p := models.Post{AuthorID: authorID, Text: text}
	if attachment != nil {
		switch attachment.Kind {
		case media.KindImage:
			p.ImageURL = attachment.URL
		case media.KindVideo:
			p.VideoURL = attachment.URL
		}
	}

	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, apperror.NewUpstreamFailure("Failed to create post", err)
	}
	return s.Get(ctx, p.ID)
}

func withRelations(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Author").
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("created_at") }).
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at").Order("id") }).
		Preload("Comments.User")
}

// Get loads a post with author, likes and comments.
func (s *Service) Get(ctx context.Context, id uint) (*models.Post, error) {
	var p models.Post
	err := s.db.WithContext(ctx).Scopes(withRelations).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NewNotFound("Post not found")
	}
	if err != nil {
		return nil, apperror.NewUpstreamFailure("Failed to fetch post", err)
	}
	return &p, nil
}

// List returns one page of the timeline, newest first, and the total count.
func (s *Service) List(ctx context.Context, page, limit int) ([]models.Post, int64, error) {
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, apperror.NewUpstreamFailure("Failed to count posts", err)
	}

	var posts []models.Post
	err := db.Scopes(withRelations).
		Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&posts).Error
	if err != nil {
		return nil, 0, apperror.NewUpstreamFailure("Failed to fetch posts", err)
	}
	return posts, total, nil
}

// ToggleLike likes the post for userID, or removes the like if it exists.
func (s *Service) ToggleLike(ctx context.Context, postID, userID uint) (*Likes, error) {
	result := &Likes{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePost(tx, postID); err != nil {
			return err
		}

		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			like := models.PostLike{PostID: postID, UserID: userID}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error; err != nil {
				return err
			}
			result.Liked = true
		}

		return tx.Model(&models.PostLike{}).
			Where("post_id = ?", postID).
			Order("created_at").Order("user_id").
			Pluck("user_id", &result.UserIDs).Error
	})
	if err != nil {
		return nil, asAppError(err, "Failed to update like")
	}
	if result.UserIDs == nil {
		result.UserIDs = []uint{}
	}
	return result, nil
}

// AddComment appends a comment and returns the post's comments in order.
func (s *Service) AddComment(ctx context.Context, postID, userID uint, text string) ([]models.Comment, error) {
	text, err := NormalizeText(text, "Comment")
	if err != nil {
		return nil, err
	}

	var comments []models.Comment
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requirePost(tx, postID); err != nil {
			return err
		}
		if err := tx.Create(&models.Comment{PostID: postID, UserID: userID, Text: text}).Error; err != nil {
			return err
		}
		return tx.Preload("User").
			Where("post_id = ?", postID).
			Order("created_at").Order("id").
			Find(&comments).Error
	})
	if err != nil {
		return nil, asAppError(err, "Failed to add comment")
	}
	return comments, nil
}

// Delete hides a post from the timeline.
func (s *Service) Delete(ctx context.Context, postID uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Post{}, postID)
	if res.Error != nil {
		return apperror.NewUpstreamFailure("Failed to delete post", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperror.NewNotFound("Post not found")
	}
	return nil
}

func requirePost(tx *gorm.DB, postID uint) error {
	var p models.Post
	err := tx.Select("id").First(&p, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NewNotFound("Post not found")
	}
	return err
}

func asAppError(err error, message string) error {
	if apperror.KindOf(err) != apperror.Unknown {
		return err
	}
	return apperror.NewUpstreamFailure(message, err)
}
