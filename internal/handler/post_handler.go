package handler

import (
	"mime/multipart"
	"net/http"
	"time"

	"campusconnect/backend/internal/auth"
	"campusconnect/backend/internal/database"
	"campusconnect/backend/internal/media"
	"campusconnect/backend/internal/models"
	"campusconnect/backend/internal/post"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// region --- DTOs ---

// CreatePostInput is the text part of a new post. The optional media file is
// sent as the "media" multipart field.
type CreatePostInput struct {
	Text string `form:"text" json:"text" binding:"required" example:"Hello campus"`
}

// CommentInput is the body of a new comment.
type CommentInput struct {
	Text string `json:"text" binding:"required" example:"Nice post!"`
}

// CommentResponse is a single comment.
type CommentResponse struct {
	ID        uint        `json:"id"`
	User      UserSummary `json:"user"`
	Text      string      `json:"text"`
	CreatedAt time.Time   `json:"created_at"`
}

// PostResponse is a post with its interactions.
type PostResponse struct {
	ID         uint              `json:"id"`
	Author     UserSummary       `json:"author"`
	Text       string            `json:"text"`
	ImageURL   string            `json:"image,omitempty"`
	VideoURL   string            `json:"video,omitempty"`
	Likes      []uint            `json:"likes"`
	LikesCount int               `json:"likes_count"`
	LikedByMe  bool              `json:"liked_by_me"`
	Comments   []CommentResponse `json:"comments"`
	CreatedAt  time.Time         `json:"created_at"`
}

// LikeResponse is the like set of a post after a toggle.
type LikeResponse struct {
	Likes      []uint `json:"likes"`
	LikesCount int    `json:"likes_count"`
	Liked      bool   `json:"liked"`
}

// CommentsResponse is the ordered comment list of a post.
type CommentsResponse struct {
	Comments []CommentResponse `json:"comments"`
}

// PaginatedPostResponse is a page of the timeline.
type PaginatedPostResponse = PaginatedResponse[PostResponse]

// endregion

// region --- Post Handlers ---

// CreatePost godoc
// @Summary      Create a post
// @Description  Creates a post with text and an optional image or video.
// @Tags         posts
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        text  formData  string  true   "Post text (max 500 characters)"
// @Param        media formData  file    false  "Image or video"
// @Success      201  {object}  PostResponse
// @Failure      400  {object}  apperror.ErrorResponse
// @Failure      401  {object}  apperror.ErrorResponse
// @Failure      503  {object}  apperror.ErrorResponse
// @Router       /posts [post]
func CreatePost(c *gin.Context) {
	authorID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var input CreatePostInput
	if err := c.ShouldBind(&input); err != nil {
		respondError(c, bindError(err))
		return
	}
	// Reject bad text before anything is uploaded.
	if _, err := post.NormalizeText(input.Text, "Post"); err != nil {
		respondError(c, err)
		return
	}

	ctx := c.Request.Context()

	var attachment *media.Result
	var file *multipart.FileHeader
	if c.ContentType() == binding.MIMEMultipartPOSTForm {
		if file, err = formFile(c, "media"); err != nil {
			respondError(c, err)
			return
		}
	}
	if file != nil {
		data, err := readUpload(file)
		if err != nil {
			respondError(c, err)
			return
		}
		if attachment, err = upload(ctx, data, file.Filename, media.FolderPosts); err != nil {
			respondError(c, err)
			return
		}
	}

	p, err := post.NewService(database.DB).Create(ctx, authorID, input.Text, attachment)
	if err != nil {
		if attachment != nil {
			discardUpload(ctx, attachment)
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, buildPostResponse(*p, authorID))
}

// GetPosts godoc
// @Summary      List posts
// @Description  Returns the timeline, newest first.
// @Tags         posts
// @Produce      json
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(10)
// @Success      200   {object}  PaginatedPostResponse
// @Failure      503   {object}  apperror.ErrorResponse
// @Router       /posts [get]
func GetPosts(c *gin.Context) {
	viewerID, _ := auth.CurrentUserID(c)
	page, limit := parsePage(c)

	posts, total, err := post.NewService(database.DB).List(c.Request.Context(), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]PostResponse, 0, len(posts))
	for _, p := range posts {
		responses = append(responses, buildPostResponse(p, viewerID))
	}
	c.JSON(http.StatusOK, NewPaginatedResponse(responses, total, page, limit))
}

// GetPostByID godoc
// @Summary      Get a post
// @Tags         posts
// @Produce      json
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  PostResponse
// @Failure      400  {object}  apperror.ErrorResponse
// @Failure      404  {object}  apperror.ErrorResponse
// @Router       /posts/{id} [get]
func GetPostByID(c *gin.Context) {
	viewerID, _ := auth.CurrentUserID(c)
	postID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	p, err := post.NewService(database.DB).Get(c.Request.Context(), postID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buildPostResponse(*p, viewerID))
}

// LikePost godoc
// @Summary      Like or unlike a post
// @Description  Toggles the caller's like on the post.
// @Tags         posts
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  LikeResponse
// @Failure      400  {object}  apperror.ErrorResponse
// @Failure      401  {object}  apperror.ErrorResponse
// @Failure      404  {object}  apperror.ErrorResponse
// @Router       /posts/{id}/like [post]
func LikePost(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	postID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	likes, err := post.NewService(database.DB).ToggleLike(c.Request.Context(), postID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, LikeResponse{Likes: likes.UserIDs, LikesCount: len(likes.UserIDs), Liked: likes.Liked})
}

// CommentOnPost godoc
// @Summary      Comment on a post
// @Tags         posts
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path  int           true  "Post ID"
// @Param        input body  CommentInput  true  "Comment"
// @Success      201  {object}  CommentsResponse
// @Failure      400  {object}  apperror.ErrorResponse
// @Failure      401  {object}  apperror.ErrorResponse
// @Failure      404  {object}  apperror.ErrorResponse
// @Router       /posts/{id}/comment [post]
func CommentOnPost(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	postID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var input CommentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, bindError(err))
		return
	}

	comments, err := post.NewService(database.DB).AddComment(c.Request.Context(), postID, userID, input.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, CommentsResponse{Comments: buildCommentResponses(comments)})
}

// DeletePost godoc
// @Summary      Delete a post (Admin)
// @Description  Removes a post from the timeline.
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Post ID"
// @Success      200  {object}  map[string]string "{"message": "Post deleted"}"
// @Failure      401  {object}  apperror.ErrorResponse
// @Failure      403  {object}  apperror.ErrorResponse
// @Failure      404  {object}  apperror.ErrorResponse
// @Router       /admin/posts/{id} [delete]
func DeletePost(c *gin.Context) {
	postID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}
	if err := post.NewService(database.DB).Delete(c.Request.Context(), postID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

// endregion

// region --- Helpers ---

func buildPostResponse(p models.Post, viewerID uint) PostResponse {
	likes := make([]uint, 0, len(p.Likes))
	liked := false
	for _, l := range p.Likes {
		likes = append(likes, l.UserID)
		if viewerID != 0 && l.UserID == viewerID {
			liked = true
		}
	}

	return PostResponse{
		ID:         p.ID,
		Author:     summarize(p.Author),
		Text:       p.Text,
		ImageURL:   p.ImageURL,
		VideoURL:   p.VideoURL,
		Likes:      likes,
		LikesCount: len(likes),
		LikedByMe:  liked,
		Comments:   buildCommentResponses(p.Comments),
		CreatedAt:  p.CreatedAt,
	}
}

func buildCommentResponses(comments []models.Comment) []CommentResponse {
	out := make([]CommentResponse, 0, len(comments))
	for _, cm := range comments {
		out = append(out, CommentResponse{
			ID:        cm.ID,
			User:      summarize(cm.User),
			Text:      cm.Text,
			CreatedAt: cm.CreatedAt,
		})
	}
	return out
}

// endregion
