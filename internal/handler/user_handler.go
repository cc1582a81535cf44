package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"campusconnect/backend/internal/apperror"
	"campusconnect/backend/internal/connection"
	"campusconnect/backend/internal/database"
	"campusconnect/backend/internal/media"
	"campusconnect/backend/internal/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// region --- DTOs ---

// UserSummary is the compact form of a user used in lists.
type UserSummary struct {
	ID        uint        `json:"id" example:"1"`
	Name      string      `json:"name" example:"Ada Lovelace"`
	Handle    string      `json:"handle" example:"ada"`
	Role      models.Role `json:"role" example:"student"`
	AvatarURL string      `json:"avatar_url,omitempty"`
}

// PublicUserResponse defines the structure for a user's public profile.
type PublicUserResponse struct {
	UserSummary
	Bio              string            `json:"bio"`
	Department       string            `json:"department"`
	Batch            string            `json:"batch"`
	GithubURL        string            `json:"github_url"`
	Skills           []string          `json:"skills"`
	Interests        []string          `json:"interests"`
	ConnectionsCount int64             `json:"connections_count"`
	Status           connection.Status `json:"status" example:"pending_incoming"`
}

// PrivateUserResponse defines the structure for the authenticated user's own profile.
type PrivateUserResponse struct {
	UserSummary
	Email           string        `json:"email" example:"ada@campus.edu"`
	Bio             string        `json:"bio"`
	Department      string        `json:"department"`
	Batch           string        `json:"batch"`
	GithubURL       string        `json:"github_url"`
	Skills          []string      `json:"skills"`
	Interests       []string      `json:"interests"`
	CreatedAt       time.Time     `json:"created_at"`
	Connections     []UserSummary `json:"connections"`
	PendingRequests []UserSummary `json:"pending_requests"`
	SentRequests    []UserSummary `json:"sent_requests"`
}

// UpdateProfileInput is a partial profile update. Absent fields are left unchanged.
type UpdateProfileInput struct {
	Name       *string   `json:"name" binding:"omitempty,max=255"`
	Bio        *string   `json:"bio" binding:"omitempty,max=160"`
	Department *string   `json:"department" binding:"omitempty,max=255"`
	Batch      *string   `json:"batch" binding:"omitempty,max=32"`
	GithubURL  *string   `json:"github_url" binding:"omitempty,max=512"`
	Skills     *[]string `json:"skills" binding:"omitempty,max=50"`
	Interests  *[]string `json:"interests" binding:"omitempty,max=50"`
}

// PaginatedUserResponse is a page of search results.
type PaginatedUserResponse = PaginatedResponse[PublicUserResponse]

// endregion

// region --- User Handlers ---

// SearchUsers godoc
// @Summary      Search for users
// @Description  Searches users by name or handle with pagination. The caller is never included.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        q     query     string  false  "Search query for name or handle"
// @Param        page  query     int     false  "Page number" default(1)
// @Param        limit query     int     false  "Items per page" default(10)
// @Success      200   {object}  PaginatedUserResponse
// @Failure      401   {object}  apperror.ErrorResponse
// @Router       /users [get]
func SearchUsers(c *gin.Context) {
	viewerID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	page, limit := parsePage(c)
	ctx := c.Request.Context()

	query := database.DB.WithContext(ctx).Model(&models.User{}).Where("id <> ?", viewerID)
	if q := strings.ToLower(strings.TrimSpace(c.Query("q"))); q != "" {
		pattern := "%" + escapeLike(q) + "%"
		query = query.Where(`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(handle) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	users, totalItems, err := Paginate[models.User](query, page, limit, func(db *gorm.DB) *gorm.DB {
		return db.Order("name").Order("id")
	})
	if err != nil {
		respondError(c, apperror.NewUpstreamFailure("Failed to retrieve users", err))
		return
	}

	responses := make([]PublicUserResponse, 0, len(users))
	for _, user := range users {
		resp, err := buildPublicUserResponse(ctx, user, viewerID)
		if err != nil {
			respondError(c, err)
			return
		}
		responses = append(responses, resp)
	}

	c.JSON(http.StatusOK, NewPaginatedResponse(responses, totalItems, page, limit))
}

// GetUserByID godoc
// @Summary      Get user by ID
// @Description  Retrieves the public profile of a user and their relation to the caller.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User ID"
// @Success      200  {object}  PublicUserResponse
// @Failure      400  {object}  apperror.ErrorResponse
// @Failure      401  {object}  apperror.ErrorResponse
// @Failure      404  {object}  apperror.ErrorResponse
// @Router       /users/{id} [get]
func GetUserByID(c *gin.Context) {
	viewerID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}
	targetID, err := parseIDParam(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	// If target is the same as viewer, serve the private profile.
	if viewerID == targetID {
		GetMe(c)
		return
	}

	target, err := loadUser(c.Request.Context(), targetID)
	if err != nil {
		respondError(c, err)
		return
	}

	response, err := buildPublicUserResponse(c.Request.Context(), *target, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

// GetMe godoc
// @Summary      Get current user's info
// @Description  Retrieves the private profile of the caller with populated connection lists.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  PrivateUserResponse
// @Failure      401  {object}  apperror.ErrorResponse
// @Failure      404  {object}  apperror.ErrorResponse
// @Router       /users/me [get]
func GetMe(c *gin.Context) {
	viewerID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := loadUser(c.Request.Context(), viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondPrivateProfile(c, *user)
}

// UpdateMe godoc
// @Summary      Update current user's profile
// @Description  Updates the given profile fields. Skills and interests replace the stored lists.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body UpdateProfileInput true "Profile fields"
// @Success      200  {object}  PrivateUserResponse
// @Failure      400  {object}  apperror.ErrorResponse
// @Failure      401  {object}  apperror.ErrorResponse
// @Router       /users/me [put]
func UpdateMe(c *gin.Context) {
	viewerID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var input UpdateProfileInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, bindError(err))
		return
	}

	ctx := c.Request.Context()
	user, err := loadUser(ctx, viewerID)
	if err != nil {
		respondError(c, err)
		return
	}

	if err := applyProfileUpdate(user, input); err != nil {
		respondError(c, err)
		return
	}

	if err := database.DB.WithContext(ctx).Save(user).Error; err != nil {
		respondError(c, apperror.NewUpstreamFailure("Failed to update profile", err))
		return
	}
	respondPrivateProfile(c, *user)
}

// UploadAvatar godoc
// @Summary      Upload avatar
// @Description  Replaces the caller's avatar with the uploaded image.
// @Tags         users
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        avatar formData file true "Avatar image"
// @Success      200  {object}  PrivateUserResponse
// @Failure      400  {object}  apperror.ErrorResponse
// @Failure      401  {object}  apperror.ErrorResponse
// @Failure      503  {object}  apperror.ErrorResponse
// @Router       /users/me/avatar [put]
func UploadAvatar(c *gin.Context) {
	viewerID, err := currentUser(c)
	if err != nil {
		respondError(c, err)
		return
	}

	file, err := formFile(c, "avatar")
	if err != nil {
		respondError(c, err)
		return
	}
	if file == nil {
		respondError(c, apperror.NewInvalidOperation("avatar file is required"))
		return
	}

	data, err := readUpload(file)
	if err != nil {
		respondError(c, err)
		return
	}
	if kind, _, err := media.DetectKind(data); err != nil || kind != media.KindImage {
		respondError(c, apperror.NewInvalidOperation("Avatar must be an image"))
		return
	}

	ctx := c.Request.Context()
	result, err := upload(ctx, data, file.Filename, media.FolderAvatars)
	if err != nil {
		respondError(c, err)
		return
	}

	user, err := loadUser(ctx, viewerID)
	if err != nil {
		discardUpload(ctx, result)
		respondError(c, err)
		return
	}
	if err := database.DB.WithContext(ctx).Model(user).Update("avatar_url", result.URL).Error; err != nil {
		discardUpload(ctx, result)
		respondError(c, apperror.NewUpstreamFailure("Failed to update avatar", err))
		return
	}
	user.AvatarURL = result.URL
	respondPrivateProfile(c, *user)
}

// endregion

// region --- Helpers ---

func loadUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := database.DB.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NewNotFound("User not found")
	}
	if err != nil {
		return nil, apperror.NewUpstreamFailure("Failed to fetch user", err)
	}
	return &user, nil
}

// loadSummaries returns summaries for ids in the same order. Ids of users that
// no longer exist are skipped.
func loadSummaries(ctx context.Context, ids []uint) ([]UserSummary, error) {
	summaries := make([]UserSummary, 0, len(ids))
	if len(ids) == 0 {
		return summaries, nil
	}

	var users []models.User
	if err := database.DB.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperror.NewUpstreamFailure("Failed to fetch users", err)
	}

	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			summaries = append(summaries, summarize(u))
		}
	}
	return summaries, nil
}

func summarize(u models.User) UserSummary {
	return UserSummary{ID: u.ID, Name: u.Name, Handle: u.Handle, Role: u.Role, AvatarURL: u.AvatarURL}
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func buildPublicUserResponse(ctx context.Context, target models.User, viewerID uint) (PublicUserResponse, error) {
	svc := connection.NewService(database.DB)

	count, err := svc.CountConnections(ctx, target.ID)
	if err != nil {
		return PublicUserResponse{}, err
	}
	status, err := svc.Status(ctx, viewerID, target.ID)
	if err != nil {
		return PublicUserResponse{}, err
	}

	return PublicUserResponse{
		UserSummary:      summarize(target),
		Bio:              target.Bio,
		Department:       target.Department,
		Batch:            target.Batch,
		GithubURL:        target.GithubURL,
		Skills:           orEmpty(target.Skills),
		Interests:        orEmpty(target.Interests),
		ConnectionsCount: count,
		Status:           status,
	}, nil
}

func buildPrivateUserResponse(ctx context.Context, user models.User) (PrivateUserResponse, error) {
	view, err := connection.NewService(database.DB).View(ctx, user.ID)
	if err != nil {
		return PrivateUserResponse{}, err
	}

	resp := PrivateUserResponse{
		UserSummary: summarize(user),
		Email:       user.Email,
		Bio:         user.Bio,
		Department:  user.Department,
		Batch:       user.Batch,
		GithubURL:   user.GithubURL,
		Skills:      orEmpty(user.Skills),
		Interests:   orEmpty(user.Interests),
		CreatedAt:   user.CreatedAt,
	}
	if resp.Connections, err = loadSummaries(ctx, view.Connections); err != nil {
		return PrivateUserResponse{}, err
	}
	if resp.PendingRequests, err = loadSummaries(ctx, view.PendingRequests); err != nil {
		return PrivateUserResponse{}, err
	}
	if resp.SentRequests, err = loadSummaries(ctx, view.SentRequests); err != nil {
		return PrivateUserResponse{}, err
	}
	return resp, nil
}

func respondPrivateProfile(c *gin.Context, user models.User) {
	response, err := buildPrivateUserResponse(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response)
}

func applyProfileUpdate(user *models.User, input UpdateProfileInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return apperror.NewInvalidOperation("name must not be empty")
		}
		user.Name = name
	}
	if input.Bio != nil {
		user.Bio = strings.TrimSpace(*input.Bio)
	}
	if input.Department != nil {
		user.Department = strings.TrimSpace(*input.Department)
	}
	if input.Batch != nil {
		user.Batch = strings.TrimSpace(*input.Batch)
	}
	if input.GithubURL != nil {
		link := strings.TrimSpace(*input.GithubURL)
		if link != "" {
			u, err := url.Parse(link)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
				return apperror.NewInvalidOperation("github_url must be an http(s) URL")
			}
		}
		user.GithubURL = link
	}
	if input.Skills != nil {
		skills, err := normalizeList(*input.Skills, "skills")
		if err != nil {
			return err
		}
		user.Skills = skills
	}
	if input.Interests != nil {
		interests, err := normalizeList(*input.Interests, "interests")
		if err != nil {
			return err
		}
		user.Interests = interests
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes the LIKE wildcards in s match literally.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// normalizeList trims every entry and rejects empty ones. Order is kept.
func normalizeList(values []string, field string) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, apperror.NewInvalidOperation(field + " entries must not be empty")
		}
		out = append(out, v)
	}
	return out, nil
}

// discardUpload removes a file whose owning record could not be saved.
func discardUpload(ctx context.Context, res *media.Result) {
	if media.DefaultUploader == nil {
		return
	}
	if err := media.DefaultUploader.Remove(ctx, res); err != nil {
		zap.L().Warn("failed to remove orphaned upload", zap.String("object", res.Object), zap.Error(err))
	}
}

// upload sends data to the configured media uploader.
func upload(ctx context.Context, data []byte, name, folder string) (*media.Result, error) {
	if media.DefaultUploader == nil {
		return nil, apperror.NewUpstreamFailure("Media uploads are not configured", nil)
	}
	return media.DefaultUploader.Upload(ctx, data, name, folder)
}

// endregion
