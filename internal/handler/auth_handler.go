package handler

import (
	"errors"
	"net/http"
	"strings"

	"campusconnect/backend/internal/apperror"
	"campusconnect/backend/internal/auth"
	"campusconnect/backend/internal/config"
	"campusconnect/backend/internal/database"
	"campusconnect/backend/internal/models"
	"campusconnect/backend/pkg/jwt"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// region --- DTOs ---

// RegisterInput defines the structure for user registration.
type RegisterInput struct {
	Name     string `json:"name" binding:"required,max=255" example:"Ada Lovelace"`
	Email    string `json:"email" binding:"required,email" example:"ada@campus.edu"`
	Handle   string `json:"handle" binding:"required,min=3,max=64,alphanum" example:"ada"`
	Password string `json:"password" binding:"required,min=8" example:"password123"`
	Role     string `json:"role" binding:"omitempty,oneof=student alumni" example:"student"`
}

// LoginInput defines the structure for user login.
type LoginInput struct {
	Email    string `json:"email" binding:"required" example:"ada@campus.edu"`
	Password string `json:"password" binding:"required" example:"password123"`
}

// AuthResponse is returned after a successful registration or login.
type AuthResponse struct {
	Token string              `json:"token"`
	User  PrivateUserResponse `json:"user"`
}

// endregion

// region --- Auth Handlers ---

// RegisterUser godoc
// @Summary      Register a new user
// @Description  Creates a new user, sets the session cookie and returns the profile.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body RegisterInput true "Registration Info"
// @Success      201  {object}  AuthResponse
// @Failure      400  {object}  apperror.ErrorResponse
// @Failure      409  {object}  apperror.ErrorResponse
// @Failure      503  {object}  apperror.ErrorResponse
// @Router       /auth/register [post]
func RegisterUser(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, bindError(err))
		return
	}

	email := models.NormalizeEmail(input.Email)
	handle := models.NormalizeHandle(input.Handle)
	if models.IsReservedHandle(handle) {
		respondError(c, apperror.NewConflict("Email or handle already in use"))
		return
	}
	role := models.RoleStudent
	if input.Role != "" {
		role = models.Role(input.Role)
	}

	db := database.DB.WithContext(c.Request.Context())

	var existing models.User
	err := db.Where("email = ? OR handle = ?", email, handle).First(&existing).Error
	if err == nil {
		respondError(c, apperror.NewConflict("Email or handle already in use"))
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, apperror.NewUpstreamFailure("Failed to check existing users", err))
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(c, apperror.New(apperror.Unknown, "Failed to hash password", err))
		return
	}

	user := models.User{
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		Handle:       handle,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}
	if err := createAccount(db, &user); err != nil {
		respondError(c, err)
		return
	}

	issueSession(c, http.StatusCreated, user)
}

// LoginUser godoc
// @Summary      Log in a user
// @Description  Authenticates a user with email and password and sets the session cookie.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        input body LoginInput true "Login Info"
// @Success      200  {object}  AuthResponse
// @Failure      400  {object}  apperror.ErrorResponse "Invalid input"
// @Failure      401  {object}  apperror.ErrorResponse "Invalid credentials"
// @Router       /auth/login [post]
func LoginUser(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		respondError(c, bindError(err))
		return
	}

	var user models.User
	err := database.DB.WithContext(c.Request.Context()).Where("email = ?", models.NormalizeEmail(input.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondError(c, apperror.NewUnauthenticated("Invalid email or password"))
		return
	}
	if err != nil {
		respondError(c, apperror.NewUpstreamFailure("Failed to fetch user", err))
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		respondError(c, apperror.NewUnauthenticated("Invalid email or password"))
		return
	}

	issueSession(c, http.StatusOK, user)
}

// LogoutUser godoc
// @Summary      Log out
// @Description  Clears the session cookie.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]string "{"message": "Logged out"}"
// @Router       /auth/logout [post]
func LogoutUser(c *gin.Context) {
	setSessionCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// endregion

// createAccount inserts user. The unique indexes decide between concurrent
// registrations of the same email or handle; the loser gets a Conflict.
func createAccount(db *gorm.DB, user *models.User) error {
	err := db.Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperror.NewConflict("Email or handle already in use")
	}
	if err != nil {
		return apperror.NewUpstreamFailure("Failed to create user", err)
	}
	return nil
}

func issueSession(c *gin.Context, status int, user models.User) {
	token, err := jwt.GenerateToken(user.ID)
	if err != nil {
		respondError(c, apperror.New(apperror.Unknown, "Failed to generate token", err))
		return
	}

	profile, err := buildPrivateUserResponse(c.Request.Context(), user)
	if err != nil {
		respondError(c, err)
		return
	}

	setSessionCookie(c, token, int(config.AppConfig.TokenTTL.Seconds()))
	c.JSON(status, AuthResponse{Token: token, User: profile})
}

func setSessionCookie(c *gin.Context, token string, maxAge int) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(auth.CookieName, token, maxAge, "/", "", config.AppConfig.CookieSecure, true)
}
