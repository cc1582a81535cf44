package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"campusconnect/backend/internal/apperror"
	"campusconnect/backend/internal/auth"
	"campusconnect/backend/internal/config"

	"github.com/gin-gonic/gin"
)

// respondError writes err as an API error. The cause is attached to the gin
// context so the request logger records it; clients only see the message.
func respondError(c *gin.Context, err error) {
	appErr := apperror.From(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.StatusCode(), appErr.ToResponse())
}

// bindError turns a binding or validation failure into an InvalidOperation.
func bindError(err error) error {
	return apperror.NewInvalidOperation(err.Error())
}

// parseIDParam reads a positive numeric path parameter.
func parseIDParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperror.NewInvalidOperation("Invalid " + name)
	}
	return uint(id), nil
}

// currentUser returns the authenticated caller. Routes using it are always
// behind auth.AuthMiddleware.
func currentUser(c *gin.Context) (uint, error) {
	userID, ok := auth.CurrentUserID(c)
	if !ok {
		return 0, apperror.NewUnauthenticated("User not authenticated")
	}
	return userID, nil
}

func maxUploadBytes() int64 {
	if config.AppConfig != nil && config.AppConfig.MaxUploadBytes > 0 {
		return config.AppConfig.MaxUploadBytes
	}
	return 10 << 20
}

// formFile returns the named multipart file, or nil if the field is absent.
func formFile(c *gin.Context, field string) (*multipart.FileHeader, error) {
	file, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.NewInvalidOperation("Invalid " + field + " upload")
	}
	return file, nil
}

// readUpload loads an uploaded file into memory, enforcing the size limit.
func readUpload(file *multipart.FileHeader) ([]byte, error) {
	limit := maxUploadBytes()
	if file.Size > limit {
		return nil, apperror.NewInvalidOperation("File exceeds the maximum upload size")
	}

	f, err := file.Open()
	if err != nil {
		return nil, apperror.NewInvalidOperation("Could not read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, apperror.NewInvalidOperation("Could not read uploaded file")
	}
	if int64(len(data)) > limit {
		return nil, apperror.NewInvalidOperation("File exceeds the maximum upload size")
	}
	if len(data) == 0 {
		return nil, apperror.NewInvalidOperation("Uploaded file is empty")
	}
	return data, nil
}
