package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"acquisitions-api/internal/auth"
	"acquisitions-api/internal/service"
)

const (
	codeUnauthorized = "UNAUTHORIZED"
	codeForbidden    = "FORBIDDEN"
	codeInternal     = "INTERNAL"
)

func respondError(c *gin.Context, status int, message, code string) {
	body := gin.H{"message": message}
	if code != "" {
		body["error"] = code
	}
	c.AbortWithStatusJSON(status, body)
}

// writeError maps service and auth errors onto HTTP responses. Unrecognized
// errors are logged and reported as a generic internal error.
func (h *Handler) writeError(c *gin.Context, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"message": "Validation Failed",
			"details": verr.Fields,
		})
	case errors.Is(err, service.ErrConflict):
		respondError(c, http.StatusConflict, "User already exists with this email", "")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "Invalid email or password", codeUnauthorized)
	case errors.Is(err, auth.ErrUnauthorized):
		respondError(c, http.StatusUnauthorized, "Authentication required", codeUnauthorized)
	case errors.Is(err, auth.ErrForbidden):
		respondError(c, http.StatusForbidden, "You can only update your own information", codeForbidden)
	case errors.Is(err, service.ErrNotFound):
		respondError(c, http.StatusNotFound, "User not found", "")
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"request_id": c.GetString(requestIDKey),
		}).Error("unhandled error")
		respondError(c, http.StatusInternalServerError, "Internal server error", codeInternal)
	}
}

func bindError() error {
	return &service.ValidationError{Fields: map[string]string{"body": "must be a valid JSON object"}}
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &service.ValidationError{Fields: map[string]string{"id": "must be a positive integer"}}
	}
	return id, nil
}
