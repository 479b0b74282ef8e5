package handler

import (
	"errors"
	"net/http"

	"betonflow/internal/service"
	"betonflow/pkg/response"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	c.JSON(status, response.Error(status, err.Error()))
}
