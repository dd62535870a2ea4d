package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bridge-service/bridge_service/internal/domain/entities"
	domainerrors "github.com/bridge-service/bridge_service/internal/domain/errors"
)

// respondError maps a domain error to the JSON error envelope and the
// matching HTTP status
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case domainerrors.IsAuthorization(err):
		status = http.StatusForbidden
	case domainerrors.IsNotFound(err):
		status = http.StatusNotFound
	case domainerrors.IsConflict(err):
		status = http.StatusConflict
	case domainerrors.IsValueError(err):
		status = http.StatusUnprocessableEntity
	}

	c.JSON(status, entities.ErrorResponse{
		Code:    domainerrors.Code(err),
		Message: err.Error(),
	})
}

// respondBadRequest reports a malformed request body or parameter
func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, entities.ErrorResponse{
		Code:    "INVALID_REQUEST",
		Message: err.Error(),
	})
}
