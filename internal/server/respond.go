package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/choir/backend/internal/repertoire"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps service errors onto HTTP statuses and bodies.
func (h *httpHandler) respondError(c *gin.Context, err error) {
	var notFound *repertoire.NotFoundError
	if errors.As(err, &notFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": notFound.Error()})
		return
	}

	var invalid *repertoire.ValidationError
	if errors.As(err, &invalid) {
		respondValidation(c, []fieldError{{Field: invalid.Field, Message: invalid.Message}})
		return
	}

	var conflict *repertoire.ConstraintError
	if errors.As(err, &conflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "constraint_violation", "message": conflict.Message})
		return
	}

	var serviceErr *repertoire.ServiceError
	if errors.As(err, &serviceErr) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "code": serviceErr.Code()})
		return
	}

	h.logger.Error("unhandled request error", zap.Error(err), zap.String("request_id", c.GetString(requestIDContextKey)))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
}

func respondValidation(c *gin.Context, fields []fieldError) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": fields})
}
