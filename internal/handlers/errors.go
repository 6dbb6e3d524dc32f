package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"resale-admin/internal/auth"
	"resale-admin/internal/imports"
	"resale-admin/internal/reconcile"
	"resale-admin/internal/reset"
	"resale-admin/internal/store"
)

// respondError maps service errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	var unresolved *reconcile.UnresolvedPropertyError
	switch {
	case errors.As(err, &unresolved):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":            err.Error(),
			"unresolved":       unresolved.Labels,
			"unresolved_total": unresolved.Total,
			"unresolved_rows":  unresolved.Rows,
		})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, store.ErrDuplicateLabel):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, auth.ErrInvalidCredential),
		errors.Is(err, auth.ErrSessionExpired),
		errors.Is(err, auth.ErrInvalidSession):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case errors.Is(err, imports.ErrInvalidUpload), errors.Is(err, reset.ErrNotConfirmed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
