package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"

	"resale-admin/internal/models"
	"resale-admin/internal/store"
)

// PropertyHandler handles property CRUD
type PropertyHandler struct {
	repo store.PropertyRepository
}

// NewPropertyHandler creates a new property handler
func NewPropertyHandler(repo store.PropertyRepository) *PropertyHandler {
	return &PropertyHandler{repo: repo}
}

// propertyRequest is the editable part of a property. The label is derived.
type propertyRequest struct {
	Name    string `json:"name" binding:"required,max=255"`
	Tag     string `json:"tag" binding:"max=50"`
	Address string `json:"address"`
	MapURL  string `json:"map_url" binding:"omitempty,url"`
}

// ListProperties returns every property
func (h *PropertyHandler) ListProperties(c *gin.Context) {
	props, err := h.repo.ListProperties(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"properties": props,
		"count":      len(props),
	})
}

// CreateProperty registers a property
func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	var req propertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	var p models.Property
	if err := copier.Copy(&p, &req); err != nil {
		respondError(c, err)
		return
	}
	if err := h.repo.SaveProperty(c.Request.Context(), &p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// UpdateProperty replaces the editable fields of a property
func (h *PropertyHandler) UpdateProperty(c *gin.Context) {
	var req propertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	p, err := h.repo.GetProperty(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if err := copier.Copy(p, &req); err != nil {
		respondError(c, err)
		return
	}
	if err := h.repo.SaveProperty(c.Request.Context(), p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteProperty removes a property. Its reservations are kept.
func (h *PropertyHandler) DeleteProperty(c *gin.Context) {
	id := c.Param("id")
	if err := h.repo.DeleteProperty(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "deleted": true})
}
