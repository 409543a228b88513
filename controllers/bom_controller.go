package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/transformers-api/services"
)

// ListBomItems handles GET /api/v1/bom-items
func ListBomItems(c *gin.Context) {
	items, err := bomService().ListBomItems(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, items)
}

// GetBomItem handles GET /api/v1/bom-items/:id
func GetBomItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	item, err := bomService().GetBomItem(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, item)
}

// CreateBomItem handles POST /api/v1/bom-items. A second line for the same
// product and material is refused with CONFLICT.
func CreateBomItem(c *gin.Context) {
	var req services.BomItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	item, err := bomService().CreateBomItem(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, item)
}

// UpdateBomItem handles PUT /api/v1/bom-items/:id
func UpdateBomItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.BomItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	item, err := bomService().UpdateBomItem(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, item)
}

// DeleteBomItem handles DELETE /api/v1/bom-items/:id
func DeleteBomItem(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := bomService().DeleteBomItem(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "BOM item deleted")
}
