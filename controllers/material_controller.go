package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/transformers-api/models"
	"github.com/kendall-kelly/transformers-api/services"
)

// materialDetail is a material plus the names of the products whose BOM uses it
type materialDetail struct {
	*models.Material
	UsedIn []string `json:"used_in"`
}

// ListMaterials handles GET /api/v1/materials
func ListMaterials(c *gin.Context) {
	materials, err := catalogService().ListMaterials(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, materials)
}

// GetMaterial handles GET /api/v1/materials/:id
func GetMaterial(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	catalog := catalogService()
	material, err := catalog.GetMaterial(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	usedIn, err := catalog.MaterialUsage(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, materialDetail{Material: material, UsedIn: usedIn})
}

// CreateMaterial handles POST /api/v1/materials
func CreateMaterial(c *gin.Context) {
	var req services.MaterialInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	material, err := catalogService().CreateMaterial(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, material)
}

// UpdateMaterial handles PUT /api/v1/materials/:id
func UpdateMaterial(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.MaterialInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	material, err := catalogService().UpdateMaterial(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, material)
}

// DeleteMaterial handles DELETE /api/v1/materials/:id. Materials on any BOM
// are refused with IN_USE and the list of products.
func DeleteMaterial(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := catalogService().DeleteMaterial(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Material deleted")
}
