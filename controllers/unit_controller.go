package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/transformers-api/services"
)

// ListUnits handles GET /api/v1/units
func ListUnits(c *gin.Context) {
	units, err := catalogService().ListUnits(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, units)
}

// GetUnit handles GET /api/v1/units/:id
func GetUnit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	unit, err := catalogService().GetUnit(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, unit)
}

// CreateUnit handles POST /api/v1/units
func CreateUnit(c *gin.Context) {
	var req services.UnitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	unit, err := catalogService().CreateUnit(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, unit)
}

// UpdateUnit handles PUT /api/v1/units/:id
func UpdateUnit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.UnitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	unit, err := catalogService().UpdateUnit(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, unit)
}

// DeleteUnit handles DELETE /api/v1/units/:id. Units still used by a
// material are refused with IN_USE.
func DeleteUnit(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := catalogService().DeleteUnit(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Unit of measure deleted")
}
