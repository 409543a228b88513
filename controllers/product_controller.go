package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/transformers-api/models"
	"github.com/kendall-kelly/transformers-api/services"
	"github.com/shopspring/decimal"
)

// productDetail is a product plus its BOM lines
type productDetail struct {
	*models.Product
	BomItems []models.BomItem `json:"bom_items"`
}

// ListProducts handles GET /api/v1/products?search=&page=
func ListProducts(c *gin.Context) {
	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondInvalidRequest(c, err)
			return
		}
		page = parsed
	}

	result, err := catalogService().ListProducts(c.Request.Context(), c.Query("search"), page)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, result)
}

// GetProduct handles GET /api/v1/products/:id
func GetProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	product, err := catalogService().GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	items, err := bomService().ListBomItemsForProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, productDetail{Product: product, BomItems: items})
}

// CreateProduct handles POST /api/v1/products
func CreateProduct(c *gin.Context) {
	var req services.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	product, err := catalogService().CreateProduct(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusCreated, product)
}

// UpdateProduct handles PUT /api/v1/products/:id
func UpdateProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	product, err := catalogService().UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, product)
}

// DeleteProduct handles DELETE /api/v1/products/:id
func DeleteProduct(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := catalogService().DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	respondMessage(c, "Product deleted")
}

// ResolveProductBom handles GET /api/v1/products/:id/bom?quantity= and
// returns the materials needed to build quantity units of the product
func ResolveProductBom(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	quantity, err := decimal.NewFromString(c.DefaultQuery("quantity", "1"))
	if err != nil {
		writeError(c, http.StatusBadRequest, services.CodeValidation, "Invalid request data",
			map[string]string{"quantity": "must be a number"})
		return
	}

	requirements, err := bomService().Resolve(c.Request.Context(), id, quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{
		"product_id":   id,
		"quantity":     quantity,
		"requirements": requirements,
	})
}
