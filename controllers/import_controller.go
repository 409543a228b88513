package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/transformers-api/middleware"
	"github.com/kendall-kelly/transformers-api/services"
	"github.com/kendall-kelly/transformers-api/utils"
	"github.com/rs/zerolog/log"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ImportMaterials handles POST /api/v1/materials/import (multipart "file")
func ImportMaterials(c *gin.Context) {
	importWorkbook(c, importService().ImportMaterials)
}

// ImportProducts handles POST /api/v1/products/import (multipart "file")
func ImportProducts(c *gin.Context) {
	importWorkbook(c, importService().ImportProducts)
}

func importWorkbook(c *gin.Context, run func(context.Context, []byte) (*services.ImportResult, error)) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		fileHeader = nil
	}

	content, err := utils.ReadUploadedFile(fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			writeError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message, nil)
			return
		}
		respondError(c, err)
		return
	}

	result, err := run(c.Request.Context(), content)
	if err != nil {
		respondError(c, err)
		return
	}

	log.Info().
		Str("file", fileHeader.Filename).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Str("actor", actor(c)).
		Str("request_id", c.GetString(middleware.RequestIDKey)).
		Msg("spreadsheet imported")
	respondData(c, http.StatusOK, result)
}

// MaterialImportTemplate handles GET /api/v1/materials/import/template
func MaterialImportTemplate(c *gin.Context) {
	sendTemplate(c, "plantilla_materiales.xlsx", services.MaterialTemplate)
}

// ProductImportTemplate handles GET /api/v1/products/import/template
func ProductImportTemplate(c *gin.Context) {
	sendTemplate(c, "plantilla_productos.xlsx", services.ProductTemplate)
}

func sendTemplate(c *gin.Context, fileName string, build func() ([]byte, error)) {
	content, err := build()
	if err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	c.Data(http.StatusOK, xlsxContentType, content)
}
