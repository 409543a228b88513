package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/transformers-api/config"
	"github.com/kendall-kelly/transformers-api/middleware"
	"github.com/kendall-kelly/transformers-api/models"
	"github.com/kendall-kelly/transformers-api/services"
	"github.com/rs/zerolog/log"
)

// serviceOptions reads the storage settings of the running process, falling
// back to the service defaults when no configuration was loaded
func serviceOptions() services.Options {
	cfg := config.GetConfig()
	if cfg == nil {
		return services.Options{}
	}
	return services.Options{Timeout: cfg.StorageTimeout, PageSize: cfg.PageSize}
}

func catalogService() *services.CatalogService {
	return services.NewCatalogService(config.GetDB(), serviceOptions())
}

func bomService() *services.BomService {
	return services.NewBomService(config.GetDB(), serviceOptions())
}

func orderService() *services.OrderService {
	return services.NewOrderService(config.GetDB(), serviceOptions()).
		WithDocumentStore(services.GetDocumentStore())
}

func importService() *services.ImportService {
	return services.NewImportService(config.GetDB(), serviceOptions())
}

func documentService() *services.DocumentService {
	return services.NewDocumentService(orderService(), services.GetDocumentStore())
}

// httpStatus maps a domain error code to its HTTP status
func httpStatus(code string) int {
	switch code {
	case services.CodeValidation:
		return http.StatusBadRequest
	case services.CodeNotFound:
		return http.StatusNotFound
	case services.CodeConflict, services.CodeInUse, services.CodeConcurrencyConflict:
		return http.StatusConflict
	case services.CodeInvalidTransition, services.CodeImmutableState:
		return http.StatusUnprocessableEntity
	case services.CodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the error envelope for err
func respondError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.RequestIDKey)

	var domainErr services.Error
	if !errors.As(err, &domainErr) {
		log.Error().Err(err).Str("request_id", requestID).Msg("unexpected error")
		writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}

	message := domainErr.Error()
	var details interface{}

	var (
		validationErr *services.ValidationError
		inUseErr      *services.InUseError
		conflictErr   *services.ConflictError
		storageErr    *services.StorageUnavailableError
	)
	switch {
	case errors.As(err, &validationErr):
		message = "Invalid request data"
		details = validationErr.Fields
	case errors.As(err, &inUseErr):
		details = gin.H{
			"dependent_kind": inUseErr.DependentKind,
			"dependents":     inUseErr.Dependents,
		}
	case errors.As(err, &conflictErr):
		if conflictErr.ExistingID != 0 {
			details = gin.H{"existing_id": conflictErr.ExistingID}
		}
	case errors.As(err, &storageErr):
		log.Error().Err(storageErr.Err).Str("op", storageErr.Op).Str("request_id", requestID).Msg("storage unavailable")
		message = "Storage is temporarily unavailable, try again later"
	}

	writeError(c, httpStatus(domainErr.Code()), domainErr.Code(), message, details)
}

func writeError(c *gin.Context, status int, code, message string, details interface{}) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

// respondInvalidRequest reports a body or query string that could not be parsed
func respondInvalidRequest(c *gin.Context, err error) {
	writeError(c, http.StatusBadRequest, services.CodeValidation, "Invalid request data", err.Error())
}

func respondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
	})
}

// parseID reads the :id path parameter. It writes the error response and
// returns false when the parameter is not a positive integer.
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		writeError(c, http.StatusBadRequest, "INVALID_ID", "Invalid ID format", nil)
		return 0, false
	}
	return uint(id), true
}

// actor names who issued the request: the token subject, or "anonymous" when
// authentication is disabled
func actor(c *gin.Context) string {
	if userID, err := middleware.GetUserID(c); err == nil {
		return userID
	}
	return "anonymous"
}

// logOrderChange records a write to a production order and who made it
func logOrderChange(c *gin.Context, action string, order *models.ProductionOrder) {
	event := log.Info().
		Str("action", action).
		Uint("order_id", order.ID).
		Str("actor", actor(c)).
		Str("request_id", c.GetString(middleware.RequestIDKey))
	if order.Status != "" {
		event = event.Str("status", string(order.Status))
	}
	event.Msg("production order changed")
}
