package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/transformers-api/models"
	"github.com/kendall-kelly/transformers-api/services"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// orderDetail is an order with its resolved material requirements and the
// statuses it may move to next
type orderDetail struct {
	*models.ProductionOrder
	StatusLabel  string                         `json:"status_label"`
	NextStatuses []models.OrderStatus           `json:"next_statuses"`
	Requirements []services.MaterialRequirement `json:"requirements"`
}

// ChangeStatusRequest represents the request body for PATCH /orders/:id/status
type ChangeStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Version *uint  `json:"version"`
}

// CreateOrder handles POST /api/v1/orders
func CreateOrder(c *gin.Context) {
	var req services.OrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	order, err := orderService().Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	logOrderChange(c, "create", order)
	respondData(c, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders?status=&from=&to=&product_id=&page=
func ListOrders(c *gin.Context) {
	listOrders(c, false)
}

// ListTrashedOrders handles GET /api/v1/orders/trash
func ListTrashedOrders(c *gin.Context) {
	listOrders(c, true)
}

func listOrders(c *gin.Context, trash bool) {
	filter, fields := orderFilterFromQuery(c)
	if len(fields) > 0 {
		writeError(c, http.StatusBadRequest, services.CodeValidation, "Invalid request data", fields)
		return
	}
	filter.Trash = trash

	page, err := orderService().List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, page)
}

// orderFilterFromQuery parses the listing query string; the returned map
// holds one message per malformed parameter
func orderFilterFromQuery(c *gin.Context) (services.OrderFilter, map[string]string) {
	filter := services.OrderFilter{Status: c.Query("status")}
	fields := map[string]string{}

	parseDate := func(key string) *time.Time {
		raw := c.Query(key)
		if raw == "" {
			return nil
		}
		t, err := time.Parse(dateLayout, raw)
		if err != nil {
			fields[key] = "must be a date formatted as YYYY-MM-DD"
			return nil
		}
		return &t
	}
	filter.From = parseDate("from")
	filter.To = parseDate("to")

	if raw := c.Query("product_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			fields["product_id"] = "must be a positive integer"
		}
		filter.ProductID = uint(id)
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			fields["page"] = "must be an integer"
		}
		filter.Page = page
	}
	return filter, fields
}

// PreviewOrder handles GET /api/v1/orders/preview?product_id=&quantity= and
// resolves the BOM of an order before it is placed
func PreviewOrder(c *gin.Context) {
	productID, _ := strconv.ParseUint(c.Query("product_id"), 10, 32)
	quantity, err := decimal.NewFromString(c.Query("quantity"))
	if err != nil {
		quantity = decimal.Zero
	}

	requirements, err := orderService().PreviewBom(c.Request.Context(), uint(productID), quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, requirements)
}

// GetOrder handles GET /api/v1/orders/:id
func GetOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	orders := orderService()
	order, err := orders.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	requirements, err := orders.Requirements(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondData(c, http.StatusOK, orderDetail{
		ProductionOrder: order,
		StatusLabel:     order.Status.Label(),
		NextStatuses:    order.Status.NextStatuses(),
		Requirements:    requirements,
	})
}

// EditOrder handles PUT /api/v1/orders/:id
func EditOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req services.OrderUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	order, err := orderService().Edit(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	logOrderChange(c, "edit", order)
	respondData(c, http.StatusOK, order)
}

// ChangeOrderStatus handles PATCH /api/v1/orders/:id/status
func ChangeOrderStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		status = models.OrderStatus(req.Status)
	}

	order, err := orderService().ChangeStatus(c.Request.Context(), id, status, req.Version)
	if err != nil {
		respondError(c, err)
		return
	}
	logOrderChange(c, "change status", order)
	respondData(c, http.StatusOK, order)
}

// TrashOrder handles POST /api/v1/orders/:id/trash
func TrashOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	order, err := orderService().MoveToTrash(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	logOrderChange(c, "trash", order)
	respondData(c, http.StatusOK, order)
}

// RestoreOrder handles POST /api/v1/orders/:id/restore
func RestoreOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	order, err := orderService().Restore(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	logOrderChange(c, "restore", order)
	respondData(c, http.StatusOK, order)
}

// DeleteOrder handles DELETE /api/v1/orders/:id and removes the order for good
func DeleteOrder(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := orderService().HardDelete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	logOrderChange(c, "delete", &models.ProductionOrder{ID: id})
	respondMessage(c, "Production order deleted")
}

// GetOrderDocument handles GET /api/v1/orders/:id/document.
// With archive=true the PDF is uploaded to object storage and a presigned URL
// is returned; otherwise the PDF itself is sent, as an attachment when
// download=true.
func GetOrderDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	docs := documentService()
	if c.Query("archive") == "true" {
		archived, err := docs.Archive(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		respondData(c, http.StatusOK, archived)
		return
	}

	doc, err := docs.Render(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	disposition := "inline"
	if c.Query("download") == "true" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, doc.FileName))
	c.Data(http.StatusOK, doc.ContentType, doc.Content)
}
