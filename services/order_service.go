package services

import (
	"context"
	"time"

	"github.com/kendall-kelly/transformers-api/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderInput holds the fields required to create a production order
type OrderInput struct {
	ProductID uint            `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"dgte=1,dlte=999999,dscale=2"`
}

// OrderUpdate holds the fields of an order edit. Status and Version are
// optional; when Version is set it must match the stored version.
type OrderUpdate struct {
	ProductID uint               `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal    `json:"quantity" validate:"dgte=1,dlte=999999,dscale=2"`
	Status    models.OrderStatus `json:"status,omitempty"`
	Version   *uint              `json:"version,omitempty"`
}

// OrderFilter selects the orders returned by List
type OrderFilter struct {
	Status    string
	From      *time.Time
	To        *time.Time // inclusive through the end of that day
	ProductID uint
	Page      int
	Trash     bool // only trashed orders instead of only live ones
}

// OrderPage is one page of an order listing
type OrderPage struct {
	Orders     []models.ProductionOrder `json:"orders"`
	Page       int                      `json:"page"`
	PageSize   int                      `json:"page_size"`
	Total      int64                    `json:"total"`
	TotalPages int                      `json:"total_pages"`
}

// OrderService runs the production order lifecycle: creation, edits guarded
// by the status table and the version column, the trash workflow and
// physical deletion
type OrderService struct {
	store
	documents DocumentStore
	now       func() time.Time
}

// NewOrderService creates an order service over db
func NewOrderService(db *gorm.DB, opts Options) *OrderService {
	return &OrderService{
		store: newStore(db, opts),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// WithDocumentStore makes HardDelete remove the archived document of the order
func (s *OrderService) WithDocumentStore(documents DocumentStore) *OrderService {
	s.documents = documents
	return s
}

// Create places a new order in Pendiente, dated now
func (s *OrderService) Create(ctx context.Context, input OrderInput) (*models.ProductionOrder, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var order models.ProductionOrder
	err := s.transaction(ctx, "create order", func(tx *gorm.DB) error {
		if err := ensureOrderProduct(tx, input.ProductID); err != nil {
			return err
		}
		created := models.ProductionOrder{
			ProductID: input.ProductID,
			Quantity:  input.Quantity,
			OrderDate: s.now(),
			Status:    models.StatusPendiente,
			Version:   1,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		return findOrder(tx, created.ID, &order)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Get returns an order with its product, trashed or not
func (s *OrderService) Get(ctx context.Context, id uint) (*models.ProductionOrder, error) {
	var order models.ProductionOrder
	err := s.read(ctx, "get order", func(db *gorm.DB) error {
		return findOrder(db, id, &order)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Requirements resolves the BOM of an order's product for the order quantity
func (s *OrderService) Requirements(ctx context.Context, id uint) ([]MaterialRequirement, error) {
	var requirements []MaterialRequirement
	err := s.read(ctx, "order requirements", func(db *gorm.DB) error {
		var order models.ProductionOrder
		if err := findOrder(db, id, &order); err != nil {
			return err
		}
		var err error
		requirements, err = resolveBom(db, order.ProductID, order.Quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return requirements, nil
}

// PreviewBom resolves the requirements of an order that has not been created yet
func (s *OrderService) PreviewBom(ctx context.Context, productID uint, quantity decimal.Decimal) ([]MaterialRequirement, error) {
	fields := map[string]string{}
	if productID == 0 {
		fields["product_id"] = "is required"
	}
	if !quantity.IsPositive() {
		fields["quantity"] = "must be greater than 0"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	var requirements []MaterialRequirement
	err := s.read(ctx, "preview bom", func(db *gorm.DB) error {
		var err error
		requirements, err = resolveBom(db, productID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return requirements, nil
}

// Edit changes the product, quantity and optionally the status of an order.
// Completada and Cancelada orders cannot be edited.
func (s *OrderService) Edit(ctx context.Context, id uint, input OrderUpdate) (*models.ProductionOrder, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	var target models.OrderStatus
	if input.Status != "" {
		parsed, err := models.ParseOrderStatus(string(input.Status))
		if err != nil {
			return nil, newValidationError("status", "is not a valid order status")
		}
		target = parsed
	}

	var order models.ProductionOrder
	err := s.transaction(ctx, "edit order", func(tx *gorm.DB) error {
		if err := findOrder(tx, id, &order); err != nil {
			return err
		}
		if input.Version != nil && *input.Version != order.Version {
			return &ConcurrencyConflictError{Entity: "production order", ID: id}
		}
		if order.Status.IsTerminal() {
			return &ImmutableStateError{OrderID: id, Status: order.Status}
		}
		if target == "" {
			target = order.Status
		}
		if !order.Status.CanTransitionTo(target) {
			return &InvalidTransitionError{From: order.Status, To: target}
		}
		if err := ensureOrderProduct(tx, input.ProductID); err != nil {
			return err
		}

		if err := writeOrder(tx, &order, map[string]interface{}{
			"product_id": input.ProductID,
			"quantity":   input.Quantity,
			"status":     target,
		}); err != nil {
			return err
		}
		return findOrder(tx, id, &order)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ChangeStatus moves an order along the status table. Setting the current
// status again returns the order unchanged.
func (s *OrderService) ChangeStatus(ctx context.Context, id uint, status models.OrderStatus, version *uint) (*models.ProductionOrder, error) {
	if !status.IsValid() {
		return nil, newValidationError("status", "is not a valid order status")
	}

	var order models.ProductionOrder
	err := s.transaction(ctx, "change order status", func(tx *gorm.DB) error {
		if err := findOrder(tx, id, &order); err != nil {
			return err
		}
		if version != nil && *version != order.Version {
			return &ConcurrencyConflictError{Entity: "production order", ID: id}
		}
		if order.Status == status {
			return nil
		}
		if !order.Status.CanTransitionTo(status) {
			return &InvalidTransitionError{From: order.Status, To: status}
		}

		if err := writeOrder(tx, &order, map[string]interface{}{"status": status}); err != nil {
			return err
		}
		return findOrder(tx, id, &order)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MoveToTrash hides an order from the regular listing. Its status is untouched.
func (s *OrderService) MoveToTrash(ctx context.Context, id uint) (*models.ProductionOrder, error) {
	return s.setDeleted(ctx, "trash order", id, true)
}

// Restore brings a trashed order back to the regular listing
func (s *OrderService) Restore(ctx context.Context, id uint) (*models.ProductionOrder, error) {
	return s.setDeleted(ctx, "restore order", id, false)
}

func (s *OrderService) setDeleted(ctx context.Context, op string, id uint, deleted bool) (*models.ProductionOrder, error) {
	var order models.ProductionOrder
	err := s.transaction(ctx, op, func(tx *gorm.DB) error {
		if err := findOrder(tx, id, &order); err != nil {
			return err
		}
		if order.IsDeleted == deleted {
			return nil
		}
		if err := writeOrder(tx, &order, map[string]interface{}{"is_deleted": deleted}); err != nil {
			return err
		}
		return findOrder(tx, id, &order)
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// HardDelete removes an order permanently, whether or not it is in the trash
func (s *OrderService) HardDelete(ctx context.Context, id uint) error {
	err := s.transaction(ctx, "delete order", func(tx *gorm.DB) error {
		result := tx.Delete(&models.ProductionOrder{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Entity: "production order", ID: id}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.documents != nil {
		key := OrderDocumentKey(id)
		if err := s.documents.Delete(ctx, key); err != nil {
			log.Warn().Err(err).Uint("order_id", id).Str("key", key).Msg("failed to remove archived order document")
		}
	}
	return nil
}

// List returns one page of orders, newest first
func (s *OrderService) List(ctx context.Context, filter OrderFilter) (*OrderPage, error) {
	var status models.OrderStatus
	if filter.Status != "" {
		parsed, err := models.ParseOrderStatus(filter.Status)
		if err != nil {
			return nil, newValidationError("status", "is not a valid order status")
		}
		status = parsed
	}

	result := &OrderPage{
		Orders:   []models.ProductionOrder{},
		Page:     normalizePage(filter.Page),
		PageSize: s.pageSize,
	}

	err := s.read(ctx, "list orders", func(db *gorm.DB) error {
		q := db.Model(&models.ProductionOrder{}).Where("is_deleted = ?", filter.Trash)
		if status != "" {
			q = q.Where("status = ?", status)
		}
		if filter.ProductID != 0 {
			q = q.Where("product_id = ?", filter.ProductID)
		}
		if filter.From != nil {
			q = q.Where("order_date >= ?", *filter.From)
		}
		if filter.To != nil {
			q = q.Where("order_date < ?", startOfNextDay(*filter.To))
		}

		if err := q.Count(&result.Total).Error; err != nil {
			return err
		}
		return q.Preload("Product").
			Order("order_date DESC").
			Order("id DESC").
			Limit(s.pageSize).
			Offset((result.Page - 1) * s.pageSize).
			Find(&result.Orders).Error
	})
	if err != nil {
		return nil, err
	}
	result.TotalPages = pageCount(result.Total, s.pageSize)
	return result, nil
}

func startOfNextDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
}

// writeOrder applies changes only if the stored version still matches the one
// read into order, and bumps it
func writeOrder(tx *gorm.DB, order *models.ProductionOrder, changes map[string]interface{}) error {
	changes["version"] = gorm.Expr("version + 1")
	result := tx.Model(&models.ProductionOrder{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		log.Warn().Uint("order_id", order.ID).Uint("version", order.Version).Msg("stale production order write")
		return &ConcurrencyConflictError{Entity: "production order", ID: order.ID}
	}
	return nil
}

func findOrder(db *gorm.DB, id uint, order *models.ProductionOrder) error {
	if err := db.Preload("Product").First(order, id).Error; err != nil {
		if isNotFound(err) {
			return &NotFoundError{Entity: "production order", ID: id}
		}
		return err
	}
	return nil
}

func ensureOrderProduct(tx *gorm.DB, productID uint) error {
	var count int64
	if err := tx.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return newValidationError("product_id", "must reference an existing product")
	}
	return nil
}
