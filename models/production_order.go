package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of a production order
type OrderStatus string

const (
	StatusPendiente  OrderStatus = "Pendiente"
	StatusEnProceso  OrderStatus = "EnProceso"
	StatusCompletada OrderStatus = "Completada"
	StatusCancelada  OrderStatus = "Cancelada"
)

// orderTransitions lists, for every status, the statuses it may move to.
// Anything absent from the table is illegal; terminal states map to nothing.
var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPendiente:  {StatusEnProceso, StatusCancelada},
	StatusEnProceso:  {StatusCompletada, StatusCancelada},
	StatusCompletada: {},
	StatusCancelada:  {},
}

// OrderStatuses returns every status in lifecycle order
func OrderStatuses() []OrderStatus {
	return []OrderStatus{StatusPendiente, StatusEnProceso, StatusCompletada, StatusCancelada}
}

// ParseOrderStatus accepts the stored form ("EnProceso") as well as the display
// form ("En Proceso"), case-insensitively.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ReplaceAll(strings.TrimSpace(value), " ", "")
	for _, s := range OrderStatuses() {
		if strings.EqualFold(string(s), normalized) {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", value)
}

// IsValid reports whether s is one of the known statuses
func (s OrderStatus) IsValid() bool {
	_, ok := orderTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are possible from s
func (s OrderStatus) IsTerminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether moving from s to next is legal.
// Staying in the same status is always legal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !s.IsValid() || !next.IsValid() {
		return false
	}
	if s == next {
		return true
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses an order in s may be set to, s included.
// Terminal statuses return only themselves.
func (s OrderStatus) NextStatuses() []OrderStatus {
	if !s.IsValid() {
		return nil
	}
	return append([]OrderStatus{s}, orderTransitions[s]...)
}

// Label returns the human readable form of the status
func (s OrderStatus) Label() string {
	if s == StatusEnProceso {
		return "En Proceso"
	}
	return string(s)
}

// ProductionOrder represents an order to manufacture a quantity of a product
type ProductionOrder struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProductID uint            `gorm:"not null;index" json:"product_id"` // foreign key to products table
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"product,omitempty"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"quantity"`
	OrderDate time.Time       `gorm:"not null;index" json:"order_date"`
	Status    OrderStatus     `gorm:"type:varchar(20);not null;default:'Pendiente';index" json:"status"`
	IsDeleted bool            `gorm:"not null;default:false;index" json:"is_deleted"` // trash flag, independent of status
	Version   uint            `gorm:"not null;default:1" json:"version"`               // optimistic concurrency token
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the ProductionOrder model
func (ProductionOrder) TableName() string {
	return "production_orders"
}

// All returns every model managed by the catalog store, in migration order
func All() []interface{} {
	return []interface{}{
		&UnitOfMeasure{},
		&Material{},
		&Product{},
		&BomItem{},
		&ProductionOrder{},
	}
}
