package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BomItemPairIndex is the unique index over (product_id, material_id).
// A violation of it is how storage reports a duplicate BOM line.
const BomItemPairIndex = "idx_bom_items_product_material"

// BomItem is one line of a product's bill of materials
type BomItem struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	ProductID       uint            `gorm:"not null;uniqueIndex:idx_bom_items_product_material,priority:1" json:"product_id"`
	Product         *Product        `gorm:"foreignKey:ProductID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"product,omitempty"`
	MaterialID      uint            `gorm:"not null;index;uniqueIndex:idx_bom_items_product_material,priority:2" json:"material_id"`
	Material        *Material       `gorm:"foreignKey:MaterialID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"material,omitempty"`
	QuantityPerUnit decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity_per_unit"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for the BomItem model
func (BomItem) TableName() string {
	return "bom_items"
}
