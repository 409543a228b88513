package models

import "time"

// Product represents a manufacturable transformer.
// Electrical losses are in watts, dimensions in millimetres, weight in kilograms.
type Product struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Code        string    `gorm:"size:50;not null;index" json:"code"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	PotenciaKVA int       `gorm:"column:potencia_kva;not null" json:"potencia_kva"`
	PerdidasPo  int       `gorm:"not null" json:"perdidas_po"`
	PerdidasPcc int       `gorm:"not null" json:"perdidas_pcc"`
	Ucc         float64   `gorm:"not null" json:"ucc"` // short-circuit voltage, percent
	Largo       int       `gorm:"not null" json:"largo"`
	Ancho       int       `gorm:"not null" json:"ancho"`
	Alto        int       `gorm:"not null" json:"alto"`
	Diametro    int       `gorm:"not null" json:"diametro"`
	Peso        int       `gorm:"not null" json:"peso"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Product model
func (Product) TableName() string {
	return "products"
}
