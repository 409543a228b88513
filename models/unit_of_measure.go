package models

import "time"

// UnitOfMeasure is the unit a material is counted in (kg, m, und...)
type UnitOfMeasure struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:20;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the UnitOfMeasure model
func (UnitOfMeasure) TableName() string {
	return "units_of_measure"
}
