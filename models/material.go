package models

import "time"

// Material represents a raw material a product is built from
type Material struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Code            string         `gorm:"size:50;not null;index" json:"code"`
	Name            string         `gorm:"size:100;not null" json:"name"`
	UnitOfMeasureID uint           `gorm:"not null;index" json:"unit_of_measure_id"` // foreign key to units_of_measure
	UnitOfMeasure   *UnitOfMeasure `gorm:"foreignKey:UnitOfMeasureID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"unit_of_measure,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TableName specifies the table name for the Material model
func (Material) TableName() string {
	return "materials"
}

// UnitName returns the name of the material's unit, or "" when the unit was not loaded
func (m Material) UnitName() string {
	if m.UnitOfMeasure == nil {
		return ""
	}
	return m.UnitOfMeasure.Name
}
