package services

import (
	"context"
	"fmt"

	"github.com/kendall-kelly/transformers-api/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedMaterial struct {
	code, name, unit string
}

type seedBomLine struct {
	product, material string
	quantity          int64
}

var (
	seedUnits     = []string{"kg", "m", "und"}
	seedMaterials = []seedMaterial{
		{"MAT-CU", "Cobre", "kg"},
		{"MAT-AC", "Núcleo de acero", "kg"},
		{"MAT-OL", "Aceite dieléctrico", "m"},
		{"MAT-TOR", "Tornillos", "und"},
	}
	seedProducts = []models.Product{
		{Code: "TRF-100", Name: "Transformador Trifásico 100 kVA", PotenciaKVA: 100, PerdidasPo: 250, PerdidasPcc: 850, Ucc: 4.5, Largo: 1000, Ancho: 800, Alto: 1200, Diametro: 0, Peso: 450},
		{Code: "TRF-200", Name: "Transformador Trifásico 200 kVA", PotenciaKVA: 200, PerdidasPo: 400, PerdidasPcc: 1350, Ucc: 5.2, Largo: 1100, Ancho: 950, Alto: 1400, Diametro: 0, Peso: 780},
		{Code: "TRF-315", Name: "Transformador Trifásico 315 kVA", PotenciaKVA: 315, PerdidasPo: 500, PerdidasPcc: 1850, Ucc: 5.8, Largo: 1200, Ancho: 1000, Alto: 1550, Diametro: 0, Peso: 950},
	}
	seedBom = []seedBomLine{
		{"TRF-100", "MAT-CU", 15},
		{"TRF-100", "MAT-AC", 25},
		{"TRF-100", "MAT-OL", 3},
		{"TRF-200", "MAT-CU", 28},
		{"TRF-200", "MAT-AC", 45},
		{"TRF-200", "MAT-OL", 6},
		{"TRF-200", "MAT-TOR", 30},
		{"TRF-315", "MAT-CU", 42},
		{"TRF-315", "MAT-AC", 70},
		{"TRF-315", "MAT-OL", 9},
	}
)

// SeedCatalog loads the demo catalog. Each table is seeded only while it is
// empty, so running it again is harmless.
func SeedCatalog(ctx context.Context, db *gorm.DB) error {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if empty, err := isEmpty(tx, &models.UnitOfMeasure{}); err != nil {
			return err
		} else if empty {
			for _, name := range seedUnits {
				if err := tx.Create(&models.UnitOfMeasure{Name: name}).Error; err != nil {
					return err
				}
			}
		}

		if empty, err := isEmpty(tx, &models.Material{}); err != nil {
			return err
		} else if empty {
			for _, m := range seedMaterials {
				var unit models.UnitOfMeasure
				if err := tx.Where("name = ?", m.unit).First(&unit).Error; err != nil {
					return fmt.Errorf("seed unit %s: %w", m.unit, err)
				}
				if err := tx.Create(&models.Material{Code: m.code, Name: m.name, UnitOfMeasureID: unit.ID}).Error; err != nil {
					return err
				}
			}
		}

		if empty, err := isEmpty(tx, &models.Product{}); err != nil {
			return err
		} else if empty {
			for _, p := range seedProducts {
				product := p
				if err := tx.Create(&product).Error; err != nil {
					return err
				}
			}
		}

		if empty, err := isEmpty(tx, &models.BomItem{}); err != nil {
			return err
		} else if empty {
			for _, line := range seedBom {
				var product models.Product
				if err := tx.Where("code = ?", line.product).First(&product).Error; err != nil {
					return fmt.Errorf("seed product %s: %w", line.product, err)
				}
				var material models.Material
				if err := tx.Where("code = ?", line.material).First(&material).Error; err != nil {
					return fmt.Errorf("seed material %s: %w", line.material, err)
				}
				if err := tx.Create(&models.BomItem{
					ProductID:       product.ID,
					MaterialID:      material.ID,
					QuantityPerUnit: decimal.NewFromInt(line.quantity),
				}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}

	log.Info().Msg("catalog seed data verified")
	return nil
}

func isEmpty(tx *gorm.DB, model interface{}) (bool, error) {
	var count int64
	if err := tx.Model(model).Count(&count).Error; err != nil {
		return false, err
	}
	return count == 0, nil
}
