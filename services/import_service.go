package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/kendall-kelly/transformers-api/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// RowError explains why an import row was skipped
type RowError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a bulk import
type ImportResult struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Errors   []RowError `json:"errors"`
}

func (r *ImportResult) skip(row int, reason string) {
	r.Skipped++
	r.Errors = append(r.Errors, RowError{Row: row, Reason: reason})
}

// ImportService loads materials and products from spreadsheets. Bad rows are
// skipped and reported; they never abort the batch.
type ImportService struct {
	store
}

// NewImportService creates an import service over db
func NewImportService(db *gorm.DB, opts Options) *ImportService {
	return &ImportService{store: newStore(db, opts)}
}

// ImportMaterials imports the rows of a materials workbook. Unit names are
// matched case-insensitively and created when missing.
func (s *ImportService) ImportMaterials(ctx context.Context, content []byte) (*ImportResult, error) {
	rows, err := ReadMaterialRows(content)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: []RowError{}}
	err = s.transaction(ctx, "import materials", func(tx *gorm.DB) error {
		units := map[string]uint{}
		seen := map[string]bool{}

		for _, row := range rows {
			input := MaterialInput{Code: row.Code, Name: row.Name, UnitOfMeasureID: 1}
			if err := rowValidation(input); err != "" {
				result.skip(row.Row, err)
				continue
			}
			if row.Unit == "" {
				result.skip(row.Row, "unit is required")
				continue
			}
			if err := rowValidation(UnitInput{Name: row.Unit}); err != "" {
				result.skip(row.Row, "unit "+err)
				continue
			}

			duplicate, err := codeTaken(tx, &models.Material{}, row.Code, seen)
			if err != nil {
				return err
			}
			if duplicate {
				result.skip(row.Row, fmt.Sprintf("material code %s already exists", row.Code))
				continue
			}

			unitID, err := findOrCreateUnit(tx, row.Unit, units)
			if err != nil {
				return err
			}
			if err := tx.Create(&models.Material{Code: row.Code, Name: row.Name, UnitOfMeasureID: unitID}).Error; err != nil {
				return err
			}
			seen[strings.ToLower(row.Code)] = true
			result.Imported++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("imported", result.Imported).Int("skipped", result.Skipped).Msg("materials import finished")
	return result, nil
}

// ImportProducts imports the rows of a products workbook
func (s *ImportService) ImportProducts(ctx context.Context, content []byte) (*ImportResult, error) {
	rows, err := ReadProductRows(content)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: []RowError{}}
	err = s.transaction(ctx, "import products", func(tx *gorm.DB) error {
		seen := map[string]bool{}

		for _, row := range rows {
			input, reason := productInputFromRow(row)
			if reason == "" {
				reason = rowValidation(input)
			}
			if reason != "" {
				result.skip(row.Row, reason)
				continue
			}

			duplicate, err := codeTaken(tx, &models.Product{}, input.Code, seen)
			if err != nil {
				return err
			}
			if duplicate {
				result.skip(row.Row, fmt.Sprintf("product code %s already exists", input.Code))
				continue
			}

			var product models.Product
			input.apply(&product)
			if err := tx.Create(&product).Error; err != nil {
				return err
			}
			seen[strings.ToLower(input.Code)] = true
			result.Imported++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Int("imported", result.Imported).Int("skipped", result.Skipped).Msg("products import finished")
	return result, nil
}

// rowValidation returns the validation failure of input as a single line, or ""
func rowValidation(input interface{}) string {
	err := validateInput(input)
	if err == nil {
		return ""
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		return strings.TrimPrefix(verr.Error(), "validation failed: ")
	}
	return err.Error()
}

// codeTaken reports whether code is already stored for model or appeared
// earlier in the batch
func codeTaken(tx *gorm.DB, model interface{}, code string, seen map[string]bool) (bool, error) {
	key := strings.ToLower(code)
	if seen[key] {
		return true, nil
	}
	var count int64
	if err := tx.Model(model).Where("LOWER(code) = ?", key).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func findOrCreateUnit(tx *gorm.DB, name string, cache map[string]uint) (uint, error) {
	key := strings.ToLower(name)
	if id, ok := cache[key]; ok {
		return id, nil
	}

	var unit models.UnitOfMeasure
	err := tx.Where("LOWER(name) = ?", key).Order("id ASC").Take(&unit).Error
	switch {
	case err == nil:
	case isNotFound(err):
		unit = models.UnitOfMeasure{Name: name}
		if err := tx.Create(&unit).Error; err != nil {
			return 0, err
		}
		log.Debug().Str("unit", name).Msg("created unit of measure during import")
	default:
		return 0, err
	}

	cache[key] = unit.ID
	return unit.ID, nil
}

func productInputFromRow(row ProductRow) (ProductInput, string) {
	input := ProductInput{Code: row.Code, Name: row.Name}

	ints := []struct {
		field string
		raw   string
		dst   **int
	}{
		{"potencia_kva", row.PotenciaKVA, &input.PotenciaKVA},
		{"perdidas_po", row.PerdidasPo, &input.PerdidasPo},
		{"perdidas_pcc", row.PerdidasPcc, &input.PerdidasPcc},
		{"largo", row.Largo, &input.Largo},
		{"ancho", row.Ancho, &input.Ancho},
		{"alto", row.Alto, &input.Alto},
		{"diametro", row.Diametro, &input.Diametro},
		{"peso", row.Peso, &input.Peso},
	}
	for _, c := range ints {
		if c.raw == "" {
			continue
		}
		v, err := parseNumber(c.raw)
		if err != nil {
			return input, c.field + " is not a number"
		}
		if v != math.Trunc(v) {
			return input, c.field + " must be a whole number"
		}
		n := int(v)
		*c.dst = &n
	}

	if row.Ucc != "" {
		v, err := parseNumber(row.Ucc)
		if err != nil {
			return input, "ucc is not a number"
		}
		input.Ucc = &v
	}
	return input, ""
}

// parseNumber accepts both "4.5" and "4,5"
func parseNumber(raw string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(raw), ",", "."), 64)
}
