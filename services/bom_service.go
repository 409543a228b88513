package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/kendall-kelly/transformers-api/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BomItemInput holds the editable fields of a BOM line
type BomItemInput struct {
	ProductID       uint            `json:"product_id" validate:"required"`
	MaterialID      uint            `json:"material_id" validate:"required"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit" validate:"dgt=0,dlte=999999,dscale=4"`
}

// MaterialRequirement is the total amount of one material needed to build a
// quantity of a product
type MaterialRequirement struct {
	MaterialID      uint            `json:"material_id"`
	MaterialCode    string          `json:"material_code"`
	MaterialName    string          `json:"material_name"`
	UnitName        string          `json:"unit_name"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
	TotalQuantity   decimal.Decimal `json:"total_quantity"`
}

// BomService manages BOM lines and expands a product into its material requirements
type BomService struct {
	store
}

// NewBomService creates a BOM service over db
func NewBomService(db *gorm.DB, opts Options) *BomService {
	return &BomService{store: newStore(db, opts)}
}

// ListBomItems returns every BOM line with its product and material, ordered by
// product name
func (s *BomService) ListBomItems(ctx context.Context) ([]models.BomItem, error) {
	var items []models.BomItem
	err := s.read(ctx, "list bom items", func(db *gorm.DB) error {
		return db.Joins("JOIN products ON products.id = bom_items.product_id").
			Preload("Product").
			Preload("Material.UnitOfMeasure").
			Order("products.name ASC").
			Order("bom_items.id ASC").
			Find(&items).Error
	})
	return items, err
}

// ListBomItemsForProduct returns the BOM lines of one product
func (s *BomService) ListBomItemsForProduct(ctx context.Context, productID uint) ([]models.BomItem, error) {
	var items []models.BomItem
	err := s.read(ctx, "list product bom", func(db *gorm.DB) error {
		var product models.Product
		if err := findProduct(db, productID, &product); err != nil {
			return err
		}
		return db.Preload("Material.UnitOfMeasure").
			Where("product_id = ?", productID).
			Order("id ASC").
			Find(&items).Error
	})
	return items, err
}

// GetBomItem returns one BOM line with its product and material
func (s *BomService) GetBomItem(ctx context.Context, id uint) (*models.BomItem, error) {
	var item models.BomItem
	err := s.read(ctx, "get bom item", func(db *gorm.DB) error {
		return findBomItem(db, id, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CreateBomItem adds a material to a product's BOM. A second line for the
// same product and material is a ConflictError.
func (s *BomService) CreateBomItem(ctx context.Context, input BomItemInput) (*models.BomItem, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var item models.BomItem
	err := s.transaction(ctx, "create bom item", func(tx *gorm.DB) error {
		if err := ensureBomReferences(tx, input.ProductID, input.MaterialID); err != nil {
			return err
		}
		if err := ensureBomPairFree(tx, input.ProductID, input.MaterialID, 0); err != nil {
			return err
		}

		created := models.BomItem{
			ProductID:       input.ProductID,
			MaterialID:      input.MaterialID,
			QuantityPerUnit: input.QuantityPerUnit,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		return findBomItem(tx, created.ID, &item)
	})
	if err != nil {
		return nil, bomConflict(err, input)
	}
	return &item, nil
}

// UpdateBomItem replaces the product, material and quantity of a BOM line
func (s *BomService) UpdateBomItem(ctx context.Context, id uint, input BomItemInput) (*models.BomItem, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var item models.BomItem
	err := s.transaction(ctx, "update bom item", func(tx *gorm.DB) error {
		if err := findBomItem(tx, id, &item); err != nil {
			return err
		}
		if err := ensureBomReferences(tx, input.ProductID, input.MaterialID); err != nil {
			return err
		}
		if err := ensureBomPairFree(tx, input.ProductID, input.MaterialID, id); err != nil {
			return err
		}

		if err := tx.Model(&models.BomItem{}).Where("id = ?", id).Updates(map[string]interface{}{
			"product_id":        input.ProductID,
			"material_id":       input.MaterialID,
			"quantity_per_unit": input.QuantityPerUnit,
		}).Error; err != nil {
			return err
		}
		return findBomItem(tx, id, &item)
	})
	if err != nil {
		return nil, bomConflict(err, input)
	}
	return &item, nil
}

// DeleteBomItem removes a BOM line
func (s *BomService) DeleteBomItem(ctx context.Context, id uint) error {
	return s.transaction(ctx, "delete bom item", func(tx *gorm.DB) error {
		result := tx.Delete(&models.BomItem{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Entity: "bom item", ID: id}
		}
		return nil
	})
}

// Resolve expands quantity units of a product into the total amount of every
// material on its BOM, in BOM line order. A product with no BOM lines resolves
// to an empty list.
func (s *BomService) Resolve(ctx context.Context, productID uint, quantity decimal.Decimal) ([]MaterialRequirement, error) {
	if !quantity.IsPositive() {
		return nil, newValidationError("quantity", "must be greater than 0")
	}

	var requirements []MaterialRequirement
	err := s.read(ctx, "resolve bom", func(db *gorm.DB) error {
		var err error
		requirements, err = resolveBom(db, productID, quantity)
		return err
	})
	if err != nil {
		return nil, err
	}
	return requirements, nil
}

// resolveBom is shared with the order service so that it runs on whatever
// session the caller already holds
func resolveBom(db *gorm.DB, productID uint, quantity decimal.Decimal) ([]MaterialRequirement, error) {
	var product models.Product
	if err := findProduct(db, productID, &product); err != nil {
		return nil, err
	}

	var items []models.BomItem
	if err := db.Preload("Material.UnitOfMeasure").
		Where("product_id = ?", productID).
		Order("id ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}

	requirements := make([]MaterialRequirement, 0, len(items))
	for _, item := range items {
		req := MaterialRequirement{
			MaterialID:      item.MaterialID,
			QuantityPerUnit: item.QuantityPerUnit,
			TotalQuantity:   item.QuantityPerUnit.Mul(quantity),
		}
		if item.Material != nil {
			req.MaterialCode = item.Material.Code
			req.MaterialName = item.Material.Name
			req.UnitName = item.Material.UnitName()
		}
		requirements = append(requirements, req)
	}
	return requirements, nil
}

func findBomItem(db *gorm.DB, id uint, item *models.BomItem) error {
	if err := db.Preload("Product").Preload("Material.UnitOfMeasure").First(item, id).Error; err != nil {
		if isNotFound(err) {
			return &NotFoundError{Entity: "bom item", ID: id}
		}
		return err
	}
	return nil
}

func ensureBomReferences(tx *gorm.DB, productID, materialID uint) error {
	fields := map[string]string{}

	var count int64
	if err := tx.Model(&models.Product{}).Where("id = ?", productID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		fields["product_id"] = "must reference an existing product"
	}

	if err := tx.Model(&models.Material{}).Where("id = ?", materialID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		fields["material_id"] = "must reference an existing material"
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func ensureBomPairFree(tx *gorm.DB, productID, materialID, exceptID uint) error {
	var existing models.BomItem
	q := tx.Where("product_id = ? AND material_id = ?", productID, materialID)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Take(&existing).Error
	if err == nil {
		return duplicateBomItem(productID, materialID, existing.ID)
	}
	if isNotFound(err) {
		return nil
	}
	return err
}

func duplicateBomItem(productID, materialID, existingID uint) *ConflictError {
	return &ConflictError{
		Entity:     "bom item",
		Message:    fmt.Sprintf("material %d is already on the BOM of product %d", materialID, productID),
		ExistingID: existingID,
	}
}

// bomConflict turns a unique index violation raised by the insert or the
// commit into the same ConflictError the pre-check returns
func bomConflict(err error, input BomItemInput) error {
	var unavailable *StorageUnavailableError
	if errors.As(err, &unavailable) && isUniqueViolation(unavailable.Err) {
		log.Warn().
			Uint("product_id", input.ProductID).
			Uint("material_id", input.MaterialID).
			Msg("duplicate bom item rejected by storage")
		return duplicateBomItem(input.ProductID, input.MaterialID, 0)
	}
	return err
}
