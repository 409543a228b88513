package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/kendall-kelly/transformers-api/models"
	"gorm.io/gorm"
)

// UnitInput holds the editable fields of a unit of measure
type UnitInput struct {
	Name string `json:"name" validate:"required,max=20"`
}

// MaterialInput holds the editable fields of a material
type MaterialInput struct {
	Code            string `json:"code" validate:"required,max=50"`
	Name            string `json:"name" validate:"required,max=100"`
	UnitOfMeasureID uint   `json:"unit_of_measure_id" validate:"required"`
}

// ProductInput holds the editable fields of a product. Numeric attributes are
// pointers so that a missing value can be told apart from zero.
type ProductInput struct {
	Code        string   `json:"code" validate:"required,max=50"`
	Name        string   `json:"name" validate:"required,max=100"`
	PotenciaKVA *int     `json:"potencia_kva" validate:"required,min=1,max=5000"`
	PerdidasPo  *int     `json:"perdidas_po" validate:"required,min=0,max=10000"`
	PerdidasPcc *int     `json:"perdidas_pcc" validate:"required,min=0,max=10000"`
	Ucc         *float64 `json:"ucc" validate:"required,min=0,max=100"`
	Largo       *int     `json:"largo" validate:"required,min=0,max=10000"`
	Ancho       *int     `json:"ancho" validate:"required,min=0,max=10000"`
	Alto        *int     `json:"alto" validate:"required,min=0,max=10000"`
	Diametro    *int     `json:"diametro" validate:"required,min=0,max=10000"`
	Peso        *int     `json:"peso" validate:"required,min=0,max=10000"`
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Products   []models.Product `json:"products"`
	Search     string           `json:"search,omitempty"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	Total      int64            `json:"total"`
	TotalPages int              `json:"total_pages"`
}

// CatalogService manages units of measure, materials and products, and
// refuses deletions that would leave dangling references
type CatalogService struct {
	store
}

// NewCatalogService creates a catalog service over db
func NewCatalogService(db *gorm.DB, opts Options) *CatalogService {
	return &CatalogService{store: newStore(db, opts)}
}

func (in *UnitInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
}

func (in *MaterialInput) normalize() {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
}

func (in *ProductInput) normalize() {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
}

func (in ProductInput) apply(p *models.Product) {
	p.Code = in.Code
	p.Name = in.Name
	p.PotenciaKVA = *in.PotenciaKVA
	p.PerdidasPo = *in.PerdidasPo
	p.PerdidasPcc = *in.PerdidasPcc
	p.Ucc = *in.Ucc
	p.Largo = *in.Largo
	p.Ancho = *in.Ancho
	p.Alto = *in.Alto
	p.Diametro = *in.Diametro
	p.Peso = *in.Peso
}

func validateInput(input interface{}) error {
	if fields := models.ValidateStruct(input); fields != nil {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// ---- Units of measure ----

// ListUnits returns every unit of measure ordered by name
func (s *CatalogService) ListUnits(ctx context.Context) ([]models.UnitOfMeasure, error) {
	var units []models.UnitOfMeasure
	err := s.read(ctx, "list units", func(db *gorm.DB) error {
		return db.Order("name ASC").Find(&units).Error
	})
	return units, err
}

// GetUnit returns a single unit of measure
func (s *CatalogService) GetUnit(ctx context.Context, id uint) (*models.UnitOfMeasure, error) {
	var unit models.UnitOfMeasure
	err := s.read(ctx, "get unit", func(db *gorm.DB) error {
		return findUnit(db, id, &unit)
	})
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// CreateUnit creates a unit of measure. Names are unique by convention; an
// exact duplicate is rejected with a ConflictError.
func (s *CatalogService) CreateUnit(ctx context.Context, input UnitInput) (*models.UnitOfMeasure, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	unit := models.UnitOfMeasure{Name: input.Name}
	err := s.transaction(ctx, "create unit", func(tx *gorm.DB) error {
		if err := ensureUnitNameFree(tx, input.Name, 0); err != nil {
			return err
		}
		return tx.Create(&unit).Error
	})
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// UpdateUnit renames a unit of measure
func (s *CatalogService) UpdateUnit(ctx context.Context, id uint, input UnitInput) (*models.UnitOfMeasure, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var unit models.UnitOfMeasure
	err := s.transaction(ctx, "update unit", func(tx *gorm.DB) error {
		if err := findUnit(tx, id, &unit); err != nil {
			return err
		}
		if err := ensureUnitNameFree(tx, input.Name, id); err != nil {
			return err
		}
		if err := tx.Model(&unit).Update("name", input.Name).Error; err != nil {
			return err
		}
		return findUnit(tx, id, &unit)
	})
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// DeleteUnit deletes a unit of measure that no material references
func (s *CatalogService) DeleteUnit(ctx context.Context, id uint) error {
	return s.transaction(ctx, "delete unit", func(tx *gorm.DB) error {
		var unit models.UnitOfMeasure
		if err := findUnit(tx, id, &unit); err != nil {
			return err
		}

		var codes []string
		if err := tx.Model(&models.Material{}).
			Where("unit_of_measure_id = ?", id).
			Order("code ASC").
			Pluck("code", &codes).Error; err != nil {
			return err
		}
		if len(codes) > 0 {
			return &InUseError{Entity: "unit of measure", ID: id, DependentKind: "materials", Dependents: codes}
		}

		if err := tx.Delete(&unit).Error; err != nil {
			if isForeignKeyViolation(err) {
				return &InUseError{Entity: "unit of measure", ID: id, DependentKind: "materials"}
			}
			return err
		}
		return nil
	})
}

func findUnit(db *gorm.DB, id uint, unit *models.UnitOfMeasure) error {
	if err := db.First(unit, id).Error; err != nil {
		if isNotFound(err) {
			return &NotFoundError{Entity: "unit of measure", ID: id}
		}
		return err
	}
	return nil
}

func ensureUnitNameFree(tx *gorm.DB, name string, exceptID uint) error {
	var existing models.UnitOfMeasure
	q := tx.Where("name = ?", name)
	if exceptID != 0 {
		q = q.Where("id <> ?", exceptID)
	}
	err := q.Take(&existing).Error
	if err == nil {
		return &ConflictError{
			Entity:     "unit of measure",
			Message:    "a unit of measure named " + name + " already exists",
			ExistingID: existing.ID,
		}
	}
	if isNotFound(err) {
		return nil
	}
	return err
}

// ---- Materials ----

// ListMaterials returns every material with its unit, ordered by name
func (s *CatalogService) ListMaterials(ctx context.Context) ([]models.Material, error) {
	var materials []models.Material
	err := s.read(ctx, "list materials", func(db *gorm.DB) error {
		return db.Preload("UnitOfMeasure").Order("name ASC").Find(&materials).Error
	})
	return materials, err
}

// GetMaterial returns a material with its unit
func (s *CatalogService) GetMaterial(ctx context.Context, id uint) (*models.Material, error) {
	var material models.Material
	err := s.read(ctx, "get material", func(db *gorm.DB) error {
		return findMaterial(db, id, &material)
	})
	if err != nil {
		return nil, err
	}
	return &material, nil
}

// MaterialUsage returns the names of the products whose BOM lists the material
func (s *CatalogService) MaterialUsage(ctx context.Context, id uint) ([]string, error) {
	var names []string
	err := s.read(ctx, "material usage", func(db *gorm.DB) error {
		var material models.Material
		if err := findMaterial(db, id, &material); err != nil {
			return err
		}
		var err error
		names, err = productsUsingMaterial(db, id)
		return err
	})
	return names, err
}

// CreateMaterial creates a material for an existing unit of measure
func (s *CatalogService) CreateMaterial(ctx context.Context, input MaterialInput) (*models.Material, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var material models.Material
	err := s.transaction(ctx, "create material", func(tx *gorm.DB) error {
		if err := ensureUnitExists(tx, input.UnitOfMeasureID); err != nil {
			return err
		}
		created := models.Material{Code: input.Code, Name: input.Name, UnitOfMeasureID: input.UnitOfMeasureID}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}
		return findMaterial(tx, created.ID, &material)
	})
	if err != nil {
		return nil, err
	}
	return &material, nil
}

// UpdateMaterial replaces the editable fields of a material
func (s *CatalogService) UpdateMaterial(ctx context.Context, id uint, input MaterialInput) (*models.Material, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var material models.Material
	err := s.transaction(ctx, "update material", func(tx *gorm.DB) error {
		if err := findMaterial(tx, id, &material); err != nil {
			return err
		}
		if err := ensureUnitExists(tx, input.UnitOfMeasureID); err != nil {
			return err
		}
		if err := tx.Model(&models.Material{}).Where("id = ?", id).Updates(map[string]interface{}{
			"code":               input.Code,
			"name":               input.Name,
			"unit_of_measure_id": input.UnitOfMeasureID,
		}).Error; err != nil {
			return err
		}
		return findMaterial(tx, id, &material)
	})
	if err != nil {
		return nil, err
	}
	return &material, nil
}

// DeleteMaterial deletes a material that no BOM line references
func (s *CatalogService) DeleteMaterial(ctx context.Context, id uint) error {
	return s.transaction(ctx, "delete material", func(tx *gorm.DB) error {
		var material models.Material
		if err := findMaterial(tx, id, &material); err != nil {
			return err
		}

		products, err := productsUsingMaterial(tx, id)
		if err != nil {
			return err
		}
		if len(products) > 0 {
			return &InUseError{Entity: "material", ID: id, DependentKind: "products", Dependents: products}
		}

		if err := tx.Delete(&models.Material{}, id).Error; err != nil {
			if isForeignKeyViolation(err) {
				return &InUseError{Entity: "material", ID: id, DependentKind: "products"}
			}
			return err
		}
		return nil
	})
}

func findMaterial(db *gorm.DB, id uint, material *models.Material) error {
	if err := db.Preload("UnitOfMeasure").First(material, id).Error; err != nil {
		if isNotFound(err) {
			return &NotFoundError{Entity: "material", ID: id}
		}
		return err
	}
	return nil
}

func ensureUnitExists(tx *gorm.DB, id uint) error {
	var count int64
	if err := tx.Model(&models.UnitOfMeasure{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return newValidationError("unit_of_measure_id", "must reference an existing unit of measure")
	}
	return nil
}

func productsUsingMaterial(db *gorm.DB, materialID uint) ([]string, error) {
	var names []string
	err := db.Model(&models.BomItem{}).
		Joins("JOIN products ON products.id = bom_items.product_id").
		Where("bom_items.material_id = ?", materialID).
		Distinct().
		Order("products.name ASC").
		Pluck("products.name", &names).Error
	return names, err
}

// ---- Products ----

// likeEscaper makes LIKE wildcards in a search term match literally
var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// ListProducts returns one page of products ordered by name. search matches
// name or code, case-insensitively.
func (s *CatalogService) ListProducts(ctx context.Context, search string, page int) (*ProductPage, error) {
	result := &ProductPage{
		Products: []models.Product{},
		Search:   strings.TrimSpace(search),
		Page:     normalizePage(page),
		PageSize: s.pageSize,
	}

	err := s.read(ctx, "list products", func(db *gorm.DB) error {
		q := db.Model(&models.Product{})
		if result.Search != "" {
			pattern := "%" + likeEscaper.Replace(strings.ToLower(result.Search)) + "%"
			q = q.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(code) LIKE ? ESCAPE '\'`, pattern, pattern)
		}
		if err := q.Count(&result.Total).Error; err != nil {
			return err
		}
		return q.Order("name ASC").
			Limit(s.pageSize).
			Offset((result.Page - 1) * s.pageSize).
			Find(&result.Products).Error
	})
	if err != nil {
		return nil, err
	}
	result.TotalPages = pageCount(result.Total, s.pageSize)
	return result, nil
}

// GetProduct returns a single product
func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := s.read(ctx, "get product", func(db *gorm.DB) error {
		return findProduct(db, id, &product)
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct creates a product after checking every attribute range
func (s *CatalogService) CreateProduct(ctx context.Context, input ProductInput) (*models.Product, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var product models.Product
	input.apply(&product)
	err := s.transaction(ctx, "create product", func(tx *gorm.DB) error {
		return tx.Create(&product).Error
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct replaces the editable fields of a product
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, input ProductInput) (*models.Product, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var product models.Product
	err := s.transaction(ctx, "update product", func(tx *gorm.DB) error {
		if err := findProduct(tx, id, &product); err != nil {
			return err
		}
		input.apply(&product)
		return tx.Model(&models.Product{}).Where("id = ?", id).Updates(map[string]interface{}{
			"code":         product.Code,
			"name":         product.Name,
			"potencia_kva": product.PotenciaKVA,
			"perdidas_po":  product.PerdidasPo,
			"perdidas_pcc": product.PerdidasPcc,
			"ucc":          product.Ucc,
			"largo":        product.Largo,
			"ancho":        product.Ancho,
			"alto":         product.Alto,
			"diametro":     product.Diametro,
			"peso":         product.Peso,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct deletes a product whose BOM is empty
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	return s.transaction(ctx, "delete product", func(tx *gorm.DB) error {
		var product models.Product
		if err := findProduct(tx, id, &product); err != nil {
			return err
		}

		var materials []string
		if err := tx.Model(&models.BomItem{}).
			Joins("JOIN materials ON materials.id = bom_items.material_id").
			Where("bom_items.product_id = ?", id).
			Order("materials.name ASC").
			Pluck("materials.name", &materials).Error; err != nil {
			return err
		}
		if len(materials) > 0 {
			return &InUseError{Entity: "product", ID: id, DependentKind: "bom items", Dependents: materials}
		}

		var orderIDs []uint
		if err := tx.Model(&models.ProductionOrder{}).
			Where("product_id = ?", id).
			Order("id ASC").
			Pluck("id", &orderIDs).Error; err != nil {
			return err
		}
		if len(orderIDs) > 0 {
			return productOrdersInUse(id, orderIDs)
		}

		if err := tx.Delete(&product).Error; err != nil {
			if isForeignKeyViolation(err) {
				return &InUseError{Entity: "product", ID: id, DependentKind: "production orders"}
			}
			return err
		}
		return nil
	})
}

func productOrdersInUse(id uint, orderIDs []uint) *InUseError {
	dependents := make([]string, 0, len(orderIDs))
	for _, orderID := range orderIDs {
		dependents = append(dependents, strconv.FormatUint(uint64(orderID), 10))
	}
	return &InUseError{Entity: "product", ID: id, DependentKind: "production orders", Dependents: dependents}
}

func findProduct(db *gorm.DB, id uint, product *models.Product) error {
	if err := db.First(product, id).Error; err != nil {
		if isNotFound(err) {
			return &NotFoundError{Entity: "product", ID: id}
		}
		return err
	}
	return nil
}
