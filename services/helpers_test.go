package services

import (
	"context"
	"os"
	"testing"

	"github.com/kendall-kelly/transformers-api/models"
	"github.com/kendall-kelly/transformers-api/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	if env, ok := testutil.EnsureTestEnvironment(); !ok {
		os.Stderr.WriteString("SAFETY CHECK FAILED: tests must run with GO_ENV=test, got " + env + "\n")
		os.Exit(1)
	}
	os.Exit(m.Run())
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func uintPtr(v uint) *uint { return &v }

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fixture holds a migrated database and the services built on it
type fixture struct {
	ctx     context.Context
	db      *gorm.DB
	catalog *CatalogService
	bom     *BomService
	orders  *OrderService
	imports *ImportService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewTestDB(t)
	opts := Options{PageSize: 10}
	return &fixture{
		ctx:     context.Background(),
		db:      db,
		catalog: NewCatalogService(db, opts),
		bom:     NewBomService(db, opts),
		orders:  NewOrderService(db, opts),
		imports: NewImportService(db, opts),
	}
}

func (f *fixture) unit(t *testing.T, name string) *models.UnitOfMeasure {
	t.Helper()
	u, err := f.catalog.CreateUnit(f.ctx, UnitInput{Name: name})
	require.NoError(t, err)
	return u
}

func (f *fixture) material(t *testing.T, code, name string, unitID uint) *models.Material {
	t.Helper()
	m, err := f.catalog.CreateMaterial(f.ctx, MaterialInput{Code: code, Name: name, UnitOfMeasureID: unitID})
	require.NoError(t, err)
	return m
}

func validProductInput(code, name string) ProductInput {
	return ProductInput{
		Code:        code,
		Name:        name,
		PotenciaKVA: intPtr(100),
		PerdidasPo:  intPtr(250),
		PerdidasPcc: intPtr(850),
		Ucc:         floatPtr(4.5),
		Largo:       intPtr(1000),
		Ancho:       intPtr(800),
		Alto:        intPtr(1200),
		Diametro:    intPtr(0),
		Peso:        intPtr(450),
	}
}

func (f *fixture) product(t *testing.T, code, name string) *models.Product {
	t.Helper()
	p, err := f.catalog.CreateProduct(f.ctx, validProductInput(code, name))
	require.NoError(t, err)
	return p
}

func (f *fixture) bomLine(t *testing.T, productID, materialID uint, qty string) *models.BomItem {
	t.Helper()
	item, err := f.bom.CreateBomItem(f.ctx, BomItemInput{ProductID: productID, MaterialID: materialID, QuantityPerUnit: dec(qty)})
	require.NoError(t, err)
	return item
}

func (f *fixture) order(t *testing.T, productID uint, qty string) *models.ProductionOrder {
	t.Helper()
	o, err := f.orders.Create(f.ctx, OrderInput{ProductID: productID, Quantity: dec(qty)})
	require.NoError(t, err)
	return o
}

// trf100 builds the TRF-100 transformer with its three BOM lines
type trfCatalog struct {
	kg, und              *models.UnitOfMeasure
	cobre, acero, aceite *models.Material
	product              *models.Product
}

func (f *fixture) trf100(t *testing.T) trfCatalog {
	t.Helper()
	var c trfCatalog
	c.kg = f.unit(t, "kg")
	c.und = f.unit(t, "und")
	c.cobre = f.material(t, "MAT-CU", "Cobre", c.kg.ID)
	c.acero = f.material(t, "MAT-AC", "Acero", c.kg.ID)
	c.aceite = f.material(t, "MAT-OL", "Aceite", c.und.ID)
	c.product = f.product(t, "TRF-100", "Transformador 100 kVA")
	f.bomLine(t, c.product.ID, c.cobre.ID, "15")
	f.bomLine(t, c.product.ID, c.acero.ID, "25")
	f.bomLine(t, c.product.ID, c.aceite.ID, "3")
	return c
}
