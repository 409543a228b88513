package services

import (
	"errors"
	"sync"
	"testing"

	"github.com/kendall-kelly/transformers-api/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_TRF100(t *testing.T) {
	f := newFixture(t)
	c := f.trf100(t)

	reqs, err := f.bom.Resolve(f.ctx, c.product.ID, dec("2"))
	require.NoError(t, err)
	require.Len(t, reqs, 3)

	expected := []struct {
		name, unit, total string
	}{
		{"Cobre", "kg", "30"},
		{"Acero", "kg", "50"},
		{"Aceite", "und", "6"},
	}
	for i, want := range expected {
		assert.Equal(t, want.name, reqs[i].MaterialName)
		assert.Equal(t, want.unit, reqs[i].UnitName)
		assert.True(t, dec(want.total).Equal(reqs[i].TotalQuantity), "%s total = %s", want.name, reqs[i].TotalQuantity)
	}
	assert.Equal(t, "MAT-CU", reqs[0].MaterialCode)
	assert.True(t, dec("15").Equal(reqs[0].QuantityPerUnit))
}

func TestResolve_DecimalExactness(t *testing.T) {
	f := newFixture(t)
	kg := f.unit(t, "kg")
	wire := f.material(t, "MAT-W", "Alambre", kg.ID)
	p := f.product(t, "TRF-D", "Decimal")
	f.bomLine(t, p.ID, wire.ID, "0.1")

	reqs, err := f.bom.Resolve(f.ctx, p.ID, dec("3"))
	require.NoError(t, err)
	require.Len(t, reqs, 1)
	assert.Equal(t, "0.3", reqs[0].TotalQuantity.String())

	reqs, err = f.bom.Resolve(f.ctx, p.ID, dec("0.5"))
	require.NoError(t, err)
	assert.True(t, dec("0.05").Equal(reqs[0].TotalQuantity))
}

func TestResolve_EmptyBom(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "TRF-E", "Vacío")

	reqs, err := f.bom.Resolve(f.ctx, p.ID, dec("5"))
	require.NoError(t, err)
	assert.NotNil(t, reqs)
	assert.Empty(t, reqs)
}

func TestResolve_Errors(t *testing.T) {
	f := newFixture(t)
	c := f.trf100(t)

	_, err := f.bom.Resolve(f.ctx, 9999, dec("1"))
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)

	for _, q := range []decimal.Decimal{decimal.Zero, dec("-1")} {
		_, err := f.bom.Resolve(f.ctx, c.product.ID, q)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "quantity")
	}
}

func TestResolve_Linear(t *testing.T) {
	f := newFixture(t)
	c := f.trf100(t)

	one, err := f.bom.Resolve(f.ctx, c.product.ID, dec("1"))
	require.NoError(t, err)
	seven, err := f.bom.Resolve(f.ctx, c.product.ID, dec("7"))
	require.NoError(t, err)

	for i := range one {
		assert.True(t, one[i].TotalQuantity.Mul(dec("7")).Equal(seven[i].TotalQuantity))
		assert.Equal(t, one[i].MaterialID, seven[i].MaterialID)
	}
}

func TestCreateBomItem_Validation(t *testing.T) {
	f := newFixture(t)
	c := f.trf100(t)
	tor := f.material(t, "MAT-TOR", "Tornillos", c.und.ID)

	tests := []struct {
		name   string
		input  BomItemInput
		fields []string
	}{
		{name: "zero quantity", input: BomItemInput{ProductID: c.product.ID, MaterialID: tor.ID, QuantityPerUnit: decimal.Zero}, fields: []string{"quantity_per_unit"}},
		{name: "negative quantity", input: BomItemInput{ProductID: c.product.ID, MaterialID: tor.ID, QuantityPerUnit: dec("-2")}, fields: []string{"quantity_per_unit"}},
		{name: "too large", input: BomItemInput{ProductID: c.product.ID, MaterialID: tor.ID, QuantityPerUnit: dec("1000000")}, fields: []string{"quantity_per_unit"}},
		{name: "just above max", input: BomItemInput{ProductID: c.product.ID, MaterialID: tor.ID, QuantityPerUnit: dec("999999.00000000000000001")}, fields: []string{"quantity_per_unit"}},
		{name: "rounds to zero", input: BomItemInput{ProductID: c.product.ID, MaterialID: tor.ID, QuantityPerUnit: dec("0.00001")}, fields: []string{"quantity_per_unit"}},
		{name: "unknown product", input: BomItemInput{ProductID: 9999, MaterialID: tor.ID, QuantityPerUnit: dec("1")}, fields: []string{"product_id"}},
		{name: "unknown material", input: BomItemInput{ProductID: c.product.ID, MaterialID: 9999, QuantityPerUnit: dec("1")}, fields: []string{"material_id"}},
		{name: "both unknown", input: BomItemInput{ProductID: 9998, MaterialID: 9999, QuantityPerUnit: dec("1")}, fields: []string{"product_id", "material_id"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bom.CreateBomItem(f.ctx, tt.input)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			for _, field := range tt.fields {
				assert.Contains(t, verr.Fields, field)
			}
		})
	}

	item, err := f.bom.CreateBomItem(f.ctx, BomItemInput{ProductID: c.product.ID, MaterialID: tor.ID, QuantityPerUnit: dec("999999")})
	require.NoError(t, err)
	assert.True(t, dec("999999").Equal(item.QuantityPerUnit))
}

func TestCreateBomItem_Duplicate(t *testing.T) {
	f := newFixture(t)
	c := f.trf100(t)

	_, err := f.bom.CreateBomItem(f.ctx, BomItemInput{ProductID: c.product.ID, MaterialID: c.cobre.ID, QuantityPerUnit: dec("1")})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.NotZero(t, conflict.ExistingID)

	items, err := f.bom.ListBomItemsForProduct(f.ctx, c.product.ID)
	require.NoError(t, err)
	assert.Len(t, items, 3)
}

func TestBomPairUniqueIndex(t *testing.T) {
	f := newFixture(t)
	c := f.trf100(t)

	// bypass the pre-check: storage itself must refuse the second line
	err := f.db.Create(&models.BomItem{ProductID: c.product.ID, MaterialID: c.cobre.ID, QuantityPerUnit: dec("1")}).Error
	require.Error(t, err)
	assert.True(t, isUniqueViolation(err))

	translated := bomConflict(&StorageUnavailableError{Op: "create bom item", Err: err}, BomItemInput{ProductID: c.product.ID, MaterialID: c.cobre.ID})
	var conflict *ConflictError
	assert.ErrorAs(t, translated, &conflict)
}

func TestCreateBomItem_ConcurrentSamePair(t *testing.T) {
	f := newFixture(t)
	kg := f.unit(t, "kg")
	cobre := f.material(t, "MAT-CU", "Cobre", kg.ID)
	product := f.product(t, "TRF-100", "Transformador 100 kVA")

	const callers = 8
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.bom.CreateBomItem(f.ctx, BomItemInput{ProductID: product.ID, MaterialID: cobre.ID, QuantityPerUnit: dec("15")})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		var conflict *ConflictError
		assert.True(t, errors.As(err, &conflict), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, created)

	items, err := f.bom.ListBomItemsForProduct(f.ctx, product.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestUpdateBomItem(t *testing.T) {
	f := newFixture(t)
	c := f.trf100(t)
	tor := f.material(t, "MAT-TOR", "Tornillos", c.und.ID)
	items, err := f.bom.ListBomItemsForProduct(f.ctx, c.product.ID)
	require.NoError(t, err)
	cobreLine := items[0]

	// same pair, new quantity
	updated, err := f.bom.UpdateBomItem(f.ctx, cobreLine.ID, BomItemInput{ProductID: c.product.ID, MaterialID: c.cobre.ID, QuantityPerUnit: dec("16.5")})
	require.NoError(t, err)
	assert.True(t, dec("16.5").Equal(updated.QuantityPerUnit))

	// moving onto an existing pair conflicts
	_, err = f.bom.UpdateBomItem(f.ctx, cobreLine.ID, BomItemInput{ProductID: c.product.ID, MaterialID: c.acero.ID, QuantityPerUnit: dec("1")})
	var conflict *ConflictError
	assert.ErrorAs(t, err, &conflict)

	// moving onto a free pair works
	moved, err := f.bom.UpdateBomItem(f.ctx, cobreLine.ID, BomItemInput{ProductID: c.product.ID, MaterialID: tor.ID, QuantityPerUnit: dec("30")})
	require.NoError(t, err)
	assert.Equal(t, tor.ID, moved.MaterialID)
	require.NotNil(t, moved.Material)
	assert.Equal(t, "Tornillos", moved.Material.Name)

	_, err = f.bom.UpdateBomItem(f.ctx, 9999, BomItemInput{ProductID: c.product.ID, MaterialID: tor.ID, QuantityPerUnit: dec("1")})
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestDeleteBomItem(t *testing.T) {
	f := newFixture(t)
	c := f.trf100(t)
	items, err := f.bom.ListBomItemsForProduct(f.ctx, c.product.ID)
	require.NoError(t, err)

	require.NoError(t, f.bom.DeleteBomItem(f.ctx, items[0].ID))

	err = f.bom.DeleteBomItem(f.ctx, items[0].ID)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)

	reqs, err := f.bom.Resolve(f.ctx, c.product.ID, dec("1"))
	require.NoError(t, err)
	assert.Len(t, reqs, 2)

	// once every line is gone the material can be deleted
	require.NoError(t, f.catalog.DeleteMaterial(f.ctx, c.cobre.ID))
}

func TestListBomItems_OrderedByProductName(t *testing.T) {
	f := newFixture(t)
	c := f.trf100(t)
	early := f.product(t, "AAA-1", "Autotransformador")
	f.bomLine(t, early.ID, c.cobre.ID, "2")

	items, err := f.bom.ListBomItems(f.ctx)
	require.NoError(t, err)
	require.Len(t, items, 4)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, "Autotransformador", items[0].Product.Name)
	assert.Equal(t, "Transformador 100 kVA", items[1].Product.Name)
	require.NotNil(t, items[1].Material)
	assert.Equal(t, "kg", items[1].Material.UnitName())
}

func TestListBomItemsForProduct_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.bom.ListBomItemsForProduct(f.ctx, 9999)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGetBomItem(t *testing.T) {
	f := newFixture(t)
	c := f.trf100(t)
	line := f.bomLine(t, c.product.ID, f.material(t, "MAT-TOR", "Tornillos", c.und.ID).ID, "30")

	got, err := f.bom.GetBomItem(f.ctx, line.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Product)
	assert.Equal(t, "TRF-100", got.Product.Code)

	_, err = f.bom.GetBomItem(f.ctx, 9999)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}
