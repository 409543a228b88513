package controllers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func productBody(code, name string) map[string]interface{} {
	return map[string]interface{}{
		"code": code, "name": name,
		"potencia_kva": 200, "perdidas_po": 400, "perdidas_pcc": 1350, "ucc": 5.2,
		"largo": 1100, "ancho": 950, "alto": 1400, "diametro": 0, "peso": 780,
	}
}

func TestCreateProduct(t *testing.T) {
	setupTestDB(t)
	router := newTestEngine()

	w := performRequest(router, http.MethodPost, "/api/v1/products", productBody("TRF-200", "Transformador 200 kVA"))
	assert.Equal(t, http.StatusCreated, w.Code)
	data := dataObject(t, w)
	assert.Equal(t, "TRF-200", data["code"])
	assert.Equal(t, float64(0), data["diametro"])
	assert.Equal(t, 5.2, data["ucc"])

	missing := productBody("TRF-300", "Sin peso")
	delete(missing, "peso")
	w = performRequest(router, http.MethodPost, "/api/v1/products", missing)
	errObj := assertError(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
	assert.Contains(t, errObj["details"], "peso")

	outOfRange := productBody("TRF-301", "Demasiado grande")
	outOfRange["potencia_kva"] = 0
	w = performRequest(router, http.MethodPost, "/api/v1/products", outOfRange)
	errObj = assertError(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
	assert.Contains(t, errObj["details"], "potencia_kva")
}

func TestListProducts(t *testing.T) {
	setupTestDB(t)
	cat := catalogService()
	for i := 1; i <= 12; i++ {
		_, err := cat.CreateProduct(context.Background(), productInput(fmt.Sprintf("TRF-%03d", i), fmt.Sprintf("Transformador %02d", i)))
		require.NoError(t, err)
	}
	_, err := cat.CreateProduct(context.Background(), productInput("AUTO-1", "Autotransformador"))
	require.NoError(t, err)
	router := newTestEngine()

	w := performRequest(router, http.MethodGet, "/api/v1/products", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	page := dataObject(t, w)
	assert.Len(t, page["products"], 10)
	assert.Equal(t, float64(13), page["total"])
	assert.Equal(t, float64(2), page["total_pages"])

	w = performRequest(router, http.MethodGet, "/api/v1/products?page=2", nil)
	assert.Len(t, dataObject(t, w)["products"], 3)

	w = performRequest(router, http.MethodGet, "/api/v1/products?search=auto", nil)
	page = dataObject(t, w)
	require.Len(t, page["products"], 1)
	assert.Equal(t, "auto", page["search"])

	w = performRequest(router, http.MethodGet, "/api/v1/products?page=two", nil)
	assertError(t, w, http.StatusBadRequest, "VALIDATION_ERROR")
}

func TestGetProduct_WithBomItems(t *testing.T) {
	setupTestDB(t)
	c := seedTRF100(t)
	router := newTestEngine()

	w := performRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/products/%d", c.product.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := dataObject(t, w)
	assert.Equal(t, "TRF-100", data["code"])
	items := data["bom_items"].([]interface{})
	require.Len(t, items, 3)
	first := items[0].(map[string]interface{})
	assert.Equal(t, "15", first["quantity_per_unit"])

	w = performRequest(router, http.MethodGet, "/api/v1/products/999", nil)
	assertError(t, w, http.StatusNotFound, "NOT_FOUND")
}

func TestResolveProductBom(t *testing.T) {
	setupTestDB(t)
	c := seedTRF100(t)
	router := newTestEngine()

	w := performRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/products/%d/bom?quantity=2", c.product.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := dataObject(t, w)
	reqs := data["requirements"].([]interface{})
	require.Len(t, reqs, 3)

	expected := []struct{ name, total, unit string }{
		{"Cobre", "30", "kg"},
		{"Acero", "50", "kg"},
		{"Aceite", "6", "und"},
	}
	for i, want := range expected {
		req := reqs[i].(map[string]interface{})
		assert.Equal(t, want.name, req["material_name"])
		assert.Equal(t, want.total, req["total_quantity"])
		assert.Equal(t, want.unit, req["unit_name"])
	}

	// quantity defaults to one unit
	w = performRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/products/%d/bom", c.product.ID), nil)
	reqs = dataObject(t, w)["requirements"].([]interface{})
	assert.Equal(t, "15", reqs[0].(map[string]interface{})["total_quantity"])

	w = performRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/products/%d/bom?quantity=0", c.product.ID), nil)
	assertError(t, w, http.StatusBadRequest, "VALIDATION_ERROR")

	w = performRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/products/%d/bom?quantity=lots", c.product.ID), nil)
	assertError(t, w, http.StatusBadRequest, "VALIDATION_ERROR")

	w = performRequest(router, http.MethodGet, "/api/v1/products/999/bom?quantity=1", nil)
	assertError(t, w, http.StatusNotFound, "NOT_FOUND")
}

func TestUpdateAndDeleteProduct(t *testing.T) {
	setupTestDB(t)
	c := seedTRF100(t)
	router := newTestEngine()
	path := fmt.Sprintf("/api/v1/products/%d", c.product.ID)

	body := productBody("TRF-100", "Transformador 100 kVA rev. B")
	w := performRequest(router, http.MethodPut, path, body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Transformador 100 kVA rev. B", dataObject(t, w)["name"])

	w = performRequest(router, http.MethodDelete, path, nil)
	errObj := assertError(t, w, http.StatusConflict, "IN_USE")
	details := errObj["details"].(map[string]interface{})
	assert.Equal(t, "bom items", details["dependent_kind"])

	w = performRequest(router, http.MethodPost, "/api/v1/products", productBody("TRF-NEW", "Nuevo"))
	require.Equal(t, http.StatusCreated, w.Code)
	id := int(dataObject(t, w)["id"].(float64))

	w = performRequest(router, http.MethodDelete, fmt.Sprintf("/api/v1/products/%d", id), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
