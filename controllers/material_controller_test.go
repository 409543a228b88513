package controllers

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMaterial(t *testing.T) {
	setupTestDB(t)
	router := newTestEngine()
	performRequest(router, http.MethodPost, "/api/v1/units", map[string]interface{}{"name": "kg"})

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedError  string
		field          string
	}{
		{
			name:           "Successfully create material",
			requestBody:    map[string]interface{}{"code": "MAT-CU", "name": "Cobre", "unit_of_measure_id": 1},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "Fail with unknown unit",
			requestBody:    map[string]interface{}{"code": "MAT-X", "name": "X", "unit_of_measure_id": 99},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
			field:          "unit_of_measure_id",
		},
		{
			name:           "Fail with missing code",
			requestBody:    map[string]interface{}{"name": "X", "unit_of_measure_id": 1},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
			field:          "code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPost, "/api/v1/materials", tt.requestBody)

			if tt.expectedError != "" {
				errObj := assertError(t, w, tt.expectedStatus, tt.expectedError)
				assert.Contains(t, errObj["details"], tt.field)
				return
			}
			assert.Equal(t, tt.expectedStatus, w.Code)
			data := dataObject(t, w)
			assert.Equal(t, "MAT-CU", data["code"])
			unit := data["unit_of_measure"].(map[string]interface{})
			assert.Equal(t, "kg", unit["name"])
		})
	}
}

func TestGetMaterial_UsedIn(t *testing.T) {
	setupTestDB(t)
	c := seedTRF100(t)
	router := newTestEngine()

	w := performRequest(router, http.MethodGet, fmt.Sprintf("/api/v1/materials/%d", c.cobre.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := dataObject(t, w)
	assert.Equal(t, "Cobre", data["name"])
	assert.Equal(t, []interface{}{"Transformador 100 kVA"}, data["used_in"])

	w = performRequest(router, http.MethodGet, "/api/v1/materials/999", nil)
	assertError(t, w, http.StatusNotFound, "NOT_FOUND")
}

func TestListAndUpdateMaterials(t *testing.T) {
	setupTestDB(t)
	c := seedTRF100(t)
	router := newTestEngine()

	w := performRequest(router, http.MethodGet, "/api/v1/materials", nil)
	assert.Len(t, dataList(t, w), 3)

	w = performRequest(router, http.MethodPut, fmt.Sprintf("/api/v1/materials/%d", c.aceite.ID), map[string]interface{}{
		"code": "MAT-OL", "name": "Aceite dieléctrico", "unit_of_measure_id": c.kg.ID,
	})
	assert.Equal(t, http.StatusOK, w.Code)
	data := dataObject(t, w)
	assert.Equal(t, "Aceite dieléctrico", data["name"])
	assert.Equal(t, float64(c.kg.ID), data["unit_of_measure_id"])
}

func TestDeleteMaterial(t *testing.T) {
	setupTestDB(t)
	c := seedTRF100(t)
	router := newTestEngine()

	w := performRequest(router, http.MethodDelete, fmt.Sprintf("/api/v1/materials/%d", c.acero.ID), nil)
	errObj := assertError(t, w, http.StatusConflict, "IN_USE")
	details := errObj["details"].(map[string]interface{})
	assert.Equal(t, []interface{}{"Transformador 100 kVA"}, details["dependents"])

	w = performRequest(router, http.MethodPost, "/api/v1/materials", map[string]interface{}{
		"code": "MAT-TOR", "name": "Tornillos", "unit_of_measure_id": c.und.ID,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id := dataObject(t, w)["id"].(float64)

	w = performRequest(router, http.MethodDelete, fmt.Sprintf("/api/v1/materials/%d", int(id)), nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
