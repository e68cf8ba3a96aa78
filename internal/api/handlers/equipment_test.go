package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearshed/internal/domain"
	"gearshed/internal/repository"
	"gearshed/internal/testutil"
	"gearshed/internal/upload"
)

func newEquipmentTestHandler(t *testing.T) *EquipmentHandler {
	t.Helper()
	testutil.RequireDB(t, testDB)
	uploads := upload.NewStore(t.TempDir(), "http://localhost:8080")
	return NewEquipmentHandler(testDB, nil, nil, uploads)
}

func TestEquipmentHandler_Create(t *testing.T) {
	handler := newEquipmentTestHandler(t)
	e := newTestEcho()

	t.Run("invalid quantity returns 400", func(t *testing.T) {
		form := url.Values{}
		form.Set("name", "Projector")
		form.Set("quantity", "zero")
		req := httptest.NewRequest(http.MethodPost, "/api/equipments", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Create(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("successful create returns breakdown", func(t *testing.T) {
		form := url.Values{}
		form.Set("name", fmt.Sprintf("Mixer %d", time.Now().UnixNano()))
		form.Set("brand", "Behringer")
		form.Set("quantity", "4")
		form.Set("acquisitionDate", "2026-01-15")
		req := httptest.NewRequest(http.MethodPost, "/api/equipments", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Create(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp struct {
			Data struct {
				Name           string `json:"name"`
				StatusQuantity []struct {
					Status   string `json:"status"`
					Quantity int    `json:"quantity"`
				} `json:"statusQuantity"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data.StatusQuantity, 1)
		assert.Equal(t, "available", resp.Data.StatusQuantity[0].Status)
		assert.Equal(t, 4, resp.Data.StatusQuantity[0].Quantity)
	})
}

func TestEquipmentHandler_List(t *testing.T) {
	handler := newEquipmentTestHandler(t)
	e := newTestEcho()

	name := fmt.Sprintf("Speaker %d", time.Now().UnixNano())
	equipmentRepo := repository.NewEquipmentRepository(testDB)
	et := &domain.EquipmentType{Name: name}
	require.NoError(t, equipmentRepo.UpsertType(testDB, et))
	require.NoError(t, equipmentRepo.CreateUnits(testDB, et.ID, 3, time.Now()))

	t.Run("filter by name", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/equipments?name="+url.QueryEscape(name), nil)
		rec := httptest.NewRecorder()

		require.NoError(t, handler.List(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), name)
	})

	t.Run("invalid status filter returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/equipments?status=vaporized", nil)
		rec := httptest.NewRecorder()

		require.NoError(t, handler.List(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestEquipmentHandler_Reallocate(t *testing.T) {
	handler := newEquipmentTestHandler(t)
	e := newTestEcho()

	manager := createHandlerUser(t, domain.RoleEquipmentManager, "password123")

	equipmentRepo := repository.NewEquipmentRepository(testDB)
	et := &domain.EquipmentType{Name: fmt.Sprintf("Cable %d", time.Now().UnixNano())}
	require.NoError(t, equipmentRepo.UpsertType(testDB, et))
	require.NoError(t, equipmentRepo.CreateUnits(testDB, et.ID, 5, time.Now()))

	t.Run("moves units and records the audit row", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{
			"oldStatus": "available",
			"newStatus": "maintenance",
			"quantity":  2,
		})
		req := httptest.NewRequest(http.MethodPost, "/api/equipments/"+et.ID.String()+"/reallocate", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		c := withUser(e, req, rec, manager)
		c.SetParamNames("id")
		c.SetParamValues(et.ID.String())

		require.NoError(t, handler.Reallocate(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		count := 0
		require.NoError(t, testDB.Get(&count,
			`SELECT COUNT(*) FROM equipment_units WHERE equipment_type_id = $1 AND status = 'maintenance'`, et.ID))
		assert.Equal(t, 2, count)
	})

	t.Run("lifecycle buckets are refused", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{
			"oldStatus": "borrowed",
			"newStatus": "available",
			"quantity":  1,
		})
		req := httptest.NewRequest(http.MethodPost, "/api/equipments/"+et.ID.String()+"/reallocate", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		c := withUser(e, req, rec, manager)
		c.SetParamNames("id")
		c.SetParamValues(et.ID.String())

		require.NoError(t, handler.Reallocate(c))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
