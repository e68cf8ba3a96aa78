package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearshed/internal/api/services"
	"gearshed/internal/domain"
	"gearshed/internal/repository"
	"gearshed/internal/testutil"
)

func newBorrowTestHandler(t *testing.T) *BorrowHandler {
	t.Helper()
	testutil.RequireDB(t, testDB)
	return NewBorrowHandler(testDB, nil, nil)
}

func createBorrowEquipment(t *testing.T, quantity int) *domain.EquipmentType {
	t.Helper()
	equipmentRepo := repository.NewEquipmentRepository(testDB)
	et := &domain.EquipmentType{Name: fmt.Sprintf("Laptop %d", time.Now().UnixNano())}
	require.NoError(t, equipmentRepo.UpsertType(testDB, et))
	require.NoError(t, equipmentRepo.CreateUnits(testDB, et.ID, quantity, time.Now()))
	return et
}

func createPendingBorrowRequest(t *testing.T, borrower *domain.User, et *domain.EquipmentType, quantity int) *repository.BorrowTransaction {
	t.Helper()
	create := services.NewBorrowCreateService(
		testDB,
		repository.NewBorrowRepository(testDB),
		repository.NewEquipmentRepository(testDB),
		nil, nil,
	)
	view, err := create.Create(context.Background(), services.CreateBorrowInput{
		RequestedBy:      borrower.ID,
		Location:         "AV Room",
		Purpose:          "Seminar",
		ExpectedReturnAt: time.Now().Add(72 * time.Hour),
		Equipments: []services.BorrowLineInput{
			{EquipmentTypeID: et.ID, Quantity: quantity},
		},
	})
	require.NoError(t, err)
	return view
}

func TestBorrowHandler_Create(t *testing.T) {
	handler := newBorrowTestHandler(t)
	e := newTestEcho()

	borrower := createHandlerUser(t, domain.RoleBorrower, "password123")
	et := createBorrowEquipment(t, 5)

	t.Run("unauthenticated returns 401", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{
			"location":         "AV Room",
			"purpose":          "Seminar",
			"expectedReturnAt": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
			"equipments":       []map[string]interface{}{{"equipmentTypeId": et.ID.String(), "quantity": 1}},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/borrow-requests", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Create(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("successful create returns the pending transaction", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{
			"location":         "AV Room",
			"purpose":          "Seminar",
			"expectedReturnAt": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
			"equipments":       []map[string]interface{}{{"equipmentTypeId": et.ID.String(), "quantity": 2}},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/borrow-requests", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Create(withUser(e, req, rec, borrower)))
		assert.Equal(t, http.StatusCreated, rec.Code)

		var resp struct {
			Data struct {
				Status     string `json:"status"`
				Equipments []struct {
					Quantity int `json:"quantity"`
				} `json:"equipments"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "pending", resp.Data.Status)
		require.Len(t, resp.Data.Equipments, 1)
		assert.Equal(t, 2, resp.Data.Equipments[0].Quantity)
	})

	t.Run("over-available quantity returns 400", func(t *testing.T) {
		body, _ := json.Marshal(map[string]interface{}{
			"location":         "AV Room",
			"purpose":          "Seminar",
			"expectedReturnAt": time.Now().Add(24 * time.Hour).Format(time.RFC3339),
			"equipments":       []map[string]interface{}{{"equipmentTypeId": et.ID.String(), "quantity": 100}},
		})
		req := httptest.NewRequest(http.MethodPost, "/api/borrow-requests", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		require.NoError(t, handler.Create(withUser(e, req, rec, borrower)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBorrowHandler_Update(t *testing.T) {
	handler := newBorrowTestHandler(t)
	e := newTestEcho()

	borrower := createHandlerUser(t, domain.RoleBorrower, "password123")
	manager := createHandlerUser(t, domain.RoleEquipmentManager, "password123")

	patch := func(user *domain.User, requestID, status string) *httptest.ResponseRecorder {
		body, _ := json.Marshal(map[string]string{"status": status})
		req := httptest.NewRequest(http.MethodPatch, "/api/borrow-requests/"+requestID, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		c := withUser(e, req, rec, user)
		c.SetParamNames("id")
		c.SetParamValues(requestID)
		require.NoError(t, handler.Update(c))
		return rec
	}

	t.Run("borrower cannot review", func(t *testing.T) {
		view := createPendingBorrowRequest(t, borrower, createBorrowEquipment(t, 3), 1)
		rec := patch(borrower, view.ID.String(), "approved")
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("approve mints a claim token", func(t *testing.T) {
		view := createPendingBorrowRequest(t, borrower, createBorrowEquipment(t, 3), 2)
		rec := patch(manager, view.ID.String(), "approved")
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Data struct {
				Request struct {
					Status string `json:"status"`
				} `json:"request"`
				ClaimToken struct {
					Code string `json:"code"`
				} `json:"claimToken"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "approved", resp.Data.Request.Status)
		assert.Len(t, resp.Data.ClaimToken.Code, 6)
	})

	t.Run("double review conflicts", func(t *testing.T) {
		view := createPendingBorrowRequest(t, borrower, createBorrowEquipment(t, 3), 1)
		require.Equal(t, http.StatusOK, patch(manager, view.ID.String(), "rejected").Code)
		assert.Equal(t, http.StatusConflict, patch(manager, view.ID.String(), "approved").Code)
	})

	t.Run("unknown target status returns 400", func(t *testing.T) {
		view := createPendingBorrowRequest(t, borrower, createBorrowEquipment(t, 3), 1)
		rec := patch(manager, view.ID.String(), "returned")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBorrowHandler_ResolveClaimToken(t *testing.T) {
	handler := newBorrowTestHandler(t)
	e := newTestEcho()

	t.Run("unknown code returns 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/claim-tokens/000000", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetParamNames("code")
		c.SetParamValues("000000")

		require.NoError(t, handler.ResolveClaimToken(c))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestBorrowHandler_History(t *testing.T) {
	handler := newBorrowTestHandler(t)
	e := newTestEcho()

	borrower := createHandlerUser(t, domain.RoleBorrower, "password123")
	createPendingBorrowRequest(t, borrower, createBorrowEquipment(t, 3), 1)

	t.Run("filters by borrower", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/borrow-history?userId="+borrower.ID.String(), nil)
		rec := httptest.NewRecorder()

		require.NoError(t, handler.History(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), borrower.FullName())
	})

	t.Run("invalid status returns 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/borrow-history?status=fulfilled", nil)
		rec := httptest.NewRecorder()

		require.NoError(t, handler.History(e.NewContext(req, rec)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
