package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gearshed/internal/api/services"
	"gearshed/internal/domain"
	"gearshed/internal/repository"
	"gearshed/internal/testutil"
)

var testDB *repository.Database

func TestMain(m *testing.M) {
	log.Println("[TestMain worker] Starting test setup")

	db, err := testutil.SetupTestDB("../../.env.test", "../../migrations")
	if err != nil {
		log.Printf("[TestMain worker] Failed to connect to database: %v", err)
		testDB = nil
		code := m.Run()
		os.Exit(code)
	}
	testDB = db

	code := m.Run()

	if testDB != nil {
		testDB.Close()
	}
	os.Exit(code)
}

func approvedRequest(t *testing.T, quantity int) *repository.BorrowTransaction {
	t.Helper()
	ctx := context.Background()
	ts := time.Now().UnixNano()

	userRepo := repository.NewUserRepository(testDB)
	borrower := &domain.User{
		Email:     fmt.Sprintf("worker%d@test.com", ts),
		Password:  "hashed",
		FirstName: "Worker",
		Role:      domain.RoleBorrower,
	}
	require.NoError(t, userRepo.Create(borrower))
	manager := &domain.User{
		Email:     fmt.Sprintf("workermgr%d@test.com", ts),
		Password:  "hashed",
		FirstName: "Manager",
		Role:      domain.RoleEquipmentManager,
	}
	require.NoError(t, userRepo.Create(manager))

	equipmentRepo := repository.NewEquipmentRepository(testDB)
	et := &domain.EquipmentType{Name: fmt.Sprintf("Router %d", ts)}
	require.NoError(t, equipmentRepo.UpsertType(testDB, et))
	require.NoError(t, equipmentRepo.CreateUnits(testDB, et.ID, quantity, time.Now()))

	borrowRepo := repository.NewBorrowRepository(testDB)
	create := services.NewBorrowCreateService(testDB, borrowRepo, equipmentRepo, nil, nil)
	view, err := create.Create(ctx, services.CreateBorrowInput{
		RequestedBy:      borrower.ID,
		Location:         "Lab",
		Purpose:          "Network testing",
		ExpectedReturnAt: time.Now().Add(24 * time.Hour),
		Equipments: []services.BorrowLineInput{
			{EquipmentTypeID: et.ID, Quantity: quantity},
		},
	})
	require.NoError(t, err)

	review := services.NewBorrowReviewService(testDB, borrowRepo, equipmentRepo, nil)
	approved, _, err := review.Review(ctx, view.ID, domain.BorrowApproved, manager.ID, nil)
	require.NoError(t, err)
	return approved
}

func TestClaimExpiryWorker_ReleaseExpired(t *testing.T) {
	testutil.RequireDB(t, testDB)

	approved := approvedRequest(t, 2)

	// Backdate the claim token so the request is overdue.
	_, err := testDB.Exec(
		`UPDATE claim_tokens SET expires_at = NOW() - INTERVAL '1 minute' WHERE borrow_request_id = $1`,
		approved.ID,
	)
	require.NoError(t, err)

	w := NewClaimExpiryWorker(testDB, time.Minute)
	w.releaseExpired()

	borrowRepo := repository.NewBorrowRepository(testDB)
	refreshed, err := borrowRepo.FindByID(testDB, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BorrowUnclaimed, refreshed.Status)

	count := 0
	require.NoError(t, testDB.Get(&count,
		`SELECT COUNT(*) FROM equipment_units eu
		 INNER JOIN borrow_item_units biu ON biu.equipment_unit_id = eu.id
		 INNER JOIN borrow_request_items bri ON bri.id = biu.borrow_request_item_id
		 WHERE bri.borrow_request_id = $1 AND eu.status = 'available'`,
		approved.ID,
	))
	assert.Equal(t, 2, count)

	tokens := 0
	require.NoError(t, testDB.Get(&tokens,
		`SELECT COUNT(*) FROM claim_tokens WHERE borrow_request_id = $1`, approved.ID))
	assert.Zero(t, tokens)
}

func TestClaimExpiryWorker_LeavesFreshRequestsAlone(t *testing.T) {
	testutil.RequireDB(t, testDB)

	approved := approvedRequest(t, 1)

	w := NewClaimExpiryWorker(testDB, time.Minute)
	w.releaseExpired()

	borrowRepo := repository.NewBorrowRepository(testDB)
	refreshed, err := borrowRepo.FindByID(testDB, approved.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BorrowApproved, refreshed.Status)
}
