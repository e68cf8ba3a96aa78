package dto

import (
	"time"

	"gearshed/internal/domain"
	"gearshed/internal/repository"
)

type BorrowLine struct {
	BorrowRequestItemID string  `json:"borrowRequestItemId"`
	EquipmentTypeID     string  `json:"equipmentTypeId"`
	Name                string  `json:"name"`
	Brand               *string `json:"brand"`
	Model               *string `json:"model"`
	ImageURL            *string `json:"imageUrl"`
	Quantity            int     `json:"quantity"`
	ReturnedQuantity    int     `json:"returnedQuantity"`
}

type AnomalyResult struct {
	Score           float64 `json:"score"`
	IsAnomaly       bool    `json:"isAnomaly"`
	IsFalsePositive *bool   `json:"isFalsePositive"`
}

type BorrowTransaction struct {
	ID               string         `json:"id"`
	RequestedBy      string         `json:"requestedBy"`
	BorrowerName     string         `json:"borrowerName"`
	ReviewerName     *string        `json:"reviewerName"`
	Location         string         `json:"location"`
	Purpose          string         `json:"purpose"`
	Status           string         `json:"status"`
	Remarks          *string        `json:"remarks"`
	Equipments       []BorrowLine   `json:"equipments"`
	Anomaly          *AnomalyResult `json:"anomaly"`
	BorrowedAt       string         `json:"borrowedAt"`
	ExpectedReturnAt string         `json:"expectedReturnAt"`
	ReviewedAt       *string        `json:"reviewedAt"`
	ClaimedAt        *string        `json:"claimedAt"`
	ReturnedAt       *string        `json:"returnedAt"`
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

func BorrowTransactionFromView(view *repository.BorrowTransaction) *BorrowTransaction {
	out := &BorrowTransaction{
		ID:               view.ID.String(),
		RequestedBy:      view.RequestedBy.String(),
		BorrowerName:     view.BorrowerName,
		ReviewerName:     view.ReviewerName,
		Location:         view.Location,
		Purpose:          view.Purpose,
		Status:           string(view.Status),
		Remarks:          view.Remarks,
		Equipments:       []BorrowLine{},
		BorrowedAt:       view.CreatedAt.Format(time.RFC3339),
		ExpectedReturnAt: view.ExpectedReturnAt.Format(time.RFC3339),
		ReviewedAt:       formatTimePtr(view.ReviewedAt),
		ClaimedAt:        formatTimePtr(view.ClaimedAt),
		ReturnedAt:       formatTimePtr(view.ReturnedAt),
	}
	for _, line := range view.Items {
		out.Equipments = append(out.Equipments, BorrowLine{
			BorrowRequestItemID: line.BorrowRequestItemID.String(),
			EquipmentTypeID:     line.EquipmentTypeID.String(),
			Name:                line.Name,
			Brand:               line.Brand,
			Model:               line.ItemModel,
			ImageURL:            line.ImageURL,
			Quantity:            line.Quantity,
			ReturnedQuantity:    line.ReturnedQuantity,
		})
	}
	if view.Anomaly != nil {
		out.Anomaly = &AnomalyResult{
			Score:           view.Anomaly.Score,
			IsAnomaly:       view.Anomaly.IsAnomaly,
			IsFalsePositive: view.Anomaly.IsFalsePositive,
		}
	}
	return out
}

func BorrowTransactionsFromViews(views []*repository.BorrowTransaction) []*BorrowTransaction {
	out := make([]*BorrowTransaction, 0, len(views))
	for _, view := range views {
		out = append(out, BorrowTransactionFromView(view))
	}
	return out
}

type ClaimToken struct {
	Code      string `json:"code"`
	ExpiresAt string `json:"expiresAt"`
}

func ClaimTokenFromDomain(token *domain.ClaimToken) *ClaimToken {
	if token == nil {
		return nil
	}
	return &ClaimToken{
		Code:      token.Code,
		ExpiresAt: token.ExpiresAt.Format(time.RFC3339),
	}
}
