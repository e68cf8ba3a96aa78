package dto

import (
	"time"

	"gearshed/internal/repository"
)

type ReturnLine struct {
	ReturnRequestItemID string  `json:"returnRequestItemId"`
	BorrowRequestItemID string  `json:"borrowRequestItemId"`
	EquipmentTypeID     string  `json:"equipmentTypeId"`
	Name                string  `json:"name"`
	Brand               *string `json:"brand"`
	Model               *string `json:"model"`
	Quantity            int     `json:"quantity"`
}

type ReturnRequest struct {
	ID                  string       `json:"id"`
	BorrowRequestID     string       `json:"borrowRequestId"`
	BorrowRequestStatus string       `json:"borrowRequestStatus"`
	BorrowerID          string       `json:"borrowerId"`
	BorrowerName        string       `json:"borrowerName"`
	Items               []ReturnLine `json:"items"`
	Remarks             *string      `json:"remarks"`
	CreatedAt           string       `json:"createdAt"`
	ConfirmedAt         *string      `json:"confirmedAt"`
}

func ReturnRequestFromView(view *repository.ReturnView) *ReturnRequest {
	out := &ReturnRequest{
		ID:                  view.ID.String(),
		BorrowRequestID:     view.BorrowRequestID.String(),
		BorrowRequestStatus: string(view.BorrowRequestStatus),
		BorrowerID:          view.BorrowerID.String(),
		BorrowerName:        view.BorrowerName,
		Items:               []ReturnLine{},
		Remarks:             view.Remarks,
		CreatedAt:           view.CreatedAt.Format(time.RFC3339),
		ConfirmedAt:         formatTimePtr(view.ConfirmedAt),
	}
	for _, line := range view.Items {
		out.Items = append(out.Items, ReturnLine{
			ReturnRequestItemID: line.ReturnRequestItemID.String(),
			BorrowRequestItemID: line.BorrowRequestItemID.String(),
			EquipmentTypeID:     line.EquipmentTypeID.String(),
			Name:                line.Name,
			Brand:               line.Brand,
			Model:               line.ItemModel,
			Quantity:            line.Quantity,
		})
	}
	return out
}

func ReturnRequestsFromViews(views []*repository.ReturnView) []*ReturnRequest {
	out := make([]*ReturnRequest, 0, len(views))
	for _, view := range views {
		out = append(out, ReturnRequestFromView(view))
	}
	return out
}
