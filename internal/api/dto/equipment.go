package dto

import (
	"time"

	"gearshed/internal/domain"
	"gearshed/internal/repository"
)

type StatusQuantity struct {
	Status   string `json:"status"`
	Quantity int    `json:"quantity"`
}

type Equipment struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Brand          *string          `json:"brand"`
	Model          *string          `json:"model"`
	ImageURL       *string          `json:"imageUrl"`
	StatusQuantity []StatusQuantity `json:"statusQuantity"`
	CreatedAt      string           `json:"createdAt"`
}

func EquipmentFromView(view *repository.EquipmentView) *Equipment {
	out := &Equipment{
		ID:             view.ID.String(),
		Name:           view.Name,
		Brand:          view.Brand,
		Model:          view.ItemModel,
		ImageURL:       view.ImageURL,
		StatusQuantity: []StatusQuantity{},
		CreatedAt:      view.CreatedAt.Format(time.RFC3339),
	}
	for _, sq := range view.StatusQuantity {
		out.StatusQuantity = append(out.StatusQuantity, StatusQuantity{
			Status:   string(sq.Status),
			Quantity: sq.Quantity,
		})
	}
	return out
}

func EquipmentsFromViews(views []*repository.EquipmentView) []*Equipment {
	out := make([]*Equipment, 0, len(views))
	for _, view := range views {
		out = append(out, EquipmentFromView(view))
	}
	return out
}

type Reallocation struct {
	ID              string `json:"id"`
	EquipmentTypeID string `json:"equipmentTypeId"`
	OldStatus       string `json:"oldStatus"`
	NewStatus       string `json:"newStatus"`
	Quantity        int    `json:"quantity"`
	MovedBy         string `json:"movedBy"`
	CreatedAt       string `json:"createdAt"`
}

func ReallocationFromDomain(realloc *domain.Reallocation) *Reallocation {
	return &Reallocation{
		ID:              realloc.ID.String(),
		EquipmentTypeID: realloc.EquipmentTypeID.String(),
		OldStatus:       string(realloc.FromStatus),
		NewStatus:       string(realloc.ToStatus),
		Quantity:        realloc.Quantity,
		MovedBy:         realloc.MovedBy.String(),
		CreatedAt:       realloc.CreatedAt.Format(time.RFC3339),
	}
}
