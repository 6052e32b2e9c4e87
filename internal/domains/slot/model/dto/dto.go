package dto

import (
	"time"

	"glow/internal/domains/slot/model"
	"glow/shared/failure"
	gModel "glow/shared/model"
	"glow/shared/timezone"

	"github.com/google/uuid"
)

type CreateSlotRequest struct {
	ServiceCategory string    `json:"service_category" validate:"required,max=100"`
	StartTime       time.Time `json:"start_time"       validate:"required"`
	EndTime         time.Time `json:"end_time"         validate:"required"`
	PriceCZK        int64     `json:"price_czk"        validate:"required,gt=0"`
}

// Validate covers what struct tags cannot express.
func (c *CreateSlotRequest) Validate() error {
	if !c.StartTime.Before(c.EndTime) {
		return failure.BadRequestFromString("start_time must be before end_time")
	}

	return nil
}

func (c *CreateSlotRequest) ToModel() model.Slot {
	now := timezone.Now()

	return model.Slot{
		ID:              uuid.NewString(),
		ServiceCategory: c.ServiceCategory,
		StartTime:       c.StartTime,
		EndTime:         c.EndTime,
		PriceCZK:        c.PriceCZK,
		Status:          model.StatusAvailable,
		Metadata: gModel.Metadata{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

type SlotResponse struct {
	ID              string    `json:"id"`
	ServiceCategory string    `json:"service_category"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	PriceCZK        int64     `json:"price_czk"`
	Status          string    `json:"status"`
}

func (r *SlotResponse) FromModel(mod model.Slot) {
	r.ID = mod.ID
	r.ServiceCategory = mod.ServiceCategory
	r.StartTime = mod.StartTime
	r.EndTime = mod.EndTime
	r.PriceCZK = mod.PriceCZK
	r.Status = mod.Status
}

type SlotsResponse struct {
	Slots []SlotResponse `json:"slots"`
}

func (r *SlotsResponse) FromModels(mods []model.Slot) {
	r.Slots = make([]SlotResponse, 0, len(mods))

	for _, mod := range mods {
		var res SlotResponse
		res.FromModel(mod)
		r.Slots = append(r.Slots, res)
	}
}
