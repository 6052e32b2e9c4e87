package dto

import (
	"time"

	"glow/internal/domains/booking/model"
	slotModel "glow/internal/domains/slot/model"
	gModel "glow/shared/model"
	"glow/shared/timezone"

	"github.com/google/uuid"
)

type ReserveRequest struct {
	SlotID   string `json:"slot_id"   validate:"required,uuid"`
	ClientID string `json:"client_id" validate:"required,uuid"`
	Notes    string `json:"notes"     validate:"omitempty,max=500"`
}

// ToModel builds the pending booking, copying category and price from the
// slot being claimed.
func (r *ReserveRequest) ToModel(slot slotModel.Slot) model.Booking {
	now := timezone.Now()

	return model.Booking{
		ID:              uuid.NewString(),
		ClientID:        r.ClientID,
		SlotID:          r.SlotID,
		ServiceCategory: slot.ServiceCategory,
		PriceCZK:        slot.PriceCZK,
		Status:          model.StatusPending,
		Notes:           r.Notes,
		Metadata: gModel.Metadata{
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

type CancelRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=500"`
}

type BookingResponse struct {
	ID              string     `json:"id"`
	ClientID        string     `json:"client_id"`
	SlotID          string     `json:"slot_id"`
	ServiceCategory string     `json:"service_category"`
	PriceCZK        int64      `json:"price_czk"`
	Status          string     `json:"status"`
	PaymentIntentID string     `json:"payment_intent_id,omitempty"`
	PaymentStatus   string     `json:"payment_status,omitempty"`
	ReminderSent    bool       `json:"reminder_sent"`
	ReminderSentAt  *time.Time `json:"reminder_sent_at,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (r *BookingResponse) FromModel(mod model.Booking) {
	r.ID = mod.ID
	r.ClientID = mod.ClientID
	r.SlotID = mod.SlotID
	r.ServiceCategory = mod.ServiceCategory
	r.PriceCZK = mod.PriceCZK
	r.Status = mod.Status
	r.ReminderSent = mod.ReminderSent
	r.ReminderSentAt = mod.ReminderSentAt
	r.Notes = mod.Notes
	r.CreatedAt = mod.CreatedAt

	if mod.PaymentIntentID != nil {
		r.PaymentIntentID = *mod.PaymentIntentID
	}

	if mod.PaymentStatus != nil {
		r.PaymentStatus = *mod.PaymentStatus
	}
}

type BookingsResponse struct {
	Bookings []BookingResponse `json:"bookings"`
}

func (r *BookingsResponse) FromModels(mods []model.Booking) {
	r.Bookings = make([]BookingResponse, 0, len(mods))

	for _, mod := range mods {
		var res BookingResponse
		res.FromModel(mod)
		r.Bookings = append(r.Bookings, res)
	}
}
