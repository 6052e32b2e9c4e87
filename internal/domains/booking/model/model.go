package model

import (
	"time"

	"glow/shared/model"
)

const (
	TableName  = "bookings"
	EntityName = "booking"

	FieldID              = "id"
	FieldClientID        = "client_id"
	FieldSlotID          = "slot_id"
	FieldStatus          = "status"
	FieldPaymentIntentID = "payment_intent_id"
	FieldReminderSent    = "reminder_sent"
)

// Booking statuses. A booking holds its slot while in one of the live
// statuses; cancellation and payment failure both release the slot.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusPaid      = "paid"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
	StatusNoShow    = "no_show"
)

// Payment statuses mirrored from processor callbacks.
const (
	PaymentStatusCreated   = "created"
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

// LiveStatuses are the statuses under which a booking keeps its slot booked.
var LiveStatuses = []string{StatusPending, StatusConfirmed, StatusPaid}

// Booking is a client's claim against a slot, carrying payment and lifecycle
// status. At most one booking in a live status may exist per slot.
type Booking struct {
	ID              string     `db:"id"`
	ClientID        string     `db:"client_id"`
	SlotID          string     `db:"slot_id"`
	ServiceCategory string     `db:"service_category"`
	PriceCZK        int64      `db:"price_czk"`
	Status          string     `db:"status"`
	PaymentIntentID *string    `db:"payment_intent_id"`
	PaymentStatus   *string    `db:"payment_status"`
	ReminderSent    bool       `db:"reminder_sent"`
	ReminderSentAt  *time.Time `db:"reminder_sent_at"`
	Notes           string     `db:"notes"`
	model.Metadata
}

// IsLive reports whether the booking currently holds its slot.
func (b Booking) IsLive() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed || b.Status == StatusPaid
}
