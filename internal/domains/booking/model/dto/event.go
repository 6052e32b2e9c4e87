package dto

import "time"

// Lifecycle event types published to the broker.
const (
	EventBookingCreated       = "booking.created"
	EventBookingCancelled     = "booking.cancelled"
	EventBookingExpired       = "booking.expired"
	EventBookingPaid          = "booking.paid"
	EventBookingPaymentFailed = "booking.payment_failed"
	EventRefundFailed         = "booking.refund_failed"
	EventPaymentUnmatched     = "payment.unmatched"
)

type LifecycleEvent struct {
	Type      string    `json:"type"`
	BookingID string    `json:"booking_id,omitempty"`
	SlotID    string    `json:"slot_id,omitempty"`
	ClientID  string    `json:"client_id,omitempty"`
	IntentID  string    `json:"payment_intent_id,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	At        time.Time `json:"at"`
}
