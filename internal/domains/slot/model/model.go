package model

import (
	"time"

	"glow/shared/model"
)

const (
	TableName  = "slots"
	EntityName = "slot"

	FieldID              = "id"
	FieldServiceCategory = "service_category"
	FieldStartTime       = "start_time"
	FieldStatus          = "status"
)

// Slot statuses. A slot is booked for as long as a live booking holds it;
// it returns to available when that booking is cancelled or its payment fails.
const (
	StatusAvailable = "available"
	StatusBooked    = "booked"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// Slot is a bookable time interval for one service category.
type Slot struct {
	ID              string    `db:"id"`
	ServiceCategory string    `db:"service_category"`
	StartTime       time.Time `db:"start_time"`
	EndTime         time.Time `db:"end_time"`
	PriceCZK        int64     `db:"price_czk"`
	Status          string    `db:"status"`
	model.Metadata
}
