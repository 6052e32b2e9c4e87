package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"glow/infras/otel"
	"glow/infras/postgres"
	"glow/internal/domains/booking/model"
	slotModel "glow/internal/domains/slot/model"
	"glow/shared/constant"
	"glow/shared/logger"
	"glow/shared/timezone"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// ErrSlotUnavailable is returned by Reserve when the slot's conditional
// available -> booked transition matched no rows, i.e. another booking
// claimed the slot first.
var ErrSlotUnavailable = errors.New("slot is not available")

type Booking interface {
	Reserve(ctx context.Context, booking model.Booking) error
	Release(ctx context.Context, bookingID string, expected []string) (bool, error)
	GetByID(ctx context.Context, id string) (model.Booking, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (model.Booking, error)
	UpdatePayment(ctx context.Context, id, intentID, paymentStatus string) error
	ConditionalUpdateStatus(ctx context.Context, id string, expected []string, next string) (bool, error)
	ListDueReminders(ctx context.Context, from, to time.Time) ([]model.Booking, error)
	ConditionalMarkReminderSent(ctx context.Context, id string, at time.Time) (bool, error)
	ListExpiredPending(ctx context.Context, olderThan time.Time) ([]model.Booking, error)
}

type repositoryImpl struct {
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Booking {
	return &repositoryImpl{
		db:   db,
		otel: otel,
	}
}

// Reserve claims the slot and creates the pending booking in one
// transaction. The slot update carries a status guard, so two concurrent
// reservations of the same slot cannot both commit: the loser sees zero
// affected rows and gets ErrSlotUnavailable.
func (repo *repositoryImpl) Reserve(ctx context.Context, booking model.Booking) (err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.Reserve")
	defer scope.End()
	defer scope.TraceIfError(err)

	tx, err := repo.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		logger.ErrorWithStack(err)

		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	slotQuery := `UPDATE slots SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	scope.SetAttribute(constant.OtelQueryAttributeKey, slotQuery)

	result, err := tx.ExecContext(ctx, slotQuery,
		slotModel.StatusBooked, timezone.Now(), booking.SlotID, slotModel.StatusAvailable)
	if err != nil {
		logger.ErrorWithStack(err)

		return fmt.Errorf("failed to claim slot: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)

		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return ErrSlotUnavailable
	}

	bookingQuery := `INSERT INTO bookings
		(id, client_id, slot_id, service_category, price_czk, status, payment_intent_id, payment_status,
		 reminder_sent, reminder_sent_at, notes, created_at, updated_at)
		VALUES (:id, :client_id, :slot_id, :service_category, :price_czk, :status, :payment_intent_id, :payment_status,
		 :reminder_sent, :reminder_sent_at, :notes, :created_at, :updated_at)`

	if _, err = tx.NamedExecContext(ctx, bookingQuery, booking); err != nil {
		logger.ErrorWithStack(err)

		return fmt.Errorf("failed to insert booking: %w", err)
	}

	if err = tx.Commit(); err != nil {
		logger.ErrorWithStack(err)

		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	return nil
}

// Release cancels the booking and frees its slot in one transaction, guarded
// on the booking still being in one of the expected statuses. Returns false
// when the guard did not match, leaving both rows untouched.
func (repo *repositoryImpl) Release(ctx context.Context, bookingID string, expected []string) (released bool, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.Release")
	defer scope.End()
	defer scope.TraceIfError(err)

	tx, err := repo.db.Write.BeginTxx(ctx, nil)
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	now := timezone.Now()

	bookingQuery, args, err := sqlx.In(
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status IN (?) RETURNING slot_id`,
		model.StatusCancelled, now, bookingID, expected)
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to build release query: %w", err)
	}

	bookingQuery = tx.Rebind(bookingQuery)
	scope.SetAttribute(constant.OtelQueryAttributeKey, bookingQuery)

	var slotID string

	err = tx.GetContext(ctx, &slotID, bookingQuery, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to cancel booking: %w", err)
	}

	slotQuery := `UPDATE slots SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	if _, err = tx.ExecContext(ctx, slotQuery,
		slotModel.StatusAvailable, now, slotID, slotModel.StatusBooked); err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to free slot: %w", err)
	}

	if err = tx.Commit(); err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to commit release: %w", err)
	}

	return true, nil
}

func (repo *repositoryImpl) GetByID(ctx context.Context, id string) (model.Booking, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.GetByID")
	defer scope.End()

	query := `SELECT * FROM bookings WHERE id = $1`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var booking model.Booking

	err := repo.db.Read.GetContext(ctx, &booking, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return model.Booking{}, fmt.Errorf("failed to get booking: %w", err)
	}

	return booking, nil
}

func (repo *repositoryImpl) GetByPaymentIntent(ctx context.Context, intentID string) (model.Booking, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.GetByPaymentIntent")
	defer scope.End()

	query := `SELECT * FROM bookings WHERE payment_intent_id = $1`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var booking model.Booking

	err := repo.db.Read.GetContext(ctx, &booking, query, intentID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return model.Booking{}, fmt.Errorf("failed to get booking by payment intent: %w", err)
	}

	return booking, nil
}

func (repo *repositoryImpl) UpdatePayment(ctx context.Context, id, intentID, paymentStatus string) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.UpdatePayment")
	defer scope.End()

	query := `UPDATE bookings SET payment_intent_id = $1, payment_status = $2, updated_at = $3 WHERE id = $4`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	result, err := repo.db.Write.ExecContext(ctx, query, intentID, paymentStatus, timezone.Now(), id)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to update booking payment: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return fmt.Errorf("failed to update booking payment: %w", sql.ErrNoRows)
	}

	return nil
}

func (repo *repositoryImpl) ConditionalUpdateStatus(ctx context.Context, id string, expected []string, next string) (updated bool, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.ConditionalUpdateStatus")
	defer scope.End()
	defer scope.TraceIfError(err)

	query, args, err := sqlx.In(
		`UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status IN (?)`,
		next, timezone.Now(), id, expected)
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to build status query: %w", err)
	}

	query = repo.db.Write.Rebind(query)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	result, err := repo.db.Write.ExecContext(ctx, query, args...)
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to update booking status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

// ListDueReminders returns confirmed or paid bookings whose slot starts
// inside the window and which have not been reminded yet.
func (repo *repositoryImpl) ListDueReminders(ctx context.Context, from, to time.Time) ([]model.Booking, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.ListDueReminders")
	defer scope.End()

	query := `SELECT b.* FROM bookings b
		JOIN slots s ON s.id = b.slot_id
		WHERE b.status IN ($1, $2)
		  AND b.reminder_sent = FALSE
		  AND s.start_time >= $3
		  AND s.start_time < $4
		ORDER BY s.start_time ASC`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	bookings := []model.Booking{}
	if err := repo.db.Read.SelectContext(ctx, &bookings, query,
		model.StatusConfirmed, model.StatusPaid, from, to); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}

	return bookings, nil
}

// ConditionalMarkReminderSent claims the reminder for dispatch. The guard on
// reminder_sent makes the claim first-wins: only one scheduler instance gets
// true for a given booking.
func (repo *repositoryImpl) ConditionalMarkReminderSent(ctx context.Context, id string, at time.Time) (claimed bool, err error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.ConditionalMarkReminderSent")
	defer scope.End()
	defer scope.TraceIfError(err)

	query := `UPDATE bookings SET reminder_sent = TRUE, reminder_sent_at = $1, updated_at = $1
		WHERE id = $2 AND reminder_sent = FALSE`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	result, err := repo.db.Write.ExecContext(ctx, query, at, id)
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to mark reminder sent: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)

		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}

func (repo *repositoryImpl) ListExpiredPending(ctx context.Context, olderThan time.Time) ([]model.Booking, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".booking.ListExpiredPending")
	defer scope.End()

	query := `SELECT * FROM bookings WHERE status = $1 AND created_at < $2`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	bookings := []model.Booking{}
	if err := repo.db.Read.SelectContext(ctx, &bookings, query, model.StatusPending, olderThan); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to list expired pending bookings: %w", err)
	}

	return bookings, nil
}
