package repository

//go:generate go run go.uber.org/mock/mockgen -source=./repository.go -destination=../mocks/repository_mock.go -package=mocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"glow/infras/otel"
	"glow/infras/postgres"
	"glow/internal/domains/slot/model"
	"glow/shared/constant"
	"glow/shared/logger"
	"glow/shared/timezone"

	"github.com/jmoiron/sqlx"
)

type Slot interface {
	Insert(ctx context.Context, slot model.Slot) error
	GetByID(ctx context.Context, id string) (model.Slot, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]model.Slot, error)
	ListAvailable(ctx context.Context, serviceCategory string, from time.Time) ([]model.Slot, error)
	ConditionalUpdateStatus(ctx context.Context, id, expected, next string) (bool, error)
}

type repositoryImpl struct {
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Slot {
	return &repositoryImpl{
		db:   db,
		otel: otel,
	}
}

func (repo *repositoryImpl) Insert(ctx context.Context, slot model.Slot) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".slot.Insert")
	defer scope.End()

	query := `INSERT INTO slots
		(id, service_category, start_time, end_time, price_czk, status, created_at, updated_at)
		VALUES (:id, :service_category, :start_time, :end_time, :price_czk, :status, :created_at, :updated_at)`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	if _, err := repo.db.Write.NamedExecContext(ctx, query, slot); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to insert slot: %w", err)
	}

	return nil
}

func (repo *repositoryImpl) GetByID(ctx context.Context, id string) (model.Slot, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".slot.GetByID")
	defer scope.End()

	query := `SELECT * FROM slots WHERE id = $1`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var slot model.Slot

	err := repo.db.Read.GetContext(ctx, &slot, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Slot{}, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return model.Slot{}, fmt.Errorf("failed to get slot: %w", err)
	}

	return slot, nil
}

func (repo *repositoryImpl) GetByIDs(ctx context.Context, ids []string) (map[string]model.Slot, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".slot.GetByIDs")
	defer scope.End()

	if len(ids) == 0 {
		return map[string]model.Slot{}, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM slots WHERE id IN (?)`, ids)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to build slot query: %w", err)
	}

	query = repo.db.Read.Rebind(query)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var slots []model.Slot
	if err := repo.db.Read.SelectContext(ctx, &slots, query, args...); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to get slots: %w", err)
	}

	result := make(map[string]model.Slot, len(slots))
	for _, slot := range slots {
		result[slot.ID] = slot
	}

	return result, nil
}

func (repo *repositoryImpl) ListAvailable(ctx context.Context, serviceCategory string, from time.Time) ([]model.Slot, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".slot.ListAvailable")
	defer scope.End()

	query := `SELECT * FROM slots
		WHERE status = $1 AND service_category = $2 AND start_time >= $3
		ORDER BY start_time ASC`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	slots := []model.Slot{}
	if err := repo.db.Read.SelectContext(ctx, &slots, query, model.StatusAvailable, serviceCategory, from); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to list available slots: %w", err)
	}

	return slots, nil
}

// ConditionalUpdateStatus flips the slot's status only when it still holds
// the expected value. The affected-row count is the caller's signal: false
// means someone else transitioned the slot first.
func (repo *repositoryImpl) ConditionalUpdateStatus(ctx context.Context, id, expected, next string) (bool, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".slot.ConditionalUpdateStatus")
	defer scope.End()

	query := `UPDATE slots SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	result, err := repo.db.Write.ExecContext(ctx, query, next, timezone.Now(), id, expected)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return false, fmt.Errorf("failed to update slot status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected > 0, nil
}
