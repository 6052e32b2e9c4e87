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
	"glow/internal/domains/client/model"
	"glow/shared/constant"
	"glow/shared/logger"

	"github.com/jmoiron/sqlx"
)

type Client interface {
	Insert(ctx context.Context, client model.Client) error
	GetByID(ctx context.Context, id string) (model.Client, error)
	GetByChatID(ctx context.Context, chatID string) (model.Client, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]model.Client, error)
	UpdateConsent(ctx context.Context, id string, consent bool, at time.Time) error
}

type repositoryImpl struct {
	db   *postgres.Connection
	otel otel.Otel
}

func New(db *postgres.Connection, otel otel.Otel) Client {
	return &repositoryImpl{
		db:   db,
		otel: otel,
	}
}

func (repo *repositoryImpl) Insert(ctx context.Context, client model.Client) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".client.Insert")
	defer scope.End()

	query := `INSERT INTO clients
		(id, chat_id, first_name, last_name, username, phone, email, consent_given, consent_at, created_at, updated_at)
		VALUES (:id, :chat_id, :first_name, :last_name, :username, :phone, :email, :consent_given, :consent_at, :created_at, :updated_at)`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	if _, err := repo.db.Write.NamedExecContext(ctx, query, client); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to insert client: %w", err)
	}

	return nil
}

func (repo *repositoryImpl) GetByID(ctx context.Context, id string) (model.Client, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".client.GetByID")
	defer scope.End()

	query := `SELECT * FROM clients WHERE id = $1`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var client model.Client

	err := repo.db.Read.GetContext(ctx, &client, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Client{}, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return model.Client{}, fmt.Errorf("failed to get client: %w", err)
	}

	return client, nil
}

func (repo *repositoryImpl) GetByChatID(ctx context.Context, chatID string) (model.Client, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".client.GetByChatID")
	defer scope.End()

	query := `SELECT * FROM clients WHERE chat_id = $1`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var client model.Client

	err := repo.db.Read.GetContext(ctx, &client, query, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Client{}, nil
	}

	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return model.Client{}, fmt.Errorf("failed to get client by chat id: %w", err)
	}

	return client, nil
}

// GetByIDs batch fetches clients, keyed by id. Used by the reminder sweep to
// avoid per-booking lookups.
func (repo *repositoryImpl) GetByIDs(ctx context.Context, ids []string) (map[string]model.Client, error) {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".client.GetByIDs")
	defer scope.End()

	result := make(map[string]model.Client, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM clients WHERE id IN (?)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build clients query: %w", err)
	}

	query = repo.db.Read.Rebind(query)
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	var clients []model.Client
	if err := repo.db.Read.SelectContext(ctx, &clients, query, args...); err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return nil, fmt.Errorf("failed to get clients: %w", err)
	}

	for _, client := range clients {
		result[client.ID] = client
	}

	return result, nil
}

func (repo *repositoryImpl) UpdateConsent(ctx context.Context, id string, consent bool, at time.Time) error {
	ctx, scope := repo.otel.NewScope(ctx, constant.OtelRepositoryScopeName, constant.OtelRepositoryScopeName+".client.UpdateConsent")
	defer scope.End()

	query := `UPDATE clients SET consent_given = $1, consent_at = $2, updated_at = $3 WHERE id = $4`
	scope.SetAttribute(constant.OtelQueryAttributeKey, query)

	result, err := repo.db.Write.ExecContext(ctx, query, consent, at, at, id)
	if err != nil {
		logger.ErrorWithStack(err)
		scope.TraceError(err)

		return fmt.Errorf("failed to update client consent: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
