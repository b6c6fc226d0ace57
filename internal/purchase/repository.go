package purchase

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists purchase intents.
type Repository interface {
	Create(ctx context.Context, intent Intent) error
}

// PostgresRepository stores purchase intents in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a purchase intent record.
func (r *PostgresRepository) Create(ctx context.Context, intent Intent) error {
	intentID, err := uuid.Parse(intent.ID)
	if err != nil {
		return err
	}
	acctID, err := uuid.Parse(intent.AccountID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO purchases (id, user_id, provider, phone_number, token_symbol, amount, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		intentID, acctID, intent.Provider, intent.PhoneNumber, intent.TokenSymbol, intent.Amount, intent.Status, intent.CreatedAt.UTC())
	return err
}
