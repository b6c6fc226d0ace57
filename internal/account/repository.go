package account

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound indicates no account exists for the given phone number.
	ErrNotFound = errors.New("account not found")

	// ErrExists indicates an account was already provisioned for the phone number.
	ErrExists = errors.New("account exists")

	// ErrPINAlreadySet indicates the credential was set previously; it is immutable.
	ErrPINAlreadySet = errors.New("pin already set")
)

// Repository persists accounts.
type Repository interface {
	Create(ctx context.Context, acct Account) error
	FindByPhone(ctx context.Context, phoneNumber string) (Account, error)
	SetPINHash(ctx context.Context, id string, hash []byte) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed account repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new account.
func (r *PostgresRepository) Create(ctx context.Context, acct Account) error {
	acctID, err := uuid.Parse(acct.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, phone_number, wallet_addr, smart_wallet_addr, pin_hash, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		acctID, acct.PhoneNumber, acct.WalletAddr, nullable(acct.SmartWalletAddr), acct.PINHash, acct.CreatedAt.UTC())
	return err
}

// FindByPhone fetches an account by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phoneNumber string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT id, phone_number, wallet_addr, smart_wallet_addr, pin_hash, created_at
        FROM users WHERE phone_number = $1`, phoneNumber)
	var (
		id        uuid.UUID
		smartAddr *string
		createdAt time.Time
		acct      Account
	)
	if err := row.Scan(&id, &acct.PhoneNumber, &acct.WalletAddr, &smartAddr, &acct.PINHash, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrNotFound
		}
		return Account{}, err
	}
	acct.ID = id.String()
	if smartAddr != nil {
		acct.SmartWalletAddr = *smartAddr
	}
	acct.CreatedAt = createdAt.UTC()
	return acct, nil
}

// SetPINHash stores the credential hash. The WHERE clause refuses to overwrite
// an existing hash so the credential stays write-once even under races.
func (r *PostgresRepository) SetPINHash(ctx context.Context, id string, hash []byte) error {
	acctID, err := uuid.Parse(id)
	if err != nil {
		return err
	}
	cmd, err := r.db.Exec(ctx, `UPDATE users SET pin_hash = $1 WHERE id = $2 AND pin_hash IS NULL`, hash, acctID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrPINAlreadySet
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
