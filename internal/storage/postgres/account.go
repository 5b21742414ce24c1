package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/kart-checkout/internal/domain/identity"
)

const (
	getAccountByIdentifierSQL = `SELECT id, identifier, password_hash
		FROM accounts WHERE lower(identifier) = lower($1)`

	upsertAccountSQL = `INSERT INTO accounts (id, identifier, password_hash)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			identifier = EXCLUDED.identifier,
			password_hash = EXCLUDED.password_hash`
)

var _ identity.Verifier = (*AccountRepository)(nil)

// AccountRepository verifies shopper credentials against bcrypt hashes stored
// in PostgreSQL.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository returns an AccountRepository that uses the given pool.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Verify returns the account ID for identifier when secret matches its stored
// hash. Unknown identifiers and wrong secrets both yield identity.ErrAuthFailure.
func (r *AccountRepository) Verify(ctx context.Context, identifier, secret string) (string, error) {
	rows, err := r.pool.Query(ctx, getAccountByIdentifierSQL, identifier)
	if err != nil {
		return "", fmt.Errorf("finding account %q: %w", identifier, err)
	}

	acc, err := pgx.CollectExactlyOneRow(rows, scanAccount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", identity.ErrAuthFailure
		}
		return "", fmt.Errorf("finding account %q: %w", identifier, err)
	}

	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", identity.ErrAuthFailure
		}
		return "", fmt.Errorf("comparing password hash for %q: %w", identifier, err)
	}
	return acc.ID, nil
}

// Upsert stores acc, replacing the identifier and hash of an existing account
// with the same ID.
func (r *AccountRepository) Upsert(ctx context.Context, acc identity.Account) error {
	_, err := r.pool.Exec(ctx, upsertAccountSQL, acc.ID, acc.Identifier, acc.PasswordHash)
	if err != nil {
		return fmt.Errorf("upserting account %q: %w", acc.ID, err)
	}
	return nil
}

func scanAccount(row pgx.CollectableRow) (identity.Account, error) {
	var acc identity.Account
	err := row.Scan(&acc.ID, &acc.Identifier, &acc.PasswordHash)
	return acc, err
}
