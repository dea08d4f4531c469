package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wallet-reconciler/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepo implements ports.AccountRepository.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new AccountRepo.
func NewAccountRepo(pool Pool) *AccountRepo {
	return &AccountRepo{pool: pool}
}

// GetByUsername fetches an account by canonical username. The input is
// lower-cased so the match is case-insensitive against the stored form.
func (r *AccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	query := `SELECT id, username, balance, total_deposit, created_at, updated_at
		FROM accounts WHERE username = $1`

	return r.scanAccount(r.pool.QueryRow(ctx, query, strings.ToLower(username)), "get account by username")
}

// Credit increments balance and lifetime deposit total in a single statement.
// This MUST be called within a transaction.
func (r *AccountRepo) Credit(ctx context.Context, tx pgx.Tx, accountID uuid.UUID, amount int64) error {
	query := `UPDATE accounts
		SET balance = balance + $1, total_deposit = total_deposit + $1, updated_at = NOW()
		WHERE id = $2`

	tag, err := tx.Exec(ctx, query, amount, accountID)
	if err != nil {
		return fmt.Errorf("credit account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account not found: %s", accountID)
	}
	return nil
}

func (r *AccountRepo) scanAccount(row pgx.Row, op string) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(&a.ID, &a.Username, &a.Balance, &a.TotalDeposit, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}
