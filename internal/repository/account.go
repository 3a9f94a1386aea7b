// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"github.com/vinovest/sqlx"
)

const accountColumns = `id, username, email, password_hash, verification_code,
	verification_code_expires_at, verification_status, accepting_messages,
	created_at, updated_at`

// GetAccountByID retrieves an account by ID.
func (r *Repository) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	return r.getAccount(ctx, r.db, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
}

// GetAccountByEmail retrieves an account by email address.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return r.getAccount(ctx, r.db, `SELECT `+accountColumns+` FROM accounts WHERE email = ?`, email)
}

// GetAccountByUsername retrieves the verified holder of username, or the most
// recently updated unverified account using it.
func (r *Repository) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	return r.getAccount(ctx, r.db,
		`SELECT `+accountColumns+` FROM accounts WHERE username = ?
		 ORDER BY verification_status = 'verified' DESC, updated_at DESC, rowid DESC
		 LIMIT 1`,
		username)
}

// VerifiedUsernameExists reports whether a verified account holds username.
func (r *Repository) VerifiedUsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE username = ? AND verification_status = 'verified')`,
		username)
	return exists, err
}

// CreateAccount inserts a new account.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	_, err := r.db.NamedExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`) VALUES (
			:id, :username, :email, :password_hash, :verification_code,
			:verification_code_expires_at, :verification_status, :accepting_messages,
			:created_at, :updated_at)`,
		account)
	return mapError(err)
}

// UpdateAccount performs an atomic read-modify-write of one account.
func (r *Repository) UpdateAccount(ctx context.Context, id string, fn func(*models.Account) error) (*models.Account, error) {
	var updated *models.Account

	err := r.withTx(ctx, func(tx *sqlx.Tx) error {
		account, err := r.getAccount(ctx, tx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
		if err != nil {
			return err
		}

		if err := fn(account); err != nil {
			return err
		}
		account.ID = id
		account.UpdatedAt = time.Now().UTC()

		_, err = tx.NamedExecContext(ctx,
			`UPDATE accounts SET
				username = :username,
				email = :email,
				password_hash = :password_hash,
				verification_code = :verification_code,
				verification_code_expires_at = :verification_code_expires_at,
				verification_status = :verification_status,
				accepting_messages = :accepting_messages,
				updated_at = :updated_at
			 WHERE id = :id`,
			account)
		if err != nil {
			return mapError(err)
		}

		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Repository) getAccount(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (*models.Account, error) {
	var account models.Account
	if err := sqlx.GetContext(ctx, q, &account, query, args...); err != nil {
		return nil, mapError(err)
	}
	return &account, nil
}
