// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "context"

// Store is the persistence provider for accounts and their inboxes.
// Every mutation is atomic for the account it touches.
type Store interface {
	// GetAccountByID returns ErrAccountNotFound when no account matches.
	GetAccountByID(ctx context.Context, id string) (*Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*Account, error)
	// GetAccountByUsername prefers the verified holder of the username and
	// falls back to the most recently updated unverified account.
	GetAccountByUsername(ctx context.Context, username string) (*Account, error)
	VerifiedUsernameExists(ctx context.Context, username string) (bool, error)

	// CreateAccount returns ErrEmailConflict if the email is already stored.
	CreateAccount(ctx context.Context, account *Account) error
	// UpdateAccount applies fn to the current record and persists the result
	// as one read-modify-write. An error from fn aborts the update and is
	// returned unchanged. Marking an account verified while another verified
	// account holds its username fails with ErrUsernameConflict.
	UpdateAccount(ctx context.Context, id string, fn func(*Account) error) (*Account, error)

	// AppendMessage adds msg to the end of the inbox. It fails with
	// ErrNotAccepting if the account stopped accepting messages and with
	// ErrAccountNotFound if the account does not exist.
	AppendMessage(ctx context.Context, accountID string, msg Message) error
	// RemoveMessage deletes one message and reports whether it existed.
	RemoveMessage(ctx context.Context, accountID, messageID string) (bool, error)
	// ListMessages returns the inbox in insertion order.
	ListMessages(ctx context.Context, accountID string) ([]Message, error)
}

// Mailer delivers verification codes to account owners.
type Mailer interface {
	SendVerification(ctx context.Context, email, username, code string) error
}
