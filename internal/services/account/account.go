// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package account implements registration, verification and the
// accept-messages toggle on top of a models.Store.
package account

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"codeberg.org/oliverandrich/whisperbox/internal/services/verification"
	"github.com/google/uuid"
)

// Resolution tells how a registration was satisfied.
type Resolution string

const (
	ResolutionCreated    Resolution = "created"
	ResolutionReinstated Resolution = "reinstated"
)

// RegisterParams holds the parameters for registration.
// PasswordHash must already be hashed by the caller.
type RegisterParams struct {
	Username     string
	Email        string
	PasswordHash string
}

// RegisterResult describes the persisted account after registration.
type RegisterResult struct {
	Resolution Resolution
	Account    *models.Account
}

type Service struct {
	store  models.Store
	issuer *verification.Issuer
	mailer models.Mailer
}

func NewService(store models.Store, issuer *verification.Issuer, mailer models.Mailer) *Service {
	return &Service{
		store:  store,
		issuer: issuer,
		mailer: mailer,
	}
}

// Register creates a pending account or reinstates the unverified account
// registered under the same email, then mails a fresh code.
//
// When mailing fails the error wraps models.ErrDeliveryFailure and the
// result is still returned: the account stays persisted and a repeated
// registration takes the reinstate path.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*RegisterResult, error) {
	if err := models.ValidateUsername(params.Username); err != nil {
		return nil, err
	}
	if err := models.ValidateEmail(params.Email); err != nil {
		return nil, err
	}

	taken, err := s.store.VerifiedUsernameExists(ctx, params.Username)
	if err != nil {
		return nil, models.Persistence("check username", err)
	}
	if taken {
		slog.Info("register_conflict", "username", params.Username, "reason", "username_taken")
		return nil, models.ErrUsernameConflict
	}

	code, expiresAt, err := s.issuer.Issue()
	if err != nil {
		return nil, models.Persistence("issue code", err)
	}

	result, err := s.resolve(ctx, params, code, expiresAt)
	if err != nil {
		if errors.Is(err, models.ErrEmailConflict) || errors.Is(err, models.ErrUsernameConflict) {
			slog.Info("register_conflict", "username", params.Username, "reason", conflictReason(err))
		}
		return nil, models.Persistence("register", err)
	}

	switch result.Resolution {
	case ResolutionCreated:
		slog.Info("register_created", "account_id", result.Account.ID, "username", params.Username)
	case ResolutionReinstated:
		slog.Info("register_reinstated", "account_id", result.Account.ID, "username", params.Username)
	}

	if err := s.mailer.SendVerification(ctx, params.Email, params.Username, code); err != nil {
		slog.Error("verification mail failed", "account_id", result.Account.ID, "error", err)
		return result, models.Delivery("send verification", err)
	}

	return result, nil
}

func (s *Service) resolve(ctx context.Context, params RegisterParams, code string, expiresAt time.Time) (*RegisterResult, error) {
	existing, err := s.store.GetAccountByEmail(ctx, params.Email)
	switch {
	case errors.Is(err, models.ErrAccountNotFound):
		acc := &models.Account{
			ID:                uuid.NewString(),
			Username:          params.Username,
			Email:             params.Email,
			PasswordHash:      params.PasswordHash,
			AcceptingMessages: true,
		}
		acc.SetPendingCode(code, expiresAt)
		if err := s.store.CreateAccount(ctx, acc); err != nil {
			return nil, err
		}
		return &RegisterResult{Resolution: ResolutionCreated, Account: acc}, nil
	case err != nil:
		return nil, err
	case existing.IsVerified():
		return nil, models.ErrEmailConflict
	}

	acc, err := s.store.UpdateAccount(ctx, existing.ID, func(a *models.Account) error {
		// The account may have been verified since it was read.
		if a.IsVerified() {
			return models.ErrEmailConflict
		}
		a.Username = params.Username
		a.PasswordHash = params.PasswordHash
		a.SetPendingCode(code, expiresAt)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &RegisterResult{Resolution: ResolutionReinstated, Account: acc}, nil
}

func conflictReason(err error) string {
	if errors.Is(err, models.ErrEmailConflict) {
		return "email_taken"
	}
	return "username_taken"
}

// Verify checks code against the pending code of the account registered
// under username and marks the account verified on success.
// A verified account has no pending code, so verifying twice fails.
func (s *Service) Verify(ctx context.Context, username, code string) (*models.Account, error) {
	acc, err := s.store.GetAccountByUsername(ctx, username)
	if err != nil {
		return nil, models.Persistence("find account", err)
	}

	verified, err := s.store.UpdateAccount(ctx, acc.ID, func(a *models.Account) error {
		if err := s.issuer.Validate(a, code); err != nil {
			return err
		}
		a.MarkVerified()
		return nil
	})
	if err != nil {
		slog.Warn("verify_failed", "account_id", acc.ID, "username", username, "reason", verifyReason(err))
		return nil, models.Persistence("verify", err)
	}

	slog.Info("verify_success", "account_id", verified.ID, "username", username)
	return verified, nil
}

func verifyReason(err error) string {
	switch {
	case errors.Is(err, models.ErrCodeExpired):
		return "code_expired"
	case errors.Is(err, models.ErrCodeMismatch):
		return "code_mismatch"
	case errors.Is(err, models.ErrUsernameConflict):
		return "username_taken"
	default:
		return "error"
	}
}

// SetAcceptingMessages stores the owner's accept toggle. Setting the
// current value again succeeds without changes to the inbox.
func (s *Service) SetAcceptingMessages(ctx context.Context, accountID string, accepting bool) (*models.Account, error) {
	acc, err := s.store.UpdateAccount(ctx, accountID, func(a *models.Account) error {
		a.AcceptingMessages = accepting
		return nil
	})
	if err != nil {
		return nil, models.Persistence("set accepting messages", err)
	}
	slog.Info("accepting_changed", "account_id", accountID, "accepting", accepting)
	return acc, nil
}

// GetAcceptingMessages returns the owner's accept toggle.
func (s *Service) GetAcceptingMessages(ctx context.Context, accountID string) (bool, error) {
	acc, err := s.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return false, models.Persistence("get accepting messages", err)
	}
	return acc.AcceptingMessages, nil
}

// CheckUsernameUnique reports whether username is valid and not held by a
// verified account.
func (s *Service) CheckUsernameUnique(ctx context.Context, username string) (bool, error) {
	if err := models.ValidateUsername(username); err != nil {
		return false, err
	}
	taken, err := s.store.VerifiedUsernameExists(ctx, username)
	if err != nil {
		return false, models.Persistence("check username", err)
	}
	return !taken, nil
}
