// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth hashes passwords and authenticates verified accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt cost for new password hashes.
const DefaultCost = 12

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("account is not verified")
)

// AccountFinder is the subset of models.Store used for login.
type AccountFinder interface {
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
}

type Service struct {
	accounts          AccountFinder
	cost              int
	dummyHash         []byte
	passwordValidator *PasswordValidator
}

// NewService returns a Service hashing with cost. A cost outside the
// bcrypt range falls back to DefaultCost.
func NewService(accounts AccountFinder, cost int) *Service {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	// dummyHash keeps login timing equal for unknown identifiers.
	dummyHash, _ := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	return &Service{
		accounts:          accounts,
		cost:              cost,
		dummyHash:         dummyHash,
		passwordValidator: DefaultPasswordValidator(),
	}
}

// PasswordValidator returns the password validator for use in handlers
func (s *Service) PasswordValidator() *PasswordValidator {
	return s.passwordValidator
}

// HashPassword validates password against the policy and returns its bcrypt hash.
func (s *Service) HashPassword(password string, userAttributes ...string) (string, error) {
	validation := s.passwordValidator.Validate(password, userAttributes...)
	if !validation.Valid {
		return "", &PasswordValidationError{Errors: validation.Errors}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login authenticates by email or username. Only verified accounts may sign in.
func (s *Service) Login(ctx context.Context, identifier, password string) (*models.Account, error) {
	acc, err := s.find(ctx, identifier)
	if err != nil {
		if errors.Is(err, models.ErrAccountNotFound) {
			_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
			slog.Warn("login_failed", "identifier", identifier, "reason", "account_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, models.Persistence("find account", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		slog.Warn("login_failed", "account_id", acc.ID, "reason", "invalid_password")
		return nil, ErrInvalidCredentials
	}

	if !acc.IsVerified() {
		slog.Warn("login_failed", "account_id", acc.ID, "reason", "not_verified")
		return nil, ErrNotVerified
	}

	slog.Info("login_success", "account_id", acc.ID, "username", acc.Username)
	return acc, nil
}

func (s *Service) find(ctx context.Context, identifier string) (*models.Account, error) {
	if models.ValidateEmail(identifier) == nil {
		return s.accounts.GetAccountByEmail(ctx, identifier)
	}
	return s.accounts.GetAccountByUsername(ctx, identifier)
}
