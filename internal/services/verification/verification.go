// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package verification issues and checks the one-time codes sent to new accounts.
package verification

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"time"

	"codeberg.org/oliverandrich/whisperbox/internal/models"
)

// DefaultTTL is how long an issued code stays valid.
const DefaultTTL = time.Hour

const (
	codeMin = 100000
	codeMax = 999999
)

// Issuer creates six-digit codes and validates submitted ones.
type Issuer struct {
	ttl time.Duration
	now func() time.Time
}

// NewIssuer returns an Issuer whose codes expire after ttl.
// A non-positive ttl falls back to DefaultTTL.
func NewIssuer(ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// TTL returns the configured code lifetime.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue returns a fresh code and its expiry.
func (i *Issuer) Issue() (string, time.Time, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate verification code: %w", err)
	}
	code := fmt.Sprintf("%06d", n.Int64()+codeMin)
	return code, i.now().Add(i.ttl).UTC(), nil
}

// Validate checks code against the account's pending code.
// Mismatch is reported before expiry so a wrong guess never learns whether the code is stale.
func (i *Issuer) Validate(account *models.Account, code string) error {
	if !account.HasPendingCode() {
		return models.ErrCodeMismatch
	}
	if subtle.ConstantTimeCompare([]byte(account.VerificationCode), []byte(code)) != 1 {
		return models.ErrCodeMismatch
	}
	if !i.now().Before(*account.VerificationCodeExpiresAt) {
		return models.ErrCodeExpired
	}
	return nil
}
