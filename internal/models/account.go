// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// VerificationStatus is the verification state of an account.
type VerificationStatus string

const (
	StatusUnverified VerificationStatus = "unverified"
	StatusVerified   VerificationStatus = "verified"
)

// Account is a registered identity that owns an inbox.
type Account struct { //nolint:govet // fieldalignment: readability over optimization
	ID                        string             `db:"id" json:"id"`
	Username                  string             `db:"username" json:"username"`
	Email                     string             `db:"email" json:"email"`
	PasswordHash              string             `db:"password_hash" json:"-"`
	VerificationCode          string             `db:"verification_code" json:"-"`
	VerificationCodeExpiresAt *time.Time         `db:"verification_code_expires_at" json:"-"`
	VerificationStatus        VerificationStatus `db:"verification_status" json:"verification_status"`
	AcceptingMessages         bool               `db:"accepting_messages" json:"accepting_messages"`
	CreatedAt                 time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt                 time.Time          `db:"updated_at" json:"updated_at"`
}

// IsVerified reports whether the account completed email verification.
func (a *Account) IsVerified() bool {
	return a.VerificationStatus == StatusVerified
}

// HasPendingCode reports whether a verification code is outstanding.
func (a *Account) HasPendingCode() bool {
	return !a.IsVerified() && a.VerificationCode != "" && a.VerificationCodeExpiresAt != nil
}

// MarkVerified moves the account into the verified state and clears the code.
func (a *Account) MarkVerified() {
	a.VerificationStatus = StatusVerified
	a.VerificationCode = ""
	a.VerificationCodeExpiresAt = nil
}

// SetPendingCode stores a freshly issued code and restarts the pending window.
func (a *Account) SetPendingCode(code string, expiresAt time.Time) {
	a.VerificationStatus = StatusUnverified
	a.VerificationCode = code
	a.VerificationCodeExpiresAt = &expiresAt
}
