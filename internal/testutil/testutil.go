// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/whisperbox/internal/database"
	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"codeberg.org/oliverandrich/whisperbox/internal/repository"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	return openTestDB(t, ":memory:")
}

// NewTestFileDB creates a SQLite database file in a temporary directory.
func NewTestFileDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	return openTestDB(t, filepath.Join(t.TempDir(), "test.db"))
}

func openTestDB(t *testing.T, dsn string) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, repository.New(db)
}

// NewTestAccount stores a verified account that accepts messages.
func NewTestAccount(t *testing.T, store models.Store, username string) *models.Account {
	t.Helper()
	acc := &models.Account{
		ID:                 uuid.NewString(),
		Username:           username,
		Email:              username + "@example.com",
		PasswordHash:       "hash",
		VerificationStatus: models.StatusVerified,
		AcceptingMessages:  true,
	}
	require.NoError(t, store.CreateAccount(context.Background(), acc))
	return acc
}

// NewPendingAccount stores an unverified account holding code.
func NewPendingAccount(t *testing.T, store models.Store, username, email, code string, expiresAt time.Time) *models.Account {
	t.Helper()
	acc := &models.Account{
		ID:                uuid.NewString(),
		Username:          username,
		Email:             email,
		PasswordHash:      "hash",
		AcceptingMessages: true,
	}
	acc.SetPendingCode(code, expiresAt)
	require.NoError(t, store.CreateAccount(context.Background(), acc))
	return acc
}

// SentVerification is one call recorded by Mailer.
type SentVerification struct {
	Email    string
	Username string
	Code     string
}

// Mailer records verification mails instead of sending them.
type Mailer struct {
	mu   sync.Mutex
	sent []SentVerification
	// Err is returned from every SendVerification call when set.
	Err error
}

// SendVerification implements models.Mailer.
func (m *Mailer) SendVerification(_ context.Context, email, username, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, SentVerification{Email: email, Username: username, Code: code})
	return nil
}

// Sent returns the recorded mails.
func (m *Mailer) Sent() []SentVerification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentVerification(nil), m.sent...)
}

// Last returns the most recent mail; it fails the test if none was sent.
func (m *Mailer) Last(t *testing.T) SentVerification {
	t.Helper()
	sent := m.Sent()
	require.NotEmpty(t, sent, "no verification mail sent")
	return sent[len(sent)-1]
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

var _ models.Mailer = (*Mailer)(nil)
