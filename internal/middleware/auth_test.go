// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"codeberg.org/oliverandrich/whisperbox/internal/auth"
	"codeberg.org/oliverandrich/whisperbox/internal/i18n"
	"codeberg.org/oliverandrich/whisperbox/internal/middleware"
	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"codeberg.org/oliverandrich/whisperbox/internal/repository/memstore"
	"codeberg.org/oliverandrich/whisperbox/internal/services/session"
	"codeberg.org/oliverandrich/whisperbox/internal/testutil"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	_ = i18n.Init()
}

type stubSessions struct {
	data *session.Data
	err  error
}

func (s stubSessions) Parse(*http.Request) (*session.Data, error) {
	return s.data, s.err
}

type failingLoader struct{}

func (failingLoader) GetAccountByID(context.Context, string) (*models.Account, error) {
	return nil, models.Persistence("get account", errors.New("disk"))
}

// run passes a request through mw and reports the account the handler saw.
func run(t *testing.T, mw echo.MiddlewareFunc) (*models.Account, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	c, rec := testutil.NewEchoContext(e, http.MethodGet, "/", nil)

	var seen *models.Account
	handler := mw(func(c echo.Context) error {
		seen = auth.GetAccount(c.Request().Context())
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return seen, rec
}

func TestLoadAccount(t *testing.T) {
	store := memstore.New()
	verified := testutil.NewTestAccount(t, store, "alice")
	pending := testutil.NewPendingAccount(t, store, "bob", "bob@example.com", "123456", verified.CreatedAt)

	tests := []struct {
		name     string
		sessions stubSessions
		loader   middleware.AccountLoader
		want     *models.Account
	}{
		{"no session", stubSessions{}, store, nil},
		{"session error", stubSessions{err: errors.New("bad")}, store, nil},
		{"verified account", stubSessions{data: &session.Data{AccountID: verified.ID}}, store, verified},
		{"unverified account", stubSessions{data: &session.Data{AccountID: pending.ID}}, store, nil},
		{"deleted account", stubSessions{data: &session.Data{AccountID: "gone"}}, store, nil},
		{"store failure", stubSessions{data: &session.Data{AccountID: verified.ID}}, failingLoader{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen, rec := run(t, middleware.LoadAccount(tt.sessions, tt.loader))

			assert.Equal(t, http.StatusOK, rec.Code)
			if tt.want == nil {
				assert.Nil(t, seen)
				return
			}
			require.NotNil(t, seen)
			assert.Equal(t, tt.want.ID, seen.ID)
		})
	}
}

func TestRequireAuth_Unauthenticated(t *testing.T) {
	_, rec := run(t, middleware.RequireAuth())

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Not authenticated."}`, rec.Body.String())
}

func TestRequireAuth_Authenticated(t *testing.T) {
	store := memstore.New()
	acc := testutil.NewTestAccount(t, store, "alice")
	chain := func(next echo.HandlerFunc) echo.HandlerFunc {
		sessions := stubSessions{data: &session.Data{AccountID: acc.ID}}
		return middleware.LoadAccount(sessions, store)(middleware.RequireAuth()(next))
	}

	seen, rec := run(t, chain)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "alice", seen.Username)
}
