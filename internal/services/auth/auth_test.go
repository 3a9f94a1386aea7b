// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"codeberg.org/oliverandrich/whisperbox/internal/repository/memstore"
	"codeberg.org/oliverandrich/whisperbox/internal/services/auth"
	"codeberg.org/oliverandrich/whisperbox/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newService(t *testing.T) (*auth.Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return auth.NewService(store, bcrypt.MinCost), store
}

func storeWithPassword(t *testing.T, svc *auth.Service, store *memstore.Store, username, password string, verified bool) *models.Account {
	t.Helper()
	acc := testutil.NewTestAccount(t, store, username)
	hash, err := svc.HashPassword(password)
	require.NoError(t, err)
	updated, err := store.UpdateAccount(context.Background(), acc.ID, func(a *models.Account) error {
		a.PasswordHash = hash
		if !verified {
			a.VerificationStatus = models.StatusUnverified
		}
		return nil
	})
	require.NoError(t, err)
	return updated
}

func TestHashPassword(t *testing.T) {
	svc, _ := newService(t)

	hash, err := svc.HashPassword("correct horse")

	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("correct horse")))
}

func TestHashPassword_Policy(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.HashPassword("abc")

	var pwErr *auth.PasswordValidationError
	require.ErrorAs(t, err, &pwErr)
	assert.Contains(t, pwErr.Codes(), "min_length")
}

func TestNewService_DefaultCost(t *testing.T) {
	svc := auth.NewService(memstore.New(), 0)

	hash, err := svc.HashPassword("correct horse")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, auth.DefaultCost, cost)
}

func TestLogin(t *testing.T) {
	svc, store := newService(t)
	acc := storeWithPassword(t, svc, store, "alice", "correct horse", true)

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    error
	}{
		{"by username", "alice", "correct horse", nil},
		{"by email", acc.Email, "correct horse", nil},
		{"wrong password", "alice", "wrong horse", auth.ErrInvalidCredentials},
		{"unknown username", "bob", "correct horse", auth.ErrInvalidCredentials},
		{"unknown email", "bob@example.com", "correct horse", auth.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Login(context.Background(), tt.identifier, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, acc.ID, got.ID)
		})
	}
}

func TestLogin_NotVerified(t *testing.T) {
	svc, store := newService(t)
	storeWithPassword(t, svc, store, "alice", "correct horse", false)

	_, err := svc.Login(context.Background(), "alice", "correct horse")

	assert.ErrorIs(t, err, auth.ErrNotVerified)
}

func TestLogin_NotVerifiedWrongPassword(t *testing.T) {
	svc, store := newService(t)
	storeWithPassword(t, svc, store, "alice", "correct horse", false)

	_, err := svc.Login(context.Background(), "alice", "wrong horse")

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}
