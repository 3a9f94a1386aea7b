// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package account_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"codeberg.org/oliverandrich/whisperbox/internal/repository/memstore"
	"codeberg.org/oliverandrich/whisperbox/internal/services/account"
	"codeberg.org/oliverandrich/whisperbox/internal/services/verification"
	"codeberg.org/oliverandrich/whisperbox/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store  models.Store
	mailer *testutil.Mailer
	svc    *account.Service
	now    time.Time
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

var stores = map[string]func(t *testing.T) models.Store{
	"memstore": func(*testing.T) models.Store { return memstore.New() },
	"sqlite": func(t *testing.T) models.Store {
		_, repo := testutil.NewTestDB(t)
		return repo
	},
}

// forEachStore runs fn once per store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, f *fixture)) {
	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			f := &fixture{
				store:  newStore(t),
				mailer: &testutil.Mailer{},
				now:    time.Now().UTC(),
			}
			issuer := verification.NewIssuer(time.Hour).WithClock(func() time.Time { return f.now })
			f.svc = account.NewService(f.store, issuer, f.mailer)
			fn(t, f)
		})
	}
}

func register(t *testing.T, f *fixture, username, email string) *account.RegisterResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), account.RegisterParams{
		Username:     username,
		Email:        email,
		PasswordHash: "hash-" + username,
	})
	require.NoError(t, err)
	return res
}

func TestRegister_Create(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		res := register(t, f, "alice", "a@x.com")

		assert.Equal(t, account.ResolutionCreated, res.Resolution)
		assert.NotEmpty(t, res.Account.ID)
		assert.False(t, res.Account.IsVerified())
		assert.True(t, res.Account.AcceptingMessages)
		assert.Len(t, res.Account.VerificationCode, 6)

		mail := f.mailer.Last(t)
		assert.Equal(t, "a@x.com", mail.Email)
		assert.Equal(t, "alice", mail.Username)
		assert.Equal(t, res.Account.VerificationCode, mail.Code)

		stored, err := f.store.GetAccountByEmail(context.Background(), "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, res.Account.ID, stored.ID)
		assert.Equal(t, "hash-alice", stored.PasswordHash)
	})
}

func TestRegister_TwiceReinstates(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		first := register(t, f, "alice", "a@x.com")
		f.advance(time.Minute)

		second, err := f.svc.Register(ctx, account.RegisterParams{
			Username:     "alice2",
			Email:        "a@x.com",
			PasswordHash: "new-hash",
		})

		require.NoError(t, err)
		assert.Equal(t, account.ResolutionReinstated, second.Resolution)
		assert.Equal(t, first.Account.ID, second.Account.ID)
		assert.Len(t, f.mailer.Sent(), 2)

		stored, err := f.store.GetAccountByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, first.Account.ID, stored.ID)
		assert.Equal(t, "new-hash", stored.PasswordHash)
		assert.Equal(t, "alice2", stored.Username)
		assert.Equal(t, f.mailer.Last(t).Code, stored.VerificationCode)
		require.NotNil(t, stored.VerificationCodeExpiresAt)
		assert.WithinDuration(t, f.now.Add(time.Hour), *stored.VerificationCodeExpiresAt, time.Second)

		_, err = f.store.GetAccountByUsername(ctx, "alice")
		assert.ErrorIs(t, err, models.ErrAccountNotFound)
	})
}

func TestRegister_UsernameConflict(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		testutil.NewTestAccount(t, f.store, "alice")

		_, err := f.svc.Register(context.Background(), account.RegisterParams{
			Username: "alice", Email: "other@x.com", PasswordHash: "h",
		})

		assert.ErrorIs(t, err, models.ErrUsernameConflict)
		assert.Empty(t, f.mailer.Sent())
	})
}

func TestRegister_UnverifiedUsernameIsFree(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		register(t, f, "alice", "first@x.com")

		res := register(t, f, "alice", "second@x.com")

		assert.Equal(t, account.ResolutionCreated, res.Resolution)
	})
}

func TestRegister_EmailConflict(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		acc := testutil.NewTestAccount(t, f.store, "alice")

		_, err := f.svc.Register(context.Background(), account.RegisterParams{
			Username: "bob", Email: acc.Email, PasswordHash: "h",
		})

		assert.ErrorIs(t, err, models.ErrEmailConflict)
		assert.Empty(t, f.mailer.Sent())
	})
}

func TestRegister_InvalidInput(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		wantErr  error
	}{
		{"short username", "al", "a@x.com", models.ErrInvalidUsername},
		{"long username", "abcdefghijklmnopqrstu", "a@x.com", models.ErrInvalidUsername},
		{"bad characters", "al ice", "a@x.com", models.ErrInvalidUsername},
		{"bad email", "alice", "not-an-email", models.ErrInvalidEmail},
	}

	forEachStore(t, func(t *testing.T, f *fixture) {
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := f.svc.Register(context.Background(), account.RegisterParams{
					Username: tt.username, Email: tt.email, PasswordHash: "h",
				})
				assert.ErrorIs(t, err, tt.wantErr)
			})
		}
		assert.Empty(t, f.mailer.Sent())
	})
}

func TestRegister_DeliveryFailureKeepsAccount(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		smtpErr := errors.New("smtp down")
		f.mailer.Err = smtpErr

		res, err := f.svc.Register(ctx, account.RegisterParams{
			Username: "alice", Email: "a@x.com", PasswordHash: "h",
		})

		require.ErrorIs(t, err, models.ErrDeliveryFailure)
		assert.ErrorIs(t, err, smtpErr)
		assert.True(t, models.IsFailure(err))
		require.NotNil(t, res)

		stored, err := f.store.GetAccountByEmail(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, res.Account.ID, stored.ID)

		f.mailer.Err = nil
		retry := register(t, f, "alice", "a@x.com")
		assert.Equal(t, account.ResolutionReinstated, retry.Resolution)
		assert.Equal(t, stored.ID, retry.Account.ID)
	})
}

func TestVerify(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		register(t, f, "alice", "a@x.com")
		code := f.mailer.Last(t).Code

		acc, err := f.svc.Verify(ctx, "alice", code)

		require.NoError(t, err)
		assert.True(t, acc.IsVerified())
		assert.Empty(t, acc.VerificationCode)
		assert.Nil(t, acc.VerificationCodeExpiresAt)

		stored, err := f.store.GetAccountByID(ctx, acc.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsVerified())
		assert.Empty(t, stored.VerificationCode)

		// The code was cleared, so a second attempt fails.
		_, err = f.svc.Verify(ctx, "alice", code)
		assert.ErrorIs(t, err, models.ErrCodeMismatch)

		stored, err = f.store.GetAccountByID(ctx, acc.ID)
		require.NoError(t, err)
		assert.True(t, stored.IsVerified())
	})
}

func TestVerify_Mismatch(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		acc := testutil.NewPendingAccount(t, f.store, "alice", "a@x.com", "654321", f.now.Add(time.Hour))

		_, err := f.svc.Verify(ctx, "alice", "123456")

		require.ErrorIs(t, err, models.ErrCodeMismatch)
		assert.ErrorIs(t, err, models.ErrVerificationFailed)

		stored, err := f.store.GetAccountByID(ctx, acc.ID)
		require.NoError(t, err)
		assert.False(t, stored.IsVerified())
		assert.Equal(t, "654321", stored.VerificationCode)

		// The pending code stays usable after a wrong guess.
		_, err = f.svc.Verify(ctx, "alice", "654321")
		assert.NoError(t, err)
	})
}

func TestVerify_Expired(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		register(t, f, "alice", "a@x.com")
		code := f.mailer.Last(t).Code
		f.advance(time.Hour)

		_, err := f.svc.Verify(ctx, "alice", code)

		require.ErrorIs(t, err, models.ErrCodeExpired)
		stored, err := f.store.GetAccountByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, stored.IsVerified())
	})
}

func TestVerify_UnknownUser(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		_, err := f.svc.Verify(context.Background(), "ghost", "123456")

		assert.ErrorIs(t, err, models.ErrAccountNotFound)
	})
}

func TestVerify_UsernameTakenMeanwhile(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		first := testutil.NewPendingAccount(t, f.store, "alice", "first@x.com", "111111", f.now.Add(time.Hour))
		_ = testutil.NewPendingAccount(t, f.store, "alice", "second@x.com", "222222", f.now.Add(time.Hour))

		_, err := f.store.UpdateAccount(ctx, first.ID, func(a *models.Account) error {
			a.MarkVerified()
			return nil
		})
		require.NoError(t, err)

		// Lookup now resolves to the verified holder, which has no pending code.
		_, err = f.svc.Verify(ctx, "alice", "222222")
		assert.ErrorIs(t, err, models.ErrVerificationFailed)

		holder, err := f.store.GetAccountByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, first.ID, holder.ID)
	})
}

func TestSetAcceptingMessages(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		acc := testutil.NewTestAccount(t, f.store, "alice")

		updated, err := f.svc.SetAcceptingMessages(ctx, acc.ID, false)
		require.NoError(t, err)
		assert.False(t, updated.AcceptingMessages)

		// Idempotent.
		updated, err = f.svc.SetAcceptingMessages(ctx, acc.ID, false)
		require.NoError(t, err)
		assert.False(t, updated.AcceptingMessages)

		accepting, err := f.svc.GetAcceptingMessages(ctx, acc.ID)
		require.NoError(t, err)
		assert.False(t, accepting)

		_, err = f.svc.SetAcceptingMessages(ctx, acc.ID, true)
		require.NoError(t, err)
		accepting, err = f.svc.GetAcceptingMessages(ctx, acc.ID)
		require.NoError(t, err)
		assert.True(t, accepting)
	})
}

func TestSetAcceptingMessages_NotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()

		_, err := f.svc.SetAcceptingMessages(ctx, "missing", true)
		require.ErrorIs(t, err, models.ErrAccountNotFound)

		_, err = f.svc.GetAcceptingMessages(ctx, "missing")
		assert.ErrorIs(t, err, models.ErrAccountNotFound)
	})
}

func TestCheckUsernameUnique(t *testing.T) {
	forEachStore(t, func(t *testing.T, f *fixture) {
		ctx := context.Background()
		testutil.NewTestAccount(t, f.store, "alice")
		register(t, f, "bob", "b@x.com")

		available, err := f.svc.CheckUsernameUnique(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, available)

		available, err = f.svc.CheckUsernameUnique(ctx, "bob")
		require.NoError(t, err)
		assert.True(t, available, "unverified holders do not reserve a username")

		available, err = f.svc.CheckUsernameUnique(ctx, "carol")
		require.NoError(t, err)
		assert.True(t, available)

		_, err = f.svc.CheckUsernameUnique(ctx, "x")
		assert.ErrorIs(t, err, models.ErrInvalidUsername)
	})
}
