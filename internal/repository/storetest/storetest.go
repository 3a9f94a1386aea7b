// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package storetest holds behaviour tests shared by every models.Store.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store.
type Factory func(t *testing.T) models.Store

// NewAccount builds an unverified account that accepts messages.
func NewAccount(username, email string) *models.Account {
	acc := &models.Account{
		ID:                 uuid.NewString(),
		Username:           username,
		Email:              email,
		PasswordHash:       "hash",
		VerificationStatus: models.StatusUnverified,
		AcceptingMessages:  true,
	}
	acc.SetPendingCode("123456", time.Now().Add(time.Hour).UTC())
	return acc
}

// NewMessage builds a message with a fresh id.
func NewMessage(content string) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// Run executes the shared suite against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("CreateDuplicateEmail", func(t *testing.T) { testCreateDuplicateEmail(t, newStore(t)) })
	t.Run("GetNotFound", func(t *testing.T) { testGetNotFound(t, newStore(t)) })
	t.Run("GetByUsernamePrefersVerified", func(t *testing.T) { testGetByUsernamePrefersVerified(t, newStore(t)) })
	t.Run("UpdateAccount", func(t *testing.T) { testUpdateAccount(t, newStore(t)) })
	t.Run("UpdateAccountAbort", func(t *testing.T) { testUpdateAccountAbort(t, newStore(t)) })
	t.Run("VerifiedUsernameUnique", func(t *testing.T) { testVerifiedUsernameUnique(t, newStore(t)) })
	t.Run("AppendAndList", func(t *testing.T) { testAppendAndList(t, newStore(t)) })
	t.Run("AppendNotAccepting", func(t *testing.T) { testAppendNotAccepting(t, newStore(t)) })
	t.Run("AppendUnknownAccount", func(t *testing.T) { testAppendUnknownAccount(t, newStore(t)) })
	t.Run("RemoveMessage", func(t *testing.T) { testRemoveMessage(t, newStore(t)) })
	t.Run("RemoveScopedToOwner", func(t *testing.T) { testRemoveScopedToOwner(t, newStore(t)) })
	t.Run("ConcurrentAppend", func(t *testing.T) { testConcurrentAppend(t, newStore(t)) })
	t.Run("ConcurrentAppendAndRemove", func(t *testing.T) { testConcurrentAppendAndRemove(t, newStore(t)) })
}

func testCreateAndGet(t *testing.T, store models.Store) {
	ctx := context.Background()
	acc := NewAccount("alice", "a@x.com")

	require.NoError(t, store.CreateAccount(ctx, acc))

	byID, err := store.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
	assert.Equal(t, "a@x.com", byID.Email)
	assert.Equal(t, "123456", byID.VerificationCode)
	require.NotNil(t, byID.VerificationCodeExpiresAt)
	assert.WithinDuration(t, *acc.VerificationCodeExpiresAt, *byID.VerificationCodeExpiresAt, time.Second)
	assert.True(t, byID.AcceptingMessages)
	assert.False(t, byID.IsVerified())

	byEmail, err := store.GetAccountByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, byEmail.ID)

	byName, err := store.GetAccountByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, byName.ID)
}

func testCreateDuplicateEmail(t *testing.T, store models.Store) {
	ctx := context.Background()
	require.NoError(t, store.CreateAccount(ctx, NewAccount("alice", "a@x.com")))

	err := store.CreateAccount(ctx, NewAccount("bob", "a@x.com"))

	assert.ErrorIs(t, err, models.ErrEmailConflict)
}

func testGetNotFound(t *testing.T, store models.Store) {
	ctx := context.Background()

	_, err := store.GetAccountByID(ctx, uuid.NewString())
	require.ErrorIs(t, err, models.ErrAccountNotFound)

	_, err = store.GetAccountByEmail(ctx, "nobody@x.com")
	require.ErrorIs(t, err, models.ErrAccountNotFound)

	_, err = store.GetAccountByUsername(ctx, "nobody")
	require.ErrorIs(t, err, models.ErrAccountNotFound)
}

func testGetByUsernamePrefersVerified(t *testing.T, store models.Store) {
	ctx := context.Background()
	pending := NewAccount("alice", "pending@x.com")
	verified := NewAccount("alice", "verified@x.com")
	verified.MarkVerified()
	require.NoError(t, store.CreateAccount(ctx, verified))
	require.NoError(t, store.CreateAccount(ctx, pending))

	got, err := store.GetAccountByUsername(ctx, "alice")

	require.NoError(t, err)
	assert.Equal(t, verified.ID, got.ID)

	exists, err := store.VerifiedUsernameExists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.VerifiedUsernameExists(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, exists)
}

func testUpdateAccount(t *testing.T, store models.Store) {
	ctx := context.Background()
	acc := NewAccount("alice", "a@x.com")
	require.NoError(t, store.CreateAccount(ctx, acc))

	updated, err := store.UpdateAccount(ctx, acc.ID, func(a *models.Account) error {
		a.MarkVerified()
		a.AcceptingMessages = false
		return nil
	})

	require.NoError(t, err)
	assert.True(t, updated.IsVerified())
	assert.False(t, updated.AcceptingMessages)

	stored, err := store.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified())
	assert.Empty(t, stored.VerificationCode)
	assert.Nil(t, stored.VerificationCodeExpiresAt)
	assert.False(t, stored.AcceptingMessages)

	_, err = store.UpdateAccount(ctx, uuid.NewString(), func(*models.Account) error { return nil })
	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

func testUpdateAccountAbort(t *testing.T, store models.Store) {
	ctx := context.Background()
	acc := NewAccount("alice", "a@x.com")
	require.NoError(t, store.CreateAccount(ctx, acc))

	_, err := store.UpdateAccount(ctx, acc.ID, func(a *models.Account) error {
		a.AcceptingMessages = false
		return models.ErrCodeMismatch
	})

	require.ErrorIs(t, err, models.ErrCodeMismatch)
	stored, err := store.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.AcceptingMessages)
}

func testVerifiedUsernameUnique(t *testing.T, store models.Store) {
	ctx := context.Background()
	first := NewAccount("alice", "first@x.com")
	second := NewAccount("alice", "second@x.com")
	require.NoError(t, store.CreateAccount(ctx, first))
	require.NoError(t, store.CreateAccount(ctx, second))

	_, err := store.UpdateAccount(ctx, first.ID, func(a *models.Account) error {
		a.MarkVerified()
		return nil
	})
	require.NoError(t, err)

	_, err = store.UpdateAccount(ctx, second.ID, func(a *models.Account) error {
		a.MarkVerified()
		return nil
	})

	require.ErrorIs(t, err, models.ErrUsernameConflict)
	stored, err := store.GetAccountByID(ctx, second.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsVerified())
}

func testAppendAndList(t *testing.T, store models.Store) {
	ctx := context.Background()
	acc := NewAccount("alice", "a@x.com")
	require.NoError(t, store.CreateAccount(ctx, acc))

	empty, err := store.ListMessages(ctx, acc.ID)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	first := NewMessage("first message")
	second := NewMessage("second message")
	require.NoError(t, store.AppendMessage(ctx, acc.ID, first))
	require.NoError(t, store.AppendMessage(ctx, acc.ID, second))

	messages, err := store.ListMessages(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, first.ID, messages[0].ID)
	assert.Equal(t, "first message", messages[0].Content)
	assert.WithinDuration(t, first.CreatedAt, messages[0].CreatedAt, time.Second)
	assert.Equal(t, second.ID, messages[1].ID)
}

func testAppendNotAccepting(t *testing.T, store models.Store) {
	ctx := context.Background()
	acc := NewAccount("alice", "a@x.com")
	acc.AcceptingMessages = false
	require.NoError(t, store.CreateAccount(ctx, acc))

	err := store.AppendMessage(ctx, acc.ID, NewMessage("hello there!"))

	require.ErrorIs(t, err, models.ErrNotAccepting)
	messages, err := store.ListMessages(ctx, acc.ID)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func testAppendUnknownAccount(t *testing.T, store models.Store) {
	err := store.AppendMessage(context.Background(), uuid.NewString(), NewMessage("hello there!"))

	assert.ErrorIs(t, err, models.ErrAccountNotFound)
}

func testRemoveMessage(t *testing.T, store models.Store) {
	ctx := context.Background()
	acc := NewAccount("alice", "a@x.com")
	require.NoError(t, store.CreateAccount(ctx, acc))
	keep := NewMessage("keep this one")
	drop := NewMessage("drop this one")
	require.NoError(t, store.AppendMessage(ctx, acc.ID, keep))
	require.NoError(t, store.AppendMessage(ctx, acc.ID, drop))

	removed, err := store.RemoveMessage(ctx, acc.ID, drop.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.RemoveMessage(ctx, acc.ID, drop.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	messages, err := store.ListMessages(ctx, acc.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, keep.ID, messages[0].ID)
}

func testRemoveScopedToOwner(t *testing.T, store models.Store) {
	ctx := context.Background()
	alice := NewAccount("alice", "a@x.com")
	bob := NewAccount("bob", "b@x.com")
	require.NoError(t, store.CreateAccount(ctx, alice))
	require.NoError(t, store.CreateAccount(ctx, bob))
	msg := NewMessage("for alice only")
	require.NoError(t, store.AppendMessage(ctx, alice.ID, msg))

	removed, err := store.RemoveMessage(ctx, bob.ID, msg.ID)

	require.NoError(t, err)
	assert.False(t, removed)
	messages, err := store.ListMessages(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func testConcurrentAppend(t *testing.T, store models.Store) {
	ctx := context.Background()
	acc := NewAccount("alice", "a@x.com")
	require.NoError(t, store.CreateAccount(ctx, acc))

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.AppendMessage(ctx, acc.ID, NewMessage(fmt.Sprintf("concurrent message %d", i)))
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	messages, err := store.ListMessages(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, messages, n)
	seen := make(map[string]bool, n)
	for _, m := range messages {
		seen[m.ID] = true
	}
	assert.Len(t, seen, n)
}

func testConcurrentAppendAndRemove(t *testing.T, store models.Store) {
	ctx := context.Background()
	acc := NewAccount("alice", "a@x.com")
	require.NoError(t, store.CreateAccount(ctx, acc))

	const n = 20
	existing := make([]models.Message, n)
	for i := range existing {
		existing[i] = NewMessage(fmt.Sprintf("existing message %d", i))
		require.NoError(t, store.AppendMessage(ctx, acc.ID, existing[i]))
	}

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.AppendMessage(ctx, acc.ID, NewMessage(fmt.Sprintf("new message %d", i))))
		}()
		go func() {
			defer wg.Done()
			removed, err := store.RemoveMessage(ctx, acc.ID, existing[i].ID)
			assert.NoError(t, err)
			assert.True(t, removed)
		}()
	}
	wg.Wait()

	messages, err := store.ListMessages(ctx, acc.ID)
	require.NoError(t, err)
	assert.Len(t, messages, n)
	for _, m := range messages {
		assert.Contains(t, m.Content, "new message")
	}
}
