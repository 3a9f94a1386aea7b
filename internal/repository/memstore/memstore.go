// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package memstore provides an in-memory models.Store for tests and
// single-process deployments.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"codeberg.org/oliverandrich/whisperbox/internal/models"
)

var _ models.Store = (*Store)(nil)

// Store keeps accounts in maps. The index lock guards the maps; each
// account has its own lock for its record and inbox.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*entry
	byEmail  map[string]string
}

type entry struct {
	mu      sync.Mutex
	account models.Account
	inbox   []models.Message
}

// New creates an empty store.
func New() *Store {
	return &Store{
		accounts: make(map[string]*entry),
		byEmail:  make(map[string]string),
	}
}

func (s *Store) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.accounts[id]
	return e, ok
}

func (e *entry) snapshot() *models.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	acc := e.account
	if acc.VerificationCodeExpiresAt != nil {
		t := *acc.VerificationCodeExpiresAt
		acc.VerificationCodeExpiresAt = &t
	}
	return &acc
}

// GetAccountByID retrieves an account by ID.
func (s *Store) GetAccountByID(_ context.Context, id string) (*models.Account, error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	return e.snapshot(), nil
}

// GetAccountByEmail retrieves an account by email.
func (s *Store) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	e := s.accounts[id]
	s.mu.RUnlock()
	if !ok {
		return nil, models.ErrAccountNotFound
	}
	return e.snapshot(), nil
}

// GetAccountByUsername retrieves the verified holder of username, or the
// most recently updated unverified account using it.
func (s *Store) GetAccountByUsername(_ context.Context, username string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.Account
	for _, e := range s.accounts {
		acc := e.snapshot()
		if acc.Username != username {
			continue
		}
		if acc.IsVerified() {
			return acc, nil
		}
		if best == nil || acc.UpdatedAt.After(best.UpdatedAt) {
			best = acc
		}
	}
	if best == nil {
		return nil, models.ErrAccountNotFound
	}
	return best, nil
}

// VerifiedUsernameExists reports whether a verified account holds username.
func (s *Store) VerifiedUsernameExists(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verifiedHolder(username, "") != "", nil
}

// verifiedHolder returns the id of a verified account other than exclude
// that holds username. Callers hold s.mu.
func (s *Store) verifiedHolder(username, exclude string) string {
	for id, e := range s.accounts {
		if id == exclude {
			continue
		}
		acc := e.snapshot()
		if acc.Username == username && acc.IsVerified() {
			return id
		}
	}
	return ""
}

// CreateAccount stores a new account.
func (s *Store) CreateAccount(_ context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[account.Email]; exists {
		return models.ErrEmailConflict
	}
	if account.IsVerified() && s.verifiedHolder(account.Username, "") != "" {
		return models.ErrUsernameConflict
	}

	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	e := &entry{account: *account}
	s.accounts[account.ID] = e
	s.byEmail[account.Email] = account.ID
	return nil
}

// UpdateAccount applies fn to the account under its lock.
func (s *Store) UpdateAccount(_ context.Context, id string, fn func(*models.Account) error) (*models.Account, error) {
	// The index lock is held exclusively so email and verified username
	// uniqueness can be checked against the new state.
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.accounts[id]
	if !ok {
		return nil, models.ErrAccountNotFound
	}

	working := e.snapshot()
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ID = id

	if working.Email != e.account.Email {
		if other, exists := s.byEmail[working.Email]; exists && other != id {
			return nil, models.ErrEmailConflict
		}
	}
	if working.IsVerified() && s.verifiedHolder(working.Username, id) != "" {
		return nil, models.ErrUsernameConflict
	}

	working.UpdatedAt = time.Now().UTC()

	e.mu.Lock()
	oldEmail := e.account.Email
	e.account = *working
	e.mu.Unlock()

	if oldEmail != working.Email {
		delete(s.byEmail, oldEmail)
		s.byEmail[working.Email] = id
	}

	return e.snapshot(), nil
}

// AppendMessage appends msg to the inbox while the account accepts messages.
func (s *Store) AppendMessage(_ context.Context, accountID string, msg models.Message) error {
	e, ok := s.lookup(accountID)
	if !ok {
		return models.ErrAccountNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.account.AcceptingMessages {
		return models.ErrNotAccepting
	}
	e.inbox = append(e.inbox, msg)
	return nil
}

// RemoveMessage deletes one message from the inbox.
func (s *Store) RemoveMessage(_ context.Context, accountID, messageID string) (bool, error) {
	e, ok := s.lookup(accountID)
	if !ok {
		return false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	i := slices.IndexFunc(e.inbox, func(m models.Message) bool { return m.ID == messageID })
	if i < 0 {
		return false, nil
	}
	e.inbox = slices.Delete(e.inbox, i, i+1)
	return true, nil
}

// ListMessages returns a copy of the inbox in insertion order.
func (s *Store) ListMessages(_ context.Context, accountID string) ([]models.Message, error) {
	e, ok := s.lookup(accountID)
	if !ok {
		return []models.Message{}, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.Message{}, e.inbox...), nil
}
