// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package inbox admits anonymous messages into account inboxes and lets
// owners list and delete them.
package inbox

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"github.com/google/uuid"
)

type Service struct {
	store models.Store
	now   func() time.Time
}

func NewService(store models.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Admit validates content and appends it to the inbox of username.
// Checks run in order: recipient exists, recipient accepts, content length.
// Verification status is not checked.
func (s *Service) Admit(ctx context.Context, username, content string) (*models.Message, error) {
	acc, err := s.store.GetAccountByUsername(ctx, username)
	if errors.Is(err, models.ErrAccountNotFound) {
		slog.Info("message_rejected", "username", username, "reason", "recipient_not_found")
		return nil, models.ErrRecipientNotFound
	}
	if err != nil {
		return nil, models.Persistence("find recipient", err)
	}
	if !acc.AcceptingMessages {
		slog.Info("message_rejected", "account_id", acc.ID, "reason", "not_accepting")
		return nil, models.ErrNotAccepting
	}
	if err := models.ValidateContent(content); err != nil {
		slog.Info("message_rejected", "account_id", acc.ID, "reason", "invalid_content")
		return nil, err
	}

	msg := models.Message{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	// The store re-checks the toggle atomically with the append.
	if err := s.store.AppendMessage(ctx, acc.ID, msg); err != nil {
		if errors.Is(err, models.ErrNotAccepting) {
			slog.Info("message_rejected", "account_id", acc.ID, "reason", "not_accepting")
		}
		if errors.Is(err, models.ErrAccountNotFound) {
			return nil, models.ErrRecipientNotFound
		}
		return nil, models.Persistence("append message", err)
	}

	slog.Info("message_admitted", "account_id", acc.ID, "message_id", msg.ID)
	return &msg, nil
}

// List returns the inbox of accountID in insertion order.
func (s *Service) List(ctx context.Context, accountID string) ([]models.Message, error) {
	if _, err := s.store.GetAccountByID(ctx, accountID); err != nil {
		return nil, models.Persistence("find account", err)
	}
	messages, err := s.store.ListMessages(ctx, accountID)
	if err != nil {
		return nil, models.Persistence("list messages", err)
	}
	return messages, nil
}

// Delete removes messageID from the inbox of accountID. The caller must
// have established that accountID is the authenticated owner.
func (s *Service) Delete(ctx context.Context, accountID, messageID string) error {
	removed, err := s.store.RemoveMessage(ctx, accountID, messageID)
	if err != nil {
		return models.Persistence("remove message", err)
	}
	if !removed {
		return models.ErrMessageNotFound
	}
	slog.Info("message_deleted", "account_id", accountID, "message_id", messageID)
	return nil
}
