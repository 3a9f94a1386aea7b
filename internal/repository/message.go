// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/whisperbox/internal/models"
)

// AppendMessage inserts msg only while the account accepts messages.
// The accept check and the insert are one statement.
func (r *Repository) AppendMessage(ctx context.Context, accountID string, msg models.Message) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO messages (id, account_id, content, created_at)
		 SELECT ?, id, ?, ? FROM accounts WHERE id = ? AND accepting_messages = 1`,
		msg.ID, msg.Content, msg.CreatedAt.UTC(), accountID)
	if err != nil {
		return mapError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 1 {
		return nil
	}

	// Nothing inserted: the account is either gone or closed.
	var accepting bool
	if err := r.db.GetContext(ctx, &accepting, `SELECT accepting_messages FROM accounts WHERE id = ?`, accountID); err != nil {
		return mapError(err)
	}
	return models.ErrNotAccepting
}

// RemoveMessage deletes one message from the account's inbox.
func (r *Repository) RemoveMessage(ctx context.Context, accountID, messageID string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM messages WHERE id = ? AND account_id = ?`, messageID, accountID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListMessages returns the inbox in insertion order.
func (r *Repository) ListMessages(ctx context.Context, accountID string) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.db.SelectContext(ctx, &messages,
		`SELECT id, content, created_at FROM messages WHERE account_id = ? ORDER BY seq`, accountID)
	if err != nil {
		return nil, err
	}
	return messages, nil
}
