// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/whisperbox/internal/auth"
	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestGetAccount(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, auth.GetAccount(ctx))
	assert.False(t, auth.IsAuthenticated(ctx))

	acc := &models.Account{ID: "acc-1", Username: "alice"}
	ctx = auth.WithAccount(ctx, acc)

	assert.Same(t, acc, auth.GetAccount(ctx))
	assert.True(t, auth.IsAuthenticated(ctx))
}
