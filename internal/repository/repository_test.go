// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"codeberg.org/oliverandrich/whisperbox/internal/repository"
	"codeberg.org/oliverandrich/whisperbox/internal/repository/storetest"
	"codeberg.org/oliverandrich/whisperbox/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	assert.NotNil(t, repo)
	assert.NoError(t, repo.Ping(context.Background()))
}

func TestRepository_Store(t *testing.T) {
	storetest.Run(t, func(t *testing.T) models.Store {
		_, repo := testutil.NewTestDB(t)
		return repo
	})
}

func TestRepository_FileDatabase(t *testing.T) {
	// A file database uses the full connection pool.
	storetest.Run(t, func(t *testing.T) models.Store {
		_, repo := testutil.NewTestFileDB(t)
		return repo
	})
}

func TestCreateAccount_SetsTimestamps(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	acc := storetest.NewAccount("alice", "a@x.com")

	require.NoError(t, repo.CreateAccount(ctx, acc))

	stored, err := repo.GetAccountByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, stored.CreatedAt.IsZero())
	assert.False(t, stored.UpdatedAt.IsZero())
}

var _ models.Store = (*repository.Repository)(nil)
