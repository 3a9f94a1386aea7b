// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"strings"
	"testing"

	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		username string
		valid    bool
	}{
		{"alice", true},
		{"al", false},
		{"abc", true},
		{strings.Repeat("a", 20), true},
		{strings.Repeat("a", 21), false},
		{"bob_the-builder", true},
		{"with space", false},
		{"dot.name", false},
		{"", false},
		{"ünicode", false},
	}

	for _, tt := range tests {
		t.Run(tt.username, func(t *testing.T) {
			err := models.ValidateUsername(tt.username)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, models.ErrInvalidUsername)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	assert.NoError(t, models.ValidateEmail("a@x.com"))
	assert.ErrorIs(t, models.ValidateEmail("not-an-email"), models.ErrInvalidEmail)
	assert.ErrorIs(t, models.ValidateEmail("Alice <a@x.com>"), models.ErrInvalidEmail)
	assert.ErrorIs(t, models.ValidateEmail(""), models.ErrInvalidEmail)
}

func TestValidateContent(t *testing.T) {
	tests := []struct {
		name    string
		content string
		valid   bool
	}{
		{"too short", "short", false},
		{"nine chars", strings.Repeat("a", 9), false},
		{"ten chars", strings.Repeat("a", 10), true},
		{"typical", "nice length text!", true},
		{"max length", strings.Repeat("a", 500), true},
		{"too long", strings.Repeat("a", 501), false},
		{"multibyte counted as characters", strings.Repeat("ä", 10), true},
		{"multibyte too long", strings.Repeat("ä", 501), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := models.ValidateContent(tt.content)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, models.ErrInvalidContent)
			}
		})
	}
}
