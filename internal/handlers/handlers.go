// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers implements the JSON HTTP API.
package handlers

import (
	"context"
	"net/http"

	"codeberg.org/oliverandrich/whisperbox/internal/auth"
	"codeberg.org/oliverandrich/whisperbox/internal/i18n"
	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"github.com/labstack/echo/v4"
)

// Response is the envelope of every API response.
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// Pinger reports whether the database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers contains handlers that need no domain service.
type Handlers struct {
	db Pinger
}

// New creates a new Handlers instance. A nil db skips the database check.
func New(db Pinger) *Handlers {
	return &Handlers{db: db}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	if h.db != nil {
		if err := h.db.Ping(c.Request().Context()); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
		}
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

func success(c echo.Context, status int, messageID string) error {
	return c.JSON(status, Response{
		Success: true,
		Message: translate(c, messageID),
	})
}

// currentAccount returns the account set by the auth middleware.
func currentAccount(c echo.Context) *models.Account {
	return auth.GetAccount(c.Request().Context())
}

func translate(c echo.Context, messageID string) string {
	return i18n.T(c.Request().Context(), messageID)
}
