// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package middleware holds echo middleware for authentication.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/whisperbox/internal/auth"
	"codeberg.org/oliverandrich/whisperbox/internal/i18n"
	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"codeberg.org/oliverandrich/whisperbox/internal/services/session"
	"github.com/labstack/echo/v4"
)

// SessionReader decodes the session carried by a request.
type SessionReader interface {
	Parse(r *http.Request) (*session.Data, error)
}

// AccountLoader is an interface for loading full account data
type AccountLoader interface {
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
}

// LoadAccount creates middleware that loads the session account into the
// request context. Sessions of deleted or unverified accounts are ignored.
func LoadAccount(sessions SessionReader, accounts AccountLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			data, err := sessions.Parse(req)
			if err != nil || data == nil {
				return next(c)
			}

			account, err := accounts.GetAccountByID(req.Context(), data.AccountID)
			if err != nil {
				if !errors.Is(err, models.ErrAccountNotFound) {
					slog.Error("failed to load session account", "account_id", data.AccountID, "error", err)
				}
				return next(c)
			}
			if !account.IsVerified() {
				return next(c)
			}

			c.SetRequest(req.WithContext(auth.WithAccount(req.Context(), account)))
			return next(c)
		}
	}
}

// RequireAuth rejects requests without an authenticated account.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !auth.IsAuthenticated(c.Request().Context()) {
				return c.JSON(http.StatusUnauthorized, map[string]any{
					"success": false,
					"message": i18n.T(c.Request().Context(), "error_unauthenticated"),
				})
			}
			return next(c)
		}
	}
}
