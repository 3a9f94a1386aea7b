// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"codeberg.org/oliverandrich/whisperbox/internal/i18n"
	"codeberg.org/oliverandrich/whisperbox/internal/models"
	authsvc "codeberg.org/oliverandrich/whisperbox/internal/services/auth"
	"github.com/labstack/echo/v4"
)

// errorMapping pairs a sentinel with its HTTP status and message ID.
type errorMapping struct {
	err       error
	status    int
	messageID string
}

// Order matters: ErrCodeMismatch and ErrCodeExpired wrap ErrVerificationFailed.
var errorMappings = []errorMapping{
	{models.ErrDeliveryFailure, http.StatusInternalServerError, "error_delivery_failed"},
	{models.ErrPersistenceFailure, http.StatusInternalServerError, "error_internal"},
	{models.ErrUsernameConflict, http.StatusBadRequest, "error_username_taken"},
	{models.ErrEmailConflict, http.StatusBadRequest, "error_email_taken"},
	{models.ErrInvalidUsername, http.StatusBadRequest, "error_invalid_username"},
	{models.ErrInvalidEmail, http.StatusBadRequest, "error_invalid_email"},
	{models.ErrInvalidContent, http.StatusBadRequest, "error_invalid_content"},
	{models.ErrCodeExpired, http.StatusBadRequest, "error_code_expired"},
	{models.ErrCodeMismatch, http.StatusBadRequest, "error_code_mismatch"},
	{models.ErrVerificationFailed, http.StatusBadRequest, "error_code_mismatch"},
	{models.ErrNotAccepting, http.StatusForbidden, "error_not_accepting"},
	{models.ErrRecipientNotFound, http.StatusNotFound, "error_recipient_not_found"},
	{models.ErrAccountNotFound, http.StatusNotFound, "error_account_not_found"},
	{models.ErrMessageNotFound, http.StatusNotFound, "error_message_not_found"},
	{authsvc.ErrInvalidCredentials, http.StatusUnauthorized, "error_invalid_credentials"},
	{authsvc.ErrNotVerified, http.StatusForbidden, "error_not_verified"},
}

// StatusFor returns the HTTP status and message ID for err.
// Unknown errors map to 500.
func StatusFor(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.messageID
		}
	}
	return http.StatusInternalServerError, "error_internal"
}

// respondError writes err as a localised JSON failure response.
func respondError(c echo.Context, err error) error {
	ctx := c.Request().Context()

	var pwErr *authsvc.PasswordValidationError
	if errors.As(err, &pwErr) {
		return c.JSON(http.StatusBadRequest, Response{
			Message: passwordMessage(c, pwErr),
		})
	}

	status, messageID := StatusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.Path(), "error", err)
	}
	return c.JSON(status, Response{Message: i18n.T(ctx, messageID)})
}

func passwordMessage(c echo.Context, err *authsvc.PasswordValidationError) string {
	ctx := c.Request().Context()
	if len(err.Errors) == 0 {
		return i18n.T(ctx, "error_invalid_request")
	}
	return i18n.TData(ctx, "error_password_"+err.Errors[0].Code, map[string]any{
		"MinLength": authsvc.DefaultPasswordValidator().MinLength,
	})
}

// badRequest answers malformed request bodies.
func badRequest(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, Response{
		Message: i18n.T(c.Request().Context(), "error_invalid_request"),
	})
}
