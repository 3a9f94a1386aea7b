// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"net/http"
	"strings"

	"codeberg.org/oliverandrich/whisperbox/internal/metrics"
	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"codeberg.org/oliverandrich/whisperbox/internal/services/account"
	authsvc "codeberg.org/oliverandrich/whisperbox/internal/services/auth"
	"codeberg.org/oliverandrich/whisperbox/internal/services/session"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains handlers for registration, verification and sign-in.
type AuthHandlers struct {
	accounts *account.Service
	auth     *authsvc.Service
	sessions *session.Manager
	metrics  *metrics.Metrics
}

// NewAuth creates a new AuthHandlers instance. m may be nil.
func NewAuth(accounts *account.Service, auth *authsvc.Service, sessions *session.Manager, m *metrics.Metrics) *AuthHandlers {
	return &AuthHandlers{
		accounts: accounts,
		auth:     auth,
		sessions: sessions,
		metrics:  m,
	}
}

// SignUpRequest is the request body for registration.
type SignUpRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignUp registers an account and mails its verification code.
func (h *AuthHandlers) SignUp(c echo.Context) error {
	var req SignUpRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)

	if err := models.ValidateUsername(req.Username); err != nil {
		h.metrics.Registration(metrics.OutcomeInvalid)
		return respondError(c, err)
	}
	if err := models.ValidateEmail(req.Email); err != nil {
		h.metrics.Registration(metrics.OutcomeInvalid)
		return respondError(c, err)
	}

	hash, err := h.auth.HashPassword(req.Password, req.Username, req.Email)
	if err != nil {
		h.metrics.Registration(metrics.OutcomeInvalid)
		return respondError(c, err)
	}

	result, err := h.accounts.Register(c.Request().Context(), account.RegisterParams{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
	})
	if err != nil {
		h.metrics.Registration(metrics.Outcome(err))
		return respondError(c, err)
	}

	h.metrics.Registration(string(result.Resolution))
	return success(c, http.StatusCreated, "sign_up_success")
}

// VerifyRequest is the request body for code verification.
type VerifyRequest struct {
	Username string `json:"username"`
	Code     string `json:"code"`
}

// VerifyCode completes registration with the mailed code.
func (h *AuthHandlers) VerifyCode(c echo.Context) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	_, err := h.accounts.Verify(c.Request().Context(), strings.TrimSpace(req.Username), strings.TrimSpace(req.Code))
	h.metrics.Verification(metrics.Outcome(err))
	if err != nil {
		return respondError(c, err)
	}

	return success(c, http.StatusOK, "verify_success")
}

// CheckUsernameUnique reports whether the username query parameter is free.
func (h *AuthHandlers) CheckUsernameUnique(c echo.Context) error {
	available, err := h.accounts.CheckUsernameUnique(c.Request().Context(), c.QueryParam("username"))
	if err != nil {
		return respondError(c, err)
	}
	if !available {
		return respondError(c, models.ErrUsernameConflict)
	}
	return success(c, http.StatusOK, "username_available")
}

// SignInRequest is the request body for sign-in. Identifier is an email or username.
type SignInRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// SignInResponse carries the signed-in account.
type SignInResponse struct {
	Response
	Username string `json:"username"`
}

// SignIn authenticates a verified account and sets the session cookie.
func (h *AuthHandlers) SignIn(c echo.Context) error {
	var req SignInRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	acc, err := h.auth.Login(c.Request().Context(), strings.TrimSpace(req.Identifier), req.Password)
	if err != nil {
		if errors.Is(err, authsvc.ErrInvalidCredentials) || errors.Is(err, authsvc.ErrNotVerified) {
			return respondError(c, err)
		}
		return respondError(c, models.Persistence("sign in", err))
	}

	cookie, err := h.sessions.Create(acc.ID, acc.Username)
	if err != nil {
		return respondError(c, err)
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, SignInResponse{
		Response: Response{Success: true, Message: translate(c, "sign_in_success")},
		Username: acc.Username,
	})
}

// SignOut clears the session cookie.
func (h *AuthHandlers) SignOut(c echo.Context) error {
	c.SetCookie(h.sessions.Clear())
	return success(c, http.StatusOK, "sign_out_success")
}
