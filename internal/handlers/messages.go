// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"slices"
	"strings"

	"codeberg.org/oliverandrich/whisperbox/internal/metrics"
	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"codeberg.org/oliverandrich/whisperbox/internal/services/account"
	"codeberg.org/oliverandrich/whisperbox/internal/services/inbox"
	"github.com/labstack/echo/v4"
)

// MessageHandlers contains handlers for the inbox and the accept toggle.
type MessageHandlers struct {
	accounts *account.Service
	inbox    *inbox.Service
	metrics  *metrics.Metrics
}

// NewMessages creates a new MessageHandlers instance. m may be nil.
func NewMessages(accounts *account.Service, inbox *inbox.Service, m *metrics.Metrics) *MessageHandlers {
	return &MessageHandlers{
		accounts: accounts,
		inbox:    inbox,
		metrics:  m,
	}
}

// AcceptingResponse carries the accept toggle.
type AcceptingResponse struct {
	Response
	IsAcceptingMessages bool `json:"isAcceptingMessages"`
}

// AcceptingRequest is the request body for changing the accept toggle.
type AcceptingRequest struct {
	AcceptMessages *bool `json:"acceptMessages"`
}

// GetAccepting returns the accept toggle of the signed-in account.
func (h *MessageHandlers) GetAccepting(c echo.Context) error {
	acc := currentAccount(c)

	accepting, err := h.accounts.GetAcceptingMessages(c.Request().Context(), acc.ID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, AcceptingResponse{
		Response:            Response{Success: true},
		IsAcceptingMessages: accepting,
	})
}

// SetAccepting changes the accept toggle of the signed-in account.
func (h *MessageHandlers) SetAccepting(c echo.Context) error {
	var req AcceptingRequest
	if err := c.Bind(&req); err != nil || req.AcceptMessages == nil {
		return badRequest(c)
	}
	acc := currentAccount(c)

	updated, err := h.accounts.SetAcceptingMessages(c.Request().Context(), acc.ID, *req.AcceptMessages)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusOK, AcceptingResponse{
		Response:            Response{Success: true, Message: translate(c, "accepting_updated")},
		IsAcceptingMessages: updated.AcceptingMessages,
	})
}

// MessagesResponse carries an inbox.
type MessagesResponse struct {
	Response
	Messages []models.Message `json:"messages"`
}

// GetMessages lists the inbox of the signed-in account, newest first.
func (h *MessageHandlers) GetMessages(c echo.Context) error {
	acc := currentAccount(c)

	messages, err := h.inbox.List(c.Request().Context(), acc.ID)
	if err != nil {
		return respondError(c, err)
	}
	slices.Reverse(messages)

	return c.JSON(http.StatusOK, MessagesResponse{
		Response: Response{Success: true},
		Messages: messages,
	})
}

// SendMessageRequest is the request body for an anonymous message.
type SendMessageRequest struct {
	Username string `json:"username"`
	Content  string `json:"content"`
}

// SendMessage admits an anonymous message into the recipient's inbox.
func (h *MessageHandlers) SendMessage(c echo.Context) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c)
	}

	_, err := h.inbox.Admit(c.Request().Context(), strings.TrimSpace(req.Username), req.Content)
	h.metrics.Admission(metrics.Outcome(err))
	if err != nil {
		return respondError(c, err)
	}

	return success(c, http.StatusCreated, "message_sent")
}

// DeleteMessage removes a message from the signed-in account's inbox.
func (h *MessageHandlers) DeleteMessage(c echo.Context) error {
	acc := currentAccount(c)

	err := h.inbox.Delete(c.Request().Context(), acc.ID, c.Param("id"))
	h.metrics.Deletion(metrics.Outcome(err))
	if err != nil {
		return respondError(c, err)
	}

	return success(c, http.StatusOK, "message_deleted")
}
