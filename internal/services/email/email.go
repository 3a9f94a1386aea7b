// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers verification codes over SMTP.
package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codeberg.org/oliverandrich/whisperbox/internal/config"
	"codeberg.org/oliverandrich/whisperbox/internal/i18n"
	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"github.com/wneessen/go-mail"
)

// Service sends verification emails.
type Service struct {
	cfg     *config.SMTPConfig
	baseURL string
	codeTTL time.Duration
}

// NewService creates a new email service. codeTTL is the validity window
// printed in the email and must match the one used to issue codes.
func NewService(cfg *config.SMTPConfig, baseURL string, codeTTL time.Duration) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		codeTTL: codeTTL,
	}, nil
}

// VerifyURL returns the page on which username enters the code.
func (s *Service) VerifyURL(username string) string {
	return fmt.Sprintf("%s/verify/%s", s.baseURL, username)
}

// VerificationContent renders the localised subject and body.
func (s *Service) VerificationContent(ctx context.Context, username, code string) (string, string) {
	subject := i18n.T(ctx, "email_verification_subject")
	body := i18n.TData(ctx, "email_verification_body", map[string]any{
		"Username":  username,
		"Code":      code,
		"VerifyURL": s.VerifyURL(username),
		"Validity":  i18n.Duration(ctx, s.codeTTL),
	})
	return subject, body
}

// SendVerification sends the verification code to toEmail.
func (s *Service) SendVerification(ctx context.Context, toEmail, username, code string) error {
	subject, body := s.VerificationContent(ctx, username, code)
	return s.send(ctx, toEmail, subject, body)
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	// Build client options
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(10 * time.Second),
	}

	// Configure TLS based on config and port
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	// Add authentication if credentials are provided
	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

var _ models.Mailer = (*Service)(nil)
