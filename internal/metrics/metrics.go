// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package metrics exposes Prometheus counters for account and inbox events.
package metrics

import (
	"errors"
	"net/http"

	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "whisperbox"

// Outcome labels.
const (
	OutcomeSuccess      = "success"
	OutcomeCreated      = "created"
	OutcomeReinstated   = "reinstated"
	OutcomeConflict     = "conflict"
	OutcomeInvalid      = "invalid"
	OutcomeMismatch     = "code_mismatch"
	OutcomeExpired      = "code_expired"
	OutcomeNotFound     = "not_found"
	OutcomeNotAccepting = "not_accepting"
	OutcomeFailure      = "failure"
)

// Metrics holds the application counters and the registry serving them.
// A nil *Metrics records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	registrations *prometheus.CounterVec
	verifications *prometheus.CounterVec
	admissions    *prometheus.CounterVec
	deletions     *prometheus.CounterVec
}

func New() *Metrics {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, []string{"outcome"})
	}

	m := &Metrics{
		registry:      prometheus.NewRegistry(),
		registrations: counter("registrations_total", "Registration attempts by outcome."),
		verifications: counter("verifications_total", "Verification attempts by outcome."),
		admissions:    counter("message_admissions_total", "Anonymous message submissions by outcome."),
		deletions:     counter("message_deletions_total", "Owner message deletions by outcome."),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.registrations,
		m.verifications,
		m.admissions,
		m.deletions,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
// Compression is left to the server's gzip middleware.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		Registry:           m.registry,
		DisableCompression: true,
	})
}

func (m *Metrics) Registration(outcome string) {
	if m != nil {
		m.registrations.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Verification(outcome string) {
	if m != nil {
		m.verifications.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Admission(outcome string) {
	if m != nil {
		m.admissions.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Deletion(outcome string) {
	if m != nil {
		m.deletions.WithLabelValues(outcome).Inc()
	}
}

// Outcome classifies err into an outcome label. A nil error is a success.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case models.IsFailure(err):
		return OutcomeFailure
	case errors.Is(err, models.ErrUsernameConflict), errors.Is(err, models.ErrEmailConflict):
		return OutcomeConflict
	case errors.Is(err, models.ErrCodeExpired):
		return OutcomeExpired
	case errors.Is(err, models.ErrCodeMismatch):
		return OutcomeMismatch
	case errors.Is(err, models.ErrNotAccepting):
		return OutcomeNotAccepting
	case errors.Is(err, models.ErrRecipientNotFound),
		errors.Is(err, models.ErrAccountNotFound),
		errors.Is(err, models.ErrMessageNotFound):
		return OutcomeNotFound
	case errors.Is(err, models.ErrInvalidContent),
		errors.Is(err, models.ErrInvalidUsername),
		errors.Is(err, models.ErrInvalidEmail):
		return OutcomeInvalid
	default:
		return OutcomeFailure
	}
}
