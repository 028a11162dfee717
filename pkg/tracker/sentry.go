package tracker

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/nyc-design/neil-logger/pkg/record"
)

// SentryOptions configures NewSentry.
type SentryOptions struct {
	DSN         string
	Environment string
	Release     string
	// Transport overrides the HTTP transport, mostly for tests.
	Transport sentry.Transport
}

// Sentry reports to a Sentry project through its own hub, leaving the sentry-go
// global hub untouched.
type Sentry struct {
	hub *sentry.Hub
}

// NewSentry creates a client for opts.DSN. Performance tracing is disabled.
func NewSentry(opts SentryOptions) (*Sentry, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              opts.DSN,
		Environment:      opts.Environment,
		Release:          opts.Release,
		TracesSampleRate: 0,
		Transport:        opts.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("creating sentry client: %w", err)
	}
	return &Sentry{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

func (s *Sentry) CaptureException(err error) {
	if err == nil {
		return
	}
	s.hub.CaptureException(err)
}

func (s *Sentry) CaptureMessage(msg string, level record.Level) {
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(sentryLevel(level))
		s.hub.CaptureMessage(msg)
	})
}

func (s *Sentry) AddBreadcrumb(level record.Level, category, msg string) {
	s.hub.AddBreadcrumb(&sentry.Breadcrumb{
		Type:      "default",
		Category:  category,
		Message:   msg,
		Level:     sentryLevel(level),
		Timestamp: time.Now(),
	}, nil)
}

func (s *Sentry) SetTag(key, value string) {
	s.hub.Scope().SetTag(key, value)
}

func (s *Sentry) Flush(timeout time.Duration) bool {
	return s.hub.Flush(timeout)
}

func sentryLevel(level record.Level) sentry.Level {
	switch level {
	case record.Debug:
		return sentry.LevelDebug
	case record.Info:
		return sentry.LevelInfo
	case record.Warning:
		return sentry.LevelWarning
	case record.Error:
		return sentry.LevelError
	default:
		return sentry.LevelFatal
	}
}
