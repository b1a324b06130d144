package services

import (
	"time"

	"moneybook/internal/log"
)

// DefaultPageSize is used when a caller asks for a page without a size.
const DefaultPageSize = 50

// Option configures a service.
type Option func(*settings)

type settings struct {
	now             func() time.Time
	defaultCurrency string
	pageSize        int
	logger          *log.Logger
	dispatcher      Dispatcher
}

func newSettings(opts []Option) settings {
	s := settings{
		now:             time.Now,
		defaultCurrency: "EUR",
		pageSize:        DefaultPageSize,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	return s
}

// WithClock replaces time.Now. Tests pin the clock with it.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithDefaultCurrency sets the currency aggregates are reported in.
func WithDefaultCurrency(code string) Option {
	return func(s *settings) { s.defaultCurrency = code }
}

// WithPageSize sets the page size used when callers pass zero.
func WithPageSize(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithLogger sets the logger; each service derives its own component from it.
func WithLogger(l *log.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithDispatcher routes recompute commands somewhere other than inline.
func WithDispatcher(d Dispatcher) Option {
	return func(s *settings) { s.dispatcher = d }
}
