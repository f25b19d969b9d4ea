package confirm

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring the Service.
type Option func(*Service)

// WithDefaultTTL sets the token lifetime used when no purpose-specific
// TTL is configured.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.defaultTTL = ttl
		}
	}
}

// WithPurposeTTL sets the default token lifetime for one purpose,
// overriding the service-wide default for Issue calls with that purpose.
func WithPurposeTTL(purpose string, ttl time.Duration) Option {
	return func(s *Service) {
		if purpose != "" && ttl > 0 {
			s.purposeTTL[purpose] = ttl
		}
	}
}

// WithLogger sets the structured logger. The service logs operation
// outcomes at debug level and never logs token values.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}
