package confirm

import "time"

// Config holds the process-wide service configuration. The signing
// secret is required: without it no token can be issued or verified, so
// absence is a startup failure rather than a runtime fallback.
type Config struct {
	// SigningSecret is the opaque process-wide signing key. Rotating it
	// invalidates all outstanding tokens.
	SigningSecret string `env:"CONFIRM_SIGNING_SECRET,required"`

	// DefaultTTL is the token lifetime used when neither a purpose TTL
	// nor an explicit per-call TTL is given.
	DefaultTTL time.Duration `env:"CONFIRM_DEFAULT_TTL" envDefault:"1h"`
}

// DefaultConfig returns the default service configuration without a
// signing secret; the secret must always be supplied explicitly.
func DefaultConfig() Config {
	return Config{
		DefaultTTL: time.Hour,
	}
}

// NewFromConfig creates a Service from the provided Config.
func NewFromConfig(cfg Config, store Store, opts ...Option) (*Service, error) {
	configOpts := []Option{
		WithDefaultTTL(cfg.DefaultTTL),
	}

	configOpts = append(configOpts, opts...)

	return New(store, []byte(cfg.SigningSecret), configOpts...)
}
