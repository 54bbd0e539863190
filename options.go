package htmd

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// Option configures a conversion.
type Option func(*config)

type config struct {
	origin  string
	plugins []Plugin
	include []string
	exclude []string
	logger  *slog.Logger
}

// WithOrigin sets the base URL relative link and image URLs are resolved
// against. Absolute URLs pass through unchanged. An empty origin disables
// resolution.
func WithOrigin(origin string) Option {
	return func(cfg *config) {
		cfg.origin = origin
	}
}

// WithPlugins appends plugins to the pipeline in order.
func WithPlugins(plugins ...Plugin) Option {
	return func(cfg *config) {
		for _, p := range plugins {
			if p != nil {
				cfg.plugins = append(cfg.plugins, p)
			}
		}
	}
}

// WithInclude keeps only the listed tags. The filter runs before any plugin.
func WithInclude(tags ...string) Option {
	return func(cfg *config) {
		cfg.include = append(cfg.include, tags...)
	}
}

// WithExclude drops the listed tags and their content. The filter runs
// before any plugin.
func WithExclude(tags ...string) Option {
	return func(cfg *config) {
		cfg.exclude = append(cfg.exclude, tags...)
	}
}

// WithLogger reports recovered markup anomalies at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// session is the validated, read-only form of a configuration.
type session struct {
	origin   *url.URL
	pipeline pipeline
	logger   *slog.Logger
}

func newSession(opts []Option) (*session, error) {
	var cfg config
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	s := &session{logger: cfg.logger}
	if raw := strings.TrimSpace(cfg.origin); raw != "" {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w %q: %v", ErrInvalidOrigin, cfg.origin, err)
		}
		if !u.IsAbs() || u.Host == "" {
			return nil, fmt.Errorf("%w %q: scheme and host required", ErrInvalidOrigin, cfg.origin)
		}
		s.origin = u
	}
	if len(cfg.include) > 0 || len(cfg.exclude) > 0 {
		s.pipeline = append(s.pipeline, FilterPlugin(FilterOptions{Include: cfg.include, Exclude: cfg.exclude}))
	}
	s.pipeline = append(s.pipeline, cfg.plugins...)
	return s, nil
}
