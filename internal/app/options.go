package service

import (
	"github.com/wctimer/server/internal/config"
	"github.com/wctimer/server/internal/domain/duel"
	"github.com/wctimer/server/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig sets the service configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClockFactory sets the tick source used by new rounds. Tests inject
// manual clocks through this seam.
func WithClockFactory(factory func() duel.Clock) Option {
	return func(s *Service) {
		if factory != nil {
			s.clockFactory = factory
		}
	}
}

// WithDirectorySeed makes opponent picking deterministic.
func WithDirectorySeed(seed uint64) Option {
	return func(s *Service) {
		s.directorySeed = &seed
	}
}
