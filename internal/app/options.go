package app

import (
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/broadcast"
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/durable"
	"github.com/gideonadeti/realtime-leaderboard/internal/adapters/rankstore"
	"github.com/gideonadeti/realtime-leaderboard/internal/domain/dedupe"
	"github.com/gideonadeti/realtime-leaderboard/pkg/logger"
)

// Option configures the Service.
type Option func(*Service)

// WithRankStore sets the ranking store backend.
func WithRankStore(st rankstore.Store) Option {
	return func(s *Service) {
		s.ranks = st
	}
}

// WithDurableStore sets the durable event store backend.
func WithDurableStore(st durable.Store) Option {
	return func(s *Service) {
		s.durable = st
	}
}

// WithBroadcaster sets the fan-out sink for refreshed boards.
func WithBroadcaster(b broadcast.Broadcaster) Option {
	return func(s *Service) {
		s.broadcaster = b
	}
}

// WithDeduper sets the idempotency tracker.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		s.deduper = d
	}
}

// WithWorkerCount sets the number of refresh workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithQueueSize sets the refresh queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithDedupeSize bounds the idempotency tracker.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithBroadcastWindow sets how many entries each refresh publishes.
func WithBroadcastWindow(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.broadcastWindow = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}
