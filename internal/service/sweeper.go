package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper periodically re-enqueues pending publications so deferred rows and
// rows left over from a restart always get a dispatch task again.
type Sweeper struct {
	interval     time.Duration
	logger       *zap.Logger
	publications *PublicationService
	ticker       *time.Ticker
	stopCh       chan struct{}
}

func NewSweeper(interval time.Duration, logger *zap.Logger, publications *PublicationService) *Sweeper {
	return &Sweeper{
		interval:     interval,
		logger:       logger,
		publications: publications,
		stopCh:       make(chan struct{}),
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Starting publication sweeper", zap.Duration("interval", s.interval))

	s.ticker = time.NewTicker(s.interval)

	// Pick up whatever the previous process left pending.
	go func() {
		if err := s.publications.EnqueuePending(ctx); err != nil {
			s.logger.Error("Initial publication sweep failed", zap.Error(err))
		}
	}()

	go func() {
		for {
			select {
			case <-s.ticker.C:
				if err := s.publications.EnqueuePending(ctx); err != nil {
					s.logger.Error("Publication sweep failed", zap.Error(err))
				}
			case <-s.stopCh:
				s.logger.Info("Publication sweeper stopped")
				return
			case <-ctx.Done():
				s.logger.Info("Publication sweeper context cancelled")
				return
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stopCh)
}
