package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RunExpirySweeper rejects stale deposits every interval until ctx is done.
// Expiry is otherwise enforced lazily when a request is confirmed.
func (s *PaymentService) RunExpirySweeper(ctx context.Context, interval time.Duration) error {
	log.Info().Dur("interval", interval).Msg("Deposit expiry sweeper started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Deposit expiry sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.ExpireStaleDeposits(ctx, s.now()); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("Failed to expire stale deposits")
			}
		}
	}
}
