package donation

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-casino-bot/internal/metrics"
	"telegram-casino-bot/internal/model"
)

// Feed is the source of donations.
type Feed interface {
	Fetch(ctx context.Context) ([]Item, error)
}

// Observer records a donation and matches it to a pending deposit.
type Observer interface {
	ObserveDonation(ctx context.Context, ev model.DonationEvent) (*model.DepositRequest, error)
}

// Notifier tells an account its deposit was credited. May be nil.
type Notifier func(d *model.DepositRequest)

// Poller polls the feed on a fixed interval.
type Poller struct {
	feed     Feed
	observer Observer
	interval time.Duration
	timeout  time.Duration
	notify   Notifier
}

// NewPoller creates a new Poller.
func NewPoller(feed Feed, observer Observer, interval, timeout time.Duration, notify Notifier) *Poller {
	return &Poller{
		feed:     feed,
		observer: observer,
		interval: interval,
		timeout:  timeout,
		notify:   notify,
	}
}

// Run polls until ctx is done. Failures are logged and retried on the next
// tick.
func (p *Poller) Run(ctx context.Context) error {
	log.Info().Dur("interval", p.interval).Msg("Donation poller started")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		p.Poll(ctx)

		select {
		case <-ctx.Done():
			log.Info().Msg("Donation poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Poll fetches the feed once and observes every item. Returns how many
// items matched a pending deposit.
func (p *Poller) Poll(ctx context.Context) int {
	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	items, err := p.feed.Fetch(fetchCtx)
	cancel()
	metrics.ObserveDonationPoll(err)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to fetch donation feed")
		return 0
	}

	matched := 0
	for _, item := range items {
		d, err := p.observer.ObserveDonation(ctx, item.Event())
		if err != nil {
			log.Warn().Err(err).Str("donation_id", item.ID.String()).Msg("Failed to process donation")
			continue
		}
		if d == nil {
			continue
		}
		matched++
		if d.Status == model.StatusCompleted && p.notify != nil {
			p.notify(d)
		}
	}
	return matched
}
