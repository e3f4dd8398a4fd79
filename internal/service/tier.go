package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/repository"
)

// TierService runs the level progression state machine.
type TierService struct {
	store *repository.Store
}

// NewTierService creates a new TierService instance.
func NewTierService(store *repository.Store) *TierService {
	return &TierService{store: store}
}

// Seed loads the catalog into the database.
func (s *TierService) Seed(ctx context.Context, catalog []model.Tier) error {
	return s.store.Tiers.Seed(ctx, catalog)
}

// Catalog returns every tier in order.
func (s *TierService) Catalog(ctx context.Context) ([]model.Tier, error) {
	return s.store.Tiers.List(ctx)
}

// TierStatus is an account's position in the catalog.
type TierStatus struct {
	Progress model.TierProgress
	Current  model.Tier
	Next     *model.Tier // nil at the terminal tier
}

// Progress returns an account's tier status, creating tier 1 progress lazily.
func (s *TierService) Progress(ctx context.Context, accountID int64) (*TierStatus, error) {
	if err := s.ensureAccount(ctx, s.store.Repos, accountID); err != nil {
		return nil, err
	}
	p, err := s.store.Tiers.GetProgress(ctx, accountID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	cur, err := s.store.Tiers.Get(ctx, p.CurrentTier)
	if err != nil {
		return nil, fmt.Errorf("failed to load current tier: %w", err)
	}

	status := &TierStatus{Progress: *p, Current: *cur}
	next, err := s.store.Tiers.Get(ctx, p.CurrentTier+1)
	switch {
	case err == nil:
		status.Next = next
	case !errors.Is(err, repository.ErrTierNotFound):
		return nil, err
	}
	return status, nil
}

// Upgrade is the result of a successful tier upgrade.
type Upgrade struct {
	Tier      model.Tier
	PricePaid int64
	Balance   int64
}

// UpgradeTier moves an account exactly one tier up, paying the next tier's
// price. Fails with ErrMaxTierReached at the terminal tier and with
// ErrInsufficientFunds when the balance does not cover the price.
func (s *TierService) UpgradeTier(ctx context.Context, accountID int64) (*Upgrade, error) {
	var up Upgrade
	err := s.store.InTx(ctx, func(r *repository.Repos) error {
		if err := s.ensureAccount(ctx, r, accountID); err != nil {
			return err
		}
		p, err := r.Tiers.GetProgressForUpdate(ctx, accountID)
		if err != nil {
			return mapRepoErr(err)
		}

		next, err := r.Tiers.Get(ctx, p.CurrentTier+1)
		if err != nil {
			if errors.Is(err, repository.ErrTierNotFound) {
				return ErrMaxTierReached
			}
			return err
		}

		desc := fmt.Sprintf("upgrade to tier %d (%s)", next.Level, next.Name)
		up.Balance, err = apply(ctx, r, accountID, -next.Price, model.TxLevelUpgrade, desc)
		if err != nil {
			return err
		}
		if _, err := r.Tiers.Advance(ctx, accountID, next.Level, next.Price); err != nil {
			return mapRepoErr(err)
		}

		up.Tier = *next
		up.PricePaid = next.Price
		return nil
	})
	observe("upgrade_tier", err)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("account_id", accountID).
		Int("tier", up.Tier.Level).
		Int64("price", up.PricePaid).
		Msg("Tier upgraded")

	return &up, nil
}

// SetTier overrides an account's tier. This is the only way a tier can go
// down. No balance effect.
func (s *TierService) SetTier(ctx context.Context, admin model.Admin, accountID int64, level int) error {
	err := s.store.InTx(ctx, func(r *repository.Repos) error {
		if _, err := r.Tiers.Get(ctx, level); err != nil {
			return mapRepoErr(err)
		}
		if err := s.ensureAccount(ctx, r, accountID); err != nil {
			return err
		}
		if _, err := r.Tiers.GetProgressForUpdate(ctx, accountID); err != nil {
			return mapRepoErr(err)
		}
		return mapRepoErr(r.Tiers.SetLevel(ctx, accountID, level))
	})
	observe("set_tier", err)
	if err != nil {
		return err
	}

	log.Info().
		Int64("admin_id", admin.ID).
		Int64("account_id", accountID).
		Str("operation", "set_tier").
		Int("tier", level).
		Msg("Admin set tier")
	return nil
}

func (s *TierService) ensureAccount(ctx context.Context, r *repository.Repos, accountID int64) error {
	exists, err := r.Accounts.Exists(ctx, accountID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}
