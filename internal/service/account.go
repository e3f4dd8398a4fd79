package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"telegram-casino-bot/internal/config"
	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/repository"
	"telegram-casino-bot/internal/tier"
)

// AccountService handles registration, account flags and luck.
type AccountService struct {
	store     *repository.Store
	policy    config.LedgerConfig
	bootstrap func(int64) bool
}

// NewAccountService creates a new AccountService instance. bootstrap reports
// whether an id is an administrator by configuration; may be nil.
func NewAccountService(store *repository.Store, policy config.LedgerConfig, bootstrap func(int64) bool) *AccountService {
	if bootstrap == nil {
		bootstrap = func(int64) bool { return false }
	}
	return &AccountService{store: store, policy: policy, bootstrap: bootstrap}
}

// Registration describes a first interaction with the bot.
type Registration struct {
	AccountID  int64
	Username   string
	FirstName  string
	ReferrerID *int64
}

// RegisterAccount creates an account with the starting balance and tier 1
// progress. A referrer that resolves to another existing account earns the
// referral bonus for both parties; any other referrer is ignored.
// Fails with ErrDuplicateRegistration when the account already exists.
func (s *AccountService) RegisterAccount(ctx context.Context, reg Registration) (*model.Account, error) {
	var account *model.Account
	err := s.store.InTx(ctx, func(r *repository.Repos) error {
		referrer, err := s.validReferrer(ctx, r, reg)
		if err != nil {
			return err
		}

		if _, err := r.Accounts.Create(ctx, reg.AccountID, reg.Username, reg.FirstName, referrer); err != nil {
			return mapRepoErr(err)
		}
		if err := r.Tiers.CreateProgress(ctx, reg.AccountID); err != nil {
			return err
		}
		if s.policy.StartBalance > 0 {
			if _, err := apply(ctx, r, reg.AccountID, s.policy.StartBalance, model.TxInitial, "starting balance"); err != nil {
				return err
			}
		}

		if referrer != nil {
			if err := s.grantReferral(ctx, r, *referrer, reg.AccountID); err != nil {
				return err
			}
		}

		account, err = r.Accounts.GetByID(ctx, reg.AccountID)
		return mapRepoErr(err)
	})
	observe("register_account", err)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("account_id", account.ID).
		Interface("referrer_id", account.ReferrerID).
		Int64("balance", account.Balance).
		Msg("Account registered")

	return account, nil
}

func (s *AccountService) validReferrer(ctx context.Context, r *repository.Repos, reg Registration) (*int64, error) {
	if reg.ReferrerID == nil || *reg.ReferrerID == reg.AccountID {
		return nil, nil
	}
	exists, err := r.Accounts.Exists(ctx, *reg.ReferrerID)
	if err != nil || !exists {
		return nil, err
	}
	id := *reg.ReferrerID
	return &id, nil
}

func (s *AccountService) grantReferral(ctx context.Context, r *repository.Repos, referrerID, referredID int64) error {
	if s.policy.ReferrerBonus > 0 {
		desc := fmt.Sprintf("%s%d", referrerBonusPrefix, referredID)
		if _, err := apply(ctx, r, referrerID, s.policy.ReferrerBonus, model.TxReferralBonus, desc); err != nil {
			return err
		}
	}
	if s.policy.ReferredBonus > 0 {
		if _, err := apply(ctx, r, referredID, s.policy.ReferredBonus, model.TxReferralBonus, "welcome referral bonus"); err != nil {
			return err
		}
	}
	_, err := r.Referrals.Create(ctx, referrerID, referredID, true)
	return mapRepoErr(err)
}

const referrerBonusPrefix = "invited account "

// GetAccount retrieves an account.
func (s *AccountService) GetAccount(ctx context.Context, id int64) (*model.Account, error) {
	a, err := s.store.Accounts.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return a, nil
}

// UpdateDisplay refreshes display metadata. No ledger effect.
func (s *AccountService) UpdateDisplay(ctx context.Context, id int64, username, firstName string) error {
	return s.store.Accounts.UpdateDisplay(ctx, id, username, firstName)
}

// ReferralStats returns how many accounts id invited and the bonus it earned.
func (s *AccountService) ReferralStats(ctx context.Context, id int64) (*model.ReferralStats, error) {
	count, err := s.store.Referrals.CountByReferrer(ctx, id)
	if err != nil {
		return nil, err
	}
	earned, err := s.store.Transactions.SumByCategory(ctx, id, model.TxReferralBonus, referrerBonusPrefix)
	if err != nil {
		return nil, err
	}
	return &model.ReferralStats{Count: count, Earned: earned}, nil
}

// Authorize performs the admin capability check for the front-end.
// The returned Admin is what admin operations accept.
func (s *AccountService) Authorize(ctx context.Context, id int64) (model.Admin, bool, error) {
	if s.bootstrap(id) {
		return model.Admin{ID: id}, true, nil
	}
	a, err := s.store.Accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return model.Admin{}, false, nil
		}
		return model.Admin{}, false, err
	}
	if !a.Admin || a.Banned {
		return model.Admin{}, false, nil
	}
	return model.Admin{ID: id}, true, nil
}

// BanAccount sets the banned flag.
func (s *AccountService) BanAccount(ctx context.Context, admin model.Admin, id int64) error {
	return s.adminOp(admin, id, "ban_account", s.store.Accounts.SetBanned(ctx, id, true))
}

// UnbanAccount clears the banned flag.
func (s *AccountService) UnbanAccount(ctx context.Context, admin model.Admin, id int64) error {
	return s.adminOp(admin, id, "unban_account", s.store.Accounts.SetBanned(ctx, id, false))
}

// SetAdmin grants the admin flag.
func (s *AccountService) SetAdmin(ctx context.Context, admin model.Admin, id int64) error {
	return s.adminOp(admin, id, "set_admin", s.store.Accounts.SetAdmin(ctx, id, true))
}

// RemoveAdmin revokes the admin flag.
func (s *AccountService) RemoveAdmin(ctx context.Context, admin model.Admin, id int64) error {
	return s.adminOp(admin, id, "remove_admin", s.store.Accounts.SetAdmin(ctx, id, false))
}

// SetCustomLuck stores a custom luck multiplier, clamped to the allowed
// range, and returns the value stored.
func (s *AccountService) SetCustomLuck(ctx context.Context, admin model.Admin, id int64, luck float64) (float64, error) {
	v := tier.ClampLuck(luck)
	return v, s.adminOp(admin, id, "set_custom_luck", s.store.Accounts.SetCustomLuck(ctx, id, v))
}

// ResetCustomLuck restores the default custom luck multiplier.
func (s *AccountService) ResetCustomLuck(ctx context.Context, admin model.Admin, id int64) error {
	return s.adminOp(admin, id, "reset_custom_luck", s.store.Accounts.SetCustomLuck(ctx, id, tier.DefaultCustomLuck))
}

func (s *AccountService) adminOp(admin model.Admin, id int64, operation string, err error) error {
	err = mapRepoErr(err)
	observe(operation, err)
	if err != nil {
		return err
	}
	log.Info().
		Int64("admin_id", admin.ID).
		Int64("account_id", id).
		Str("operation", operation).
		Msg("Admin updated account")
	return nil
}

// EffectiveLuck returns tier luck multiplied by the account's custom luck.
func (s *AccountService) EffectiveLuck(ctx context.Context, id int64) (float64, error) {
	a, err := s.store.Accounts.GetByID(ctx, id)
	if err != nil {
		return 0, mapRepoErr(err)
	}
	p, err := s.store.Tiers.GetProgress(ctx, id)
	if err != nil {
		return 0, mapRepoErr(err)
	}
	return tier.EffectiveLuck(p.CurrentTier, a.CustomLuck), nil
}
