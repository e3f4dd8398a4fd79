package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"telegram-casino-bot/internal/config"
	"telegram-casino-bot/internal/metrics"
	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/repository"
)

const (
	codeAlphabet    = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength      = 8
	maxCodeAttempts = 10
	sweepBatch      = 100
)

// PaymentService runs the deposit and withdrawal request lifecycles.
type PaymentService struct {
	store        *repository.Store
	depositRate  decimal.Decimal
	withdrawRate decimal.Decimal
	minDeposit   decimal.Decimal
	minWithdraw  decimal.Decimal
	expiry       time.Duration
	autoConfirm  bool

	now      func() time.Time
	makeCode func() (string, error)
}

// NewPaymentService creates a PaymentService from payment and donation policy.
func NewPaymentService(store *repository.Store, payments config.PaymentsConfig, donation config.DonationConfig) (*PaymentService, error) {
	depositRate, withdrawRate, err := payments.Rates()
	if err != nil {
		return nil, err
	}
	minDeposit, minWithdraw, err := payments.Minimums()
	if err != nil {
		return nil, err
	}
	return &PaymentService{
		store:        store,
		depositRate:  depositRate,
		withdrawRate: withdrawRate,
		minDeposit:   minDeposit,
		minWithdraw:  minWithdraw,
		expiry:       payments.DepositExpiry,
		autoConfirm:  donation.AutoConfirm,
		now:          time.Now,
		makeCode:     GenerateCode,
	}, nil
}

// Convert turns a fiat amount into currency units, rounding down.
func Convert(fiat, rate decimal.Decimal) int64 {
	return fiat.Mul(rate).Floor().IntPart()
}

// GenerateCode returns a random human-enterable confirmation code.
// The alphabet leaves out characters that are easy to confuse.
func GenerateCode() (string, error) {
	var b strings.Builder
	b.Grow(codeLength)
	limit := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < codeLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Quote returns the credit a deposit of fiat would buy.
func (s *PaymentService) Quote(fiat decimal.Decimal) int64 {
	return Convert(fiat, s.depositRate)
}

// CreateDeposit opens a pending bank-transfer deposit. No balance effect.
func (s *PaymentService) CreateDeposit(ctx context.Context, accountID int64, fiat decimal.Decimal) (*model.DepositRequest, error) {
	return s.createDeposit(ctx, accountID, fiat, model.SourceBank)
}

// CreateDonationDeposit opens a pending deposit paid through the donation
// page. The confirmation code goes into the donor message.
func (s *PaymentService) CreateDonationDeposit(ctx context.Context, accountID int64, fiat decimal.Decimal) (*model.DepositRequest, error) {
	return s.createDeposit(ctx, accountID, fiat, model.SourceDonation)
}

func (s *PaymentService) createDeposit(ctx context.Context, accountID int64, fiat decimal.Decimal, source model.DepositSource) (*model.DepositRequest, error) {
	credit := Convert(fiat, s.depositRate)
	if !fiat.IsPositive() || fiat.LessThan(s.minDeposit) || credit <= 0 {
		return nil, ErrInvalidAmount
	}

	exists, err := s.store.Accounts.Exists(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.makeCode()
		if err != nil {
			return nil, err
		}
		d, err := s.store.Deposits.Create(ctx, &model.DepositRequest{
			AccountID:  accountID,
			Source:     source,
			FiatAmount: fiat,
			Credit:     credit,
			Code:       code,
			ExpiresAt:  s.now().Add(s.expiry),
		})
		if errors.Is(err, repository.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return nil, err
		}

		metrics.ObservePayment("deposit", string(model.StatusPending))
		log.Info().
			Int64("account_id", accountID).
			Int64("request_id", d.ID).
			Str("source", string(source)).
			Str("fiat", fiat.String()).
			Int64("credit", credit).
			Msg("Deposit request created")
		return d, nil
	}
	return nil, fmt.Errorf("failed to allocate a unique confirmation code after %d attempts", maxCodeAttempts)
}

// AttachDepositProof records the user's proof of payment on their own
// pending, unexpired request.
func (s *PaymentService) AttachDepositProof(ctx context.Context, accountID, requestID int64, proofRef string) (*model.DepositRequest, error) {
	var d *model.DepositRequest
	err := s.store.InTx(ctx, func(r *repository.Repos) error {
		var err error
		d, err = r.Deposits.GetForUpdate(ctx, requestID)
		if err != nil {
			return mapRepoErr(err)
		}
		if d.AccountID != accountID {
			return ErrNotFound
		}
		if d.Status != model.StatusPending {
			return ErrInvalidState
		}
		if d.Expired(s.now()) {
			return ErrRequestExpired
		}
		if err := r.Deposits.AttachProof(ctx, requestID, proofRef); err != nil {
			return mapRepoErr(err)
		}
		d.ProofRef = &proofRef
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ConfirmDeposit credits a pending deposit and completes it. A second
// confirmation fails with ErrInvalidState and credits nothing.
func (s *PaymentService) ConfirmDeposit(ctx context.Context, admin model.Admin, requestID int64) (*model.DepositRequest, error) {
	return s.confirmDeposit(ctx, admin, requestID, "")
}

// ConfirmHTTPPayment is ConfirmDeposit restricted to donation deposits.
func (s *PaymentService) ConfirmHTTPPayment(ctx context.Context, admin model.Admin, requestID int64) (*model.DepositRequest, error) {
	return s.confirmDeposit(ctx, admin, requestID, model.SourceDonation)
}

func (s *PaymentService) confirmDeposit(ctx context.Context, admin model.Admin, requestID int64, source model.DepositSource) (*model.DepositRequest, error) {
	var d *model.DepositRequest
	err := s.store.InTx(ctx, func(r *repository.Repos) error {
		var err error
		d, err = confirmDepositTx(ctx, r, admin, requestID, source)
		return err
	})
	observe("confirm_deposit", err)
	if err != nil {
		return nil, err
	}
	s.logResolution(admin, d.AccountID, d.ID, "confirm_deposit")
	metrics.ObservePayment("deposit", string(model.StatusCompleted))
	return d, nil
}

func confirmDepositTx(ctx context.Context, r *repository.Repos, admin model.Admin, requestID int64, source model.DepositSource) (*model.DepositRequest, error) {
	d, err := r.Deposits.GetForUpdate(ctx, requestID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if source != "" && d.Source != source {
		return nil, ErrWrongSource
	}
	if d.Status != model.StatusPending {
		return nil, ErrInvalidState
	}

	desc := fmt.Sprintf("deposit #%d (%s)", d.ID, d.Source)
	if _, err := apply(ctx, r, d.AccountID, d.Credit, model.TxDeposit, desc); err != nil {
		return nil, err
	}
	if err := r.Deposits.Resolve(ctx, d.ID, model.StatusCompleted, admin.ID); err != nil {
		return nil, mapRepoErr(err)
	}

	d.Status = model.StatusCompleted
	resolvedBy := admin.ID
	d.ResolvedBy = &resolvedBy
	return d, nil
}

// RejectDeposit rejects a pending deposit. Expired requests can still be
// rejected. No balance effect.
func (s *PaymentService) RejectDeposit(ctx context.Context, admin model.Admin, requestID int64) (*model.DepositRequest, error) {
	var d *model.DepositRequest
	err := s.store.InTx(ctx, func(r *repository.Repos) error {
		var err error
		d, err = rejectDepositTx(ctx, r, admin, requestID)
		return err
	})
	observe("reject_deposit", err)
	if err != nil {
		return nil, err
	}
	s.logResolution(admin, d.AccountID, d.ID, "reject_deposit")
	metrics.ObservePayment("deposit", string(model.StatusRejected))
	return d, nil
}

func rejectDepositTx(ctx context.Context, r *repository.Repos, admin model.Admin, requestID int64) (*model.DepositRequest, error) {
	d, err := r.Deposits.GetForUpdate(ctx, requestID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if d.Status != model.StatusPending {
		return nil, ErrInvalidState
	}
	if err := r.Deposits.Resolve(ctx, d.ID, model.StatusRejected, admin.ID); err != nil {
		return nil, mapRepoErr(err)
	}
	d.Status = model.StatusRejected
	resolvedBy := admin.ID
	d.ResolvedBy = &resolvedBy
	return d, nil
}

// ExpireStaleDeposits rejects pending deposits whose expiry is at or
// before now, on behalf of the system resolver. Returns how many it rejected.
func (s *PaymentService) ExpireStaleDeposits(ctx context.Context, now time.Time) (int, error) {
	stale, err := s.store.Deposits.ListExpiredPending(ctx, now, sweepBatch)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, d := range stale {
		err := s.store.InTx(ctx, func(r *repository.Repos) error {
			_, err := rejectDepositTx(ctx, r, model.SystemAdmin, d.ID)
			return err
		})
		if errors.Is(err, ErrInvalidState) {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++
		metrics.ObservePayment("deposit", "expired")
	}

	if expired > 0 {
		log.Info().Int("count", expired).Msg("Expired stale deposit requests")
	}
	return expired, nil
}

// ObserveDonation processes one donation from the feed. Each external id is
// handled once. When the donor message carries the code of a pending
// donation deposit and auto-confirmation is on, the deposit is confirmed if
// the paid amount covers it and it has not expired. Returns the matched
// request, or nil when nothing matched.
func (s *PaymentService) ObserveDonation(ctx context.Context, ev model.DonationEvent) (*model.DepositRequest, error) {
	var (
		matched   *model.DepositRequest
		confirmed bool
	)
	err := s.store.InTx(ctx, func(r *repository.Repos) error {
		isNew, err := r.Donations.Insert(ctx, &ev)
		if err != nil || !isNew {
			return err
		}

		for _, code := range ExtractCodes(ev.Message) {
			d, err := r.Deposits.GetPendingByCode(ctx, model.SourceDonation, code)
			if errors.Is(err, repository.ErrRequestNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			matched = d
			break
		}
		if matched == nil {
			return nil
		}
		if err := r.Donations.MarkMatched(ctx, ev.ExternalID, matched.ID); err != nil {
			return err
		}

		if !s.autoConfirm || ev.Amount.LessThan(matched.FiatAmount) || matched.Expired(s.now()) {
			return nil
		}
		matched, err = confirmDepositTx(ctx, r, model.SystemAdmin, matched.ID, model.SourceDonation)
		if err != nil {
			return err
		}
		confirmed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if matched != nil {
		log.Info().
			Str("donation_id", ev.ExternalID).
			Int64("request_id", matched.ID).
			Str("amount", ev.Amount.String()).
			Bool("confirmed", confirmed).
			Msg("Donation matched deposit request")
	}
	if confirmed {
		observe("confirm_deposit", nil)
		metrics.ObservePayment("deposit", string(model.StatusCompleted))
	}
	return matched, nil
}

// ExtractCodes returns the candidate confirmation codes in a donor message.
func ExtractCodes(message string) []string {
	var codes []string
	fields := strings.FieldsFunc(strings.ToUpper(message), func(r rune) bool {
		return (r < 'A' || r > 'Z') && (r < '0' || r > '9')
	})
	for _, f := range fields {
		if len(f) == codeLength && strings.Trim(f, codeAlphabet) == "" {
			codes = append(codes, f)
		}
	}
	return codes
}

// ListPendingDeposits returns pending deposits, oldest first.
func (s *PaymentService) ListPendingDeposits(ctx context.Context, limit int) ([]*model.DepositRequest, error) {
	return s.store.Deposits.ListPending(ctx, limit)
}

// AccountDeposits returns an account's deposit requests, newest first.
func (s *PaymentService) AccountDeposits(ctx context.Context, accountID int64, limit int) ([]*model.DepositRequest, error) {
	return s.store.Deposits.ListByAccount(ctx, accountID, limit)
}

// GetDeposit retrieves a deposit request.
func (s *PaymentService) GetDeposit(ctx context.Context, requestID int64) (*model.DepositRequest, error) {
	d, err := s.store.Deposits.GetByID(ctx, requestID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return d, nil
}

func (s *PaymentService) logResolution(admin model.Admin, accountID, requestID int64, operation string) {
	log.Info().
		Int64("admin_id", admin.ID).
		Int64("account_id", accountID).
		Int64("request_id", requestID).
		Str("operation", operation).
		Msg("Payment request resolved")
}
