package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"telegram-casino-bot/internal/metrics"
	"telegram-casino-bot/internal/model"
	"telegram-casino-bot/internal/repository"
)

// CreateWithdrawal debits the account right away and opens a pending
// withdrawal recording the debit. Funds are reserved at request time, so a
// later rejection refunds them.
func (s *PaymentService) CreateWithdrawal(ctx context.Context, accountID int64, fiat decimal.Decimal, destination string) (*model.WithdrawalRequest, error) {
	destination = strings.TrimSpace(destination)
	debit := Convert(fiat, s.withdrawRate)
	if !fiat.IsPositive() || fiat.LessThan(s.minWithdraw) || debit <= 0 {
		return nil, ErrInvalidAmount
	}
	if destination == "" {
		return nil, ErrInvalidDestination
	}

	var w *model.WithdrawalRequest
	err := s.store.InTx(ctx, func(r *repository.Repos) error {
		exists, err := r.Accounts.Exists(ctx, accountID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}

		w, err = r.Withdrawals.Create(ctx, &model.WithdrawalRequest{
			AccountID:   accountID,
			FiatAmount:  fiat,
			Debit:       debit,
			Destination: destination,
		})
		if err != nil {
			return mapRepoErr(err)
		}
		_, err = apply(ctx, r, accountID, -debit, model.TxWithdrawal, fmt.Sprintf("withdrawal #%d", w.ID))
		return err
	})
	observe("create_withdrawal", err)
	if err != nil {
		return nil, err
	}
	metrics.ObservePayment("withdrawal", string(model.StatusPending))
	return w, nil
}

// ConfirmWithdrawal completes a pending withdrawal. No balance effect, the
// debit already happened.
func (s *PaymentService) ConfirmWithdrawal(ctx context.Context, admin model.Admin, requestID int64) (*model.WithdrawalRequest, error) {
	return s.resolveWithdrawal(ctx, admin, requestID, model.StatusCompleted)
}

// RejectWithdrawal rejects a pending withdrawal and refunds its debit.
func (s *PaymentService) RejectWithdrawal(ctx context.Context, admin model.Admin, requestID int64) (*model.WithdrawalRequest, error) {
	return s.resolveWithdrawal(ctx, admin, requestID, model.StatusRejected)
}

func (s *PaymentService) resolveWithdrawal(ctx context.Context, admin model.Admin, requestID int64, status model.RequestStatus) (*model.WithdrawalRequest, error) {
	operation := "confirm_withdrawal"
	if status == model.StatusRejected {
		operation = "reject_withdrawal"
	}

	var w *model.WithdrawalRequest
	err := s.store.InTx(ctx, func(r *repository.Repos) error {
		var err error
		w, err = r.Withdrawals.GetForUpdate(ctx, requestID)
		if err != nil {
			return mapRepoErr(err)
		}
		if w.Status != model.StatusPending {
			return ErrInvalidState
		}
		if status == model.StatusRejected {
			desc := fmt.Sprintf("refund of withdrawal #%d", w.ID)
			if _, err := apply(ctx, r, w.AccountID, w.Debit, model.TxWithdrawRefund, desc); err != nil {
				return err
			}
		}
		if err := r.Withdrawals.Resolve(ctx, w.ID, status, admin.ID); err != nil {
			return mapRepoErr(err)
		}
		w.Status = status
		resolvedBy := admin.ID
		w.ResolvedBy = &resolvedBy
		return nil
	})
	observe(operation, err)
	if err != nil {
		return nil, err
	}

	s.logResolution(admin, w.AccountID, w.ID, operation)
	metrics.ObservePayment("withdrawal", string(status))
	return w, nil
}

// ListPendingWithdrawals returns pending withdrawals, oldest first.
func (s *PaymentService) ListPendingWithdrawals(ctx context.Context, limit int) ([]*model.WithdrawalRequest, error) {
	return s.store.Withdrawals.ListPending(ctx, limit)
}

// GetWithdrawal retrieves a withdrawal request.
func (s *PaymentService) GetWithdrawal(ctx context.Context, requestID int64) (*model.WithdrawalRequest, error) {
	w, err := s.store.Withdrawals.GetByID(ctx, requestID)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return w, nil
}
