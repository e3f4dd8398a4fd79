// Package service implements the ledger, tier engine and payment workflows.
package service

import (
	"errors"

	"telegram-casino-bot/internal/repository"
)

// Error taxonomy reported to callers. Every mutating operation either
// succeeds completely or returns one of these with no effect applied.
var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInvalidState          = errors.New("request is not pending")
	ErrMaxTierReached        = errors.New("max tier reached")
	ErrDuplicateRegistration = errors.New("account already registered")

	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidTier        = errors.New("invalid tier")
	ErrInvalidDestination = errors.New("invalid withdrawal destination")
	ErrInvalidResult      = errors.New("invalid game result")
	ErrAlreadyClaimed     = errors.New("daily bonus already claimed today")
	ErrRequestExpired     = errors.New("request expired")
	ErrWrongSource        = errors.New("request has a different payment source")
)

// mapRepoErr translates repository sentinels into the service taxonomy.
func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrAccountNotFound),
		errors.Is(err, repository.ErrRequestNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrInsufficientBalance):
		return ErrInsufficientFunds
	case errors.Is(err, repository.ErrAccountExists):
		return ErrDuplicateRegistration
	case errors.Is(err, repository.ErrTierNotFound):
		return ErrInvalidTier
	}
	return err
}

// IsExpected reports whether err is a business outcome rather than a
// storage or programming failure.
func IsExpected(err error) bool {
	for _, e := range []error{
		ErrNotFound, ErrInsufficientFunds, ErrInvalidState, ErrMaxTierReached,
		ErrDuplicateRegistration, ErrInvalidAmount, ErrInvalidTier,
		ErrInvalidDestination, ErrInvalidResult, ErrAlreadyClaimed,
		ErrRequestExpired, ErrWrongSource,
	} {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}
