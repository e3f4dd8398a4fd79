// Package model defines the data models for the casino bot ledger.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a Telegram user's persistent record of balance, stats and flags.
type Account struct {
	ID            int64      `db:"id"`
	Username      string     `db:"username"`
	FirstName     string     `db:"first_name"`
	Balance       int64      `db:"balance"`
	GamesPlayed   int64      `db:"games_played"`
	Wins          int64      `db:"wins"`
	Losses        int64      `db:"losses"`
	TotalWagered  int64      `db:"total_wagered"`
	TotalWon      int64      `db:"total_won"`
	Banned        bool       `db:"banned"`
	Admin         bool       `db:"admin"`
	CustomLuck    float64    `db:"custom_luck"`
	ReferrerID    *int64     `db:"referrer_id"`
	LastBonusDate *time.Time `db:"last_bonus_date"`
	BonusStreak   int        `db:"bonus_streak"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

// DisplayName returns the best human-readable name for the account.
func (a *Account) DisplayName() string {
	if a.Username != "" {
		return "@" + a.Username
	}
	if a.FirstName != "" {
		return a.FirstName
	}
	return "user"
}

// Transaction is an immutable record of a single balance change.
type Transaction struct {
	ID          int64     `db:"id"`
	AccountID   int64     `db:"account_id"`
	Amount      int64     `db:"amount"`
	Category    string    `db:"category"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

// Transaction categories.
const (
	TxInitial        = "initial"
	TxBet            = "bet"
	TxWin            = "win"
	TxRefund         = "refund"
	TxAdminAdjust    = "admin_adjustment"
	TxReferralBonus  = "referral_bonus"
	TxDeposit        = "deposit"
	TxWithdrawal     = "withdraw_request"
	TxWithdrawRefund = "withdraw_refund"
	TxLevelUpgrade   = "level_upgrade"
	TxDailyBonus     = "daily_bonus"
)

// GameOutcome is one completed game round. Append-only, used for statistics.
type GameOutcome struct {
	ID        int64     `db:"id"`
	AccountID int64     `db:"account_id"`
	GameType  string    `db:"game_type"`
	Bet       int64     `db:"bet"`
	Win       int64     `db:"win"`
	Result    string    `db:"result"`
	CreatedAt time.Time `db:"created_at"`
}

// DailyRank is one row of the daily game profit ranking.
type DailyRank struct {
	AccountID int64
	Username  string
	FirstName string
	Net       int64
}

// Game results.
const (
	ResultWin  = "win"
	ResultLoss = "loss"
	ResultDraw = "draw"
)

// Tier is a purchasable level that multiplies game luck.
type Tier struct {
	Level       int     `db:"level"`
	Name        string  `db:"name"`
	Price       int64   `db:"price"`
	Luck        float64 `db:"luck"`
	Description string  `db:"description"`
}

// TierProgress tracks an account's position in the tier catalog.
type TierProgress struct {
	AccountID     int64      `db:"account_id"`
	CurrentTier   int        `db:"current_tier"`
	TotalSpent    int64      `db:"total_spent"`
	LastUpgradeAt *time.Time `db:"last_upgrade_at"`
}

// RequestStatus is the lifecycle state of a deposit or withdrawal request.
type RequestStatus string

// Request statuses. Completed and rejected are terminal.
const (
	StatusPending   RequestStatus = "pending"
	StatusCompleted RequestStatus = "completed"
	StatusRejected  RequestStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

// DepositSource distinguishes the bank-transfer and donation variants.
type DepositSource string

const (
	SourceBank     DepositSource = "bank"
	SourceDonation DepositSource = "donation"
)

// DepositRequest is a pending real-money deposit awaiting verification.
type DepositRequest struct {
	ID          int64           `db:"id"`
	AccountID   int64           `db:"account_id"`
	Source      DepositSource   `db:"source"`
	FiatAmount  decimal.Decimal `db:"fiat_amount"`
	Credit      int64           `db:"credit"`
	Code        string          `db:"code"`
	ProofRef    *string         `db:"proof_ref"`
	Status      RequestStatus   `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	ExpiresAt   time.Time       `db:"expires_at"`
	CompletedAt *time.Time      `db:"completed_at"`
	ResolvedBy  *int64          `db:"resolved_by"`
}

// Expired reports whether the request is past its expiry at the given time.
func (d *DepositRequest) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// WithdrawalRequest is a payout request. Funds are debited when it is created.
type WithdrawalRequest struct {
	ID          int64           `db:"id"`
	AccountID   int64           `db:"account_id"`
	FiatAmount  decimal.Decimal `db:"fiat_amount"`
	Debit       int64           `db:"debit"`
	Destination string          `db:"destination"`
	Status      RequestStatus   `db:"status"`
	CreatedAt   time.Time       `db:"created_at"`
	CompletedAt *time.Time      `db:"completed_at"`
	ResolvedBy  *int64          `db:"resolved_by"`
}

// Referral links an inviting account to an invited one.
type Referral struct {
	ID           int64     `db:"id"`
	ReferrerID   int64     `db:"referrer_id"`
	ReferredID   int64     `db:"referred_id"`
	BonusGranted bool      `db:"bonus_granted"`
	CreatedAt    time.Time `db:"created_at"`
}

// ReferralStats summarises an account's referrals.
type ReferralStats struct {
	Count  int64
	Earned int64
}

// DonationEvent is a donation observed on the third-party donation feed.
type DonationEvent struct {
	ExternalID       string          `db:"external_id"`
	Username         string          `db:"username"`
	Message          string          `db:"message"`
	Amount           decimal.Decimal `db:"amount"`
	Currency         string          `db:"currency"`
	MatchedRequestID *int64          `db:"matched_request_id"`
	ObservedAt       time.Time       `db:"observed_at"`
}

// Admin is an already-authorized administrator acting on the ledger.
// It is produced by the front-end capability check and never re-checked.
type Admin struct {
	ID int64
}

// SystemAdmin resolves requests on behalf of automated collaborators
// such as the donation poller and the expiry sweeper.
var SystemAdmin = Admin{ID: 0}
