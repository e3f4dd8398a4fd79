// Package session tracks the game round an account currently has in flight.
// A round is started before the bet is placed and finished once it has been
// settled, so an account can never have two rounds open at the same time.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrActive is returned by Start when the account already has a live session.
var ErrActive = errors.New("a game is already in progress")

// Session is one open game round.
type Session struct {
	ID        string    `json:"id"`
	AccountID int64     `json:"account_id"`
	Game      string    `json:"game"`
	Bet       int64     `json:"bet"`
	StartedAt time.Time `json:"started_at"`
}

// Store holds open sessions. Sessions that are never finished expire after
// the store's TTL.
type Store interface {
	Start(ctx context.Context, accountID int64, game string, bet int64) (*Session, error)
	Finish(ctx context.Context, s *Session) error
	Active(ctx context.Context, accountID int64) (*Session, error)
}

func newSession(accountID int64, game string, bet int64, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Game:      game,
		Bet:       bet,
		StartedAt: now,
	}
}
