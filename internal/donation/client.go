// Package donation polls the third-party donation feed and hands every new
// donation to the payment service for matching.
package donation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"telegram-casino-bot/internal/model"
)

// Item is one donation as the feed reports it.
type Item struct {
	ID        json.Number     `json:"id"`
	Username  string          `json:"username"`
	Message   string          `json:"message"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	CreatedAt string          `json:"created_at"`
}

type feedResponse struct {
	Data []Item `json:"data"`
}

// Event converts the item into the ledger's donation record.
func (i Item) Event() model.DonationEvent {
	return model.DonationEvent{
		ExternalID: i.ID.String(),
		Username:   i.Username,
		Message:    i.Message,
		Amount:     i.Amount,
		Currency:   i.Currency,
	}
}

// Client fetches the latest donations from the feed.
type Client struct {
	url   string
	token string
	http  *retryablehttp.Client
}

// NewClient creates a feed client. Transient failures are retried a few
// times before Fetch gives up.
func NewClient(url, token string, timeout time.Duration) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil

	return &Client{
		url:   strings.TrimRight(url, "/"),
		token: token,
		http:  rc,
	}
}

// Fetch returns the donations currently on the feed, newest first as the
// feed orders them.
func (c *Client) Fetch(ctx context.Context) ([]Item, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var feed feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	log.Debug().Int("count", len(feed.Data)).Msg("Fetched donation feed")
	return feed.Data, nil
}
