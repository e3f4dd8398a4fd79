package donation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telegram-casino-bot/internal/model"
)

const feedBody = `{"data":[
	{"id":101,"username":"alice","message":"ABCD2345","amount":"150.00","currency":"RUB","created_at":"2026-01-01 10:00:00"},
	{"id":102,"username":"bob","message":"thanks!","amount":20,"currency":"RUB","created_at":"2026-01-01 10:05:00"}
]}`

func TestClient_Fetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(feedBody))
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "secret", time.Second)
	items, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	ev := items[0].Event()
	assert.Equal(t, "101", ev.ExternalID)
	assert.Equal(t, "alice", ev.Username)
	assert.Equal(t, "ABCD2345", ev.Message)
	assert.True(t, decimal.RequireFromString("150").Equal(ev.Amount))
	assert.True(t, decimal.NewFromInt(20).Equal(items[1].Amount))
}

func TestClient_FetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(feedBody))
	}))
	defer ts.Close()

	items, err := NewClient(ts.URL, "", time.Second).Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_FetchErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnauthorized) }},
		{"bad json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"data":`)) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			_, err := NewClient(ts.URL, "", time.Second).Fetch(context.Background())
			assert.Error(t, err)
		})
	}
}

type stubFeed struct {
	items []Item
	err   error
}

func (s *stubFeed) Fetch(context.Context) ([]Item, error) { return s.items, s.err }

type stubObserver struct {
	seen   []model.DonationEvent
	result map[string]*model.DepositRequest
	err    error
}

func (s *stubObserver) ObserveDonation(_ context.Context, ev model.DonationEvent) (*model.DepositRequest, error) {
	s.seen = append(s.seen, ev)
	if s.err != nil {
		return nil, s.err
	}
	return s.result[ev.ExternalID], nil
}

func TestPoller_Poll(t *testing.T) {
	feed := &stubFeed{items: []Item{
		{ID: "1", Message: "AAAA2222", Amount: decimal.NewFromInt(10)},
		{ID: "2", Message: "BBBB3333", Amount: decimal.NewFromInt(1)},
		{ID: "3", Message: "hi", Amount: decimal.NewFromInt(5)},
	}}
	observer := &stubObserver{result: map[string]*model.DepositRequest{
		"1": {ID: 7, AccountID: 42, Status: model.StatusCompleted},
		"2": {ID: 8, AccountID: 43, Status: model.StatusPending},
	}}

	var notified []int64
	p := NewPoller(feed, observer, time.Minute, time.Second, func(d *model.DepositRequest) {
		notified = append(notified, d.AccountID)
	})

	assert.Equal(t, 2, p.Poll(context.Background()))
	assert.Len(t, observer.seen, 3)
	assert.Equal(t, []int64{42}, notified, "only credited deposits are announced")
}

func TestPoller_PollSurvivesFailures(t *testing.T) {
	p := NewPoller(&stubFeed{err: errors.New("down")}, &stubObserver{}, time.Minute, time.Second, nil)
	assert.Equal(t, 0, p.Poll(context.Background()))

	observer := &stubObserver{err: errors.New("db down")}
	p = NewPoller(&stubFeed{items: []Item{{ID: "1"}, {ID: "2"}}}, observer, time.Minute, time.Second, nil)
	assert.Equal(t, 0, p.Poll(context.Background()))
	assert.Len(t, observer.seen, 2, "one failing donation does not stop the batch")
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	observer := &stubObserver{}
	p := NewPoller(&stubFeed{items: []Item{{ID: "1"}}}, observer, 10*time.Millisecond, time.Second, nil)

	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}
