// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Result labels.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultError    = "error"
)

var (
	LedgerOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casino",
			Name:      "ledger_operations_total",
			Help:      "Ledger operations by name and result",
		},
		[]string{"operation", "result"},
	)
	PaymentRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casino",
			Name:      "payment_requests_total",
			Help:      "Deposit and withdrawal request transitions",
		},
		[]string{"kind", "status"},
	)
	DonationPolls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "casino",
			Name:      "donation_poll_total",
			Help:      "Donation feed polls by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(LedgerOperations)
	prometheus.MustRegister(PaymentRequests)
	prometheus.MustRegister(DonationPolls)
}

// Result maps an operation error to a result label. Expected business
// failures such as insufficient funds count as rejected, not as errors.
func Result(err error, expected func(error) bool) string {
	switch {
	case err == nil:
		return ResultOK
	case expected != nil && expected(err):
		return ResultRejected
	default:
		return ResultError
	}
}

// ObservePayment counts a deposit or withdrawal request transition.
func ObservePayment(kind, status string) {
	PaymentRequests.WithLabelValues(kind, status).Inc()
}

// ObserveDonationPoll counts one poll of the donation feed.
func ObserveDonationPoll(err error) {
	DonationPolls.WithLabelValues(Result(err, nil)).Inc()
}
