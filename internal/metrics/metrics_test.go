package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var errExpected = errors.New("expected")

func TestResult(t *testing.T) {
	expected := func(err error) bool { return errors.Is(err, errExpected) }

	assert.Equal(t, ResultOK, Result(nil, expected))
	assert.Equal(t, ResultRejected, Result(errExpected, expected))
	assert.Equal(t, ResultError, Result(errors.New("boom"), expected))
	assert.Equal(t, ResultError, Result(errExpected, nil))
}

func TestCountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(LedgerOperations.WithLabelValues("test_op", ResultOK))
	LedgerOperations.WithLabelValues("test_op", ResultOK).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(LedgerOperations.WithLabelValues("test_op", ResultOK)))

	PaymentRequests.WithLabelValues("deposit", "pending").Inc()
	assert.GreaterOrEqual(t, testutil.ToFloat64(PaymentRequests.WithLabelValues("deposit", "pending")), 1.0)
}

func TestObserveHelpers(t *testing.T) {
	before := testutil.ToFloat64(PaymentRequests.WithLabelValues("withdrawal", "rejected"))
	ObservePayment("withdrawal", "rejected")
	assert.Equal(t, before+1, testutil.ToFloat64(PaymentRequests.WithLabelValues("withdrawal", "rejected")))

	failed := testutil.ToFloat64(DonationPolls.WithLabelValues(ResultError))
	ObserveDonationPoll(errors.New("timeout"))
	ObserveDonationPoll(nil)
	assert.Equal(t, failed+1, testutil.ToFloat64(DonationPolls.WithLabelValues(ResultError)))
	assert.GreaterOrEqual(t, testutil.ToFloat64(DonationPolls.WithLabelValues(ResultOK)), 1.0)
}
