package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/api/wallet/pay", "200", 0.1)
	RecordHTTPRequest("POST", "/api/wallet/pay", "200", 0.2)
	RecordHTTPRequest("POST", "/api/wallet/pay", "403", 0.05)

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/wallet/pay", "200")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/api/wallet/pay", "403")))
	assert.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestRecordTransactionCreated(t *testing.T) {
	TransactionsCreatedTotal.Reset()

	RecordTransactionCreated("Sale")
	RecordTransactionCreated("Sale")
	RecordTransactionCreated("Giveaway")

	assert.Equal(t, float64(2), testutil.ToFloat64(TransactionsCreatedTotal.WithLabelValues("Sale")))
	assert.Equal(t, float64(1), testutil.ToFloat64(TransactionsCreatedTotal.WithLabelValues("Giveaway")))
}

func TestRecordTransition(t *testing.T) {
	TransactionTransitionsTotal.Reset()

	RecordTransition("Accepted", "Paid")

	assert.Equal(t, float64(1), testutil.ToFloat64(TransactionTransitionsTotal.WithLabelValues("Accepted", "Paid")))
}

func TestRecordPaymentAndWallet(t *testing.T) {
	PaymentsTotal.Reset()
	WalletOperationsTotal.Reset()

	RecordPayment("success")
	RecordPayment("insufficient_funds")
	RecordWalletOperation("cash_in")

	assert.Equal(t, float64(1), testutil.ToFloat64(PaymentsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(PaymentsTotal.WithLabelValues("insufficient_funds")))
	assert.Equal(t, float64(1), testutil.ToFloat64(WalletOperationsTotal.WithLabelValues("cash_in")))
}

func TestRecordNotification(t *testing.T) {
	NotificationsTotal.Reset()

	RecordNotification("transaction_created", "queued")

	assert.Equal(t, float64(1), testutil.ToFloat64(NotificationsTotal.WithLabelValues("transaction_created", "queued")))
}
