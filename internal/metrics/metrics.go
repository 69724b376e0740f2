package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmarket_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "campusmarket_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	TransactionsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmarket_transactions_created_total",
			Help: "Total number of transactions created",
		},
		[]string{"post_type"},
	)

	TransactionTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmarket_transaction_transitions_total",
			Help: "Transaction status transitions",
		},
		[]string{"from", "to"},
	)

	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmarket_wallet_payments_total",
			Help: "Wallet payment attempts by outcome",
		},
		[]string{"outcome"},
	)

	WalletOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmarket_wallet_operations_total",
			Help: "Wallet balance mutations by type",
		},
		[]string{"type"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "campusmarket_notifications_total",
			Help: "Email notifications by type and status",
		},
		[]string{"type", "status"},
	)

	NotificationQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campusmarket_notification_queue_depth",
			Help: "Emails waiting in the delivery queue",
		},
	)

	RealtimeSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "campusmarket_realtime_subscribers",
			Help: "Open wallet event streams",
		},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordTransactionCreated(postType string) {
	TransactionsCreatedTotal.WithLabelValues(postType).Inc()
}

func RecordTransition(from, to string) {
	TransactionTransitionsTotal.WithLabelValues(from, to).Inc()
}

func RecordPayment(outcome string) {
	PaymentsTotal.WithLabelValues(outcome).Inc()
}

func RecordWalletOperation(opType string) {
	WalletOperationsTotal.WithLabelValues(opType).Inc()
}

func RecordNotification(notificationType, status string) {
	NotificationsTotal.WithLabelValues(notificationType, status).Inc()
}
