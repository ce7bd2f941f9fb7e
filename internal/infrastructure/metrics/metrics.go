package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pairchat_messages_sent_total",
		Help: "Messages persisted by the intake",
	})

	ConversationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pairchat_conversations_created_total",
		Help: "Conversations created on first message",
	})

	UnseenIncrementFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pairchat_unseen_increment_failures_total",
		Help: "Messages stored whose unseen counter could not be incremented",
	})

	NotifyFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pairchat_notify_failures_total",
		Help: "Delivery notifications that failed, by notifier",
	}, []string{"notifier"})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pairchat_rate_limited_total",
		Help: "Requests rejected by the rate limiter, by action",
	}, []string{"action"})

	Connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pairchat_ws_active_connections",
		Help: "Active websocket connections",
	})
)

var once sync.Once

// Init registers every collector with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.MustRegister(
			MessagesSent,
			ConversationsCreated,
			UnseenIncrementFailures,
			NotifyFailures,
			RateLimited,
			Connections,
		)
	})
}

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
