// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "crusades"

// Registry is the registry served by Handler.
var Registry = prometheus.NewRegistry()

// Feed metrics

// FeedFetchesTotal counts upstream feed fetches by outcome.
var FeedFetchesTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_fetches_total",
		Help:      "External crusade feed fetches",
	},
	[]string{"result"}, // result: success|error
)

// FeedServedTotal counts how catalog reads of the feed were satisfied.
var FeedServedTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "feed_served_total",
		Help:      "Feed reads by source",
	},
	[]string{"source"}, // source: fresh|fetched|stale|empty
)

// Domain metrics

var TicketsRegisteredTotal = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tickets_registered_total",
		Help:      "Tickets issued by event registration",
	},
)

var CheckInsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkins_total",
		Help:      "Ticket check-in attempts by outcome",
	},
	[]string{"result"}, // result: ok|used|cancelled|forbidden|not_found|error
)

var NotificationsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_created_total",
		Help:      "Notifications written by type",
	},
	[]string{"type"},
)

var EmailsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "emails_total",
		Help:      "Outbound emails by template and outcome",
	},
	[]string{"template", "result"}, // result: sent|skipped|error
)

var QueueMessagesTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queue_messages_total",
		Help:      "Broker messages by direction and outcome",
	},
	[]string{"direction", "result"}, // direction: publish|consume
)

// Middleware metrics

var RateLimitedTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter",
	},
	[]string{"scope"},
)

var ResponseCacheTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "response_cache_total",
		Help:      "Response cache lookups",
	},
	[]string{"result"}, // result: hit|miss|bypass
)

// Init registers the Go runtime and process collectors.  Call it once at
// startup.
func Init() {
	Registry.MustRegister(collectors.NewGoCollector())
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
