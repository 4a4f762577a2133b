// README: Prometheus counters and histograms for trips, offers, chat and HTTP.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TripsCreated    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rumbo", Name: "trips_created_total", Help: "Trips created"})
	TripsAccepted   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rumbo", Name: "trips_accepted_total", Help: "Trips with an accepted offer"})
	TripsCompleted  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rumbo", Name: "trips_completed_total", Help: "Trips completed"})
	TripsCancelled  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rumbo", Name: "trips_cancelled_total", Help: "Trips cancelled or aborted"})
	TripsExpired    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rumbo", Name: "trips_expired_total", Help: "Searching trips deleted by expiry"})
	OffersSubmitted = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rumbo", Name: "offers_submitted_total", Help: "Offers submitted by drivers"})
	MessagesSent    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "rumbo", Name: "messages_sent_total", Help: "Chat messages sent"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "rumbo", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "rumbo",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
