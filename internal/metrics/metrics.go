// Package metrics holds the Prometheus collectors exported on /metrics.
//
// Collectors are registered on an explicit prometheus.Registerer instead of
// the global default, so tests can build an isolated set per test.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pollboard"

// Vote outcomes used as the "result" label of VotesTotal.
const (
	VoteAccepted  = "accepted"
	VoteDuplicate = "duplicate"
	VoteNotFound  = "not_found"
	VoteInvalid   = "invalid"
	VoteError     = "error"
)

// Poll deletion reasons used as the "reason" label of PollsDeleted.
const (
	DeletedByOwner   = "owner"
	DeletedExpired   = "expired"
	DeletedByAccount = "account"
)

type Metrics struct {
	VotesTotal   *prometheus.CounterVec
	PollsCreated prometheus.Counter
	PollsDeleted *prometheus.CounterVec
	Sweeps       *prometheus.CounterVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VotesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_total",
			Help:      "Vote submissions by outcome.",
		}, []string{"result"}),
		PollsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_created_total",
			Help:      "Polls created.",
		}),
		PollsDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_deleted_total",
			Help:      "Polls deleted by reason.",
		}, []string{"reason"}),
		Sweeps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweeps_total",
			Help:      "Retention sweep runs by result.",
		}, []string{"result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// The helpers below accept a nil receiver so callers built without metrics
// (CLI one-shots, unit tests) need no guards.

func (m *Metrics) ObserveVote(result string) {
	if m == nil {
		return
	}
	m.VotesTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) PollCreated() {
	if m == nil {
		return
	}
	m.PollsCreated.Inc()
}

func (m *Metrics) PollsRemoved(reason string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.PollsDeleted.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) SweepFinished(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Sweeps.WithLabelValues(result).Inc()
}
