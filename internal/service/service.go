// Package service holds the business rules of pollboard.
//
// LAYERS:
//
//	Handler (HTTP)     → decodes requests, maps errors to status codes
//	Service (rules)    → validates input, checks ownership, runs transactions
//	Repository (data)  → SQL against SQLite or PostgreSQL
//
// Services depend on the repository interfaces, never on a concrete store,
// so the same code runs on either backend and against in-memory fakes in
// tests. They return apperror values and know nothing about HTTP, which lets
// the `pollboard sweep` command reuse PollService without a server.
//
// TRANSACTIONS:
// Multi-step operations (voting, deleting a poll, deleting an account) run
// inside TxManager.RunInTx. Repository calls made with the ctx handed to the
// callback join the transaction; returning an error rolls all of them back.
package service

import (
	"log/slog"
	"time"

	"github.com/sakif/pollboard/internal/metrics"
)

// deps is embedded by every service. metrics may be nil.
type deps struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func newDeps(logger *slog.Logger, m *metrics.Metrics) deps {
	if logger == nil {
		logger = slog.Default()
	}
	return deps{logger: logger, metrics: m, now: time.Now}
}
