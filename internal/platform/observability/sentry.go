// Package observability wires ambient fatal-error reporting. The pipeline's
// own warnings/degraded handling covers per-person and per-stage failures
// (see the reasoning and curation packages); this package is reserved for
// failures severe enough that an operator, not a caller, needs to know —
// uncaught panics and whole-build Deadline/Transient escalations.
package observability

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// Config configures the Sentry client. A blank DSN disables reporting;
// CaptureBuildFailure and RecoverAndReport become no-ops.
type Config struct {
	DSN         string
	Environment string
}

// Init configures the global Sentry client. It is safe to call with a
// blank DSN — subsequent capture calls then do nothing.
func Init(cfg Config) error {
	return sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
	})
}

// Flush blocks up to timeout waiting for buffered events to send, intended
// to be deferred from main() before process exit.
func Flush(timeout time.Duration) {
	sentry.Flush(timeout)
}

// CaptureBuildFailure reports a fatal whole-build failure (Deadline or an
// escalated Transient error) tagged with the (company, role) fingerprint
// and the caller's stage label, so an operator can tell a wedged upstream
// from a one-off timeout without grepping logs. The curation engine passes
// "build" for a failed pipeline run and "persist" for a failed cache write.
func CaptureBuildFailure(_ context.Context, companyID, roleID, stage string, err error) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("company_id", companyID)
		scope.SetTag("role_id", roleID)
		scope.SetTag("stage", stage)
		sentry.CaptureException(err)
	})
}

// RecoverAndReport reports a panic to Sentry and re-panics, so a deferred
// call site still gets the usual goroutine crash behavior after the event
// is flushed to Sentry.
func RecoverAndReport() {
	if r := recover(); r != nil {
		sentry.CurrentHub().Recover(r)
		sentry.Flush(2 * time.Second)
		panic(r)
	}
}
