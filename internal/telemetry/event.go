// Package telemetry carries best-effort operational events (auth audit trail) to an exporter.
package telemetry

import (
	"context"
	"time"
)

// Event types emitted by the auth service.
const (
	EventLoginSucceeded   = "auth.login.succeeded"
	EventLoginFailed      = "auth.login.failed"
	EventRefreshSucceeded = "auth.refresh.succeeded"
	EventRefreshRejected  = "auth.refresh.rejected"
)

// Event is a single audit event.
type Event struct {
	Type      string
	UserID    int64
	Login     string
	Reason    string
	Source    string
	CreatedAt time.Time
}

// EventEmitter emits events (e.g. to OTel Logs). Best-effort; callers log and ignore errors.
type EventEmitter interface {
	Emit(ctx context.Context, event *Event) error
}
