package live

import (
	"context"
	"time"

	"buspulse/internal/api"
	"buspulse/internal/model"
)

// Backend is the slice of the remote API the live view depends on.
// *api.Client satisfies it; tests substitute a fake.
type Backend interface {
	ListSchedules(ctx context.Context, routeID int, date string) ([]model.Schedule, error)
	UpdatePassengerCount(ctx context.Context, scheduleID, count int) (api.PassengerCountResult, error)
	UpdateCurrentStop(ctx context.Context, scheduleID, stopSequence int) (model.Schedule, error)
	GetLiveStatusForStop(ctx context.Context, routeID, stopID int, date string) (model.StopLiveStatus, error)
}

// ReconcilerMetrics receives passenger-sync instrumentation.
type ReconcilerMetrics interface {
	SyncInc()
	SyncErrInc()
	SetPendingEdits(n int)
}

// PollerMetrics receives poll-loop instrumentation.
type PollerMetrics interface {
	PollInc()
	PollErrInc()
	PollSkippedInc()
	PollObserve(d time.Duration)
}
