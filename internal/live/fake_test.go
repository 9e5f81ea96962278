package live

import (
	"context"
	"sync"

	"buspulse/internal/api"
	"buspulse/internal/model"
)

// fakeBackend implements Backend with controllable completion timing:
// non-nil gate channels make a call block until the test releases it.
type fakeBackend struct {
	mu sync.Mutex

	listSchedules []model.Schedule
	listErr       error
	listCalls     int
	listStarted   chan struct{}
	listGate      chan struct{}

	countCalls   []countCall
	countErr     error
	countStarted chan struct{}
	countGate    chan struct{}

	stopCalls  []int
	stopResult model.Schedule
	stopErr    error

	liveStatus model.StopLiveStatus
	statusErr  error
}

type countCall struct {
	scheduleID int
	count      int
}

func (f *fakeBackend) ListSchedules(ctx context.Context, routeID int, date string) ([]model.Schedule, error) {
	f.mu.Lock()
	f.listCalls++
	started := f.listStarted
	gate := f.listGate
	out := make([]model.Schedule, len(f.listSchedules))
	copy(out, f.listSchedules)
	err := f.listErr
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeBackend) UpdatePassengerCount(ctx context.Context, scheduleID, count int) (api.PassengerCountResult, error) {
	f.mu.Lock()
	f.countCalls = append(f.countCalls, countCall{scheduleID: scheduleID, count: count})
	started := f.countStarted
	gate := f.countGate
	err := f.countErr
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return api.PassengerCountResult{}, err
	}
	return api.PassengerCountResult{CurrentPassengers: count, AvailableSeats: 40 - count}, nil
}

func (f *fakeBackend) UpdateCurrentStop(ctx context.Context, scheduleID, stopSequence int) (model.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls = append(f.stopCalls, stopSequence)
	if f.stopErr != nil {
		return model.Schedule{}, f.stopErr
	}
	return f.stopResult, nil
}

func (f *fakeBackend) GetLiveStatusForStop(ctx context.Context, routeID, stopID int, date string) (model.StopLiveStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statusErr != nil {
		return model.StopLiveStatus{}, f.statusErr
	}
	return f.liveStatus, nil
}

func (f *fakeBackend) countCallsSnapshot() []countCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]countCall, len(f.countCalls))
	copy(out, f.countCalls)
	return out
}

func (f *fakeBackend) listCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func testSchedule(id, totalSeats, availableSeats int) model.Schedule {
	return model.Schedule{
		ID:             id,
		Route:          model.Route{ID: 4, Number: "101"},
		Bus:            model.Bus{ID: 9, Capacity: totalSeats},
		Date:           "2026-08-25",
		TotalSeats:     totalSeats,
		AvailableSeats: availableSeats,
	}
}
