package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cimas-digital/matricula-api/internal/models"
)

// blockingProvider holds each lookup until its release channel is closed, so
// tests can control completion order.
type blockingProvider struct {
	mu       sync.Mutex
	releases map[string]chan struct{}
	results  map[string]*models.ClassroomCapacity
	errs     map[string]error
	calls    []string
}

func newBlockingProvider() *blockingProvider {
	return &blockingProvider{
		releases: make(map[string]chan struct{}),
		results:  make(map[string]*models.ClassroomCapacity),
		errs:     make(map[string]error),
	}
}

func (p *blockingProvider) expect(classroomID string, available int, err error) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	release := make(chan struct{})
	p.releases[classroomID] = release
	p.results[classroomID] = &models.ClassroomCapacity{ClassroomID: classroomID, Available: available}
	p.errs[classroomID] = err
	return release
}

func (p *blockingProvider) ClassroomCapacity(ctx context.Context, classroomID string) (*models.ClassroomCapacity, error) {
	p.mu.Lock()
	release := p.releases[classroomID]
	result := p.results[classroomID]
	err := p.errs[classroomID]
	p.calls = append(p.calls, classroomID)
	p.mu.Unlock()
	if release != nil {
		<-release
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func slotAvailable(t *testing.T, tracker *CapacityTracker, slotID string) int {
	t.Helper()
	state, ok := tracker.Snapshot()[slotID]
	require.True(t, ok)
	require.NotNil(t, state.Available)
	return *state.Available
}

func TestCapacityTrackerResolvesSlot(t *testing.T) {
	provider := newBlockingProvider()
	release := provider.expect("c1", 7, nil)
	tracker := NewCapacityTracker(provider, time.Second, zap.NewNop())

	tracker.Refresh("slot-1", "c1")
	state := tracker.Snapshot()["slot-1"]
	assert.True(t, state.IsLoading)
	assert.True(t, tracker.AnyPendingOrFailed())

	close(release)
	require.Eventually(t, func() bool {
		s := tracker.Snapshot()["slot-1"]
		return s.Available != nil
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 7, slotAvailable(t, tracker, "slot-1"))
	assert.False(t, tracker.AnyPendingOrFailed())
}

func TestCapacityTrackerDiscardsStaleResponse(t *testing.T) {
	provider := newBlockingProvider()
	slow := provider.expect("c-old", 1, nil)
	fast := provider.expect("c-new", 9, nil)
	tracker := NewCapacityTracker(provider, time.Second, zap.NewNop())

	tracker.Refresh("slot-1", "c-old")
	tracker.Refresh("slot-1", "c-new")

	// The newer lookup completes first.
	close(fast)
	require.Eventually(t, func() bool {
		s := tracker.Snapshot()["slot-1"]
		return s.Available != nil
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 9, slotAvailable(t, tracker, "slot-1"))

	// The stale lookup lands afterwards and must not overwrite the slot.
	close(slow)
	assert.Never(t, func() bool {
		return slotAvailable(t, tracker, "slot-1") != 9
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestCapacityTrackerRecordsError(t *testing.T) {
	provider := newBlockingProvider()
	release := provider.expect("c1", 0, errors.New("lookup failed"))
	tracker := NewCapacityTracker(provider, time.Second, zap.NewNop())

	tracker.Refresh("slot-1", "c1")
	close(release)
	require.Eventually(t, func() bool {
		return tracker.Snapshot()["slot-1"].IsError
	}, time.Second, 5*time.Millisecond)

	state := tracker.Snapshot()["slot-1"]
	assert.False(t, state.IsLoading)
	assert.Nil(t, state.Available)
	assert.True(t, tracker.AnyPendingOrFailed())
}

func TestCapacityTrackerEmptyClassroomResetsSlot(t *testing.T) {
	provider := newBlockingProvider()
	inflight := provider.expect("c1", 4, nil)
	tracker := NewCapacityTracker(provider, time.Second, zap.NewNop())

	tracker.Refresh("slot-1", "c1")
	tracker.Refresh("slot-1", "")

	state := tracker.Snapshot()["slot-1"]
	assert.False(t, state.IsLoading)
	assert.Nil(t, state.Available)
	assert.False(t, tracker.AnyPendingOrFailed())

	// The in-flight lookup was superseded by the reset.
	close(inflight)
	assert.Never(t, func() bool {
		return tracker.Snapshot()["slot-1"].Available != nil
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestCapacityTrackerForget(t *testing.T) {
	provider := newBlockingProvider()
	inflight := provider.expect("c1", 4, nil)
	tracker := NewCapacityTracker(provider, time.Second, zap.NewNop())

	tracker.Refresh("slot-1", "c1")
	tracker.Forget("slot-1")
	assert.Empty(t, tracker.Snapshot())

	close(inflight)
	assert.Never(t, func() bool {
		return len(tracker.Snapshot()) != 0
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestCapacityTrackerSnapshotCopies(t *testing.T) {
	provider := newBlockingProvider()
	release := provider.expect("c1", 3, nil)
	tracker := NewCapacityTracker(provider, time.Second, zap.NewNop())

	tracker.Refresh("slot-1", "c1")
	close(release)
	require.Eventually(t, func() bool {
		return tracker.Snapshot()["slot-1"].Available != nil
	}, time.Second, 5*time.Millisecond)

	snap := tracker.Snapshot()
	*snap["slot-1"].Available = 99
	assert.Equal(t, 3, slotAvailable(t, tracker, "slot-1"))
}
