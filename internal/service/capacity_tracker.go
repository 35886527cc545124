package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cimas-digital/matricula-api/internal/models"
)

type capacityProvider interface {
	ClassroomCapacity(ctx context.Context, classroomID string) (*models.ClassroomCapacity, error)
}

// CapacityTracker resolves classroom capacity asynchronously for the student
// slots of one case draft. Each Refresh bumps a per-slot request token;
// responses carrying a superseded token are discarded, so a slot can never be
// overwritten by a lookup for a classroom the user has already moved away
// from, regardless of completion order. There is no retry and no cancellation:
// a superseded lookup is simply ignored when it lands.
type CapacityTracker struct {
	provider capacityProvider
	timeout  time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	states map[string]models.CapacityState
	seq    map[string]uint64
}

// NewCapacityTracker constructs a tracker for one case session.
func NewCapacityTracker(provider capacityProvider, timeout time.Duration, logger *zap.Logger) *CapacityTracker {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CapacityTracker{
		provider: provider,
		timeout:  timeout,
		logger:   logger,
		states:   make(map[string]models.CapacityState),
		seq:      make(map[string]uint64),
	}
}

// Refresh starts a capacity lookup for the slot's classroom. An empty
// classroom id disables the lookup and resets the slot to the idle state;
// the token bump still invalidates any lookup in flight for the slot.
func (t *CapacityTracker) Refresh(slotID, classroomID string) {
	t.mu.Lock()
	t.seq[slotID]++
	token := t.seq[slotID]
	if classroomID == "" {
		t.states[slotID] = models.CapacityState{}
		t.mu.Unlock()
		return
	}
	t.states[slotID] = models.CapacityState{IsLoading: true}
	t.mu.Unlock()

	go t.lookup(slotID, classroomID, token)
}

func (t *CapacityTracker) lookup(slotID, classroomID string, token uint64) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	capacity, err := t.provider.ClassroomCapacity(ctx, classroomID)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seq[slotID] != token {
		// Slot was re-pointed while this lookup was in flight.
		return
	}
	if err != nil {
		t.logger.Warn("capacity lookup failed",
			zap.String("slot_id", slotID),
			zap.String("classroom_id", classroomID),
			zap.Error(err))
		t.states[slotID] = models.CapacityState{IsError: true}
		return
	}
	available := capacity.Available
	t.states[slotID] = models.CapacityState{Available: &available}
}

// Forget drops a slot entirely, invalidating any lookup still in flight.
func (t *CapacityTracker) Forget(slotID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq[slotID]++
	delete(t.states, slotID)
}

// Snapshot returns a copy of the current per-slot states.
func (t *CapacityTracker) Snapshot() map[string]models.CapacityState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]models.CapacityState, len(t.states))
	for slot, state := range t.states {
		if state.Available != nil {
			available := *state.Available
			state.Available = &available
		}
		out[slot] = state
	}
	return out
}

// AnyPendingOrFailed reports whether any tracked slot is still loading or in
// error. Confirmation is gated on this in addition to validation, erring
// toward caution for slots whose classroom is not currently selected.
func (t *CapacityTracker) AnyPendingOrFailed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, state := range t.states {
		if state.IsLoading || state.IsError {
			return true
		}
	}
	return false
}
