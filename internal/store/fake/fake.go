// Package fake provides an in-memory profile store client for testing.
package fake

import (
	"context"
	"fmt"
	"sync"

	"github.com/profile-control/pcc/internal/profile"
	"github.com/profile-control/pcc/internal/store"
)

// FakeClient implements store.Client with in-memory rows and error
// simulation switches, mirroring how the real client behaves.
type FakeClient struct {
	mu sync.Mutex

	rows     []store.Row
	override map[int]int64
	nextID   int64

	// Error simulation
	failQuery    bool
	failOverride bool

	// Call counters for assertions
	QueryCalls int
	WriteCalls int
}

// NewFakeClient creates an empty fake store.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		override: make(map[int]int64),
		nextID:   1,
	}
}

// AddRow stores a row, assigning it the next row id, and returns that id.
func (f *FakeClient) AddRow(r store.Row) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	r.ID = f.nextID
	f.nextID++
	f.rows = append(f.rows, r)
	return r.ID
}

// RemoveRow deletes the row with the given id, if present.
func (f *FakeClient) RemoveRow(id int64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.ID != id {
			kept = append(kept, r)
		}
	}
	f.rows = kept
}

// Clear removes all rows and overrides.
func (f *FakeClient) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rows = nil
	f.override = make(map[int]int64)
}

// SetFailQuery makes subsequent profile queries fail with STORE_UNAVAILABLE.
func (f *FakeClient) SetFailQuery(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failQuery = fail
}

// SetFailOverride makes subsequent override writes fail.
func (f *FakeClient) SetFailOverride(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOverride = fail
}

// QueryProfiles returns the rows for the subscription ordered by row id.
func (f *FakeClient) QueryProfiles(ctx context.Context, subscriptionID int) ([]store.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.QueryCalls++
	if f.failQuery {
		return nil, fmt.Errorf("%w: simulated query failure", store.ErrUnavailable)
	}

	var result []store.Row
	for _, r := range f.rows {
		if r.SubscriptionID == subscriptionID {
			result = append(result, r)
		}
	}
	return result, nil
}

// QueryPreferredOverride returns the recorded override row id, 0 if none.
func (f *FakeClient) QueryPreferredOverride(ctx context.Context, subscriptionID int) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failQuery {
		return 0, fmt.Errorf("%w: simulated query failure", store.ErrUnavailable)
	}
	return f.override[subscriptionID], nil
}

// QueryPreferredSetID returns the set id of the override row, or
// profile.NoSetID when no override exists.
func (f *FakeClient) QueryPreferredSetID(ctx context.Context, subscriptionID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failQuery {
		return profile.NoSetID, fmt.Errorf("%w: simulated query failure", store.ErrUnavailable)
	}
	rowID, ok := f.override[subscriptionID]
	if !ok {
		return profile.NoSetID, nil
	}
	for _, r := range f.rows {
		if r.ID == rowID {
			return r.SetID, nil
		}
	}
	return profile.NoSetID, nil
}

// WritePreferredOverride clears the override and records rowID when non-zero.
func (f *FakeClient) WritePreferredOverride(ctx context.Context, subscriptionID int, rowID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.WriteCalls++
	if f.failOverride {
		return fmt.Errorf("%w: simulated write failure", store.ErrUnavailable)
	}
	delete(f.override, subscriptionID)
	if rowID != 0 {
		f.override[subscriptionID] = rowID
	}
	return nil
}

// Override returns the current override row id for assertions, 0 if none.
func (f *FakeClient) Override(subscriptionID int) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.override[subscriptionID]
}

// Compile-time assertion that FakeClient implements store.Client.
var _ store.Client = (*FakeClient)(nil)
