// Package fake provides an in-memory modem service for tests and local runs.
package fake

import (
	"context"
	"errors"
	"sync"

	"github.com/profile-control/pcc/internal/modem"
	"github.com/profile-control/pcc/internal/profile"
)

// ProfilesCall records a single SetProfiles invocation.
type ProfilesCall struct {
	Profiles []*profile.Profile
	Roaming  bool
}

// AttachCall records a single SetInitialAttach invocation.
type AttachCall struct {
	Profile *profile.Profile
	Roaming bool
}

// FakeModem implements modem.Service with call recording and error
// simulation switches.
type FakeModem struct {
	mu sync.Mutex

	profilesCalls []ProfilesCall
	attachCalls   []AttachCall

	failProfiles error
	failAttach   error
}

// New creates an empty fake modem.
func New() *FakeModem {
	return &FakeModem{}
}

// SetFailProfiles makes subsequent SetProfiles calls fail with msg.
// Empty msg clears the failure.
func (f *FakeModem) SetFailProfiles(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg == "" {
		f.failProfiles = nil
		return
	}
	f.failProfiles = errors.New(msg)
}

// SetFailAttach makes subsequent SetInitialAttach calls fail with msg.
// Empty msg clears the failure.
func (f *FakeModem) SetFailAttach(msg string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg == "" {
		f.failAttach = nil
		return
	}
	f.failAttach = errors.New(msg)
}

func (f *FakeModem) SetProfiles(ctx context.Context, profiles []*profile.Profile, roaming bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failProfiles != nil {
		return f.failProfiles
	}
	cloned := make([]*profile.Profile, len(profiles))
	for i, p := range profiles {
		cloned[i] = p.Clone()
	}
	f.profilesCalls = append(f.profilesCalls, ProfilesCall{Profiles: cloned, Roaming: roaming})
	return nil
}

func (f *FakeModem) SetInitialAttach(ctx context.Context, prof *profile.Profile, roaming bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAttach != nil {
		return f.failAttach
	}
	f.attachCalls = append(f.attachCalls, AttachCall{Profile: prof.Clone(), Roaming: roaming})
	return nil
}

// ProfilesCalls returns the recorded SetProfiles history.
func (f *FakeModem) ProfilesCalls() []ProfilesCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]ProfilesCall, len(f.profilesCalls))
	copy(out, f.profilesCalls)
	return out
}

// AttachCalls returns the recorded SetInitialAttach history.
func (f *FakeModem) AttachCalls() []AttachCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]AttachCall, len(f.attachCalls))
	copy(out, f.attachCalls)
	return out
}

// Reset clears recorded calls and failure switches.
func (f *FakeModem) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profilesCalls = nil
	f.attachCalls = nil
	f.failProfiles = nil
	f.failAttach = nil
}

var _ modem.Service = (*FakeModem)(nil)
