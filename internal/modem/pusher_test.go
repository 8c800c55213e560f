package modem

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/profile-control/pcc/internal/profile"
)

// mockService implements Service with function fields.
type mockService struct {
	mu           sync.Mutex
	profileSets  int
	attachSets   int
	lastProfiles []*profile.Profile
	lastAttach   *profile.Profile
	lastRoaming  bool

	setProfilesFunc func(ctx context.Context, profiles []*profile.Profile, roaming bool) error
	setAttachFunc   func(ctx context.Context, prof *profile.Profile, roaming bool) error
}

func (m *mockService) SetProfiles(ctx context.Context, profiles []*profile.Profile, roaming bool) error {
	m.mu.Lock()
	m.profileSets++
	m.lastProfiles = profiles
	m.lastRoaming = roaming
	fn := m.setProfilesFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, profiles, roaming)
	}
	return nil
}

func (m *mockService) SetInitialAttach(ctx context.Context, prof *profile.Profile, roaming bool) error {
	m.mu.Lock()
	m.attachSets++
	m.lastAttach = prof
	m.lastRoaming = roaming
	fn := m.setAttachFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, prof, roaming)
	}
	return nil
}

func TestPusherPushProfiles(t *testing.T) {
	svc := &mockService{}
	p := NewPusher(svc, zap.NewNop())

	prof := profile.DefaultIMS()
	p.PushProfiles([]*profile.Profile{prof}, true)
	p.Wait()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.profileSets != 1 {
		t.Fatalf("expected 1 SetProfiles call, got %d", svc.profileSets)
	}
	if len(svc.lastProfiles) != 1 || !svc.lastProfiles[0].Equal(prof) {
		t.Errorf("pushed profiles do not match")
	}
	if !svc.lastRoaming {
		t.Errorf("roaming flag not forwarded")
	}
}

func TestPusherPushInitialAttach(t *testing.T) {
	svc := &mockService{}
	p := NewPusher(svc, zap.NewNop())

	prof := profile.DefaultEmergency()
	p.PushInitialAttach(prof, false)
	p.Wait()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.attachSets != 1 {
		t.Fatalf("expected 1 SetInitialAttach call, got %d", svc.attachSets)
	}
	if !svc.lastAttach.Equal(prof) {
		t.Errorf("pushed attach profile does not match")
	}
}

func TestPusherDoesNotBlockCaller(t *testing.T) {
	release := make(chan struct{})
	svc := &mockService{
		setProfilesFunc: func(ctx context.Context, _ []*profile.Profile, _ bool) error {
			select {
			case <-release:
			case <-ctx.Done():
			}
			return nil
		},
	}
	p := NewPusher(svc, zap.NewNop())

	done := make(chan struct{})
	go func() {
		p.PushProfiles(nil, false)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PushProfiles blocked the caller")
	}
	close(release)
	p.Wait()
}

func TestPusherSurvivesFailure(t *testing.T) {
	svc := &mockService{
		setProfilesFunc: func(context.Context, []*profile.Profile, bool) error {
			return errors.New("RADIO_NOT_AVAILABLE")
		},
	}
	p := NewPusher(svc, zap.NewNop())

	p.PushProfiles(nil, false)
	p.Wait()

	// A failed push must not poison later pushes.
	svc.mu.Lock()
	svc.setProfilesFunc = nil
	svc.mu.Unlock()

	p.PushProfiles(nil, false)
	p.Wait()

	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.profileSets != 2 {
		t.Fatalf("expected 2 SetProfiles calls, got %d", svc.profileSets)
	}
}

func TestPusherTimeout(t *testing.T) {
	svc := &mockService{
		setProfilesFunc: func(ctx context.Context, _ []*profile.Profile, _ bool) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	p := NewPusher(svc, zap.NewNop())
	p.SetTimeout(20 * time.Millisecond)

	start := time.Now()
	p.PushProfiles(nil, false)
	p.Wait()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("push did not respect timeout, took %v", elapsed)
	}
}
