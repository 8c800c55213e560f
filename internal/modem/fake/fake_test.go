package fake

import (
	"context"
	"testing"

	"github.com/profile-control/pcc/internal/profile"
)

func TestFakeModemRecordsCalls(t *testing.T) {
	m := New()
	ctx := context.Background()

	prof := profile.DefaultIMS()
	if err := m.SetProfiles(ctx, []*profile.Profile{prof}, true); err != nil {
		t.Fatalf("SetProfiles: %v", err)
	}
	if err := m.SetInitialAttach(ctx, prof, false); err != nil {
		t.Fatalf("SetInitialAttach: %v", err)
	}

	pc := m.ProfilesCalls()
	if len(pc) != 1 || len(pc[0].Profiles) != 1 || !pc[0].Roaming {
		t.Errorf("unexpected profiles history: %+v", pc)
	}
	ac := m.AttachCalls()
	if len(ac) != 1 || !ac[0].Profile.Equal(prof) || ac[0].Roaming {
		t.Errorf("unexpected attach history: %+v", ac)
	}
}

func TestFakeModemClonesProfiles(t *testing.T) {
	m := New()
	prof := profile.DefaultIMS()
	if err := m.SetProfiles(context.Background(), []*profile.Profile{prof}, false); err != nil {
		t.Fatalf("SetProfiles: %v", err)
	}

	prof.AccessPoint.Name = "mutated"
	got := m.ProfilesCalls()[0].Profiles[0]
	if got.AccessPoint.Name == "mutated" {
		t.Error("recorded profile shares memory with caller")
	}
}

func TestFakeModemFailureSwitches(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.SetFailProfiles("RADIO_BUSY")
	if err := m.SetProfiles(ctx, nil, false); err == nil {
		t.Fatal("expected SetProfiles failure")
	}
	m.SetFailProfiles("")
	if err := m.SetProfiles(ctx, nil, false); err != nil {
		t.Fatalf("failure switch not cleared: %v", err)
	}

	m.SetFailAttach("MODEM_REBOOTING")
	if err := m.SetInitialAttach(ctx, profile.DefaultIMS(), false); err == nil {
		t.Fatal("expected SetInitialAttach failure")
	}
}

func TestFakeModemContextCancellation(t *testing.T) {
	m := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.SetProfiles(ctx, nil, false); err == nil {
		t.Fatal("expected context error")
	}
	if len(m.ProfilesCalls()) != 0 {
		t.Error("cancelled call must not be recorded")
	}
}

func TestFakeModemReset(t *testing.T) {
	m := New()
	m.SetFailProfiles("BUSY")
	_ = m.SetInitialAttach(context.Background(), profile.DefaultIMS(), false)

	m.Reset()
	if len(m.AttachCalls()) != 0 {
		t.Error("Reset did not clear history")
	}
	if err := m.SetProfiles(context.Background(), nil, false); err != nil {
		t.Errorf("Reset did not clear failure switch: %v", err)
	}
}
