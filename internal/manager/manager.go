package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/profile-control/pcc/internal/metrics"
	"github.com/profile-control/pcc/internal/profile"
	"github.com/profile-control/pcc/internal/store"
)

// storeQueryTimeout bounds the inline store queries of a rebuild pass.
// The store is a fast local database; a slow answer is treated as
// unavailable.
const storeQueryTimeout = 2 * time.Second

// localLogSize bounds the diagnostic transition log.
const localLogSize = 128

// Snapshot is an immutable view of the reconciled state.
type Snapshot struct {
	Profiles       []*profile.Profile `json:"profiles"`
	Preferred      *profile.Profile   `json:"preferred,omitempty"`
	InitialAttach  *profile.Profile   `json:"initialAttach,omitempty"`
	PreferredSetID int                `json:"preferredSetId"`
}

// Manager reconciles the profile set from the store and configuration,
// resolves the preferred and initial-attach profiles, and keeps the modem
// synchronized. All state mutation runs under one write lock; triggers
// are drained by a single loop goroutine so rebuilds never overlap.
type Manager struct {
	mu    sync.RWMutex
	log   *zap.Logger
	store store.Client
	cfg   ConfigSource
	push  ModemPusher
	audit AuditLogger

	profiles       []*profile.Profile
	preferred      *profile.Profile
	initialAttach  *profile.Profile
	preferredSetID int

	observers *observerRegistry

	events chan Trigger
	stopCh chan struct{}
	doneCh chan struct{}

	// prefMu serializes SetPreferred's check-and-write so two racing
	// connection signals cannot both record an override.
	prefMu sync.Mutex

	localMu  sync.Mutex
	localLog []string
}

// New creates a manager. audit may be nil.
func New(storeClient store.Client, cfg ConfigSource, push ModemPusher, audit AuditLogger, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		log:       log.With(zap.Int("subscriptionId", cfg.SubscriptionID())),
		store:     storeClient,
		cfg:       cfg,
		push:      push,
		audit:     audit,
		observers: newObserverRegistry(),
		events:    make(chan Trigger, 16),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the event loop and queues an initial rebuild.
func (m *Manager) Start() {
	go m.loop()
	m.Notify(TriggerStartup)
}

// Stop terminates the event loop. Pending triggers are discarded.
func (m *Manager) Stop() {
	close(m.stopCh)
	<-m.doneCh
}

// Notify queues a rebuild for the given trigger. Never blocks; if the
// queue is full a rebuild is already pending and the trigger is coalesced
// into it.
func (m *Manager) Notify(trigger Trigger) {
	select {
	case m.events <- trigger:
	default:
		m.log.Debug("trigger coalesced", zap.String("trigger", string(trigger)))
	}
}

func (m *Manager) loop() {
	defer close(m.doneCh)
	for {
		select {
		case <-m.stopCh:
			return
		case trigger := <-m.events:
			m.Rebuild(trigger)
		}
	}
}

// Rebuild runs one full reconciliation pass. Idempotent: with unchanged
// upstream data it produces no change event and identical resolved state.
// A store failure aborts the pass and leaves prior state untouched.
func (m *Manager) Rebuild(trigger Trigger) {
	m.mu.Lock()

	subID := m.cfg.SubscriptionID()

	var (
		candidates    []*profile.Profile
		overrideRowID int64
		setID         = profile.NoSetID
	)

	if m.cfg.CarrierSpecific() {
		ctx, cancel := context.WithTimeout(context.Background(), storeQueryTimeout)
		rows, err := m.store.QueryProfiles(ctx, subID)
		if err == nil {
			overrideRowID, err = m.store.QueryPreferredOverride(ctx, subID)
		}
		if err == nil {
			setID, err = m.store.QueryPreferredSetID(ctx, subID)
		}
		cancel()
		if err != nil {
			m.mu.Unlock()
			metrics.RebuildsTotal.WithLabelValues(metrics.OutcomeAborted).Inc()
			m.log.Warn("rebuild aborted, store unavailable",
				zap.String("trigger", string(trigger)), zap.Error(err))
			m.logLocal("rebuild aborted (%s): %v", trigger, err)
			return
		}

		for _, row := range rows {
			p, err := row.ToProfile()
			if err != nil {
				metrics.MalformedRowsTotal.Inc()
				m.log.Warn("skipping malformed profile row",
					zap.Int64("rowId", row.ID), zap.Error(err))
				continue
			}
			candidates = append(candidates, p)
		}
	}

	// The set always covers IMS registration and emergency calling.
	if !anySatisfies(candidates, profile.CapabilityIMS) {
		candidates = append(candidates, profile.DefaultIMS())
	}
	if !anySatisfies(candidates, profile.CapabilityEmergency) {
		candidates = append(candidates, profile.DefaultEmergency())
	}

	changed := false
	if !sameProfileSet(m.profiles, candidates) {
		// Carry last-used timestamps over for surviving profiles.
		for _, c := range candidates {
			if old := findEqual(m.profiles, c); old != nil {
				c.LastUsed = old.LastUsed
			}
		}
		m.profiles = candidates
		changed = true
		m.logLocal("profile set replaced: %d profiles", len(candidates))
	}

	if setID != m.preferredSetID {
		m.logLocal("preferred set id %d -> %d", m.preferredSetID, setID)
		m.preferredSetID = setID
		changed = true
	}

	if m.updatePreferredLocked(overrideRowID) {
		changed = true
	}
	pushAttach := m.updateInitialAttachLocked()

	profilesCopy := m.cloneProfilesLocked()
	attach := m.initialAttach.Clone()
	roaming := m.cfg.DataRoaming()
	m.mu.Unlock()

	// Full set goes out on every completed pass; the modem treats it
	// idempotently. The attach profile only goes out on change.
	m.push.PushProfiles(profilesCopy, roaming)
	if pushAttach {
		m.push.PushInitialAttach(attach, roaming)
	}

	metrics.ProfileCount.Set(float64(len(profilesCopy)))
	if changed {
		metrics.RebuildsTotal.WithLabelValues(metrics.OutcomeUpdated).Inc()
		m.log.Info("profiles changed",
			zap.String("trigger", string(trigger)),
			zap.Int("count", len(profilesCopy)),
			zap.String("preferred", attachOrNone(m.Preferred())),
			zap.String("initialAttach", attachOrNone(attach)))
		m.notifyChanged()
	} else {
		metrics.RebuildsTotal.WithLabelValues(metrics.OutcomeUnchanged).Inc()
	}
}

// updatePreferredLocked resolves the preferred profile: store override
// first, then the configured default access point name, else none. An
// invalid subscription resolves to none. Reports whether the resolved
// reference changed.
func (m *Manager) updatePreferredLocked(overrideRowID int64) bool {
	var resolved *profile.Profile

	if m.cfg.SubscriptionID() > 0 {
		if overrideRowID != 0 {
			resolved = m.findByRowIDLocked(overrideRowID)
		}
		if resolved == nil {
			if name := m.cfg.DefaultPreferredAccessPoint(); name != "" {
				for _, p := range m.profiles {
					if p.AccessPoint.Name == name {
						resolved = p
						break
					}
				}
			}
		}
	}

	if resolved.Equal(m.preferred) {
		// Re-point at the current set member so the flag survives a set
		// replacement.
		m.applyPreferredLocked(resolved)
		return false
	}

	m.logLocal("preferred %s -> %s", attachOrNone(m.preferred), attachOrNone(resolved))
	m.applyPreferredLocked(resolved)
	return true
}

// applyPreferredLocked re-asserts the single-preferred invariant.
func (m *Manager) applyPreferredLocked(resolved *profile.Profile) {
	for _, p := range m.profiles {
		p.Preferred = false
	}
	if resolved != nil {
		resolved.Preferred = true
	}
	m.preferred = resolved
}

// updateInitialAttachLocked recomputes the initial-attach profile: the
// set is sorted preferred-first (stable otherwise), then the configured
// attach types are scanned in order and the first profile satisfying the
// first satisfiable type wins. Reports whether a modem push is due: only
// a change to a non-nil result pushes, a transition to nil does not.
func (m *Manager) updateInitialAttachLocked() bool {
	sorted := make([]*profile.Profile, len(m.profiles))
	copy(sorted, m.profiles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Preferred && !sorted[j].Preferred
	})

	var resolved *profile.Profile
outer:
	for _, t := range m.cfg.AllowedInitialAttachTypes() {
		caps := t.Capability()
		if caps == 0 {
			continue
		}
		for _, p := range sorted {
			if p.CanSatisfy(caps) {
				resolved = p
				break outer
			}
		}
	}

	changed := !resolved.Equal(m.initialAttach)
	if changed {
		m.logLocal("initial attach %s -> %s", attachOrNone(m.initialAttach), attachOrNone(resolved))
	}
	m.initialAttach = resolved
	return changed && resolved != nil
}

// SetPreferred records p as the preferred profile in the store and
// rebuilds. No-op when a preferred profile is already resolved
// (first successful connection wins). A nil p clears the override.
// This is the only path that mutates the store. Callers racing each
// other are serialized; the loser re-checks after the winner's rebuild
// and backs off.
func (m *Manager) SetPreferred(p *profile.Profile) error {
	m.prefMu.Lock()
	defer m.prefMu.Unlock()

	m.mu.RLock()
	hasPreferred := m.preferred != nil
	subID := m.cfg.SubscriptionID()
	m.mu.RUnlock()

	if hasPreferred && p != nil {
		return nil
	}

	var rowID int64
	if p != nil {
		rowID = p.AccessPoint.RowID
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeQueryTimeout)
	err := m.store.WritePreferredOverride(ctx, subID, rowID)
	cancel()
	if m.audit != nil {
		m.audit.LogAction("set_preferred", subID, map[string]interface{}{"rowId": rowID}, err)
	}
	if err != nil {
		return fmt.Errorf("failed to write preferred override: %w", err)
	}

	m.logLocal("preferred override written: row %d", rowID)
	m.Rebuild(TriggerPreference)
	return nil
}

// OnInternetConnected handles the signal that internet connections using
// the given store rows are confirmed healthy. Among the known connected
// profiles the one with the most recent last-used timestamp becomes
// preferred, but only when no preferred profile exists yet.
func (m *Manager) OnInternetConnected(rowIDs []int64) error {
	m.mu.RLock()
	var chosen *profile.Profile
	for _, id := range rowIDs {
		p := m.findByRowIDLocked(id)
		if p == nil {
			continue
		}
		if chosen == nil || p.LastUsed.After(chosen.LastUsed) {
			chosen = p
		}
	}
	hasPreferred := m.preferred != nil
	chosen = chosen.Clone()
	m.mu.RUnlock()

	if chosen == nil {
		return fmt.Errorf("no known profile among connected rows %v", rowIDs)
	}
	if hasPreferred {
		return nil
	}
	return m.SetPreferred(chosen)
}

// MarkUsed stamps the profile with the given store row id as used now.
// Reports whether the row is known.
func (m *Manager) MarkUsed(rowID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.findByRowIDLocked(rowID)
	if p == nil {
		return false
	}
	p.LastUsed = time.Now()
	return true
}

// Snapshot returns an independent copy of the reconciled state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Profiles:       m.cloneProfilesLocked(),
		Preferred:      m.preferred.Clone(),
		InitialAttach:  m.initialAttach.Clone(),
		PreferredSetID: m.preferredSetID,
	}
}

// Preferred returns a copy of the current preferred profile, nil if none.
func (m *Manager) Preferred() *profile.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.preferred.Clone()
}

// InitialAttach returns a copy of the current initial-attach profile,
// nil if none.
func (m *Manager) InitialAttach() *profile.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialAttach.Clone()
}

// PreferredSetID returns the current preferred set id.
func (m *Manager) PreferredSetID() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.preferredSetID
}

// Dump returns the snapshot plus the bounded transition log, for the
// diagnostic surface.
func (m *Manager) Dump() (Snapshot, []string) {
	snap := m.Snapshot()
	m.localMu.Lock()
	defer m.localMu.Unlock()
	entries := make([]string, len(m.localLog))
	copy(entries, m.localLog)
	return snap, entries
}

func (m *Manager) cloneProfilesLocked() []*profile.Profile {
	out := make([]*profile.Profile, len(m.profiles))
	for i, p := range m.profiles {
		out[i] = p.Clone()
	}
	return out
}

func (m *Manager) findByRowIDLocked(rowID int64) *profile.Profile {
	if rowID == 0 {
		return nil
	}
	for _, p := range m.profiles {
		if p.AccessPoint.RowID == rowID {
			return p
		}
	}
	return nil
}

func (m *Manager) logLocal(format string, args ...interface{}) {
	m.localMu.Lock()
	defer m.localMu.Unlock()
	entry := time.Now().UTC().Format(time.RFC3339) + " " + fmt.Sprintf(format, args...)
	m.localLog = append(m.localLog, entry)
	if len(m.localLog) > localLogSize {
		m.localLog = m.localLog[len(m.localLog)-localLogSize:]
	}
}

// anySatisfies reports whether any profile satisfies all of caps.
func anySatisfies(profiles []*profile.Profile, caps profile.Capability) bool {
	for _, p := range profiles {
		if p.CanSatisfy(caps) {
			return true
		}
	}
	return false
}

// findEqual returns the first structurally equal profile in set, nil if
// absent.
func findEqual(set []*profile.Profile, target *profile.Profile) *profile.Profile {
	for _, p := range set {
		if p.Equal(target) {
			return p
		}
	}
	return nil
}

// sameProfileSet compares two sets structurally, ignoring order and the
// mutable preferred/last-used fields.
func sameProfileSet(a, b []*profile.Profile) bool {
	if len(a) != len(b) {
		return false
	}
	for _, p := range a {
		if findEqual(b, p) == nil {
			return false
		}
	}
	return true
}

func attachOrNone(p *profile.Profile) string {
	if p == nil {
		return "none"
	}
	return p.String()
}
