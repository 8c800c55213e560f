package manager

import (
	"errors"
	"sort"

	"github.com/profile-control/pcc/internal/profile"
)

// Typed no-match results. Not exceptional: an empty or mismatched set is
// a valid state the caller must handle.
var (
	ErrNoMatchingCapability  = errors.New("NO_MATCHING_CAPABILITY")
	ErrNoMatchingNetworkType = errors.New("NO_MATCHING_NETWORK_TYPE")
	ErrNoMatchingSetID       = errors.New("NO_MATCHING_SET_ID")
)

// Match returns the best profile satisfying every requested capability
// on the given network type, restricted to the active profile set group.
// Pure query, no side effects.
func (m *Manager) Match(caps profile.Capability, networkType profile.NetworkType) (*profile.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := filterByCapability(m.profiles, caps)
	if len(candidates) == 0 {
		return nil, ErrNoMatchingCapability
	}

	var byNetwork []*profile.Profile
	for _, p := range candidates {
		if p.CanSupportNetworkType(networkType) {
			byNetwork = append(byNetwork, p)
		}
	}
	if len(byNetwork) == 0 {
		return nil, ErrNoMatchingNetworkType
	}

	var bySet []*profile.Profile
	for _, p := range byNetwork {
		if m.setIDAllowedLocked(p) {
			bySet = append(bySet, p)
		}
	}
	if len(bySet) == 0 {
		return nil, ErrNoMatchingSetID
	}

	sortCandidates(bySet)
	return bySet[0].Clone(), nil
}

// MatchAll returns every profile satisfying the capabilities, ranked the
// same way Match ranks, without the network-type or set-id narrowing.
func (m *Manager) MatchAll(caps profile.Capability) []*profile.Profile {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := filterByCapability(m.profiles, caps)
	sortCandidates(candidates)

	out := make([]*profile.Profile, len(candidates))
	for i, p := range candidates {
		out[i] = p.Clone()
	}
	return out
}

// IsProfileValid reports whether p is a member of the current set and its
// set id is the wildcard or matches the current preferred set id.
func (m *Manager) IsProfileValid(p *profile.Profile) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	member := findEqual(m.profiles, p)
	if member == nil {
		return false
	}
	return m.setIDAllowedLocked(member)
}

// IsPreferred reports structural equality against the current preferred
// profile.
func (m *Manager) IsPreferred(p *profile.Profile) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.preferred != nil && m.preferred.Equal(p)
}

func (m *Manager) setIDAllowedLocked(p *profile.Profile) bool {
	return p.AccessPoint.SetID == profile.MatchAllSetID || p.AccessPoint.SetID == m.preferredSetID
}

// filterByCapability keeps profiles satisfying every bit of caps.
func filterByCapability(profiles []*profile.Profile, caps profile.Capability) []*profile.Profile {
	var out []*profile.Profile
	for _, p := range profiles {
		if p.CanSatisfy(caps) {
			out = append(out, p)
		}
	}
	return out
}

// sortCandidates orders the preferred profile first, then non-preferred
// profiles by ascending last-used so load spreads to the least recently
// used candidate.
func sortCandidates(profiles []*profile.Profile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		if profiles[i].Preferred != profiles[j].Preferred {
			return profiles[i].Preferred
		}
		return profiles[i].LastUsed.Before(profiles[j].LastUsed)
	})
}
