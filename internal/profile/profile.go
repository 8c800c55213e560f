package profile

import (
	"fmt"
	"strings"
	"time"
)

// Profile set id sentinels. A profile carrying MatchAllSetID belongs to
// every profile set; NoSetID marks a profile outside any set grouping.
const (
	MatchAllSetID = -1
	NoSetID       = 0
)

// Capability is a bitmask of network capabilities a connection request may
// demand and a profile may satisfy.
type Capability uint32

// Network capabilities.
const (
	CapabilityInternet Capability = 1 << iota
	CapabilityMMS
	CapabilitySUPL
	CapabilityDUN
	CapabilityFOTA
	CapabilityIMS
	CapabilityCBS
	CapabilityIA
	CapabilityEmergency
	CapabilityMCX
	CapabilityXCAP
	CapabilityEnterprise
)

var capabilityNames = map[Capability]string{
	CapabilityInternet:   "INTERNET",
	CapabilityMMS:        "MMS",
	CapabilitySUPL:       "SUPL",
	CapabilityDUN:        "DUN",
	CapabilityFOTA:       "FOTA",
	CapabilityIMS:        "IMS",
	CapabilityCBS:        "CBS",
	CapabilityIA:         "IA",
	CapabilityEmergency:  "EIMS",
	CapabilityMCX:        "MCX",
	CapabilityXCAP:       "XCAP",
	CapabilityEnterprise: "ENTERPRISE",
}

// String returns the pipe-separated names of the set capability bits.
func (c Capability) String() string {
	if c == 0 {
		return "NONE"
	}
	var names []string
	for bit := Capability(1); bit != 0 && bit <= c; bit <<= 1 {
		if c&bit != 0 {
			if name, ok := capabilityNames[bit]; ok {
				names = append(names, name)
			} else {
				names = append(names, fmt.Sprintf("0x%x", uint32(bit)))
			}
		}
	}
	return strings.Join(names, "|")
}

// ParseCapability resolves a single capability name (case-insensitive).
func ParseCapability(name string) (Capability, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for bit, n := range capabilityNames {
		if n == upper {
			return bit, nil
		}
	}
	return 0, fmt.Errorf("unknown capability %q", name)
}

// AccessPointType is a bitmask of access point types. Each type corresponds
// to exactly one network capability.
type AccessPointType uint32

// Access point types.
const (
	TypeDefault AccessPointType = 1 << iota
	TypeMMS
	TypeSUPL
	TypeDUN
	TypeHIPRI
	TypeFOTA
	TypeIMS
	TypeCBS
	TypeIA
	TypeEmergency
	TypeMCX
	TypeXCAP
	TypeEnterprise
)

var typeNames = map[AccessPointType]string{
	TypeDefault:    "default",
	TypeMMS:        "mms",
	TypeSUPL:       "supl",
	TypeDUN:        "dun",
	TypeHIPRI:      "hipri",
	TypeFOTA:       "fota",
	TypeIMS:        "ims",
	TypeCBS:        "cbs",
	TypeIA:         "ia",
	TypeEmergency:  "emergency",
	TypeMCX:        "mcx",
	TypeXCAP:       "xcap",
	TypeEnterprise: "enterprise",
}

var typeCapabilities = map[AccessPointType]Capability{
	TypeDefault:    CapabilityInternet,
	TypeMMS:        CapabilityMMS,
	TypeSUPL:       CapabilitySUPL,
	TypeDUN:        CapabilityDUN,
	TypeHIPRI:      CapabilityInternet,
	TypeFOTA:       CapabilityFOTA,
	TypeIMS:        CapabilityIMS,
	TypeCBS:        CapabilityCBS,
	TypeIA:         CapabilityIA,
	TypeEmergency:  CapabilityEmergency,
	TypeMCX:        CapabilityMCX,
	TypeXCAP:       CapabilityXCAP,
	TypeEnterprise: CapabilityEnterprise,
}

// String returns the pipe-separated names of the set type bits.
func (t AccessPointType) String() string {
	if t == 0 {
		return "none"
	}
	var names []string
	for bit := AccessPointType(1); bit != 0 && bit <= t; bit <<= 1 {
		if t&bit != 0 {
			if name, ok := typeNames[bit]; ok {
				names = append(names, name)
			} else {
				names = append(names, fmt.Sprintf("0x%x", uint32(bit)))
			}
		}
	}
	return strings.Join(names, "|")
}

// ParseAccessPointType resolves a single type name (case-insensitive).
func ParseAccessPointType(name string) (AccessPointType, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for bit, n := range typeNames {
		if n == lower {
			return bit, nil
		}
	}
	return 0, fmt.Errorf("unknown access point type %q", name)
}

// Capability returns the network capability satisfied by a single type bit.
func (t AccessPointType) Capability() Capability {
	return typeCapabilities[t]
}

// Capabilities expands a type bitmask into the capability bitmask it satisfies.
func (t AccessPointType) Capabilities() Capability {
	var caps Capability
	for bit, c := range typeCapabilities {
		if t&bit != 0 {
			caps |= c
		}
	}
	return caps
}

// NetworkType is a bitmask of radio access technologies.
type NetworkType uint32

// Network types.
const (
	NetworkGPRS NetworkType = 1 << iota
	NetworkEDGE
	NetworkUMTS
	NetworkHSPA
	NetworkLTE
	NetworkNR
)

var networkTypeNames = map[NetworkType]string{
	NetworkGPRS: "GPRS",
	NetworkEDGE: "EDGE",
	NetworkUMTS: "UMTS",
	NetworkHSPA: "HSPA",
	NetworkLTE:  "LTE",
	NetworkNR:   "NR",
}

// String returns the name of a single network type bit.
func (n NetworkType) String() string {
	if name, ok := networkTypeNames[n]; ok {
		return name
	}
	return fmt.Sprintf("0x%x", uint32(n))
}

// ParseNetworkType resolves a single network type name (case-insensitive).
func ParseNetworkType(name string) (NetworkType, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for bit, n := range networkTypeNames {
		if n == upper {
			return bit, nil
		}
	}
	return 0, fmt.Errorf("unknown network type %q", name)
}

// Protocol selects the addressing mode of a data connection.
type Protocol string

// Addressing protocols.
const (
	ProtocolIP     Protocol = "IP"
	ProtocolIPv6   Protocol = "IPV6"
	ProtocolIPv4v6 Protocol = "IPV4V6"
)

// Valid reports whether p is a known protocol value.
func (p Protocol) Valid() bool {
	switch p {
	case ProtocolIP, ProtocolIPv6, ProtocolIPv4v6:
		return true
	}
	return false
}

// AccessPoint is the immutable descriptor of a network profile. RowID is the
// persistent store row the descriptor was read from; synthesized defaults
// carry RowID 0.
type AccessPoint struct {
	RowID           int64           `json:"rowId,omitempty"`
	EntryName       string          `json:"entryName"`
	Name            string          `json:"name"`
	TypeMask        AccessPointType `json:"typeMask"`
	NetworkTypeMask NetworkType     `json:"networkTypeMask"`
	Protocol        Protocol        `json:"protocol"`
	RoamingProtocol Protocol        `json:"roamingProtocol"`
	Enabled         bool            `json:"enabled"`
	SetID           int             `json:"setId"`
}

// TrafficDescriptor optionally routes traffic by data network name or
// application id instead of the access point name.
type TrafficDescriptor struct {
	DNN   string `json:"dnn,omitempty"`
	AppID string `json:"appId,omitempty"`
}

// Profile is a network profile: an access point descriptor plus mutable
// selection bookkeeping. Preferred and LastUsed may be updated in place
// without creating a new logical profile.
type Profile struct {
	AccessPoint       AccessPoint        `json:"accessPoint"`
	TrafficDescriptor *TrafficDescriptor `json:"trafficDescriptor,omitempty"`

	Preferred bool      `json:"preferred"`
	LastUsed  time.Time `json:"lastUsed,omitempty"`
}

// Equal compares the immutable descriptor fields only. Two profiles with
// identical descriptors are interchangeable regardless of preferred flag
// or last-used timestamp.
func (p *Profile) Equal(other *Profile) bool {
	if p == nil || other == nil {
		return p == other
	}
	if p.AccessPoint != other.AccessPoint {
		return false
	}
	if (p.TrafficDescriptor == nil) != (other.TrafficDescriptor == nil) {
		return false
	}
	if p.TrafficDescriptor != nil && *p.TrafficDescriptor != *other.TrafficDescriptor {
		return false
	}
	return true
}

// CanSatisfy reports whether the profile satisfies every requested
// capability bit.
func (p *Profile) CanSatisfy(caps Capability) bool {
	return p.AccessPoint.TypeMask.Capabilities()&caps == caps
}

// CanSupportNetworkType reports whether the profile can be used on the
// given network type. A zero network type mask supports every type.
func (p *Profile) CanSupportNetworkType(networkType NetworkType) bool {
	if p.AccessPoint.NetworkTypeMask == 0 {
		return true
	}
	return p.AccessPoint.NetworkTypeMask&networkType != 0
}

// Clone returns an independent copy of the profile.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	clone := *p
	if p.TrafficDescriptor != nil {
		td := *p.TrafficDescriptor
		clone.TrafficDescriptor = &td
	}
	return &clone
}

// String renders a compact description for logs.
func (p *Profile) String() string {
	if p == nil {
		return "<nil>"
	}
	return fmt.Sprintf("[%s apn=%s types=%s setId=%d rowId=%d preferred=%t]",
		p.AccessPoint.EntryName, p.AccessPoint.Name, p.AccessPoint.TypeMask,
		p.AccessPoint.SetID, p.AccessPoint.RowID, p.Preferred)
}

// DefaultIMS builds the synthesized fallback profile guaranteeing IMS
// registration coverage when the store provides none.
func DefaultIMS() *Profile {
	return defaultProfile("DEFAULT IMS", "ims", TypeIMS)
}

// DefaultEmergency builds the synthesized fallback profile guaranteeing
// emergency-calling coverage when the store provides none.
func DefaultEmergency() *Profile {
	return defaultProfile("DEFAULT EIMS", "sos", TypeEmergency)
}

// defaultProfile builds a synthesized dual-stack profile with the match-all
// set id and no store row.
func defaultProfile(entry, apn string, typeMask AccessPointType) *Profile {
	return &Profile{
		AccessPoint: AccessPoint{
			EntryName:       entry,
			Name:            apn,
			TypeMask:        typeMask,
			Protocol:        ProtocolIPv4v6,
			RoamingProtocol: ProtocolIPv4v6,
			Enabled:         true,
			SetID:           MatchAllSetID,
		},
	}
}
