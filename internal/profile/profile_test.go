package profile

import (
	"testing"
	"time"
)

func makeTestProfile(name string, typeMask AccessPointType, setID int) *Profile {
	return &Profile{
		AccessPoint: AccessPoint{
			RowID:           1,
			EntryName:       name,
			Name:            name,
			TypeMask:        typeMask,
			Protocol:        ProtocolIP,
			RoamingProtocol: ProtocolIP,
			Enabled:         true,
			SetID:           setID,
		},
	}
}

func TestEqualIgnoresMutableFields(t *testing.T) {
	a := makeTestProfile("internet", TypeDefault, NoSetID)
	b := makeTestProfile("internet", TypeDefault, NoSetID)

	b.Preferred = true
	b.LastUsed = time.Now()

	if !a.Equal(b) {
		t.Error("Profiles with identical descriptors should be equal regardless of mutable fields")
	}
}

func TestEqualDescriptorFields(t *testing.T) {
	a := makeTestProfile("internet", TypeDefault, NoSetID)

	b := makeTestProfile("internet", TypeDefault, NoSetID)
	b.AccessPoint.Name = "other"
	if a.Equal(b) {
		t.Error("Profiles with different access point names should not be equal")
	}

	c := makeTestProfile("internet", TypeDefault, NoSetID)
	c.AccessPoint.SetID = 3
	if a.Equal(c) {
		t.Error("Profiles with different set ids should not be equal")
	}

	d := makeTestProfile("internet", TypeDefault, NoSetID)
	d.TrafficDescriptor = &TrafficDescriptor{DNN: "internet"}
	if a.Equal(d) {
		t.Error("Profiles differing in traffic descriptor should not be equal")
	}
}

func TestEqualNil(t *testing.T) {
	var a *Profile
	if a.Equal(makeTestProfile("internet", TypeDefault, NoSetID)) {
		t.Error("nil profile should not equal a non-nil profile")
	}
	if !a.Equal(nil) {
		t.Error("nil profiles should be equal")
	}
}

func TestCanSatisfy(t *testing.T) {
	p := makeTestProfile("combo", TypeDefault|TypeSUPL, NoSetID)

	if !p.CanSatisfy(CapabilityInternet) {
		t.Error("Default type should satisfy internet capability")
	}
	if !p.CanSatisfy(CapabilityInternet | CapabilitySUPL) {
		t.Error("Profile should satisfy every requested capability bit")
	}
	if p.CanSatisfy(CapabilityInternet | CapabilityIMS) {
		t.Error("Profile without IMS type should not satisfy an IMS request")
	}
}

func TestCanSupportNetworkType(t *testing.T) {
	p := makeTestProfile("lte-only", TypeDefault, NoSetID)
	p.AccessPoint.NetworkTypeMask = NetworkLTE

	if !p.CanSupportNetworkType(NetworkLTE) {
		t.Error("Profile should support its declared network type")
	}
	if p.CanSupportNetworkType(NetworkNR) {
		t.Error("Profile should not support an undeclared network type")
	}

	// Zero mask means every network type.
	any := makeTestProfile("any", TypeDefault, NoSetID)
	if !any.CanSupportNetworkType(NetworkNR) {
		t.Error("Profile with zero network type mask should support any type")
	}
}

func TestTypeCapabilityMapping(t *testing.T) {
	cases := []struct {
		apType AccessPointType
		cap    Capability
	}{
		{TypeDefault, CapabilityInternet},
		{TypeIMS, CapabilityIMS},
		{TypeEmergency, CapabilityEmergency},
		{TypeIA, CapabilityIA},
		{TypeEnterprise, CapabilityEnterprise},
	}
	for _, tc := range cases {
		if got := tc.apType.Capability(); got != tc.cap {
			t.Errorf("Type %s mapped to capability %s, want %s", tc.apType, got, tc.cap)
		}
	}
}

func TestDefaultProfiles(t *testing.T) {
	ims := DefaultIMS()
	if !ims.CanSatisfy(CapabilityIMS) {
		t.Error("Default IMS profile should satisfy the IMS capability")
	}
	if ims.AccessPoint.SetID != MatchAllSetID {
		t.Errorf("Default IMS profile set id = %d, want match-all (%d)", ims.AccessPoint.SetID, MatchAllSetID)
	}
	if ims.AccessPoint.Protocol != ProtocolIPv4v6 || ims.AccessPoint.RoamingProtocol != ProtocolIPv4v6 {
		t.Error("Default profiles should use dual-stack addressing")
	}
	if ims.AccessPoint.RowID != 0 {
		t.Error("Synthesized profiles should have no store row id")
	}

	eims := DefaultEmergency()
	if !eims.CanSatisfy(CapabilityEmergency) {
		t.Error("Default emergency profile should satisfy the emergency capability")
	}
	if eims.AccessPoint.Name != "sos" {
		t.Errorf("Default emergency access point name = %q, want \"sos\"", eims.AccessPoint.Name)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	p := makeTestProfile("internet", TypeDefault, NoSetID)
	p.TrafficDescriptor = &TrafficDescriptor{DNN: "internet"}

	clone := p.Clone()
	clone.AccessPoint.Name = "changed"
	clone.TrafficDescriptor.DNN = "changed"

	if p.AccessPoint.Name != "internet" {
		t.Error("Mutating a clone should not affect the original descriptor")
	}
	if p.TrafficDescriptor.DNN != "internet" {
		t.Error("Mutating a clone should not affect the original traffic descriptor")
	}
}

func TestParseRoundTrips(t *testing.T) {
	if c, err := ParseCapability("ims"); err != nil || c != CapabilityIMS {
		t.Errorf("ParseCapability(ims) = %v, %v", c, err)
	}
	if _, err := ParseCapability("bogus"); err == nil {
		t.Error("ParseCapability should reject unknown names")
	}
	if tp, err := ParseAccessPointType("IA"); err != nil || tp != TypeIA {
		t.Errorf("ParseAccessPointType(IA) = %v, %v", tp, err)
	}
	if nt, err := ParseNetworkType("lte"); err != nil || nt != NetworkLTE {
		t.Errorf("ParseNetworkType(lte) = %v, %v", nt, err)
	}
	if !Protocol("IPV4V6").Valid() {
		t.Error("IPV4V6 should be a valid protocol")
	}
	if Protocol("PPP").Valid() {
		t.Error("PPP should not be a valid protocol")
	}
}
