package modem

import (
	"errors"
	"testing"
)

func TestNormalizeVendorErrorNil(t *testing.T) {
	if err := NormalizeVendorError(nil, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestNormalizeVendorErrorBusy(t *testing.T) {
	raw := errors.New("modem reports BUSY, try later")
	err := NormalizeVendorError(raw, nil)
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected BUSY, got %v", err)
	}

	var ve *VendorError
	if !errors.As(err, &ve) {
		t.Fatal("expected *VendorError")
	}
	if ve.Original != raw {
		t.Errorf("original not preserved: %v", ve.Original)
	}
}

func TestNormalizeVendorErrorUnavailable(t *testing.T) {
	err := NormalizeVendorError(errors.New("transport offline"), nil)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected UNAVAILABLE, got %v", err)
	}
}

func TestNormalizeVendorErrorUnknownToken(t *testing.T) {
	err := NormalizeVendorError(errors.New("segfault in vendor blob"), nil)
	if !errors.Is(err, ErrInternal) {
		t.Fatalf("expected INTERNAL, got %v", err)
	}
}

func TestNormalizeVendorErrorRilTable(t *testing.T) {
	cases := []struct {
		msg  string
		want error
	}{
		{"RADIO_BUSY", ErrBusy},
		{"OPERATION_IN_PROGRESS on slot 0", ErrBusy},
		{"RADIO_NOT_AVAILABLE", ErrUnavailable},
		{"SIM_ABSENT", ErrUnavailable},
		{"unknown vendor failure", ErrInternal},
	}
	for _, tc := range cases {
		err := NormalizeVendorErrorWithVendor(errors.New(tc.msg), nil, "ril")
		if !errors.Is(err, tc.want) {
			t.Errorf("msg %q: expected %v, got %v", tc.msg, tc.want, err)
		}
	}
}

func TestNormalizeVendorErrorUnknownVendorFallsBack(t *testing.T) {
	err := NormalizeVendorErrorWithVendor(errors.New("please RETRY"), nil, "no-such-vendor")
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected generic fallback BUSY, got %v", err)
	}
}

func TestNormalizeVendorErrorCaseInsensitive(t *testing.T) {
	err := NormalizeVendorError(errors.New("busy"), nil)
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected BUSY for lowercase token, got %v", err)
	}
}

func TestCodeString(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ErrBusy, "BUSY"},
		{NormalizeVendorError(errors.New("offline"), nil), "UNAVAILABLE"},
		{errors.New("anything else"), "INTERNAL"},
	}
	for _, tc := range cases {
		if got := CodeString(tc.err); got != tc.want {
			t.Errorf("CodeString(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
