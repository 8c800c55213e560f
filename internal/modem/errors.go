package modem

import (
	"errors"
	"fmt"
	"strings"
)

// Normalized modem error codes.
var (
	ErrBusy        = errors.New("BUSY")
	ErrUnavailable = errors.New("UNAVAILABLE")
	ErrInternal    = errors.New("INTERNAL")
)

// VendorMap defines the error token mapping for a specific modem vendor.
type VendorMap struct {
	Busy        []string // Tokens that map to BUSY
	Unavailable []string // Tokens that map to UNAVAILABLE
}

// VendorErrorMappings contains the deterministic error mapping tables.
// Unknown tokens map to INTERNAL; unknown vendors fall back to "generic".
var VendorErrorMappings = map[string]VendorMap{
	"ril": {
		Busy: []string{
			"RADIO_BUSY",
			"OPERATION_IN_PROGRESS",
			"COMMAND_QUEUE_FULL",
			"RATE_LIMITED",
		},
		Unavailable: []string{
			"RADIO_NOT_AVAILABLE",
			"RADIO_OFF",
			"MODEM_REBOOTING",
			"SIM_ABSENT",
			"NOT_READY",
		},
	},
	"generic": {
		Busy: []string{
			"BUSY",
			"RETRY",
			"RATE_LIMIT",
			"BACKOFF",
		},
		Unavailable: []string{
			"UNAVAILABLE",
			"REBOOT",
			"OFFLINE",
			"NOT_READY",
		},
	},
}

// VendorError wraps a raw modem error with its normalized code and any
// opaque vendor diagnostics.
type VendorError struct {
	Code     error       // Normalized code
	Original error       // Vendor error
	Details  interface{} // Vendor payload (opaque)
}

func (e *VendorError) Error() string {
	return fmt.Sprintf("%v (vendor: %v)", e.Code, e.Original)
}

func (e *VendorError) Unwrap() error {
	return e.Code
}

// NormalizeVendorError maps a modem error to a normalized code using the
// generic token table.
func NormalizeVendorError(vendorErr error, vendorPayload interface{}) error {
	return NormalizeVendorErrorWithVendor(vendorErr, vendorPayload, "generic")
}

// NormalizeVendorErrorWithVendor maps a modem error using a specific
// vendor's token table.
func NormalizeVendorErrorWithVendor(vendorErr error, vendorPayload interface{}, vendorID string) error {
	if vendorErr == nil {
		return nil
	}
	return &VendorError{
		Code:     mapVendorErrorToCode(vendorErr.Error(), vendorID),
		Original: vendorErr,
		Details:  vendorPayload,
	}
}

// mapVendorErrorToCode matches tokens against the vendor table.
func mapVendorErrorToCode(msg string, vendorID string) error {
	vendorMap, exists := VendorErrorMappings[vendorID]
	if !exists {
		vendorMap = VendorErrorMappings["generic"]
	}

	upperMsg := strings.ToUpper(msg)

	for _, token := range vendorMap.Busy {
		if strings.Contains(upperMsg, token) {
			return ErrBusy
		}
	}
	for _, token := range vendorMap.Unavailable {
		if strings.Contains(upperMsg, token) {
			return ErrUnavailable
		}
	}
	return ErrInternal
}

// CodeString flattens a (possibly wrapped) modem error into the stable
// code used for metrics labels.
func CodeString(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrBusy):
		return "BUSY"
	case errors.Is(err, ErrUnavailable):
		return "UNAVAILABLE"
	default:
		return "INTERNAL"
	}
}
