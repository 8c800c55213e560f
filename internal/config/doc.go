// Package config implements the carrier configuration source for the Profile Control Container.
//
// Carrier configuration decides whether profiles are carrier specific,
// names the default preferred access point, and orders the access point
// types allowed for initial attach. Values merge from built-in defaults,
// PCC_CARRIER_* environment overrides, and an optional JSON file; the file
// can be watched so edits fire a config-updated trigger.
package config
