// Package store implements the profile store client for the Profile Control Container.
//
// The store is the external authority for carrier profile rows and the
// preferred-profile override. This package exposes a narrow read-mostly
// client interface over it; the only write path is the preferred override,
// which uses delete-then-insert semantics. The production client is backed
// by a local SQLite database; store/fake provides an in-memory double for
// tests.
package store
