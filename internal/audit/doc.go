// Package audit provides append-only JSONL audit logging for
// state-changing profile operations.
package audit
