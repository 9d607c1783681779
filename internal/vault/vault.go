// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.

// package vault provides the durable storage layer for Tessera. It abstracts
// the underlying database (SQLite, PostgreSQL or MySQL) behind a small
// key-value interface: the account collection is persisted as one JSON blob
// under a single fixed key, with replace-not-append semantics.
package vault

import (
	"context"
	"fmt"
	"time"
)

// AccountsKey is the single fixed key under which the serialized account
// collection lives.
const AccountsKey = "totp_accounts"

// ErrNotFound is returned by Get when no value exists for a key.
var ErrNotFound = fmt.Errorf("vault: key not found")

// StorageError reports a durable read/write failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// AuditLogEntry records a mutation for the audit trail.
type AuditLogEntry struct {
	ID        int
	Timestamp time.Time
	Action    string
	Details   string
}

// Vault defines the interface for all durable storage operations. This
// allows multiple database backends (and test fakes) to be implemented.
type Vault interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put atomically replaces the value stored under key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes a key. Deleting a missing key is a no-op.
	Delete(ctx context.Context, key string) error

	// LogAction appends an entry to the audit trail. Audit failures are
	// reported but are not expected to abort the mutation they describe.
	LogAction(ctx context.Context, action, details string) error
	// AuditLog returns the recorded audit entries, newest first.
	AuditLog(ctx context.Context) ([]AuditLogEntry, error)

	// Close releases the underlying database handles.
	Close() error
}

// package-level default vault, set by Init.
var vault Vault

// Init opens the database described by dbType and dsn, runs migrations and
// installs the result as the package default.
func Init(dbType, dsn string) error {
	v, err := NewFromDSN(dbType, dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}
	vault = v
	return nil
}

// IsInitialized reports whether the package-level vault has been set.
func IsInitialized() bool {
	return vault != nil
}

// Default returns the package-level vault. It panics when Init has not been
// called; command setup wires this before any store is constructed.
func Default() Vault {
	if vault == nil {
		panic("vault: not initialized")
	}
	return vault
}
