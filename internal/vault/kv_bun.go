// Copyright (c) 2026 Tessera Team
// Tessera - two-factor authentication code manager
// This source code is licensed under the MIT license found in the LICENSE file.
package vault

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
)

// EntryModel is the bun mapping for the key-value table.
type EntryModel struct {
	bun.BaseModel `bun:"table:vault_entries"`
	Key           string    `bun:"key,pk"`
	Value         []byte    `bun:"value"`
	UpdatedAt     time.Time `bun:"updated_at"`
}

// AuditLogModel is the bun mapping for the audit trail.
type AuditLogModel struct {
	bun.BaseModel `bun:"table:audit_log"`
	ID            int       `bun:"id,pk,autoincrement"`
	Timestamp     time.Time `bun:"timestamp"`
	Action        string    `bun:"action"`
	Details       string    `bun:"details"`
}

// bunVault implements Vault on top of a bun.DB, independent of dialect.
type bunVault struct {
	db *bun.DB
}

func (v *bunVault) Get(ctx context.Context, key string) ([]byte, error) {
	var e EntryModel
	err := v.db.NewSelect().Model(&e).Where("? = ?", bun.Ident("key"), key).Limit(1).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "read", Err: err}
	}
	return e.Value, nil
}

func (v *bunVault) Put(ctx context.Context, key string, value []byte) error {
	e := EntryModel{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	// Replace semantics, portable across all three dialects: delete the old
	// row and insert the new one inside a single transaction.
	err := v.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*EntryModel)(nil)).Where("? = ?", bun.Ident("key"), key).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&e).Exec(ctx)
		return err
	})
	if err != nil {
		return &StorageError{Op: "write", Err: err}
	}
	return nil
}

func (v *bunVault) Delete(ctx context.Context, key string) error {
	_, err := v.db.NewDelete().Model((*EntryModel)(nil)).Where("? = ?", bun.Ident("key"), key).Exec(ctx)
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	return nil
}

func (v *bunVault) LogAction(ctx context.Context, action, details string) error {
	e := AuditLogModel{Timestamp: time.Now().UTC(), Action: action, Details: details}
	if _, err := v.db.NewInsert().Model(&e).Exec(ctx); err != nil {
		return &StorageError{Op: "audit", Err: err}
	}
	return nil
}

func (v *bunVault) AuditLog(ctx context.Context) ([]AuditLogEntry, error) {
	var rows []AuditLogModel
	err := v.db.NewSelect().Model(&rows).Order("id DESC").Scan(ctx)
	if err != nil {
		return nil, &StorageError{Op: "audit read", Err: err}
	}
	out := make([]AuditLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, AuditLogEntry{ID: r.ID, Timestamp: r.Timestamp, Action: r.Action, Details: r.Details})
	}
	return out, nil
}

func (v *bunVault) Close() error {
	return v.db.Close()
}
