// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Entry is one recorded key event.
type Entry struct {
	bun.BaseModel `bun:"table:key_events"`

	ID          int64     `bun:"id,pk,autoincrement"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
	Action      string    `bun:"action,notnull"`
	User        string    `bun:"user_name"`
	Fingerprint string    `bun:"fingerprint"`
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	User        string
	Fingerprint string
	Limit       int
}

// now is swapped in tests.
var now = func() time.Time { return time.Now().UTC() }

// LogAction records an event. It satisfies the audit writer used by the
// provisioning operations.
func (s *Store) LogAction(ctx context.Context, action, user, fingerprint string) error {
	e := &Entry{CreatedAt: now(), Action: action, User: user, Fingerprint: fingerprint}
	if _, err := s.db.NewInsert().Model(e).Exec(ctx); err != nil {
		return MapDBError(fmt.Errorf("failed to record %s: %w", action, err))
	}
	return nil
}

// List returns entries, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	var entries []Entry
	q := s.db.NewSelect().Model(&entries).OrderExpr("id DESC")
	if f.User != "" {
		q = q.Where("user_name = ?", f.User)
	}
	if f.Fingerprint != "" {
		q = q.Where("fingerprint = ?", f.Fingerprint)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	return entries, nil
}

// AssignedTo returns the fingerprint most recently assigned to user, or ""
// when the latest event for user removed the key.
func (s *Store) AssignedTo(ctx context.Context, user, assignAction, deassignAction string) (string, error) {
	var entries []Entry
	err := s.db.NewSelect().Model(&entries).
		Where("user_name = ?", user).
		Where("action IN (?)", bun.In([]string{assignAction, deassignAction})).
		OrderExpr("id DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to query ledger: %w", err)
	}
	if len(entries) == 0 || entries[0].Action == deassignAction {
		return "", nil
	}
	return entries[0].Fingerprint, nil
}
