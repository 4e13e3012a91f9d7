// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/warehouse"
)

// Executor runs SQL on an open warehouse session.
type Executor = warehouse.Executor

// AuditWriter is the minimal contract for recording key events.
type AuditWriter interface {
	LogAction(ctx context.Context, action, user, fingerprint string) error
}

// Audit actions.
const (
	ActionGenerateKeypair = "GENERATE_KEYPAIR"
	ActionAssignPublicKey = "ASSIGN_PUBLIC_KEY"
	ActionDeassignKey     = "DEASSIGN_PUBLIC_KEY"
	ActionCreateUser      = "CREATE_USER"
	ActionGrantModifyRole = "GRANT_MODIFY_AUTH_ROLE"
)
