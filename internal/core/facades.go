// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/keyfmt"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/warehouse"
)

// The Run*Cmd facades pair an operation with its audit record. Audit
// failures never fail the operation.

func RunAssignPublicKeyCmd(ctx context.Context, e Executor, a AuditWriter, user, publicKeyPEM string) ([]warehouse.Record, error) {
	records, err := AssignPublicKey(ctx, e, user, publicKeyPEM, true)
	if err != nil {
		return records, err
	}
	if a != nil {
		fp := ""
		if pub, perr := keyfmt.ParsePublicPEM([]byte(publicKeyPEM)); perr == nil {
			fp, _ = keyfmt.Fingerprint(pub)
		}
		_ = a.LogAction(ctx, ActionAssignPublicKey, user, fp)
	}
	return records, nil
}

func RunDeassignPublicKeyCmd(ctx context.Context, e Executor, a AuditWriter, user string) ([]warehouse.Record, error) {
	records, err := DeassignPublicKey(ctx, e, user)
	if err == nil && a != nil {
		_ = a.LogAction(ctx, ActionDeassignKey, user, "")
	}
	return records, err
}

func RunCreateUserCmd(ctx context.Context, e Executor, a AuditWriter, user, defaultWarehouse string) ([]warehouse.Record, error) {
	records, err := CreateUser(ctx, e, user, defaultWarehouse)
	if err == nil && a != nil {
		_ = a.LogAction(ctx, ActionCreateUser, user, "")
	}
	return records, err
}

func RunGrantModifyAuthRoleCmd(ctx context.Context, e Executor, a AuditWriter, role, onUser, toUser string) ([]warehouse.Record, error) {
	records, err := CreateAndGrantModifyAuthRole(ctx, e, role, onUser, toUser)
	if err == nil && a != nil {
		_ = a.LogAction(ctx, ActionGrantModifyRole, toUser, "")
	}
	return records, err
}
