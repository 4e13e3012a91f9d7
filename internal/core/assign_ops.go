// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/armor"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/warehouse"
)

// SuccessStatus is the single-row result Snowflake returns for a successful ALTER USER.
const SuccessStatus = "Statement executed successfully."

// ErrAssignmentVerification is returned when ALTER USER does not report success.
var ErrAssignmentVerification = errors.New("public key assignment was not confirmed")

// AssignPublicKey registers publicKeyPEM as user's RSA_PUBLIC_KEY. With
// assertSuccess the result must be exactly one success status row.
func AssignPublicKey(ctx context.Context, e Executor, user, publicKeyPEM string, assertSuccess bool) ([]warehouse.Record, error) {
	if err := ValidateIdentifier("user", user); err != nil {
		return nil, err
	}
	body, err := armor.StripPublicKey(publicKeyPEM)
	if err != nil {
		return nil, err
	}
	stmt := fmt.Sprintf("ALTER USER %s SET RSA_PUBLIC_KEY='%s';", user, body)
	records, err := e.Exec(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("assign public key to %s: %w", user, err)
	}
	if assertSuccess && !isSuccess(records) {
		return records, fmt.Errorf("%w: user %s: got %v", ErrAssignmentVerification, user, records)
	}
	return records, nil
}

// DeassignPublicKey removes user's RSA_PUBLIC_KEY.
func DeassignPublicKey(ctx context.Context, e Executor, user string) ([]warehouse.Record, error) {
	if err := ValidateIdentifier("user", user); err != nil {
		return nil, err
	}
	records, err := e.Exec(ctx, fmt.Sprintf("ALTER USER %s UNSET RSA_PUBLIC_KEY;", user))
	if err != nil {
		return nil, fmt.Errorf("deassign public key from %s: %w", user, err)
	}
	return records, nil
}

func isSuccess(records []warehouse.Record) bool {
	if len(records) != 1 || len(records[0]) != 1 {
		return false
	}
	status, ok := records[0]["status"]
	return ok && status == SuccessStatus
}
