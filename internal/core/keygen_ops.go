// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"fmt"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/keypair"
)

// GenerateKeypair creates a new keypair and records its fingerprint when an
// audit writer is provided. An empty password is replaced by a generated one.
func GenerateKeypair(ctx context.Context, password string, a AuditWriter) (keypair.Keypair, error) {
	kp, err := keypair.Generate(password)
	if err != nil {
		return keypair.Keypair{}, fmt.Errorf("generate key: %w", err)
	}
	if a != nil {
		fp, err := kp.Fingerprint()
		if err != nil {
			return keypair.Keypair{}, err
		}
		_ = a.LogAction(ctx, ActionGenerateKeypair, "", fp)
	}
	return kp, nil
}
