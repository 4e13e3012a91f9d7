// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package core

import (
	"context"
	"testing"
)

func TestGenerateKeypair_NilAudit(t *testing.T) {
	kp, err := GenerateKeypair(context.Background(), "pw", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kp.Password() != "pw" {
		t.Fatalf("expected the given password, got %q", kp.Password())
	}
}

func TestGenerateKeypair_RecordsFingerprint(t *testing.T) {
	a := &spyAuditWriter{}
	kp, err := GenerateKeypair(context.Background(), "", a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fp, _ := kp.Fingerprint()
	if len(a.events) != 1 || a.events[0] != (auditEvent{ActionGenerateKeypair, "", fp}) {
		t.Fatalf("unexpected audit events: %+v", a.events)
	}
}
