// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package security holds the redacting wrapper used for passwords and
// passcodes, so a credential struct can be logged or printed without leaking.
package security // import "github.com/xorq-labs/snowflake-keypair-helper/internal/security"

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
)

const redacted = "[SECRET]"

// Secret is a byte slice whose formatted, JSON and text forms are redacted.
type Secret []byte

// FromString copies in into a Secret.
func FromString(in string) Secret { return Secret([]byte(in)) }

func (s Secret) String() string { return redacted }

// Format redacts every verb, including %#v.
func (s Secret) Format(f fmt.State, _ rune) {
	_, _ = io.WriteString(f, redacted)
}

func (s Secret) MarshalJSON() ([]byte, error) { return json.Marshal(redacted) }

func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }

// Reveal returns the plain value. Call it only where the value leaves the
// process on purpose (a driver config, an env file).
func (s Secret) Reveal() string { return string(s) }

// IsZero reports whether no secret is held.
func (s Secret) IsZero() bool { return len(s) == 0 }

// Equal compares in constant time.
func (s Secret) Equal(other Secret) bool {
	return subtle.ConstantTimeCompare(s, other) == 1
}

// Zero overwrites the underlying bytes.
func (s *Secret) Zero() {
	if s == nil {
		return
	}
	for i := range *s {
		(*s)[i] = 0
	}
}
