// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package ssh renders RSA public keys in OpenSSH form. Snowflake never sees
// this format; it is offered so a key can be matched against tooling that
// speaks authorized_keys.
package ssh // import "github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/ssh"

import (
	"crypto/rsa"
	"fmt"
	"strings"

	"golang.org/x/crypto/ssh"
)

// AuthorizedKey returns pub as a single authorized_keys line with an optional comment.
func AuthorizedKey(pub *rsa.PublicKey, comment string) (string, error) {
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to create SSH public key: %w", err)
	}
	line := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))
	if comment != "" {
		line = fmt.Sprintf("%s %s", line, comment)
	}
	return line, nil
}

// FingerprintSHA256 is the OpenSSH-style fingerprint of pub. It hashes the SSH
// wire encoding, so it differs from the Snowflake RSA_PUBLIC_KEY_FP value.
func FingerprintSHA256(pub *rsa.PublicKey) (string, error) {
	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return "", fmt.Errorf("failed to create SSH public key: %w", err)
	}
	return ssh.FingerprintSHA256(sshPub), nil
}
