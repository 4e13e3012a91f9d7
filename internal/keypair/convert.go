// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package keypair

import (
	"github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/keyfmt"
)

// DecryptToDER turns an encrypted PEM key into unencrypted DER, the form a
// Snowflake connector accepts as its private key.
func DecryptToDER(pemBytes []byte, password string) ([]byte, error) {
	kp, err := FromPEM(pemBytes, password)
	if err != nil {
		return nil, err
	}
	return kp.PrivateDER(false)
}

// EncryptDERToPEM turns unencrypted DER into encrypted PEM text under password.
func EncryptDERToPEM(der []byte, password string) (string, error) {
	kp, err := FromDER(der, "")
	if err != nil {
		return "", err
	}
	if kp, err = kp.WithPassword(password); err != nil {
		return "", err
	}
	return kp.PrivateString()
}

// EnsureEncrypted returns an encrypted PEM key and its password. A non-empty
// password means privateKey is already encrypted with it; otherwise privateKey
// is taken as unencrypted and encrypted under a generated password.
func EnsureEncrypted(privateKey, password string) (string, string, error) {
	if password != "" {
		return privateKey, password, nil
	}
	kp, err := FromPEMString(privateKey, "")
	if err != nil {
		return "", "", err
	}
	encrypted, err := kp.PrivateString()
	if err != nil {
		return "", "", err
	}
	return encrypted, kp.Password(), nil
}

// Transcode re-serializes key material from one container to another, decrypting
// with inPassword and encrypting with outPassword (empty for unencrypted output).
func Transcode(data []byte, inPassword string, out keyfmt.Container, outPassword string) ([]byte, error) {
	key, err := keyfmt.ParsePrivate(data, inPassword)
	if err != nil {
		return nil, err
	}
	return keyfmt.MarshalPrivate(key, outPassword, out)
}
