// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package keypair holds the RSA keypair entity and its encoded forms.
//
// A Keypair always carries a password. When none is supplied one is generated,
// so the encrypted forms are available for every keypair. The unencrypted forms
// (PrivatePEMUnencrypted, PrivateDER(false)) are what a Snowflake driver wants;
// the encrypted PEM plus password is what ADBC and the environment files carry.
package keypair // import "github.com/xorq-labs/snowflake-keypair-helper/internal/keypair"

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"fmt"
	"math/big"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/armor"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/keyfmt"
)

const (
	// KeyBits is the only key size produced.
	KeyBits = 2048
	// PasswordLength is the length of generated passwords.
	PasswordLength = 20

	passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

var (
	// ErrTypeInvariant is returned when a keypair is built from an unusable key.
	ErrTypeInvariant = errors.New("private key must be an RSA private key")
)

// Keypair is an RSA private key together with the password used for its
// encrypted forms. The zero value is not usable; build one with a constructor.
type Keypair struct {
	key      *rsa.PrivateKey
	password string
}

// New wraps key. An empty password is replaced by a generated one.
func New(key *rsa.PrivateKey, password string) (Keypair, error) {
	if key == nil || key.N == nil || key.D == nil {
		return Keypair{}, ErrTypeInvariant
	}
	if err := key.Validate(); err != nil {
		return Keypair{}, fmt.Errorf("%w: %v", ErrTypeInvariant, err)
	}
	if password == "" {
		var err error
		if password, err = GeneratePassword(PasswordLength); err != nil {
			return Keypair{}, err
		}
	}
	return Keypair{key: key, password: password}, nil
}

// Generate creates a fresh RSA-2048 keypair.
func Generate(password string) (Keypair, error) {
	key, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return Keypair{}, fmt.Errorf("failed to generate RSA key: %w", err)
	}
	return New(key, password)
}

// GeneratePassword returns n characters drawn uniformly from [A-Za-z0-9].
func GeneratePassword(n int) (string, error) {
	limit := big.NewInt(int64(len(passwordAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		out[i] = passwordAlphabet[idx.Int64()]
	}
	return string(out), nil
}

// FromPEM loads a keypair from PEM bytes. password decrypts an encrypted key;
// for an unencrypted key leave it empty and one is generated.
func FromPEM(data []byte, password string) (Keypair, error) {
	key, err := keyfmt.ParsePrivate(data, password)
	if err != nil {
		return Keypair{}, err
	}
	return New(key, password)
}

// FromPEMString is FromPEM for text that may have lost its armor, as in a
// one-line environment entry.
func FromPEMString(text, password string) (Keypair, error) {
	return FromPEM(keyfmt.Encode(armor.Wrap(text, armor.PrivateKey, password != "")), password)
}

// FromDER loads a keypair from DER bytes.
func FromDER(data []byte, password string) (Keypair, error) {
	key, err := keyfmt.ParsePrivate(data, password)
	if err != nil {
		return Keypair{}, err
	}
	return New(key, password)
}

// WithPassword returns a copy sharing the key but using password.
func (k Keypair) WithPassword(password string) (Keypair, error) {
	return New(k.key, password)
}

// PrivateKey exposes the key for signing.
func (k Keypair) PrivateKey() *rsa.PrivateKey { return k.key }

// Password is the password protecting the encrypted forms.
func (k Keypair) Password() string { return k.password }

// PublicKey is the public half of the keypair.
func (k Keypair) PublicKey() *rsa.PublicKey { return &k.key.PublicKey }

// Equal compares key components and password, never serialized bytes, since
// encrypted serializations differ on every call.
func (k Keypair) Equal(other Keypair) bool {
	if k.key == nil || other.key == nil {
		return k.key == other.key && k.password == other.password
	}
	return k.password == other.password && k.key.Equal(other.key)
}

// PrivateBytes serializes the private key in container c, encrypted with the
// keypair password when encrypted is set.
func (k Keypair) PrivateBytes(c keyfmt.Container, encrypted bool) ([]byte, error) {
	password := ""
	if encrypted {
		password = k.password
	}
	return keyfmt.MarshalPrivate(k.key, password, c)
}

// PrivatePEM is the encrypted PEM form.
func (k Keypair) PrivatePEM() ([]byte, error) {
	return k.PrivateBytes(keyfmt.PEM, true)
}

// PrivateString is the encrypted PEM form as text.
func (k Keypair) PrivateString() (string, error) {
	b, err := k.PrivatePEM()
	if err != nil {
		return "", err
	}
	return keyfmt.DecodeASCII(b)
}

// PrivatePEMUnencrypted is the unencrypted PEM form as text.
func (k Keypair) PrivatePEMUnencrypted() (string, error) {
	b, err := k.PrivateBytes(keyfmt.PEM, false)
	if err != nil {
		return "", err
	}
	return keyfmt.DecodeASCII(b)
}

// PrivateDER is the DER form, optionally encrypted.
func (k Keypair) PrivateDER(encrypted bool) ([]byte, error) {
	return k.PrivateBytes(keyfmt.DER, encrypted)
}

// PublicPEM is the "PUBLIC KEY" PEM form as text.
func (k Keypair) PublicPEM() (string, error) {
	b, err := keyfmt.PublicPEM(k.PublicKey())
	if err != nil {
		return "", err
	}
	return keyfmt.DecodeASCII(b)
}

// Fingerprint is the Snowflake RSA_PUBLIC_KEY_FP of the public key.
func (k Keypair) Fingerprint() (string, error) {
	return keyfmt.Fingerprint(k.PublicKey())
}

// String never prints key material.
func (k Keypair) String() string {
	if k.key == nil {
		return "Keypair(<nil>)"
	}
	fp, err := k.Fingerprint()
	if err != nil {
		return "Keypair(<invalid>)"
	}
	return "Keypair(" + fp + ")"
}
