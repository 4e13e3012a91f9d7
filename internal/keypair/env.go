// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package keypair

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/armor"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/envfile"
)

// Credential field names, before prefixing.
const (
	FieldPrivateKey    = "private_key"
	FieldPublicKey     = "public_key"
	FieldPrivateKeyPwd = "private_key_pwd"
)

// ErrMissingEntry is returned when an environment holds no private key entry.
var ErrMissingEntry = errors.New("missing environment entry")

// EnvOptions controls how a keypair is rendered into environment entries.
type EnvOptions struct {
	Prefix    string
	Encrypted bool
	Oneline   bool
	Export    bool
}

// DefaultEnvOptions is the encrypted, one-line layout under SNOWFLAKE_.
func DefaultEnvOptions() EnvOptions {
	return EnvOptions{Prefix: envfile.DefaultPrefix, Encrypted: true, Oneline: true}
}

// Destination says where ToEnvironmentFile writes.
type Destination interface {
	destination()
}

// ToFile writes the environment text to Path, replacing any previous content.
type ToFile struct {
	Path string
}

// ToStdout prints the environment text. W replaces os.Stdout when set.
type ToStdout struct {
	W io.Writer
}

func (ToFile) destination()   {}
func (ToStdout) destination() {}

// ToEnvironment renders the keypair as ordered entries: private key, public
// key, and the password when the private key is encrypted.
func (k Keypair) ToEnvironment(opts EnvOptions) ([]envfile.Entry, error) {
	var (
		private string
		err     error
	)
	if opts.Encrypted {
		private, err = k.PrivateString()
	} else {
		private, err = k.PrivatePEMUnencrypted()
	}
	if err != nil {
		return nil, err
	}
	public, err := k.PublicPEM()
	if err != nil {
		return nil, err
	}
	if opts.Oneline {
		private, public = armor.Oneline(private), armor.Oneline(public)
	}

	entries := []envfile.Entry{
		{Name: envfile.EnvName(FieldPrivateKey, opts.Prefix), Value: private},
		{Name: envfile.EnvName(FieldPublicKey, opts.Prefix), Value: public},
	}
	if opts.Encrypted {
		entries = append(entries, envfile.Entry{Name: envfile.EnvName(FieldPrivateKeyPwd, opts.Prefix), Value: k.password})
	}
	return entries, nil
}

// ToEnvironmentMap is ToEnvironment as a map.
func (k Keypair) ToEnvironmentMap(opts EnvOptions) (map[string]string, error) {
	entries, err := k.ToEnvironment(opts)
	if err != nil {
		return nil, err
	}
	env := make(map[string]string, len(entries))
	for _, e := range entries {
		env[e.Name] = e.Value
	}
	return env, nil
}

// ToEnvironmentText renders the entries as NAME='value' lines.
func (k Keypair) ToEnvironmentText(opts EnvOptions) (string, error) {
	entries, err := k.ToEnvironment(opts)
	if err != nil {
		return "", err
	}
	return envfile.Render(entries, opts.Export), nil
}

// ToEnvironmentFile writes the environment text to dest and returns dest.
// Files are created with 0600 permissions since they hold key material.
func (k Keypair) ToEnvironmentFile(dest Destination, opts EnvOptions) (Destination, error) {
	text, err := k.ToEnvironmentText(opts)
	if err != nil {
		return nil, err
	}
	switch d := dest.(type) {
	case ToFile:
		if err := os.WriteFile(d.Path, []byte(text+"\n"), 0o600); err != nil {
			return nil, fmt.Errorf("failed to write env file: %w", err)
		}
	case ToStdout:
		w := d.W
		if w == nil {
			w = os.Stdout
		}
		if _, err := fmt.Fprintln(w, text); err != nil {
			return nil, fmt.Errorf("failed to write env text: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported destination %T", dest)
	}
	return dest, nil
}

// FromEnvironment loads a keypair from prefixed entries. A missing password
// entry means the private key is unencrypted.
func FromEnvironment(env map[string]string, prefix string) (Keypair, error) {
	name := envfile.EnvName(FieldPrivateKey, prefix)
	private, ok := env[name]
	if !ok {
		return Keypair{}, fmt.Errorf("%w: %s", ErrMissingEntry, name)
	}
	return FromPEMString(private, env[envfile.EnvName(FieldPrivateKeyPwd, prefix)])
}

// FromEnvironmentFile parses path and loads the keypair from it.
func FromEnvironmentFile(path, prefix string) (Keypair, error) {
	env, err := envfile.ParseFile(path)
	if err != nil {
		return Keypair{}, err
	}
	return FromEnvironment(env, prefix)
}
