// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package jwtgen

import (
	"fmt"
	"os"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/armor"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/keyfmt"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/warehouse"
)

// SessionSource is the part of a warehouse session an issuer needs.
type SessionSource interface {
	Identity() warehouse.Identity
	KeyMaterial() warehouse.KeyMaterial
}

// AuthURL is the OAuth token endpoint for a Snowflake host.
func AuthURL(host string) string {
	return "https://" + host + "/oauth/token"
}

// FromSession builds an issuer for the user and key of an open session. The
// session's role and token endpoint become defaults; opts override them.
func FromSession(s SessionSource, opts ...Option) (*Issuer, error) {
	id := s.Identity()
	host := id.Host
	if host == "" {
		host = warehouse.DefaultHost(id.Account)
	}
	opts = append([]Option{WithAuthURL(AuthURL(host)), WithRole(id.Role)}, opts...)

	km := s.KeyMaterial()
	switch {
	case len(km.DER) > 0:
		key, err := keyfmt.ParsePrivate(km.DER, "")
		if err != nil {
			return nil, err
		}
		return New(id.Account, id.User, key, opts...)
	case km.PEM != "":
		return FromPEMText(km.PEM, "", id.Account, id.User, opts...)
	case km.File != "":
		return FromPEMFile(km.File, km.FilePassword.Reveal(), id.Account, id.User, opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrMissingKeyMaterial, id.User)
	}
}

// FromPEMText builds an issuer from PEM text, armored or bare.
func FromPEMText(text, password, account, user string, opts ...Option) (*Issuer, error) {
	data := keyfmt.Encode(armor.Wrap(text, armor.PrivateKey, password != ""))
	key, err := keyfmt.ParsePrivate(data, password)
	if err != nil {
		return nil, err
	}
	return New(account, user, key, opts...)
}

// FromPEMFile builds an issuer from a PEM key file.
func FromPEMFile(path, password, account, user string, opts ...Option) (*Issuer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	key, err := keyfmt.ParsePrivate(data, password)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(account, user, key, opts...)
}
