// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package jwtgen issues the RS256 tokens Snowflake accepts for key-pair
// authentication and exchanges them at the OAuth token endpoint.
//
// An Issuer caches its token and signs a new one only once the renewal delay
// has passed, so callers can ask for a token on every request.
package jwtgen // import "github.com/xorq-labs/snowflake-keypair-helper/internal/jwtgen"

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/keyfmt"
	"github.com/xorq-labs/snowflake-keypair-helper/internal/warehouse"
)

const (
	DefaultLifetime     = 59 * time.Minute
	DefaultRenewalDelay = 54 * time.Minute
)

var (
	// ErrConfiguration is returned for inconsistent issuer settings.
	ErrConfiguration = errors.New("invalid token issuer configuration")
	// ErrMissingKeyMaterial is returned when no private key can be found.
	ErrMissingKeyMaterial = warehouse.ErrMissingKeyMaterial
)

// Clock provides an abstraction over time.Now for testability.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Issuer signs tokens for one account and user.
type Issuer struct {
	account      string
	user         string
	key          *rsa.PrivateKey
	fingerprint  string
	lifetime     time.Duration
	renewalDelay time.Duration
	authURL      string
	endpoint     string
	role         string
	clock        Clock
	httpClient   *http.Client

	cache tokenCache
}

type tokenCache struct {
	mu        sync.Mutex
	token     string
	renewTime time.Time
}

// Option configures an Issuer.
type Option func(*Issuer)

func WithLifetime(d time.Duration) Option     { return func(i *Issuer) { i.lifetime = d } }
func WithRenewalDelay(d time.Duration) Option { return func(i *Issuer) { i.renewalDelay = d } }
func WithClock(c Clock) Option                { return func(i *Issuer) { i.clock = c } }
func WithHTTPClient(c *http.Client) Option    { return func(i *Issuer) { i.httpClient = c } }

// WithAuthURL sets the token endpoint used when ExchangeToken gets none.
func WithAuthURL(u string) Option { return func(i *Issuer) { i.authURL = u } }

// WithEndpoint sets the service endpoint the exchanged token is scoped to.
func WithEndpoint(e string) Option { return func(i *Issuer) { i.endpoint = e } }

// WithRole sets the role the exchanged token is scoped to.
func WithRole(r string) Option { return func(i *Issuer) { i.role = r } }

// New builds an issuer. Account is normalized with NormalizeAccount and user
// is uppercased.
func New(account, user string, key *rsa.PrivateKey, opts ...Option) (*Issuer, error) {
	if key == nil {
		return nil, ErrMissingKeyMaterial
	}
	i := &Issuer{
		account:      NormalizeAccount(account),
		user:         strings.ToUpper(user),
		key:          key,
		lifetime:     DefaultLifetime,
		renewalDelay: DefaultRenewalDelay,
		clock:        systemClock{},
		httpClient:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(i)
	}

	switch {
	case i.account == "" || i.user == "":
		return nil, fmt.Errorf("%w: account and user are required", ErrConfiguration)
	case i.lifetime <= 0:
		return nil, fmt.Errorf("%w: lifetime must be positive, got %s", ErrConfiguration, i.lifetime)
	case i.renewalDelay > i.lifetime:
		return nil, fmt.Errorf("%w: renewal delay must be less than or equal to lifetime but %s > %s",
			ErrConfiguration, i.renewalDelay, i.lifetime)
	}

	fp, err := keyfmt.Fingerprint(&key.PublicKey)
	if err != nil {
		return nil, err
	}
	i.fingerprint = fp
	i.cache.renewTime = i.clock.Now()
	return i, nil
}

// NormalizeAccount reduces an account identifier to the form used in token
// claims: uppercase, without region or cloud suffix. Global accounts
// ("xy12345-abc.global") drop the trailing "-" segment.
func NormalizeAccount(raw string) string {
	upper := strings.ToUpper(raw)
	if strings.Contains(raw, ".global") {
		if i := strings.LastIndex(upper, "-"); i >= 0 {
			return upper[:i]
		}
		return upper
	}
	if i := strings.Index(upper, "."); i >= 0 {
		return upper[:i]
	}
	return upper
}

func (i *Issuer) Account() string { return i.account }
func (i *Issuer) User() string    { return i.user }

// QualifiedUsername is ACCOUNT.USER, the token subject.
func (i *Issuer) QualifiedUsername() string { return i.account + "." + i.user }

// PublicKeyFingerprint is the SHA256 fingerprint embedded in the issuer claim.
func (i *Issuer) PublicKeyFingerprint() string { return i.fingerprint }

// Token returns the cached token, signing a new one once the renewal time
// has been reached.
func (i *Issuer) Token() (string, error) {
	i.cache.mu.Lock()
	defer i.cache.mu.Unlock()

	now := i.clock.Now()
	if i.cache.token != "" && now.Before(i.cache.renewTime) {
		return i.cache.token, nil
	}
	tok, err := i.sign(now)
	if err != nil {
		return "", err
	}
	i.cache.token = tok
	i.cache.renewTime = now.Add(i.renewalDelay)
	return tok, nil
}

func (i *Issuer) sign(now time.Time) (string, error) {
	subject := i.QualifiedUsername()
	claims := jwt.RegisteredClaims{
		Issuer:    subject + "." + i.fingerprint,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.lifetime)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(i.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tok, nil
}
