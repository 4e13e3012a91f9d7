// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

package jwtgen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// GrantTypeJWTBearer is the RFC 7523 grant type.
const GrantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// maxResponseSize bounds how much of a token response is read.
const maxResponseSize = 1 << 20

// ErrAuthExchange is returned when the token endpoint answers with a non-2xx status.
var ErrAuthExchange = errors.New("token exchange failed")

// Scope is the OAuth scope for endpoint, prefixed with the session role when set.
func Scope(endpoint, role string) string {
	if role == "" {
		return endpoint
	}
	return strings.TrimSpace("session:role:" + role + " " + endpoint)
}

// ExchangeToken posts the current token to the OAuth endpoint and returns the
// response body unchanged. Empty arguments fall back to the issuer options.
// There are no retries.
func (i *Issuer) ExchangeToken(ctx context.Context, authURL, endpoint, role string) (string, error) {
	authURL = firstNonEmpty(authURL, i.authURL)
	endpoint = firstNonEmpty(endpoint, i.endpoint)
	role = firstNonEmpty(role, i.role)
	if authURL == "" {
		return "", fmt.Errorf("%w: no auth url", ErrConfiguration)
	}

	assertion, err := i.Token()
	if err != nil {
		return "", err
	}
	form := url.Values{
		"grant_type": {GrantTypeJWTBearer},
		"scope":      {Scope(endpoint, role)},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s returned status %d: %s", ErrAuthExchange, authURL, resp.StatusCode, truncate(string(body), 256))
	}
	return string(body), nil
}

// AuthHeaders returns the Authorization header carrying the exchanged token.
func (i *Issuer) AuthHeaders(ctx context.Context, authURL, endpoint, role string) (http.Header, error) {
	tok, err := i.ExchangeToken(ctx, authURL, endpoint, role)
	if err != nil {
		return nil, err
	}
	h := http.Header{}
	h.Set("Authorization", `Snowflake Token="`+tok+`"`)
	return h, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
