// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package armor handles the textual BEGIN/END delimiters around PEM bodies.
package armor // import "github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/armor"

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	// ErrDelimiterFormat is returned when text is neither a bare body nor a well-formed armored block.
	ErrDelimiterFormat = errors.New("malformed key delimiters")
	// ErrUnexpectedKeyType is returned when the armor names a different key type than expected.
	ErrUnexpectedKeyType = errors.New("unexpected key type")
)

const (
	PublicKey  = "PUBLIC KEY"
	PrivateKey = "PRIVATE KEY"

	encryptedQualifier = "ENCRYPTED "
)

var (
	armored = regexp.MustCompile(`^\s*-----BEGIN ([A-Z][A-Z ]*?)-----([^-]+)-----END ([A-Z][A-Z ]*?)-----\s*$`)
	bare    = regexp.MustCompile(`^[^-]+$`)
)

// Strip returns the inner body of text and the armor infix (e.g. "PUBLIC KEY").
// Bare input is returned unchanged with an empty infix.
func Strip(text string) (body, infix string, err error) {
	if m := armored.FindStringSubmatch(text); m != nil {
		if m[1] != m[3] {
			return "", "", fmt.Errorf("%w: BEGIN %q does not match END %q", ErrDelimiterFormat, m[1], m[3])
		}
		body = strings.TrimSpace(m[2])
		if body == "" {
			return "", "", fmt.Errorf("%w: empty body", ErrDelimiterFormat)
		}
		return body, m[1], nil
	}
	if bare.MatchString(text) && strings.TrimSpace(text) != "" {
		return strings.TrimSpace(text), "", nil
	}
	return "", "", ErrDelimiterFormat
}

// Wrap adds BEGIN/END armor around body. Text that already starts with a
// delimiter is returned as is.
func Wrap(body, infix string, encrypted bool) string {
	if strings.HasPrefix(strings.TrimSpace(body), "-----") {
		return body
	}
	if encrypted && !strings.HasPrefix(infix, encryptedQualifier) {
		infix = encryptedQualifier + infix
	}
	return strings.Join([]string{
		"-----BEGIN " + infix + "-----",
		strings.TrimSpace(body),
		"-----END " + infix + "-----",
		"",
	}, "\n")
}

// Oneline collapses a key to a single line with no armor and no whitespace.
func Oneline(text string) string {
	body, _, err := Strip(text)
	if err != nil {
		body = text
	}
	return removeWhitespace(body)
}

// StripPublicKey returns the one-line body of a public key, the form
// Snowflake expects in ALTER USER ... SET RSA_PUBLIC_KEY.
func StripPublicKey(text string) (string, error) {
	body, infix, err := Strip(text)
	if err != nil {
		return "", err
	}
	if infix != PublicKey {
		return "", fmt.Errorf("%w: expected %q, got %q", ErrUnexpectedKeyType, PublicKey, infix)
	}
	return removeWhitespace(body), nil
}

func removeWhitespace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
