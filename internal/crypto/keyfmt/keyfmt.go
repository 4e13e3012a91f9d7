// Copyright (c) 2026 xorq-labs
// snowflake-keypair-helper - Snowflake keypair credential management
// This source code is licensed under the MIT license found in the LICENSE file.

// Package keyfmt moves RSA private keys between their PEM and DER containers,
// applying or removing PKCS8 password encryption on the way. It also derives the
// public-key forms used for display, registration and fingerprinting.
package keyfmt // import "github.com/xorq-labs/snowflake-keypair-helper/internal/crypto/keyfmt"

import (
	"bytes"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/youmark/pkcs8"
)

var (
	// ErrFormat is returned when bytes are neither a valid PEM nor a valid DER private key.
	ErrFormat = errors.New("malformed private key")
	// ErrDecryption is returned for a wrong or missing password.
	ErrDecryption = errors.New("incorrect password, could not decrypt key")
	// ErrEncoding is returned when key text contains an invalid byte sequence.
	ErrEncoding = errors.New("invalid byte sequence")
)

// PEM block types.
const (
	BlockPrivateKey          = "PRIVATE KEY"
	BlockEncryptedPrivateKey = "ENCRYPTED PRIVATE KEY"
	BlockRSAPrivateKey       = "RSA PRIVATE KEY"
	BlockPublicKey           = "PUBLIC KEY"

	FingerprintPrefix = "SHA256:"
)

// Container selects the serialization container for a private key.
type Container int

const (
	PEM Container = iota
	DER
)

func (c Container) String() string {
	switch c {
	case PEM:
		return "PEM"
	case DER:
		return "DER"
	default:
		return fmt.Sprintf("Container(%d)", int(c))
	}
}

// encryptionOpts is the strongest PKCS8 scheme supported for both containers:
// PBES2 with PBKDF2-HMAC-SHA256 and AES-256-CBC. Salt and IV are random per call.
var encryptionOpts = &pkcs8.Opts{
	Cipher: pkcs8.AES256CBC,
	KDFOpts: pkcs8.PBKDF2Opts{
		SaltSize:       16,
		IterationCount: 10000,
		HMACHash:       crypto.SHA256,
	},
}

// pkcs5 covers PBES1 and PBES2 (1.2.840.113549.1.5.*), pkcs12pbe the PKCS12 PBE suites.
var (
	oidPKCS5     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5}
	oidPKCS12PBE = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 1}
)

type encryptedPrivateKeyInfo struct {
	EncryptionAlgorithm pkix.AlgorithmIdentifier
	EncryptedData       []byte
}

// Encode converts text to its UTF-8 bytes.
func Encode(text string) []byte {
	return []byte(text)
}

// Decode converts UTF-8 bytes back to text.
func Decode(b []byte) (string, error) {
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: not valid UTF-8", ErrEncoding)
	}
	return string(b), nil
}

// DecodeASCII is Decode restricted to 7-bit ASCII, which all PEM output is.
func DecodeASCII(b []byte) (string, error) {
	for i, c := range b {
		if c >= 0x80 {
			return "", fmt.Errorf("%w: non-ASCII byte 0x%02x at offset %d", ErrEncoding, c, i)
		}
	}
	return string(b), nil
}

// MarshalPrivate serializes key as PKCS8 in the chosen container. A non-empty
// password encrypts the container; an empty one emits it unencrypted.
func MarshalPrivate(key *rsa.PrivateKey, password string, c Container) ([]byte, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil private key", ErrFormat)
	}
	var (
		der       []byte
		err       error
		blockType = BlockPrivateKey
	)
	if password == "" {
		der, err = x509.MarshalPKCS8PrivateKey(key)
	} else {
		der, err = pkcs8.MarshalPrivateKey(key, []byte(password), encryptionOpts)
		blockType = BlockEncryptedPrivateKey
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	switch c {
	case DER:
		return der, nil
	case PEM:
		return pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der}), nil
	default:
		return nil, fmt.Errorf("unsupported container %s", c)
	}
}

// ParsePrivate loads an RSA private key from PEM or DER bytes, detecting the
// container from the content.
func ParsePrivate(data []byte, password string) (*rsa.PrivateKey, error) {
	if block, _ := pem.Decode(data); block != nil {
		if block.Type == BlockRSAPrivateKey {
			return parsePKCS1(block.Bytes, password)
		}
		return parseDER(block.Bytes, password)
	}
	if bytes.Contains(data, []byte("-----BEGIN")) {
		return nil, fmt.Errorf("%w: could not decode PEM block", ErrFormat)
	}
	return parseDER(data, password)
}

// IsEncrypted reports whether der is a PKCS8 EncryptedPrivateKeyInfo.
func IsEncrypted(der []byte) bool {
	var info encryptedPrivateKeyInfo
	rest, err := asn1.Unmarshal(der, &info)
	if err != nil || len(rest) != 0 {
		return false
	}
	alg := info.EncryptionAlgorithm.Algorithm
	return hasPrefix(alg, oidPKCS5) || hasPrefix(alg, oidPKCS12PBE)
}

func parseDER(der []byte, password string) (*rsa.PrivateKey, error) {
	if IsEncrypted(der) {
		if password == "" {
			return nil, fmt.Errorf("%w: key is encrypted but no password was given", ErrDecryption)
		}
		key, err := pkcs8.ParsePKCS8PrivateKey(der, []byte(password))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
		}
		return asRSA(key)
	}

	key, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		// Traditional OpenSSL output is still accepted for unencrypted keys.
		return parsePKCS1(der, password)
	}
	if password != "" {
		return nil, fmt.Errorf("%w: password was given but private key is not encrypted", ErrDecryption)
	}
	return asRSA(key)
}

func parsePKCS1(der []byte, password string) (*rsa.PrivateKey, error) {
	key, err := x509.ParsePKCS1PrivateKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if password != "" {
		return nil, fmt.Errorf("%w: password was given but private key is not encrypted", ErrDecryption)
	}
	return key, nil
}

func asRSA(key any) (*rsa.PrivateKey, error) {
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected an RSA key, got %T", ErrFormat, key)
	}
	return rsaKey, nil
}

// PublicDER returns the DER-encoded SubjectPublicKeyInfo for pub.
func PublicDER(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal public key: %w", err)
	}
	return der, nil
}

// PublicPEM returns pub as a "PUBLIC KEY" PEM block.
func PublicPEM(pub *rsa.PublicKey) ([]byte, error) {
	der, err := PublicDER(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: BlockPublicKey, Bytes: der}), nil
}

// ParsePublicPEM loads an RSA public key from a "PUBLIC KEY" PEM block.
func ParsePublicPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil || block.Type != BlockPublicKey {
		return nil, fmt.Errorf("%w: expected a %q PEM block", ErrFormat, BlockPublicKey)
	}
	pub, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: expected an RSA public key, got %T", ErrFormat, pub)
	}
	return rsaPub, nil
}

// Fingerprint is the base64 SHA-256 digest of the DER public key, tagged "SHA256:".
// Snowflake shows the same value as RSA_PUBLIC_KEY_FP.
func Fingerprint(pub *rsa.PublicKey) (string, error) {
	der, err := PublicDER(pub)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(der)
	return FingerprintPrefix + base64.StdEncoding.EncodeToString(sum[:]), nil
}

func hasPrefix(oid, prefix asn1.ObjectIdentifier) bool {
	if len(oid) < len(prefix) {
		return false
	}
	return oid[:len(prefix)].Equal(prefix)
}
