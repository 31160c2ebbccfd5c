package security

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrKeyNotFound indicates no key is registered under the requested kid.
var ErrKeyNotFound = errors.New("key not found")

// KeyProvider supplies the RSA material for token signing and verification.
type KeyProvider interface {
	GetSigningKey() (*rsa.PrivateKey, error)
	GetVerificationKey(kid string) (*rsa.PublicKey, error)
}

// FileKeyProvider loads PEM-encoded RSA keys from a directory. The kid of
// each key is its file name without extension. The lexically first private
// key becomes the signing key; every key contributes its public half to the
// verification set, so rotated-out keys keep verifying as long as their
// files remain mounted.
type FileKeyProvider struct {
	signingKID   string
	signingKey   *rsa.PrivateKey
	verification map[string]*rsa.PublicKey
}

// NewFileKeyProvider reads every regular file in keyDir and parses it as an
// RSA private key (PKCS#1 or PKCS#8) or public key (PKCS#1 or PKIX).
func NewFileKeyProvider(keyDir string) (*FileKeyProvider, error) {
	entries, err := os.ReadDir(keyDir)
	if err != nil {
		return nil, fmt.Errorf("read key directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	provider := &FileKeyProvider{
		verification: make(map[string]*rsa.PublicKey, len(names)),
	}

	for _, name := range names {
		path := filepath.Join(keyDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read key file %s: %w", path, err)
		}

		block, _ := pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("no PEM block in %s", path)
		}

		kid := strings.TrimSuffix(name, filepath.Ext(name))

		private, public, err := parseRSAKey(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse key %s: %w", path, err)
		}

		if private != nil && provider.signingKey == nil {
			provider.signingKID = kid
			provider.signingKey = private
		}
		provider.verification[kid] = public
	}

	if provider.signingKey == nil {
		return nil, fmt.Errorf("no RSA private key in %s", keyDir)
	}

	return provider, nil
}

func parseRSAKey(der []byte) (*rsa.PrivateKey, *rsa.PublicKey, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, &key.PublicKey, nil
	}
	if parsed, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, nil, fmt.Errorf("unsupported private key type %T", parsed)
		}
		return key, &key.PublicKey, nil
	}
	if key, err := x509.ParsePKCS1PublicKey(der); err == nil {
		return nil, key, nil
	}
	if parsed, err := x509.ParsePKIXPublicKey(der); err == nil {
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return nil, nil, fmt.Errorf("unsupported public key type %T", parsed)
		}
		return nil, key, nil
	}
	return nil, nil, errors.New("not an RSA key in any supported encoding")
}

// SigningKID returns the kid of the active signing key.
func (p *FileKeyProvider) SigningKID() string {
	return p.signingKID
}

// GetSigningKey returns the private key used for signing.
func (p *FileKeyProvider) GetSigningKey() (*rsa.PrivateKey, error) {
	return p.signingKey, nil
}

// GetVerificationKey returns the public key registered under kid.
func (p *FileKeyProvider) GetVerificationKey(kid string) (*rsa.PublicKey, error) {
	key, ok := p.verification[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, kid)
	}
	return key, nil
}

// ListVerificationKeys returns every registered public key keyed by kid.
// The JWT manager uses it to preload the JWKS set.
func (p *FileKeyProvider) ListVerificationKeys() map[string]*rsa.PublicKey {
	keys := make(map[string]*rsa.PublicKey, len(p.verification))
	for kid, key := range p.verification {
		keys[kid] = key
	}
	return keys
}

// NewKeyProvider builds the provider for the given environment. Production
// refuses to start without an explicitly configured key directory; other
// environments fall back to ./secrets.
func NewKeyProvider(env, keyDir string) (KeyProvider, error) {
	if env == "production" && strings.TrimSpace(keyDir) == "" {
		return nil, errors.New("jwt key directory must be configured in production")
	}
	if strings.TrimSpace(keyDir) == "" {
		keyDir = "./secrets"
	}
	return NewFileKeyProvider(keyDir)
}
