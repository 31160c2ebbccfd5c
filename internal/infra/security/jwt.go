package security

import (
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	uuid "github.com/google/uuid"
)

var (
	// ErrNoKeyID indicates an operation that needs a key identifier got none.
	ErrNoKeyID = errors.New("jwt: key id required")
	// ErrUnknownKeyID indicates the requested key id is not in the catalogue.
	ErrUnknownKeyID = errors.New("jwt: unknown key id")
)

const defaultAccessTokenTTL = time.Hour

// JWTManager signs credentials with the provider's private key and keeps the
// catalogue of public keys used for verification and JWKS publication.
// Credentials name their signing key via the kid header, so every catalogued
// key stays verifiable through a rotation window.
type JWTManager struct {
	KeyProvider KeyProvider

	mu        sync.RWMutex
	verifiers map[string]*rsa.PublicKey
}

// NewJWTManager builds a manager over the provider. Providers that can
// enumerate their public keys (FileKeyProvider does) have the whole set
// catalogued up front; others are consulted lazily per kid.
func NewJWTManager(provider KeyProvider) *JWTManager {
	m := &JWTManager{
		KeyProvider: provider,
		verifiers:   make(map[string]*rsa.PublicKey),
	}

	if enum, ok := provider.(interface {
		ListVerificationKeys() map[string]*rsa.PublicKey
	}); ok {
		for kid, key := range enum.ListVerificationKeys() {
			_ = m.RegisterPublicKey(kid, key)
		}
	}

	return m
}

// RegisterPublicKey adds a verification key under the given kid. Registered
// keys appear in the JWKS document.
func (m *JWTManager) RegisterPublicKey(kid string, key *rsa.PublicKey) error {
	kid = strings.TrimSpace(kid)
	switch {
	case kid == "":
		return ErrNoKeyID
	case key == nil:
		return fmt.Errorf("jwt: nil public key for %q", kid)
	}

	m.mu.Lock()
	m.verifiers[kid] = key
	m.mu.Unlock()
	return nil
}

// GetVerificationKey resolves a kid to its public key, falling back to the
// provider for keys that were not catalogued at construction.
func (m *JWTManager) GetVerificationKey(kid string) (*rsa.PublicKey, error) {
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return nil, ErrNoKeyID
	}

	m.mu.RLock()
	key, ok := m.verifiers[kid]
	m.mu.RUnlock()
	if ok {
		return key, nil
	}

	if m.KeyProvider != nil {
		if fetched, err := m.KeyProvider.GetVerificationKey(kid); err == nil {
			_ = m.RegisterPublicKey(kid, fetched)
			return fetched, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownKeyID, kid)
}

// SignAccessToken produces a compact RS256 credential carrying the claims,
// stamped with the supplied kid.
func (m *JWTManager) SignAccessToken(kid string, claims *AccessTokenClaims) (string, error) {
	kid = strings.TrimSpace(kid)
	if kid == "" {
		return "", ErrNoKeyID
	}
	if claims == nil {
		return "", fmt.Errorf("jwt: claims required")
	}
	if m.KeyProvider == nil {
		return "", fmt.Errorf("jwt: key provider not configured")
	}

	private, err := m.KeyProvider.GetSigningKey()
	if err != nil {
		return "", fmt.Errorf("jwt: signing key: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(private)
	if err != nil {
		return "", fmt.Errorf("jwt: sign: %w", err)
	}
	return signed, nil
}

// jwk is one RSA signing key in JSON Web Key form.
type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// JWKS renders the catalogued public keys as a JSON Web Key Set. Keys are
// ordered by kid so repeated renders are byte-identical.
func (m *JWTManager) JWKS() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	kids := make([]string, 0, len(m.verifiers))
	for kid, key := range m.verifiers {
		if key != nil {
			kids = append(kids, kid)
		}
	}
	sort.Strings(kids)

	set := jwkSet{Keys: make([]jwk, 0, len(kids))}
	for _, kid := range kids {
		key := m.verifiers[kid]
		set.Keys = append(set.Keys, jwk{
			Kty: "RSA",
			Use: "sig",
			Alg: "RS256",
			Kid: kid,
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		})
	}

	return json.Marshal(set)
}

// AccessTokenClaims is the payload of a signed access credential: registered
// claims plus the subject's role names.
type AccessTokenClaims struct {
	Roles  []string `json:"roles,omitempty"`
	UserID string   `json:"uid"`
	jwt.RegisteredClaims
}

// AccessTokenOptions collects the inputs for a fresh set of claims.
type AccessTokenOptions struct {
	UserID    string
	Roles     []string
	Issuer    string
	Audience  []string
	Subject   string
	TTL       time.Duration
	IssuedAt  time.Time
	NotBefore time.Time
	JTI       string
}

// NewAccessTokenClaims validates the options and fills in defaults: issuance
// now, nbf matching iat, a one hour TTL, and a random jti.
func NewAccessTokenClaims(opts AccessTokenOptions) (*AccessTokenClaims, error) {
	userID := strings.TrimSpace(opts.UserID)
	if userID == "" {
		return nil, fmt.Errorf("jwt: user id is required")
	}
	issuer := strings.TrimSpace(opts.Issuer)
	if issuer == "" {
		return nil, fmt.Errorf("jwt: issuer is required")
	}

	issuedAt := opts.IssuedAt.UTC()
	if opts.IssuedAt.IsZero() {
		issuedAt = time.Now().UTC()
	}
	notBefore := opts.NotBefore.UTC()
	if opts.NotBefore.IsZero() {
		notBefore = issuedAt
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = defaultAccessTokenTTL
	}
	jti := strings.TrimSpace(opts.JTI)
	if jti == "" {
		jti = uuid.NewString()
	}

	return &AccessTokenClaims{
		Roles:  dedupeRoles(opts.Roles),
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strings.TrimSpace(opts.Subject),
			Audience:  opts.Audience,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(notBefore),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
			ID:        jti,
		},
	}, nil
}

// dedupeRoles drops blanks and repeats while keeping first-seen order.
func dedupeRoles(roles []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
