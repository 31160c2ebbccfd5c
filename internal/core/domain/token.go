package domain

import "time"

// IssuedToken describes a freshly signed bearer credential. The credential
// itself is never persisted; only the TokenID enters the revocation registry
// when the credential is invalidated early.
type IssuedToken struct {
	Credential string
	TokenID    string
	UserID     string
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

// ExpiresIn returns the remaining lifetime in whole seconds at issue time.
func (t IssuedToken) ExpiresIn() int64 {
	return int64(t.ExpiresAt.Sub(t.IssuedAt) / time.Second)
}

// TokenClaims is the verified view of a presented credential.
type TokenClaims struct {
	UserID    string
	TokenID   string
	Roles     []string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SubjectRevocation marks every credential of a subject issued at or before
// Since as revoked, without enumerating individual token identifiers.
type SubjectRevocation struct {
	SubjectID string
	Since     time.Time
	Reason    string
}

// Covers reports whether a credential issued at the supplied instant falls
// under this revocation marker.
func (r SubjectRevocation) Covers(issuedAt time.Time) bool {
	return !issuedAt.After(r.Since)
}

// PasswordResetToken is a single-use reset artifact. Only the sha256 hash of
// the raw secret is stored; the plaintext leaves the service exactly once,
// in the reset notification.
type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	IP        *string
	UserAgent *string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
	RevokedAt *time.Time
}

// IsExpired reports whether the reset token can still be redeemed.
func (t PasswordResetToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}
