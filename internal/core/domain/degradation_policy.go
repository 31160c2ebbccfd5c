package domain

import "strings"

// DegradationPolicyMode enumerates supported behaviors when the revocation
// registry cannot be consulted during credential verification.
type DegradationPolicyMode string

const (
	// DegradationPolicyModeLenient accepts a signature-valid, unexpired
	// credential when revocation state is unavailable.
	DegradationPolicyModeLenient DegradationPolicyMode = "lenient"
	// DegradationPolicyModeStrict rejects credentials whenever revocation
	// state cannot be confirmed.
	DegradationPolicyModeStrict DegradationPolicyMode = "strict"
)

// DegradationReason captures the context for which a fallback decision is evaluated.
type DegradationReason string

const (
	// DegradationReasonRegistryUnavailable denotes revocation registry lookups failed or timed out.
	DegradationReasonRegistryUnavailable DegradationReason = "registry_unavailable"
	// DegradationReasonSubjectMarkerUnavailable denotes subject not-before lookups failed.
	DegradationReasonSubjectMarkerUnavailable DegradationReason = "subject_marker_unavailable"
)

// DegradationPolicy centralizes how verification responds when revocation
// data is missing.
type DegradationPolicy struct {
	mode DegradationPolicyMode
}

// NewDegradationPolicy constructs a policy with the provided mode, defaulting to lenient when unspecified.
func NewDegradationPolicy(mode DegradationPolicyMode) DegradationPolicy {
	if mode != DegradationPolicyModeStrict {
		mode = DegradationPolicyModeLenient
	}
	return DegradationPolicy{mode: mode}
}

// ParseDegradationPolicyMode normalizes textual input into a supported policy mode.
func ParseDegradationPolicyMode(value string) DegradationPolicyMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(DegradationPolicyModeStrict):
		return DegradationPolicyModeStrict
	default:
		return DegradationPolicyModeLenient
	}
}

// Mode returns the underlying policy mode.
func (p DegradationPolicy) Mode() DegradationPolicyMode {
	return p.mode
}

// IsStrict indicates whether the policy rejects degraded states.
func (p DegradationPolicy) IsStrict() bool {
	return p.mode == DegradationPolicyModeStrict
}

// AllowsFallback determines if verification may proceed when the supplied
// reason occurs.
func (p DegradationPolicy) AllowsFallback(reason DegradationReason) bool {
	return !p.IsStrict()
}
