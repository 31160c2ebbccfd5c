package port

// EngineMetrics records business counters on the engine's hot paths. A nil
// EngineMetrics is never dereferenced; services skip recording instead.
type EngineMetrics interface {
	// LoginAttempt counts one authentication attempt by outcome, e.g.
	// "success", "invalid_credentials", "inactive", "rate_limited", "error".
	LoginAttempt(outcome string)
	TokenIssued()
	// TokenRevoked counts one revocation; scope is "token" for a single
	// credential and "subject" for a revoke-all marker.
	TokenRevoked(scope string)
	AuditWriteFailure()
}
