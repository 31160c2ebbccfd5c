package port

import "github.com/Ezra31448/soap-api/internal/core/domain"

// PasswordPolicyValidator enforces the password policy. The context carries
// account attributes the strength estimator should treat as guessable.
type PasswordPolicyValidator interface {
	Validate(password string, ctx domain.PasswordContext) error
}
