package security

import (
	"fmt"

	"github.com/Ezra31448/soap-api/internal/core/domain"
)

const (
	defaultMinPasswordLength = 8
	defaultMinZxcvbnScore    = 1
)

// DefaultPasswordValidator returns the built-in validator enforcing the
// service password policy: minimum length, full character composition, and a
// zxcvbn strength floor.
func DefaultPasswordValidator() *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(defaultMinPasswordLength),
		RequireCompositionRule(),
		RequirePasswordStrengthRule(defaultMinZxcvbnScore),
	)
}

// NewPasswordValidatorWithContext additionally seeds the strength estimator
// with user inputs such as the account email.
func NewPasswordValidatorWithContext(userInputs ...string) *PasswordValidator {
	return NewPasswordValidator(
		MinLengthRule(defaultMinPasswordLength),
		RequireCompositionRule(),
		RequirePasswordStrengthRule(defaultMinZxcvbnScore, userInputs...),
	)
}

// PasswordPolicy adapts the password validator to the domain-level policy
// interface, rebuilding the rule chain per call so contextual inputs reach
// the strength estimator.
type PasswordPolicy struct {
	factory func(inputs []string) *PasswordValidator
}

// NewPasswordPolicy builds the production policy.
func NewPasswordPolicy() *PasswordPolicy {
	return &PasswordPolicy{
		factory: func(inputs []string) *PasswordValidator {
			return NewPasswordValidatorWithContext(inputs...)
		},
	}
}

// Validate checks the password against the policy, feeding the subject's
// email and phone to the estimator so close derivations score low.
func (p *PasswordPolicy) Validate(password string, ctx domain.PasswordContext) error {
	if p == nil || p.factory == nil {
		return fmt.Errorf("password policy not configured")
	}

	inputs := make([]string, 0, 2)
	if trimmed := ctx.Email; trimmed != "" {
		inputs = append(inputs, trimmed)
	}
	if ctx.Phone != nil && *ctx.Phone != "" {
		inputs = append(inputs, *ctx.Phone)
	}

	validator := p.factory(inputs)
	if validator == nil {
		return fmt.Errorf("password validator not configured")
	}

	return validator.Validate(password)
}
