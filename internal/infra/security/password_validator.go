package security

import (
	"fmt"
	"strings"
	"unicode"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

// PasswordValidationError describes one policy violation. Code is stable and
// machine-readable; Message is safe to surface to the client.
type PasswordValidationError struct {
	Code    string
	Message string
}

func (e *PasswordValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// PasswordRule checks a candidate password against one policy requirement.
type PasswordRule interface {
	Validate(password string) error
}

// PasswordRuleFunc adapts a function to the PasswordRule interface.
type PasswordRuleFunc func(password string) error

func (f PasswordRuleFunc) Validate(password string) error {
	return f(password)
}

// PasswordValidator runs rules in order and stops at the first violation.
type PasswordValidator struct {
	rules []PasswordRule
}

// NewPasswordValidator constructs a validator with the provided rules.
func NewPasswordValidator(rules ...PasswordRule) *PasswordValidator {
	copied := make([]PasswordRule, len(rules))
	copy(copied, rules)
	return &PasswordValidator{rules: copied}
}

// Validate returns the first violation, or nil when every rule passes.
func (v *PasswordValidator) Validate(password string) error {
	if v == nil {
		return fmt.Errorf("password validator not configured")
	}
	for _, rule := range v.rules {
		if err := rule.Validate(password); err != nil {
			return err
		}
	}
	return nil
}

// MinLengthRule requires at least min characters (runes, not bytes).
func MinLengthRule(min int) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if len([]rune(password)) < min {
			return &PasswordValidationError{
				Code:    "min_length",
				Message: fmt.Sprintf("password must be at least %d characters long", min),
			}
		}
		return nil
	})
}

// RequireCompositionRule requires an uppercase letter, a lowercase letter, a
// digit, and a special character. The violation message names every class
// that is missing.
func RequireCompositionRule() PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		var hasUpper, hasLower, hasDigit, hasSpecial bool

		for _, r := range password {
			switch {
			case unicode.IsUpper(r):
				hasUpper = true
			case unicode.IsLower(r):
				hasLower = true
			case unicode.IsDigit(r):
				hasDigit = true
			case unicode.IsSymbol(r) || unicode.IsPunct(r):
				hasSpecial = true
			}
		}

		var missing []string
		if !hasUpper {
			missing = append(missing, "an uppercase letter")
		}
		if !hasLower {
			missing = append(missing, "a lowercase letter")
		}
		if !hasDigit {
			missing = append(missing, "a digit")
		}
		if !hasSpecial {
			missing = append(missing, "a special character")
		}

		if len(missing) == 0 {
			return nil
		}

		return &PasswordValidationError{
			Code:    "composition",
			Message: "password must include " + strings.Join(missing, ", "),
		}
	})
}

// RequireDifferentFrom rejects a password equal to the comparator. Used to
// keep password changes from reusing the current secret.
func RequireDifferentFrom(comparator string) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if password == comparator {
			return &PasswordValidationError{
				Code:    "reuse",
				Message: "new password must differ from the current password",
			}
		}
		return nil
	})
}

// RequirePasswordStrengthRule rejects passwords scoring below minScore on
// the zxcvbn scale (0..4). userInputs seed the estimator with values an
// attacker would guess first, such as the account email.
func RequirePasswordStrengthRule(minScore int, userInputs ...string) PasswordRule {
	return PasswordRuleFunc(func(password string) error {
		if minScore <= 0 {
			return nil
		}
		if minScore > 4 {
			minScore = 4
		}

		result := zxcvbn.PasswordStrength(password, userInputs)
		if result.Score >= minScore {
			return nil
		}

		return &PasswordValidationError{
			Code:    "weak_password",
			Message: "password is too easy to guess; choose a stronger value",
		}
	})
}
