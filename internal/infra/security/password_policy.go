package security

import (
	"fmt"
	"strings"
	"unicode/utf8"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

const (
	DefaultMinPasswordLength = 8
	maxZxcvbnScore           = 4
)

// Violation codes reported by PasswordPolicy.
const (
	ViolationMinLength = "min_length"
	ViolationWeak      = "weak_password"
	ViolationBlank     = "blank"
)

// PasswordViolation describes why a password was refused. Message is safe to show to the user.
type PasswordViolation struct {
	Code    string
	Message string
}

func (v *PasswordViolation) Error() string {
	if v == nil {
		return ""
	}
	return v.Message
}

// PasswordPolicy checks a minimum length and, when minScore is positive, a zxcvbn strength score.
// Inputs such as the email or name lower the score of passwords derived from them.
type PasswordPolicy struct {
	minLength int
	minScore  int
}

// NewPasswordPolicy returns a policy. Non-positive lengths fall back to DefaultMinPasswordLength.
func NewPasswordPolicy(minLength, minScore int) *PasswordPolicy {
	if minLength <= 0 {
		minLength = DefaultMinPasswordLength
	}
	minScore = min(max(minScore, 0), maxZxcvbnScore)
	return &PasswordPolicy{minLength: minLength, minScore: minScore}
}

// MinLength reports the configured minimum password length.
func (p *PasswordPolicy) MinLength() int {
	if p == nil {
		return DefaultMinPasswordLength
	}
	return p.minLength
}

// Validate returns the first violation of password, or nil. Length is counted in runes.
func (p *PasswordPolicy) Validate(password string, userInputs ...string) error {
	if p == nil {
		p = NewPasswordPolicy(DefaultMinPasswordLength, 0)
	}

	if strings.TrimSpace(password) == "" {
		return &PasswordViolation{Code: ViolationBlank, Message: "Password must not be blank"}
	}
	if utf8.RuneCountInString(password) < p.minLength {
		return &PasswordViolation{
			Code:    ViolationMinLength,
			Message: fmt.Sprintf("Password must be at least %d characters long", p.minLength),
		}
	}
	if p.minScore == 0 {
		return nil
	}

	inputs := make([]string, 0, len(userInputs))
	for _, in := range userInputs {
		if in = strings.TrimSpace(in); in != "" {
			inputs = append(inputs, in)
		}
	}
	if zxcvbn.PasswordStrength(password, inputs).Score < p.minScore {
		return &PasswordViolation{
			Code:    ViolationWeak,
			Message: "Password is too weak; choose a more complex value",
		}
	}
	return nil
}
