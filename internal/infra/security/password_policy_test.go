package security

import (
	"errors"
	"testing"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

func violationCode(t *testing.T, err error) string {
	t.Helper()
	var v *PasswordViolation
	if !errors.As(err, &v) {
		t.Fatalf("expected PasswordViolation, got %T (%v)", err, err)
	}
	return v.Code
}

func TestPasswordPolicyMinLength(t *testing.T) {
	policy := NewPasswordPolicy(8, 0)

	if err := policy.Validate("GoodPass1"); err != nil {
		t.Fatalf("expected 9 character password to pass, got %v", err)
	}

	err := policy.Validate("short")
	if code := violationCode(t, err); code != ViolationMinLength {
		t.Fatalf("expected min_length code, got %s", code)
	}
	if err.Error() != "Password must be at least 8 characters long" {
		t.Fatalf("unexpected message %q", err.Error())
	}

	// Runes, not bytes.
	if err := NewPasswordPolicy(4, 0).Validate("ñño"); err == nil {
		t.Fatalf("expected three rune password to fail a four rune minimum")
	}
}

func TestPasswordPolicyRejectsBlank(t *testing.T) {
	if code := violationCode(t, NewPasswordPolicy(1, 0).Validate("   ")); code != ViolationBlank {
		t.Fatalf("expected blank code, got %s", code)
	}
}

func TestPasswordPolicyDefaults(t *testing.T) {
	policy := NewPasswordPolicy(0, 9)
	if policy.MinLength() != DefaultMinPasswordLength {
		t.Fatalf("expected default min length, got %d", policy.MinLength())
	}
	if policy.minScore != maxZxcvbnScore {
		t.Fatalf("expected score clamped to %d, got %d", maxZxcvbnScore, policy.minScore)
	}

	var nilPolicy *PasswordPolicy
	if err := nilPolicy.Validate("abcdefgh"); err != nil {
		t.Fatalf("nil policy should fall back to length check only, got %v", err)
	}
	if nilPolicy.MinLength() != DefaultMinPasswordLength {
		t.Fatalf("nil policy should report the default length")
	}
}

func TestPasswordPolicyStrength(t *testing.T) {
	policy := NewPasswordPolicy(8, 3)

	strong := "C0mplex!Passphrase#2025"
	if strength := zxcvbn.PasswordStrength(strong, nil); strength.Score < 3 {
		t.Fatalf("test password unexpectedly weak: score=%d", strength.Score)
	}
	if err := policy.Validate(strong, "jordan@example.com", ""); err != nil {
		t.Fatalf("expected strong password to pass, got %v", err)
	}

	if code := violationCode(t, policy.Validate("password123")); code != ViolationWeak {
		t.Fatalf("expected weak_password violation, got %s", code)
	}
}

func TestCodeChallengeS256Verifiers(t *testing.T) {
	// RFC 7636 appendix B.
	verifier := "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	if got := CodeChallengeS256(verifier); got != "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGEszbWkdY" {
		t.Fatalf("unexpected challenge %q", got)
	}

	v1, err := NewCodeVerifier()
	if err != nil {
		t.Fatalf("NewCodeVerifier: %v", err)
	}
	v2, _ := NewCodeVerifier()
	if len(v1) != 43 || v1 == v2 {
		t.Fatalf("expected distinct 43 character verifiers, got %q and %q", v1, v2)
	}
}
