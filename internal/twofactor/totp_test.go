package twofactor

import (
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func newSecret(t *testing.T) *Secret {
	t.Helper()
	s, err := GenerateSecret("keygate", "alice")
	if err != nil {
		t.Fatalf("GenerateSecret error: %v", err)
	}
	return s
}

func currentCode(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	code, err := totp.GenerateCodeCustom(secret, at, validateOpts)
	if err != nil {
		t.Fatalf("GenerateCodeCustom error: %v", err)
	}
	return code
}

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	s := newSecret(t)

	if s.Secret == "" {
		t.Fatalf("empty secret")
	}
	if !strings.HasPrefix(s.URI, "otpauth://totp/") {
		t.Fatalf("unexpected provisioning URI: %q", s.URI)
	}
	if !strings.Contains(s.URI, "keygate") || !strings.Contains(s.URI, "alice") {
		t.Fatalf("URI should identify issuer and account: %q", s.URI)
	}

	other := newSecret(t)
	if other.Secret == s.Secret {
		t.Fatalf("two generated secrets must differ")
	}
}

func TestVerifyCode_CurrentStep(t *testing.T) {
	t.Parallel()

	s := newSecret(t)
	code := currentCode(t, s.Secret, time.Now())

	if !VerifyCode(s.Secret, code) {
		t.Fatalf("current-step code must verify")
	}
}

func TestVerifyCode_AdjacentStepRejected(t *testing.T) {
	t.Parallel()

	s := newSecret(t)
	now := time.Now()

	// Codes valid one step away are found by the lookup but must still be
	// rejected: only delta == 0 is acceptable.
	previous := currentCode(t, s.Secret, now.Add(-Step))
	next := currentCode(t, s.Secret, now.Add(Step))

	for _, code := range []string{previous, next} {
		if code == currentCode(t, s.Secret, now) {
			// step boundary edge: codes can coincide, skip
			continue
		}
		if delta, ok := lookupCode(s.Secret, code, now); !ok || delta == 0 {
			t.Fatalf("lookup should find adjacent code with nonzero delta, got delta=%d ok=%v", delta, ok)
		}
		if VerifyCode(s.Secret, code) {
			t.Fatalf("adjacent-window code must be rejected")
		}
	}
}

func TestVerifyCode_Garbage(t *testing.T) {
	t.Parallel()

	s := newSecret(t)

	tests := []struct {
		name   string
		secret string
		code   string
	}{
		{"empty code", s.Secret, ""},
		{"wrong code", s.Secret, "000000"},
		{"non-numeric code", s.Secret, "abcdef"},
		{"bad secret", "!!!notbase32!!!", "123456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if VerifyCode(tt.secret, tt.code) {
				t.Fatalf("expected invalid for %s", tt.name)
			}
		})
	}
}
