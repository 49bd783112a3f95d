// Package twofactor implements the time-based second factor: secret
// enrollment at signup and code verification at sign-in.
package twofactor

import (
	"crypto/subtle"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Step is the TOTP time step.
const Step = 30 * time.Second

var validateOpts = totp.ValidateOpts{
	Period:    uint(Step / time.Second),
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// Secret is a freshly generated shared secret. It is returned to the client
// exactly once, at signup; the secret cannot be re-derived afterwards.
type Secret struct {
	Secret string
	URI    string
}

// GenerateSecret creates a new random TOTP secret and the otpauth://
// provisioning URI for it.
func GenerateSecret(issuer, account string) (*Secret, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: account,
	})
	if err != nil {
		return nil, err
	}

	return &Secret{Secret: key.Secret(), URI: key.String()}, nil
}

// VerifyCode reports whether code is the valid TOTP code for secret at the
// current time step.
//
// Lookup computes the codes for the adjacent steps too (±1 step tolerance
// window), but a match is accepted only at offset zero: a code that is
// valid only in the previous or next window is rejected. Malformed secrets
// and codes are simply invalid, never an error.
func VerifyCode(secret, code string) bool {
	delta, ok := lookupCode(secret, code, time.Now())
	return ok && delta == 0
}

// lookupCode finds the window offset at which code matches secret, searching
// the current step first and then the neighbors.
func lookupCode(secret, code string, now time.Time) (int, bool) {
	if code == "" {
		return 0, false
	}

	for _, delta := range []int{0, -1, 1} {
		at := now.Add(time.Duration(delta) * Step)
		expected, err := totp.GenerateCodeCustom(secret, at, validateOpts)
		if err != nil {
			return 0, false
		}
		if subtle.ConstantTimeCompare([]byte(expected), []byte(code)) == 1 {
			return delta, true
		}
	}

	return 0, false
}
