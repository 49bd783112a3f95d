// Package auth implements the token authority: issuance and verification of
// the three bearer-token variants used by the authentication flow.
//
// Each variant — temporary, access, refresh — has its own signing secret and
// lifetime, so a leaked secret for one variant cannot forge tokens of
// another, and a temporary token issued mid-flow can never pass an
// access-token check.
package auth

import (
	"time"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer is the fixed issuer tag stamped into every token.
const Issuer = "keygate"

// Claims includes the standard claims plus the subject user ID.
type Claims struct {
	jwt.RegisteredClaims
	UserID string
}

// TokenConfig is one signing context: an HMAC secret and a lifetime.
type TokenConfig struct {
	Secret   []byte
	Validity time.Duration
}

// TokenAuthority issues and verifies the three token variants. Verification
// is pure: no storage, no mutation, and every failure cause — malformed
// token, bad signature, wrong variant, expired — collapses into
// common.ErrUnauthorized.
type TokenAuthority struct {
	temp    TokenConfig
	access  TokenConfig
	refresh TokenConfig
}

func NewTokenAuthority(temp, access, refresh TokenConfig) *TokenAuthority {
	return &TokenAuthority{temp: temp, access: access, refresh: refresh}
}

// AccessTokenValidity is exposed for the expiresIn field of token responses.
func (a *TokenAuthority) AccessTokenValidity() time.Duration {
	return a.access.Validity
}

func (a *TokenAuthority) GenerateTempToken(userID string) (string, error) {
	return generateToken(userID, a.temp)
}

func (a *TokenAuthority) GenerateAccessToken(userID string) (string, error) {
	return generateToken(userID, a.access)
}

func (a *TokenAuthority) GenerateRefreshToken(userID string) (string, error) {
	return generateToken(userID, a.refresh)
}

func (a *TokenAuthority) VerifyTempToken(token string) (string, error) {
	return verifyToken(token, a.temp)
}

func (a *TokenAuthority) VerifyAccessToken(token string) (string, error) {
	return verifyToken(token, a.access)
}

func (a *TokenAuthority) VerifyRefreshToken(token string) (string, error) {
	return verifyToken(token, a.refresh)
}

func generateToken(userID string, cfg TokenConfig) (string, error) {
	// the jti makes every issued token distinct, even within one second
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.Validity)),
		},
		UserID: userID,
	})

	tokenString, err := token.SignedString(cfg.Secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func verifyToken(tokenString string, cfg TokenConfig) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return cfg.Secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithIssuer(Issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", common.ErrUnauthorized
	}

	return claims.UserID, nil
}
