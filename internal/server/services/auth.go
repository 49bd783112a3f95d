// Package services contains server-side business logic. This file implements
// AuthService, which handles sign-up, second-factor enrollment, the
// challenge-signature sign-in flow, and issuing/refreshing JWTs.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/cryptox"
	"github.com/dmitrijs2005/keygate/internal/server/auth"
	"github.com/dmitrijs2005/keygate/internal/server/models"
	"github.com/dmitrijs2005/keygate/internal/server/users"
	"github.com/dmitrijs2005/keygate/internal/twofactor"
	"github.com/google/uuid"
)

// SignUpResult is returned from SignUp. The TOTP secret is handed to the
// client exactly once, before second-factor enforcement is enabled.
type SignUpResult struct {
	ID              string
	Username        string
	TwoFactorSecret models.TwoFactorSecret
}

// Setup2FAResult confirms second-factor enrollment.
type Setup2FAResult struct {
	ID       string
	Username string
}

// SignInResult is returned from SignIn. When the account has the second
// factor enabled only TempToken is set; until then the stored TOTP secret
// is returned again so the client can complete enrollment.
type SignInResult struct {
	ID                string
	Username          string
	TempToken         string
	TwoFactorRequired bool
	TwoFactorSecret   *models.TwoFactorSecret
}

// TokenPair bundles a short-lived access token and a long-lived refresh
// token. ExpiresIn is the access token lifetime in seconds.
type TokenPair struct {
	ID           string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// UserInfo is the authenticated view of an account.
type UserInfo struct {
	ID              string
	Username        string
	TwoFactorSecret models.TwoFactorSecret
	CreatedAt       int64
	UpdatedAt       int64
}

// PublicUserInfo is what anyone may learn about a username before
// authenticating: the key-derivation salt and the current sign-in challenge.
type PublicUserInfo struct {
	Salt            string
	SigninChallenge string
}

// AuthService provides authentication-related operations:
// - SignUp / Setup2FA: create accounts and enroll the second factor
// - SignIn / VerifySignIn2FA: challenge-signature login plus TOTP check
// - RefreshTokens: mint a new token pair from a refresh token
type AuthService struct {
	repo    users.Repository
	tokens  *auth.TokenAuthority
	appName string
}

// NewAuthService constructs an AuthService over the user repository and
// token authority. appName becomes the issuer label in TOTP enrollment URIs.
func NewAuthService(repo users.Repository, tokens *auth.TokenAuthority, appName string) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, appName: appName}
}

// SignUp creates an account from client-derived material. The server never
// sees the passphrase, only the salt and the two public keys. A TOTP secret
// is generated immediately but stays disabled until Setup2FA confirms the
// client can produce codes from it.
func (s *AuthService) SignUp(ctx context.Context, username, salt, signingPublicKey, encryptionPublicKey string) (*SignUpResult, error) {
	secret, err := twofactor.GenerateSecret(s.appName, username)
	if err != nil {
		return nil, common.ErrInternal
	}

	now := time.Now().UnixMilli()
	user := &models.User{
		ID:                  uuid.NewString(),
		Username:            username,
		Salt:                salt,
		SigningPublicKey:    signingPublicKey,
		EncryptionPublicKey: encryptionPublicKey,
		TwoFactorSecret:     models.TwoFactorSecret{Secret: secret.Secret, URI: secret.URI},
		SigninChallenge:     uuid.NewString(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrUserExists) {
			return nil, common.ErrUserExists
		}
		return nil, fmt.Errorf("error creating user: %v", err)
	}

	return &SignUpResult{
		ID:              created.ID,
		Username:        created.Username,
		TwoFactorSecret: created.TwoFactorSecret,
	}, nil
}

// Setup2FA enables the second factor once the client proves it holds the
// secret by submitting a code from the current time step.
func (s *AuthService) Setup2FA(ctx context.Context, username, code string) (*Setup2FAResult, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, common.ErrInternal
	}

	if !twofactor.VerifyCode(user.TwoFactorSecret.Secret, code) {
		return nil, common.ErrInvalid2FAToken
	}

	if err := s.repo.Finish2FASetup(ctx, user.ID); err != nil {
		return nil, common.ErrInternal
	}

	return &Setup2FAResult{ID: user.ID, Username: user.Username}, nil
}

// SignIn checks the signature over the account's current challenge. A
// missing account and a bad signature both come back as ErrBadRequest so
// the response does not separate the two cases. Accounts that never
// finished enrollment get the secret bundle back instead of a temp token.
func (s *AuthService) SignIn(ctx context.Context, username, signature string) (*SignInResult, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrBadRequest
		}
		return nil, common.ErrInternal
	}

	if !cryptox.VerifySignature(user.SigningPublicKey, signature, user.SigninChallenge) {
		return nil, common.ErrBadRequest
	}

	if !user.TwoFactorEnabled {
		secret := user.TwoFactorSecret
		return &SignInResult{
			ID:              user.ID,
			Username:        user.Username,
			TwoFactorSecret: &secret,
		}, nil
	}

	tempToken, err := s.tokens.GenerateTempToken(user.ID)
	if err != nil {
		return nil, common.ErrInternal
	}

	return &SignInResult{ID: user.ID, TempToken: tempToken, TwoFactorRequired: true}, nil
}

// VerifySignIn2FA completes login: the temp token names the subject, the
// TOTP code proves the second factor, and the sign-in challenge is rotated
// so the signature that opened this flow cannot be replayed.
func (s *AuthService) VerifySignIn2FA(ctx context.Context, tempToken, code string) (*TokenPair, error) {
	userID, err := s.tokens.VerifyTempToken(tempToken)
	if err != nil {
		return nil, common.ErrUnauthorized
	}

	user, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, common.ErrUnauthorized
	}

	if !twofactor.VerifyCode(user.TwoFactorSecret.Secret, code) {
		return nil, common.ErrInvalid2FAToken
	}

	if _, err := s.repo.RotateSigninChallenge(ctx, user.ID); err != nil {
		return nil, common.ErrInternal
	}

	return s.generateTokenPair(user.ID)
}

// RefreshTokens mints a new access/refresh pair for the refresh token's
// subject. Verification is purely cryptographic, there is no storage read.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	userID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, common.ErrUnauthorized
	}
	return s.generateTokenPair(userID)
}

// GetUser returns the authenticated view of an account. The boundary has
// already verified the access token for this userID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*UserInfo, error) {
	user, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, common.ErrInternal
	}

	return &UserInfo{
		ID:              user.ID,
		Username:        user.Username,
		TwoFactorSecret: user.TwoFactorSecret,
		CreatedAt:       user.CreatedAt,
		UpdatedAt:       user.UpdatedAt,
	}, nil
}

// DeleteUser removes the account and its username index record.
func (s *AuthService) DeleteUser(ctx context.Context, userID string) (string, error) {
	if err := s.repo.Delete(ctx, userID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return "", common.ErrUserNotFound
		}
		return "", common.ErrInternal
	}
	return userID, nil
}

// GetUserPublic returns the salt and current sign-in challenge for a
// username. Unknown usernames get fresh random values shaped like the real
// answer, so the response never reveals whether the account exists.
func (s *AuthService) GetUserPublic(ctx context.Context, username string) (*PublicUserInfo, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return s.fakePublicUserInfo()
		}
		return nil, common.ErrInternal
	}
	return &PublicUserInfo{Salt: user.Salt, SigninChallenge: user.SigninChallenge}, nil
}

// --- helpers below ---

func (s *AuthService) fakePublicUserInfo() (*PublicUserInfo, error) {
	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return nil, common.ErrInternal
	}
	return &PublicUserInfo{Salt: salt, SigninChallenge: uuid.NewString()}, nil
}

func (s *AuthService) generateTokenPair(userID string) (*TokenPair, error) {
	access, err := s.tokens.GenerateAccessToken(userID)
	if err != nil {
		return nil, common.ErrInternal
	}
	refresh, err := s.tokens.GenerateRefreshToken(userID)
	if err != nil {
		return nil, common.ErrInternal
	}
	return &TokenPair{
		ID:           userID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokens.AccessTokenValidity().Seconds()),
	}, nil
}
