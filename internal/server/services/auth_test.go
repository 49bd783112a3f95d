package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/keygate/internal/common"
	"github.com/dmitrijs2005/keygate/internal/cryptox"
	"github.com/dmitrijs2005/keygate/internal/server/auth"
	"github.com/dmitrijs2005/keygate/internal/server/storage"
	"github.com/dmitrijs2005/keygate/internal/server/users"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *AuthService {
	t.Helper()
	repo := users.NewStoreRepository(storage.NewInMemoryStore())
	tokens := auth.NewTokenAuthority(
		auth.TokenConfig{Secret: []byte("temp-secret"), Validity: time.Minute},
		auth.TokenConfig{Secret: []byte("access-secret"), Validity: 15 * time.Minute},
		auth.TokenConfig{Secret: []byte("refresh-secret"), Validity: 24 * time.Hour},
	)
	return NewAuthService(repo, tokens, "KeyGate")
}

// signUp registers a user with keys derived from the passphrase and
// returns the sign-up result plus the signing key pair.
func signUp(t *testing.T, svc *AuthService, username, passphrase string) (*SignUpResult, *cryptox.SigningKeyPair) {
	t.Helper()

	salt, err := cryptox.GenerateSalt()
	require.NoError(t, err)

	signKP, encKP, err := cryptox.DeriveKeyPairs([]byte(passphrase), salt)
	require.NoError(t, err)

	res, err := svc.SignUp(context.Background(), username, salt, signKP.PublicKey, encKP.PublicKey)
	require.NoError(t, err)

	return res, signKP
}

// enroll2FA completes second-factor enrollment with a code from the
// current time step.
func enroll2FA(t *testing.T, svc *AuthService, username, secret string) {
	t.Helper()

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	_, err = svc.Setup2FA(context.Background(), username, code)
	require.NoError(t, err)
}

func TestAuthService_SignUp(t *testing.T) {
	svc := newTestService(t)

	res, _ := signUp(t, svc, "alice", "correct horse")
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, "alice", res.Username)
	assert.NotEmpty(t, res.TwoFactorSecret.Secret)
	assert.Contains(t, res.TwoFactorSecret.URI, "otpauth://totp/")

	salt, err := cryptox.GenerateSalt()
	require.NoError(t, err)
	_, err = svc.SignUp(context.Background(), "alice", salt, "aa", "bb")
	assert.ErrorIs(t, err, common.ErrUserExists)
}

func TestAuthService_Setup2FA(t *testing.T) {
	svc := newTestService(t)
	res, _ := signUp(t, svc, "alice", "correct horse")

	_, err := svc.Setup2FA(context.Background(), "alice", "000000")
	assert.ErrorIs(t, err, common.ErrInvalid2FAToken)

	_, err = svc.Setup2FA(context.Background(), "nobody", "000000")
	assert.ErrorIs(t, err, common.ErrUserNotFound)

	code, err := totp.GenerateCode(res.TwoFactorSecret.Secret, time.Now())
	require.NoError(t, err)

	setup, err := svc.Setup2FA(context.Background(), "alice", code)
	require.NoError(t, err)
	assert.Equal(t, res.ID, setup.ID)
	assert.Equal(t, "alice", setup.Username)
}

func TestAuthService_SignIn_UnknownUser(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.SignIn(context.Background(), "nobody", "deadbeef")
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestAuthService_SignIn_BadSignature(t *testing.T) {
	svc := newTestService(t)
	signUp(t, svc, "alice", "correct horse")

	_, err := svc.SignIn(context.Background(), "alice", "deadbeef")
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestAuthService_SignIn_BeforeEnrollment(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	res, signKP := signUp(t, svc, "alice", "correct horse")

	public, err := svc.GetUserPublic(ctx, "alice")
	require.NoError(t, err)

	sig := cryptox.SignChallenge(signKP.PrivateKey, public.SigninChallenge)
	signin, err := svc.SignIn(ctx, "alice", sig)
	require.NoError(t, err)

	assert.False(t, signin.TwoFactorRequired)
	assert.Empty(t, signin.TempToken)
	require.NotNil(t, signin.TwoFactorSecret)
	assert.Equal(t, res.TwoFactorSecret.Secret, signin.TwoFactorSecret.Secret)
}

func TestAuthService_FullSignInFlow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	res, signKP := signUp(t, svc, "alice", "correct horse")
	enroll2FA(t, svc, "alice", res.TwoFactorSecret.Secret)

	public, err := svc.GetUserPublic(ctx, "alice")
	require.NoError(t, err)

	sig := cryptox.SignChallenge(signKP.PrivateKey, public.SigninChallenge)
	signin, err := svc.SignIn(ctx, "alice", sig)
	require.NoError(t, err)
	assert.True(t, signin.TwoFactorRequired)
	assert.NotEmpty(t, signin.TempToken)
	assert.Nil(t, signin.TwoFactorSecret)

	code, err := totp.GenerateCode(res.TwoFactorSecret.Secret, time.Now())
	require.NoError(t, err)

	pair, err := svc.VerifySignIn2FA(ctx, signin.TempToken, code)
	require.NoError(t, err)
	assert.Equal(t, res.ID, pair.ID)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), pair.ExpiresIn)

	// the challenge rotated, so the signature that opened this flow
	// is no longer accepted
	_, err = svc.SignIn(ctx, "alice", sig)
	assert.ErrorIs(t, err, common.ErrBadRequest)

	rotated, err := svc.GetUserPublic(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, public.SigninChallenge, rotated.SigninChallenge)
	assert.Equal(t, public.Salt, rotated.Salt)
}

func TestAuthService_VerifySignIn2FA_BadInputs(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	res, signKP := signUp(t, svc, "alice", "correct horse")
	enroll2FA(t, svc, "alice", res.TwoFactorSecret.Secret)

	_, err := svc.VerifySignIn2FA(ctx, "not-a-token", "000000")
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	public, err := svc.GetUserPublic(ctx, "alice")
	require.NoError(t, err)
	sig := cryptox.SignChallenge(signKP.PrivateKey, public.SigninChallenge)
	signin, err := svc.SignIn(ctx, "alice", sig)
	require.NoError(t, err)

	_, err = svc.VerifySignIn2FA(ctx, signin.TempToken, "000000")
	assert.ErrorIs(t, err, common.ErrInvalid2FAToken)
}

func TestAuthService_RefreshTokens(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	res, signKP := signUp(t, svc, "alice", "correct horse")
	enroll2FA(t, svc, "alice", res.TwoFactorSecret.Secret)

	public, err := svc.GetUserPublic(ctx, "alice")
	require.NoError(t, err)
	sig := cryptox.SignChallenge(signKP.PrivateKey, public.SigninChallenge)
	signin, err := svc.SignIn(ctx, "alice", sig)
	require.NoError(t, err)

	code, err := totp.GenerateCode(res.TwoFactorSecret.Secret, time.Now())
	require.NoError(t, err)
	pair, err := svc.VerifySignIn2FA(ctx, signin.TempToken, code)
	require.NoError(t, err)

	next, err := svc.RefreshTokens(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, res.ID, next.ID)
	assert.NotEqual(t, pair.AccessToken, next.AccessToken)
	assert.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// neither an access token nor a temp token is accepted as a refresh token
	_, err = svc.RefreshTokens(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = svc.RefreshTokens(ctx, signin.TempToken)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	_, err = svc.RefreshTokens(ctx, "garbage")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAuthService_RefreshTokens_Expired(t *testing.T) {
	repo := users.NewStoreRepository(storage.NewInMemoryStore())
	tokens := auth.NewTokenAuthority(
		auth.TokenConfig{Secret: []byte("temp-secret"), Validity: time.Minute},
		auth.TokenConfig{Secret: []byte("access-secret"), Validity: time.Minute},
		auth.TokenConfig{Secret: []byte("refresh-secret"), Validity: -time.Minute},
	)
	svc := NewAuthService(repo, tokens, "KeyGate")

	expired, err := tokens.GenerateRefreshToken("u1")
	require.NoError(t, err)

	_, err = svc.RefreshTokens(context.Background(), expired)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestAuthService_GetUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	res, _ := signUp(t, svc, "alice", "correct horse")

	info, err := svc.GetUser(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, info.ID)
	assert.Equal(t, "alice", info.Username)
	assert.Equal(t, res.TwoFactorSecret.Secret, info.TwoFactorSecret.Secret)
	assert.NotZero(t, info.CreatedAt)

	_, err = svc.GetUser(ctx, "missing-id")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestAuthService_DeleteUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	res, _ := signUp(t, svc, "alice", "correct horse")

	id, err := svc.DeleteUser(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, id)

	_, err = svc.GetUser(ctx, res.ID)
	assert.ErrorIs(t, err, common.ErrUserNotFound)

	_, err = svc.DeleteUser(ctx, res.ID)
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestAuthService_GetUserPublic_UnknownUser(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first, err := svc.GetUserPublic(ctx, "nobody")
	require.NoError(t, err)
	assert.NotEmpty(t, first.Salt)
	assert.NotEmpty(t, first.SigninChallenge)

	// the fake answer is freshly generated every time, so repeated
	// probes cannot be correlated
	second, err := svc.GetUserPublic(ctx, "nobody")
	require.NoError(t, err)
	assert.NotEqual(t, first.Salt, second.Salt)
	assert.NotEqual(t, first.SigninChallenge, second.SigninChallenge)
}
