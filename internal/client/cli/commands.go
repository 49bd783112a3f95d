package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/dmitrijs2005/keygate/internal/cryptox"
)

// SignUp creates an account. The salt and both key pairs are derived
// locally; only public material and the salt go to the server.
func (a *App) SignUp(ctx context.Context) error {

	username, err := GetSimpleText(a.reader, "Enter user name (email)", os.Stdout)
	if err != nil {
		return err
	}

	passphrase, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return err
	}

	signKP, encKP, err := cryptox.DeriveKeyPairs(passphrase, salt)
	if err != nil {
		return err
	}

	res, err := a.api.SignUp(ctx, username, salt, signKP.PublicKey, encKP.PublicKey)
	if err != nil {
		return err
	}

	a.session.username = res.Username
	a.session.signKP = signKP

	fmt.Println("Account created.")
	fmt.Println("Add this secret to your authenticator app:")
	fmt.Printf("  secret: %s\n", res.TwoFactorSecret.Secret)
	fmt.Printf("  uri:    %s\n", res.TwoFactorSecret.URI)
	fmt.Println("Then run 'setup2fa' to finish enrollment.")

	return nil
}

// Setup2FA finishes second-factor enrollment with a code from the
// authenticator app.
func (a *App) Setup2FA(ctx context.Context) error {

	username := a.session.username
	if username == "" {
		var err error
		username, err = GetSimpleText(a.reader, "Enter user name (email)", os.Stdout)
		if err != nil {
			return err
		}
	}

	code, err := GetSimpleText(a.reader, "Enter the 6-digit code from your authenticator", os.Stdout)
	if err != nil {
		return err
	}

	if _, err := a.api.Setup2FA(ctx, username, code); err != nil {
		return err
	}

	fmt.Println("Two-factor enrollment complete.")
	return nil
}

// SignIn walks the full login flow: fetch salt and challenge, derive keys,
// sign the challenge, then answer the second-factor prompt.
func (a *App) SignIn(ctx context.Context) error {

	username, err := GetSimpleText(a.reader, "Enter user name (email)", os.Stdout)
	if err != nil {
		return err
	}

	passphrase, err := GetPassword(os.Stdout)
	if err != nil {
		return err
	}

	public, err := a.api.GetUserPublic(ctx, username)
	if err != nil {
		return err
	}

	if err := a.deriveKeys(passphrase, public.Salt); err != nil {
		return err
	}

	signature := cryptox.SignChallenge(a.session.signKP.PrivateKey, public.SigninChallenge)

	res, err := a.api.SignIn(ctx, username, signature)
	if err != nil {
		return err
	}
	a.session.username = username

	if res.TempToken == "" {
		fmt.Println("Two-factor enrollment is not finished for this account.")
		if res.TwoFactorSecret != nil {
			fmt.Printf("  secret: %s\n", res.TwoFactorSecret.Secret)
			fmt.Printf("  uri:    %s\n", res.TwoFactorSecret.URI)
		}
		fmt.Println("Run 'setup2fa' first, then sign in again.")
		return nil
	}

	code, err := GetSimpleText(a.reader, "Enter the 6-digit code from your authenticator", os.Stdout)
	if err != nil {
		return err
	}

	pair, err := a.api.VerifySignIn2FA(ctx, res.TempToken, code)
	if err != nil {
		return err
	}

	a.session.accessToken = pair.AccessToken
	a.session.refreshToken = pair.RefreshToken

	fmt.Printf("Signed in. Access token valid for %d seconds.\n", pair.ExpiresIn)
	return nil
}

// Me shows the authenticated account.
func (a *App) Me(ctx context.Context) error {

	info, err := a.api.GetUser(ctx, a.session.accessToken)
	if err != nil {
		return err
	}

	fmt.Printf("id:        %s\n", info.ID)
	fmt.Printf("username:  %s\n", info.Username)
	fmt.Printf("createdAt: %d\n", info.CreatedAt)
	fmt.Printf("updatedAt: %d\n", info.UpdatedAt)
	return nil
}

// Refresh trades the refresh token for a fresh pair.
func (a *App) Refresh(ctx context.Context) error {

	pair, err := a.api.RefreshTokens(ctx, a.session.refreshToken)
	if err != nil {
		return err
	}

	a.session.accessToken = pair.AccessToken
	a.session.refreshToken = pair.RefreshToken

	fmt.Printf("Tokens refreshed. Access token valid for %d seconds.\n", pair.ExpiresIn)
	return nil
}

// DeleteMe removes the account after a confirmation prompt.
func (a *App) DeleteMe(ctx context.Context) error {

	answer, err := GetSimpleText(a.reader, "Delete this account? Type 'yes' to confirm", os.Stdout)
	if err != nil {
		return err
	}
	if answer != "yes" {
		fmt.Println("Cancelled.")
		return nil
	}

	if err := a.api.DeleteUser(ctx, a.session.accessToken); err != nil {
		return err
	}

	a.session = session{}
	fmt.Println("Account deleted.")
	return nil
}

// Logout drops the session state.
func (a *App) Logout(ctx context.Context) error {
	a.session = session{}
	fmt.Println("Logged out.")
	return nil
}
