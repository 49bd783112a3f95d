// Package cli implements the interactive KeyGate command-line client.
package cli

import (
	"bufio"
	"context"
	"os"

	"github.com/dmitrijs2005/keygate/internal/client"
	"github.com/dmitrijs2005/keygate/internal/client/config"
	"github.com/dmitrijs2005/keygate/internal/cryptox"
)

// session holds the state accumulated while walking the sign-in flow.
type session struct {
	username     string
	signKP       *cryptox.SigningKeyPair
	accessToken  string
	refreshToken string
}

type App struct {
	config  *config.Config
	api     *client.Client
	reader  *bufio.Reader
	session session
}

func NewApp(c *config.Config) (*App, error) {
	return &App{
		config: c,
		api:    client.NewClient(c.ServerEndpointAddr),
		reader: bufio.NewReader(os.Stdin),
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.session.accessToken != ""
}

func (a *App) Run(ctx context.Context) {
	a.Root(ctx)
}

// deriveKeys recomputes the signing key pair from the passphrase and the
// account salt. Nothing secret is stored between commands beyond this.
func (a *App) deriveKeys(passphrase []byte, salt string) error {
	signKP, _, err := cryptox.DeriveKeyPairs(passphrase, salt)
	if err != nil {
		return err
	}
	a.session.signKP = signKP
	return nil
}
