package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	SignUp(ctx context.Context) error
	Setup2FA(ctx context.Context) error
	SignIn(ctx context.Context) error
	Me(ctx context.Context) error
	Refresh(ctx context.Context) error
	DeleteMe(ctx context.Context) error
	Logout(ctx context.Context) error
}

// runREPL starts a simple read-eval-print loop for the KeyGate CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. Unknown commands are reported
// back to the user. The loop exits on scanner EOF or when the user types
// "exit" or "quit".
//
// Commands before sign-in: help, signup, setup2fa, signin, exit.
// Commands after sign-in: help, me, refresh, deleteme, logout, exit.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("kg> %s > ", statusFn()))
		if !scanner.Scan() {
			return
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd := parts[0]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: me, refresh, deleteme, logout, exit")
			} else {
				printlnFn("Available commands: signup, setup2fa, signin, exit")
			}
		case "signup":
			runCommand(ctx, a.SignUp)
		case "setup2fa":
			runCommand(ctx, a.Setup2FA)
		case "signin":
			runCommand(ctx, a.SignIn)
		case "me":
			runCommand(ctx, a.Me)
		case "refresh":
			runCommand(ctx, a.Refresh)
		case "deleteme":
			runCommand(ctx, a.DeleteMe)
		case "logout":
			runCommand(ctx, a.Logout)
		case "exit", "quit":
			return
		default:
			printlnFn("Unknown command. Type 'help' for the list of commands.")
		}
	}
}

func runCommand(ctx context.Context, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		printlnFn(err.Error())
	}
}

// Root runs the REPL against stdin until the user exits.
func (a *App) Root(ctx context.Context) {
	statusFn := func() string {
		if a.isLoggedIn() {
			return a.session.username
		}
		return "not signed in"
	}
	runREPL(ctx, a, statusFn, bufio.NewScanner(os.Stdin))
}
