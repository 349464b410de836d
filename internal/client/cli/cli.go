// Package cli wires the session, migration, cache and history
// components behind terminal commands. All rendering lives here; the
// components below know nothing about the terminal.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/nstepa/quizdeck/internal/client/api"
	"github.com/nstepa/quizdeck/internal/client/cache"
	"github.com/nstepa/quizdeck/internal/client/history"
	"github.com/nstepa/quizdeck/internal/client/iocli"
	"github.com/nstepa/quizdeck/internal/client/migrate"
	"github.com/nstepa/quizdeck/internal/client/session"
	pkgapi "github.com/nstepa/quizdeck/pkg/api"
)

// Cli holds the assembled client components.
type Cli struct {
	io        iocli.IO
	api       *api.Client
	session   *session.Service
	migrator  *migrate.Migrator
	history   *history.Store
	userCache *cache.Cache[*pkgapi.User]
	logger    *slog.Logger
}

// New assembles the command layer.
func New(io iocli.IO, apiClient *api.Client, sess *session.Service, migrator *migrate.Migrator,
	hist *history.Store, userCache *cache.Cache[*pkgapi.User], logger *slog.Logger,
) *Cli {
	return &Cli{
		io:        io,
		api:       apiClient,
		session:   sess,
		migrator:  migrator,
		history:   hist,
		userCache: userCache,
		logger:    logger,
	}
}

// Run dispatches a command. Errors are printed and exit the process.
func (c *Cli) Run(ctx context.Context, command string, args []string) {
	var err error
	switch command {
	case "login":
		err = c.runLogin(ctx)
	case "signup":
		err = c.runSignup(ctx)
	case "guest":
		err = c.runGuest(ctx)
	case "logout":
		err = c.runLogout(ctx)
	case "status":
		err = c.runStatus(ctx)
	case "record":
		err = c.runRecord(ctx, args)
	case "dashboard":
		err = c.runDashboard(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		PrintUsage()
		os.Exit(1)
	}
	if err != nil {
		c.printError(err)
		os.Exit(1)
	}
}

// PrintUsage prints the command summary.
func PrintUsage() {
	fmt.Println("QuizDeck client")
	fmt.Println()
	fmt.Println("Usage: quizdeck [flags] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  signup     Create a new account")
	fmt.Println("  login      Sign in (migrates guest progress if present)")
	fmt.Println("  guest      Start a guest session")
	fmt.Println("  logout     Sign out")
	fmt.Println("  status     Show identity and session state")
	fmt.Println("  record     Record a completed quiz: record <topic> <score> <total>")
	fmt.Println("  dashboard  Show profile and quiz history")
}

// printError renders an AuthError with its field details when present.
func (c *Cli) printError(err error) {
	c.io.Println()
	var authErr *api.AuthError
	if errors.As(err, &authErr) {
		c.io.Printf("Error: %s\n", authErr.Message)
		for field, msg := range authErr.Fields {
			c.io.Printf("  %s: %s\n", field, msg)
		}
		return
	}
	c.io.Printf("Error: %v\n", err)
}
