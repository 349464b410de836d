package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/nstepa/quizdeck/internal/client/api"
	"github.com/nstepa/quizdeck/internal/client/cache"
	"github.com/nstepa/quizdeck/internal/client/cli"
	"github.com/nstepa/quizdeck/internal/client/history"
	"github.com/nstepa/quizdeck/internal/client/iocli"
	"github.com/nstepa/quizdeck/internal/client/migrate"
	"github.com/nstepa/quizdeck/internal/client/secure"
	"github.com/nstepa/quizdeck/internal/client/session"
	"github.com/nstepa/quizdeck/internal/client/storage/boltdb"
	"github.com/nstepa/quizdeck/internal/config"
	"github.com/nstepa/quizdeck/internal/crypto"
	"github.com/nstepa/quizdeck/internal/events"
	pkgapi "github.com/nstepa/quizdeck/pkg/api"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "", "Server URL (overrides environment)")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}
	command := args[0]

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if *serverURL != "" {
		cfg.ServerURL = *serverURL
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()

	boltStorage, err := boltdb.New(ctx, cfg.StorePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open local store: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := boltStorage.Close(); err != nil {
			logger.Error("failed to close local store", slog.Any("error", err))
		}
	}()

	keys, err := loadKeySource(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load store key: %v\n", err)
		os.Exit(1)
	}

	store, err := secure.New(boltStorage, keys, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize encrypted store: %v\n", err)
		os.Exit(1)
	}

	hist, err := history.New(ctx, cfg.HistoryPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open history database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := hist.Close(); err != nil {
			logger.Error("failed to close history database", slog.Any("error", err))
		}
	}()

	apiClient := api.NewClient(cfg.ServerURL)
	bus := events.NewBus()

	bus.Subscribe(events.SessionExpired, func(evt events.Event) {
		fmt.Fprintf(os.Stderr, "\nSession ended: %s. Please log in again.\n", evt.Reason)
	})
	bus.Subscribe(events.TokenRefreshed, func(events.Event) {
		logger.Debug("session token refreshed")
	})

	sess := session.NewService(apiClient, store, bus, sessionConfig(cfg), logger)
	sess.SetInactivityWarning(func() {
		fmt.Fprintln(os.Stderr, "\nStill there? You will be signed out soon due to inactivity.")
	})
	sess.Start()
	defer sess.Close()

	migrator := migrate.New(apiClient, store, hist, logger)
	userCache := cache.New[*pkgapi.User](cfg.CacheTTL)

	c := cli.New(iocli.NewStdio(), apiClient, sess, migrator, hist, userCache, logger)
	c.Run(ctx, command, args[1:])
}

// loadKeySource resolves the store key: a credential-derived key when
// email and secret are configured, then an explicit key from the
// environment, then a per-install key file.
func loadKeySource(cfg *config.Config) (crypto.KeySource, error) {
	if cfg.StoreEmail != "" && cfg.StoreSecret != "" {
		salt, err := crypto.LoadOrCreateSaltFile(cfg.SaltPath)
		if err != nil {
			return nil, err
		}
		return crypto.DerivedKey{Email: cfg.StoreEmail, Secret: cfg.StoreSecret, Salt: salt}, nil
	}
	if cfg.StoreKey != "" {
		return crypto.StaticKeyFromBase64(cfg.StoreKey)
	}
	return crypto.LoadOrCreateKeyFile(cfg.KeyPath)
}

func sessionConfig(cfg *config.Config) session.Config {
	return session.Config{
		SessionTTL:        cfg.SessionTTL,
		RefreshTokenTTL:   cfg.RefreshTokenTTL,
		GuestTTL:          cfg.GuestTTL,
		StatusTick:        cfg.StatusTick,
		RefreshThreshold:  cfg.RefreshThreshold,
		InactivityTimeout: cfg.InactivityTimeout,
		WarningTime:       cfg.WarningTime,
	}
}

func printVersion() {
	fmt.Printf("QuizDeck Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
