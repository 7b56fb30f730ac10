// Command lumoractl is the operator CLI for the Lumora client.
//
// Usage:
//
//	lumoractl status
//	lumoractl token show
//	lumoractl token set <token>
//	lumoractl token issue <subject>
//	lumoractl token clear
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumora-app/lumora-client/internal/client"
	"github.com/lumora-app/lumora-client/internal/config"
	"github.com/lumora-app/lumora-client/internal/identity"
	"github.com/lumora-app/lumora-client/pkg/tokenstore"
)

func main() {
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(zerolog.WarnLevel)

	cfg, err := config.Load()
	if err != nil {
		fatal("loading config: %v", err)
	}

	if len(os.Args) < 2 {
		usage()
	}

	storage, err := tokenstore.NewSQLiteStorage(cfg.TokenDBPath, logger)
	if err != nil {
		fatal("opening token storage: %v", err)
	}
	defer storage.Close()

	tokens := tokenstore.New(storage, logger)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	switch os.Args[1] {
	case "status":
		runStatus(ctx, cfg, tokens, logger)
	case "token":
		runToken(ctx, cfg, tokens)
	default:
		usage()
	}
}

func runStatus(ctx context.Context, cfg *config.Config, tokens *tokenstore.Store, logger zerolog.Logger) {
	apiClient := client.New(cfg.APIBaseURL, tokens, logger,
		client.WithAttemptTimeout(cfg.AttemptTimeout),
	)
	report, err := apiClient.Status(ctx)
	if err != nil {
		fatal("%v", err)
	}
	fmt.Printf("backend: %s (version %s)\n", report.Status, report.Version)
}

func runToken(ctx context.Context, cfg *config.Config, tokens *tokenstore.Store) {
	if len(os.Args) < 3 {
		usage()
	}
	switch os.Args[2] {
	case "show":
		tok, ok := tokens.Get(ctx)
		if !ok {
			fmt.Println("no token stored")
			return
		}
		fmt.Printf("token present (%d bytes)\n", len(tok))
	case "set":
		if len(os.Args) < 4 {
			usage()
		}
		if err := tokens.Set(ctx, os.Args[3]); err != nil {
			fatal("storing token: %v", err)
		}
		fmt.Println("token stored")
	case "issue":
		if len(os.Args) < 4 {
			usage()
		}
		if cfg.DevTokenSecret == "" {
			fatal("LUMORA_DEV_TOKEN_SECRET is not set")
		}
		tok, err := identity.MintDevToken(cfg.DevTokenSecret, os.Args[3], time.Hour)
		if err != nil {
			fatal("minting dev token: %v", err)
		}
		if err := tokens.Set(ctx, tok); err != nil {
			fatal("storing token: %v", err)
		}
		fmt.Printf("dev token issued for %s and stored\n", os.Args[3])
	case "clear":
		if err := tokens.Clear(ctx); err != nil {
			fatal("clearing token: %v", err)
		}
		fmt.Println("token cleared")
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: lumoractl status | token show|set <token>|issue <subject>|clear")
	os.Exit(2)
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
