package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"git.sr.ht/~jakintosh/bearer/internal/config"
)

const usage = `usage: bearer <command> [flags]

commands:
  call [-X method] [-d body] [-json] <path>   call the API with the stored credential
  tokens set -access <token> [-refresh <token>]
  tokens show                                  report which tokens are stored
  tokens refresh                               exchange the refresh token now
  tokens clear                                 forget both tokens
  nav [-watch] [path...]                       check navigation against the session guard

configuration is read from BEARER_* environment variables.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("failed to load config: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := config.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open %s store: %v\n", cfg.Store, err)
	}
	defer closeStore()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "call":
		err = runCall(ctx, cfg, store, args)
	case "tokens":
		err = runTokens(ctx, cfg, store, args)
	case "nav":
		err = runNav(ctx, cfg, store, args)
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command '%s'\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "bearer %s: %v\n", cmd, err)
		closeStore()
		os.Exit(1)
	}
}
