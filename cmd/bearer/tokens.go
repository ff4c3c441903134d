package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"git.sr.ht/~jakintosh/bearer/internal/config"
	"git.sr.ht/~jakintosh/bearer/pkg/client"
	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
)

type tokenStatus struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func runTokens(ctx context.Context, cfg config.Config, store credentials.Store, args []string) error {
	if len(args) == 0 {
		return errors.New("expected one of: set, show, refresh, clear")
	}

	c, err := client.New(cfg.ClientOptions(store))
	if err != nil {
		return err
	}

	switch args[0] {
	case "set":
		fs := flag.NewFlagSet("tokens set", flag.ExitOnError)
		access := fs.String("access", "", "access token (required)")
		refresh := fs.String("refresh", "", "refresh token")
		fs.Parse(args[1:])

		if *access == "" {
			return errors.New("-access is required")
		}
		return c.SignIn(ctx, credentials.Pair{AccessToken: *access, RefreshToken: *refresh})

	case "show":
		pair, err := credentials.LoadPair(ctx, store)
		if err != nil {
			return err
		}
		return printStatus(pair)

	case "refresh":
		pair, err := c.Refresh(ctx)
		if err != nil {
			return err
		}
		return printStatus(pair)

	case "clear":
		return c.SignOut(ctx)

	default:
		return fmt.Errorf("unknown tokens command '%s'", args[0])
	}
}

// printStatus reports which tokens are held without revealing them.
func printStatus(pair credentials.Pair) error {
	status := tokenStatus{
		AccessToken:  mask(pair.AccessToken),
		RefreshToken: mask(pair.RefreshToken),
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(status)
}

func mask(token string) string {
	switch {
	case token == "":
		return "absent"
	case len(token) <= 8:
		return "present"
	default:
		return "present (…" + token[len(token)-4:] + ")"
	}
}
