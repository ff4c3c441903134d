package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"git.sr.ht/~jakintosh/bearer/internal/config"
	"git.sr.ht/~jakintosh/bearer/internal/logging"
	"git.sr.ht/~jakintosh/bearer/pkg/credentials"
	"git.sr.ht/~jakintosh/bearer/pkg/guard"
)

// runNav routes each destination through the session guard and prints where
// the navigation lands. Without arguments, destinations are read from stdin
// one per line.
func runNav(ctx context.Context, cfg config.Config, store credentials.Store, args []string) error {
	fs := flag.NewFlagSet("nav", flag.ExitOnError)
	watch := fs.Bool("watch", false, "reload the public paths file when it changes")
	fs.Parse(args)

	log := logging.New("nav", cfg.LogLevel)

	public := guard.DefaultAllowList()
	if cfg.PublicPathsFile != "" {
		paths, err := config.LoadPublicPaths(cfg.PublicPathsFile)
		if err != nil {
			return err
		}
		public.Replace(paths)

		if *watch {
			err := config.WatchPublicPaths(ctx, cfg.PublicPathsFile, log, public.Replace)
			if err != nil {
				return fmt.Errorf("failed to watch public paths: %w", err)
			}
		}
	}

	g := guard.New(guard.Options{
		Store:    store,
		Public:   public,
		LogLevel: cfg.LogLevel,
	})
	router := guard.NewRouter()
	registration := g.Attach(router)
	defer registration.Close()

	navigate := func(destination string) error {
		landed, err := router.Navigate(ctx, destination)
		if err != nil {
			return err
		}
		if landed == destination {
			fmt.Printf("%s\tallowed\n", destination)
		} else {
			fmt.Printf("%s\tredirected to %s\n", destination, landed)
		}
		return nil
	}

	if fs.NArg() > 0 {
		for _, destination := range fs.Args() {
			if err := navigate(destination); err != nil {
				return err
			}
		}
		return nil
	}

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		destination := strings.TrimSpace(scanner.Text())
		if destination == "" {
			continue
		}
		if err := navigate(destination); err != nil {
			return err
		}
	}
	return scanner.Err()
}
