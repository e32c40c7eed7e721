// Command vaultx drives the VaultX signup and login handshake from a terminal.
//
//	vaultx [-config file] [-server url] <signup|login|profile|forgot-password|status|logout>
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"github.com/Anish-ai/vaultx"
	"github.com/Anish-ai/vaultx/client"
	"github.com/Anish-ai/vaultx/config"
	"github.com/Anish-ai/vaultx/stores"
	"github.com/Anish-ai/vaultx/stores/fs"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: vaultx [flags] <command>\n\n")
	fmt.Fprintf(os.Stderr, "commands:\n")
	fmt.Fprintf(os.Stderr, "  signup           create an account and verify it\n")
	fmt.Fprintf(os.Stderr, "  login            log in with email, password and a one-time code\n")
	fmt.Fprintf(os.Stderr, "  profile          complete the profile and open the first account\n")
	fmt.Fprintf(os.Stderr, "  forgot-password  request a password reset email\n")
	fmt.Fprintf(os.Stderr, "  status           check the stored session with the server\n")
	fmt.Fprintf(os.Stderr, "  logout           remove the stored session\n\n")
	fmt.Fprintf(os.Stderr, "flags:\n")
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", os.Getenv("VAULTX_CONFIG"), "Path to a YAML config file")
	serverFlag := flag.String("server", "", "Override the API base URL")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if *serverFlag != "" {
		cfg.API.BaseURL = *serverFlag
		cfg.EnsureDefaults()
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	app, err := newApp(cfg, logger, os.Stdin, os.Stdout)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.run(ctx, flag.Arg(0)); err != nil {
		var herr *vaultx.HandshakeError
		if errors.As(err, &herr) {
			fmt.Fprintln(os.Stderr, herr.Error())
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// openSessions returns the session store selected by cfg
func openSessions(cfg *config.Config) (vaultx.SessionStore, error) {
	switch cfg.Store.Kind {
	case config.StoreMemory:
		return vaultx.NewSessionStore(stores.NewMemoryStore()), nil
	case config.StoreFS:
		store, err := fs.NewFSStore(cfg.Store.Path, "vaultx")
		if err != nil {
			return nil, err
		}
		origin, err := store.Origin(cfg.API.BaseURL)
		if err != nil {
			return nil, err
		}
		return vaultx.NewSessionStore(origin), nil
	}
	return nil, fmt.Errorf("unknown store kind %q", cfg.Store.Kind)
}

func newAPIClient(cfg *config.Config, sessions vaultx.SessionStore, logger *slog.Logger) *client.Client {
	return client.NewClient(cfg.API.BaseURL, sessions,
		client.WithHTTPClient(&http.Client{Timeout: cfg.API.Timeout}),
		client.WithLogger(logger),
	)
}
