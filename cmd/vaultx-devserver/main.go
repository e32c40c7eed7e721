// Command vaultx-devserver serves the VaultX auth API from memory for local
// development. Verification codes and reset tokens are printed to the log.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/Anish-ai/vaultx/config"
	"github.com/Anish-ai/vaultx/devserver"
)

func main() {
	configPath := flag.String("config", os.Getenv("VAULTX_CONFIG"), "Path to a YAML config file")
	addr := flag.String("addr", "", "Listen address (default from config, :8080)")
	prefix := flag.String("prefix", "/api", "Path prefix for all routes")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if *addr != "" {
		cfg.DevServer.Addr = *addr
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	secret := cfg.DevServer.JWTSecretKey
	if secret == "" {
		secret = "dev-only-secret-change-me"
		logger.Warn("VAULTX_JWT_SECRET_KEY not set, using an insecure development key")
	}

	srv := devserver.New(devserver.Config{
		PathPrefix:     *prefix,
		JWTSecretKey:   secret,
		TokenTTL:       cfg.DevServer.TokenTTL,
		OTPTTL:         cfg.DevServer.OTPTTL,
		MaxOTPAttempts: cfg.DevServer.MaxOTPAttempts,
		Sender:         &devserver.ConsoleOTPSender{},
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.DevServer.Addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("VaultX dev server running on %s%s", cfg.DevServer.Addr, *prefix)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
