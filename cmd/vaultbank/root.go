package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"vaultbank/application"
	"vaultbank/config"
	"vaultbank/domain"
	"vaultbank/infrastructure/cache"
	"vaultbank/infrastructure/oracle"
	"vaultbank/internal/audit"
	"vaultbank/server"
	"vaultbank/telemetry"
)

const version = "v0.3.0"

func Execute(ctx context.Context) error {
	root := &cobra.Command{Use: "vaultbank", Short: "Custodial multi-asset ledger"}
	root.AddCommand(serveCmd(ctx))
	root.AddCommand(versionCmd())
	return root.Execute()
}

func versionCmd() *cobra.Command {
	return &cobra.Command{Use: "version", RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("vaultbank", version)
		return nil
	}}
}

func serveCmd(ctx context.Context) *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ledger API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(ctx, configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "vaultbank.yaml", "path to config file")
	return cmd
}

func serve(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	ledger, err := domain.NewLedger(cfg.BankCapacity(), cfg.WithdrawalThreshold())
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := telemetry.New(registry)

	gw := oracle.New(oracle.Config{
		Heartbeat: cfg.Heartbeat(),
		QuoteTTL:  cfg.QuoteTTL(),
		Cache:     cache.New(cfg.Cache.RedisAddr),
		Metrics:   metrics,
		Logger:    log.Logger,
	})

	book := domain.NewDecimalBook()
	for _, f := range cfg.Feeds {
		asset := domain.Asset(f.Asset)
		gw.Register(asset, oracle.NewHTTPFeed(f.URL, 10*time.Second))
		if !asset.IsNative() {
			book.Set(asset, f.Decimals)
		}
		log.Info().Str("asset", f.Asset).Str("url", f.URL).Msg("price feed configured")
	}

	conv := domain.NewConverter(gw, book)
	auth := application.NewStaticAuthority(cfg.Auth.Admins, cfg.Auth.SuperAdmins)
	transfers := application.LogTransfers{Log: log.Logger}

	var events application.EventSink = application.LogSink{Log: log.Logger}
	if cfg.AuditDir != "" {
		journal := audit.NewJournal(cfg.AuditDir)
		journal.OnError = func(err error) {
			log.Warn().Err(err).Msg("audit journal write failed")
		}
		events = application.MultiSink{events, journal}
	}

	bank := application.NewBank(ledger, conv, transfers, events, metrics, log.Logger)
	admin := application.NewAdmin(ledger, gw, auth, events, metrics, log.Logger)

	srv := server.New(bank, admin, book, registry, log.Logger)
	httpSrv := &http.Server{Addr: cfg.Listen, Handler: srv.Router()}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("listen", cfg.Listen).Str("version", version).Msg("vaultbank serving")
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
