package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/vaibhaw-/QueryGate/internal/querygate/audit"
	"github.com/vaibhaw-/QueryGate/internal/querygate/catalog"
	"github.com/vaibhaw-/QueryGate/internal/querygate/classify"
	"github.com/vaibhaw-/QueryGate/internal/querygate/config"
	"github.com/vaibhaw-/QueryGate/internal/querygate/db"
	"github.com/vaibhaw-/QueryGate/internal/querygate/engine"
	"github.com/vaibhaw-/QueryGate/internal/querygate/gateway"
	"github.com/vaibhaw-/QueryGate/internal/querygate/history"
	"github.com/vaibhaw-/QueryGate/internal/querygate/logger"
	"github.com/vaibhaw-/QueryGate/internal/querygate/ratelimit"
	"github.com/vaibhaw-/QueryGate/internal/querygate/schemaops"
	"github.com/vaibhaw-/QueryGate/internal/querygate/server"
)

const (
	sweepInterval   = 5 * time.Minute
	bucketIdleAfter = 10 * time.Minute
	shutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, config.Get())
	},
}

func init() {
	serveCmd.Flags().String("address", "", "listen address (overrides server.address)")
	serveCmd.Flags().String("driver", "", "database driver: postgres, mysql or sqlite3 (overrides database.driver)")
	serveCmd.Flags().String("dsn", "", "database DSN (overrides database.dsn)")
	_ = viper.BindPFlag("server.address", serveCmd.Flags().Lookup("address"))
	_ = viper.BindPFlag("database.driver", serveCmd.Flags().Lookup("driver"))
	_ = viper.BindPFlag("database.dsn", serveCmd.Flags().Lookup("dsn"))
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.L()

	pool, dialect, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	eng := engine.New(pool)
	limiters := ratelimit.NewEndpoints(ratelimit.Quotas{
		General: cfg.RateLimit.RequestsPerMinute,
		Query:   cfg.RateLimit.Query,
		Browse:  cfg.RateLimit.Browse,
		Schema:  cfg.RateLimit.Schema,
	})
	trail := audit.New(cfg.Audit.Capacity)

	var dict *classify.Dictionary
	if cfg.Audit.SensitivityDict != "" {
		if dict, err = classify.Load(cfg.Audit.SensitivityDict); err != nil {
			return err
		}
		log.Infow("sensitivity tagging enabled",
			"dict", cfg.Audit.SensitivityDict,
			"categories", dict.CategoryNames())
	}

	gw := gateway.New(gateway.Deps{
		Engine:    eng,
		Limiters:  limiters,
		History:   history.New(cfg.History.Capacity),
		Audit:     trail,
		Schema:    schemaops.New(eng, dialect),
		Catalog:   catalog.New(pool, dialect),
		QueueSize: cfg.Gateway.QueueSize,

		Classifier: dict,
	})
	defer gw.Close()

	gw.RecordAudit(audit.NewEvent(audit.ConfigurationChange, "local", "server start", cfg.Server.Address).
		WithDetails(fmt.Sprintf("driver=%s query=%d/min browse=%d/min schema=%d/min general=%d/min",
			dialect, cfg.RateLimit.Query, cfg.RateLimit.Browse, cfg.RateLimit.Schema, cfg.RateLimit.RequestsPerMinute)))

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           server.New(gw, server.Options{CORSOrigins: cfg.Server.CORSOrigins}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		limiters.SweepEvery(gctx, sweepInterval, bucketIdleAfter)
		return nil
	})
	g.Go(func() error {
		log.Infow("serve: listening", "address", cfg.Server.Address, "driver", dialect)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen on %s: %w", cfg.Server.Address, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.Infow("serve: shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	gw.Close()
	log.Infow("serve: stopped", "dropped_records", gw.Dropped())
	writeCheckpoint(cfg.Audit, trail.Head())
	return err
}

// writeCheckpoint pins the final chain head when checkpointing is configured.
func writeCheckpoint(cfg config.AuditCfg, head audit.ChainState) {
	if cfg.CheckpointDir == "" || cfg.SigningKey == "" {
		return
	}
	path, err := audit.WriteCheckpoint(cfg.CheckpointDir, head, cfg.SigningKey)
	if err != nil {
		logger.L().Errorw("serve: checkpoint failed", "error", err)
		return
	}
	logger.L().Infow("serve: checkpoint written", "path", path, "chain_index", head.LastChainIndex)
}
