// Command server runs the policy-enforcing query gateway as an HTTP API.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"datashield/internal/api"
	"datashield/internal/config"
	internaldb "datashield/internal/db"
	"datashield/internal/db/repository"
	"datashield/internal/gateway"
	"datashield/internal/ingest"
	"datashield/internal/keyvault"
	"datashield/internal/middleware"
	"datashield/internal/policy"
	"datashield/internal/service/governance"
	"datashield/internal/service/security"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, warning := range cfg.Warnings {
		logger.Warn(warning)
	}

	// Control plane: principals, grants, column keys, audit trail.
	writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.MetaDBPath, 0)
	if err != nil {
		return err
	}
	defer writeDB.Close() //nolint:errcheck
	defer readDB.Close()  //nolint:errcheck
	if err := internaldb.RunMigrations(writeDB); err != nil {
		return err
	}

	dataDB, dialect, err := openDataEngine(cfg)
	if err != nil {
		return err
	}
	defer dataDB.Close() //nolint:errcheck

	store, err := internaldb.NewSQLDatastore(dataDB, dialect)
	if err != nil {
		return err
	}

	principals := repository.NewPrincipalRepo(writeDB)
	grants := repository.NewGrantRepo(writeDB)
	audits := repository.NewAuditRepo(writeDB)
	keys := repository.NewColumnKeyRepo(writeDB)

	vault, err := keyvault.New(keys, cfg.MasterKeyPassphrase)
	if err != nil {
		return err
	}

	// Authorization reads run on every query; route them through the read
	// pool so they never queue behind the single write connection. Grant and
	// user mutation stays on the serialized write pool.
	authEngine := policy.NewEngine(
		repository.NewPrincipalRepo(readDB),
		repository.NewGrantRepo(readDB),
		store,
	)
	adminEngine := policy.NewEngine(principals, grants, store)
	identity := security.NewIdentityService(principals, audits)
	auditSvc := governance.NewAuditService(audits)
	signer, err := middleware.NewTokenSigner(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return err
	}

	handler := api.NewHandler(
		gateway.New(authEngine, vault, store, audits),
		identity,
		adminEngine,
		vault,
		auditSvc,
		ingest.NewLoader(dataDB, vault),
		store,
		signer,
		logger,
	)

	router := handler.Routes(api.RouterConfig{
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		AllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := cron.New()
	if _, err := sweeper.AddFunc(cfg.AuditSweepSchedule, func() {
		deleted, err := auditSvc.Prune(context.Background(), cfg.AuditRetentionDays)
		if err != nil {
			logger.Error("audit retention sweep failed", "error", err)
			return
		}
		logger.Info("audit retention sweep", "deleted", deleted, "retention_days", cfg.AuditRetentionDays)
	}); err != nil {
		return fmt.Errorf("invalid AUDIT_SWEEP_SCHEDULE %q: %w", cfg.AuditSweepSchedule, err)
	}
	sweeper.Start()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http api listening", "addr", cfg.ListenAddr, "engine", cfg.DataEngine)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		<-sweeper.Stop().Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openDataEngine opens the queried database: embedded DuckDB for analytics
// workloads, SQLite otherwise.
func openDataEngine(cfg *config.Config) (*sql.DB, string, error) {
	if cfg.DataEngine == "duckdb" {
		db, err := sql.Open("duckdb", cfg.DataDBPath)
		if err != nil {
			return nil, "", fmt.Errorf("open duckdb: %w", err)
		}
		return db, internaldb.DialectDuckDB, nil
	}

	db, err := internaldb.OpenSQLite(cfg.DataDBPath, "write", 0)
	if err != nil {
		return nil, "", err
	}
	return db, internaldb.DialectSQLite, nil
}
