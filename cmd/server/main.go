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

	"github.com/spf13/pflag"
	"github.com/twmb/franz-go/pkg/kgo"

	artifactservice "sessionsale/internal/artifact/service"
	"sessionsale/internal/artifact/storage"
	artifactstore "sessionsale/internal/artifact/store"
	credentialservice "sessionsale/internal/credential/service"
	credentialstore "sessionsale/internal/credential/store"
	jwttoken "sessionsale/internal/jwt_token"
	"sessionsale/internal/notify"
	"sessionsale/internal/notify/telegram"
	"sessionsale/internal/platform/config"
	"sessionsale/internal/platform/httpserver"
	"sessionsale/internal/platform/lock"
	"sessionsale/internal/platform/logger"
	"sessionsale/internal/platform/metrics"
	"sessionsale/internal/platform/postgres"
	"sessionsale/internal/platform/redis"
	salehandler "sessionsale/internal/sale/handler"
	salemetrics "sessionsale/internal/sale/metrics"
	"sessionsale/internal/sale/reconcile"
	"sessionsale/internal/sale/retirement"
	saleservice "sessionsale/internal/sale/service"
	salestore "sessionsale/internal/sale/store"
	httptransport "sessionsale/internal/transport/http"
	id "sessionsale/pkg/domain"
	"sessionsale/pkg/platform/audit"
	auditkafka "sessionsale/pkg/platform/audit/kafka"
	"sessionsale/pkg/platform/audit/publisher"
	auditmemory "sessionsale/pkg/platform/audit/store/memory"
	"sessionsale/pkg/platform/tx"
)

const shutdownTimeout = 10 * time.Second

type flags struct {
	addr          string
	migrateOnly   bool
	reconcileOnce bool
	issueToken    string
	tokenTTL      time.Duration
}

func main() {
	var f flags
	pflag.StringVar(&f.addr, "addr", "", "listen address (overrides SESSIONSALE_ADDR)")
	pflag.BoolVar(&f.migrateOnly, "migrate", false, "apply database migrations and exit")
	pflag.BoolVar(&f.reconcileOnce, "reconcile-once", false, "run one reconciliation pass and exit")
	pflag.StringVar(&f.issueToken, "issue-admin-token", "", "print an admin bearer token for the given admin id and exit")
	pflag.DurationVar(&f.tokenTTL, "token-ttl", 12*time.Hour, "lifetime of tokens printed by --issue-admin-token")
	pflag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	log := logger.New(cfg.Server.LogFormat, cfg.Server.LogLevel)

	if err := run(cfg, f, log); err != nil {
		log.Error("sessionsale exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, f flags, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jwtService := jwttoken.NewJWTService(cfg.Server.JWTSigningKey, cfg.Server.JWTIssuer, cfg.Server.JWTAudience)
	if f.issueToken != "" {
		adminID, err := id.ParseActorID(f.issueToken)
		if err != nil {
			return err
		}
		token, err := jwtService.GenerateAdminToken(adminID, f.tokenTTL)
		if err != nil {
			return err
		}
		fmt.Println(token)
		return nil
	}

	infra, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer infra.close()

	if f.migrateOnly {
		if infra.db == nil {
			return errors.New("--migrate requires SESSIONSALE_POSTGRES_DSN")
		}
		log.Info("migrations applied")
		return nil
	}

	app := wire(cfg, infra, log)
	defer app.audit.Close()

	if f.reconcileOnce {
		report, err := app.reconciler.RunOnce(ctx)
		if err != nil {
			return err
		}
		log.Info("reconciliation finished",
			"findings", len(report.Findings),
			"repaired", len(report.Repaired),
			"failed", len(report.Failed),
		)
		return nil
	}

	go func() {
		if err := app.reconciler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("reconciler stopped", "error", err)
		}
	}()

	router := httptransport.NewRouter(httptransport.Config{
		Logger:    log,
		Metrics:   metrics.New(),
		Validator: jwttoken.NewJWTServiceAdapter(jwtService),
		Checks:    infra.checks(),
	}, app.handler)

	srv := httpserver.New(cfg.Server.Addr, router, cfg.Server.RequestTimeout)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting sessionsale", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("sessionsale stopped")
	return nil
}

// infra holds the optional external dependencies. A nil field means the
// in-process fallback is used.
type infra struct {
	db    *sql.DB
	redis *redis.Client
	kafka *kgo.Client
}

func openInfra(ctx context.Context, cfg config.Config, log *slog.Logger) (*infra, error) {
	in := &infra{}
	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		in.db = db
		if err := postgres.Migrate(db); err != nil {
			in.close()
			return nil, err
		}
	} else {
		log.Warn("SESSIONSALE_POSTGRES_DSN not set, using in-memory stores")
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		in.close()
		return nil, err
	}
	in.redis = client
	if client == nil {
		log.Warn("SESSIONSALE_REDIS_URL not set, credential lock is process-local")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		kc, err := auditkafka.NewClient(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
		if err != nil {
			in.close()
			return nil, err
		}
		in.kafka = kc
		topics := auditkafka.New(kc, cfg.Kafka.TopicPrefix).Topics()
		if err := auditkafka.EnsureTopics(ctx, kc, cfg.Kafka.Partitions, cfg.Kafka.Replication, topics...); err != nil {
			in.close()
			return nil, err
		}
	}
	return in, nil
}

func (in *infra) checks() map[string]httptransport.HealthCheck {
	checks := map[string]httptransport.HealthCheck{}
	if in.db != nil {
		checks["postgres"] = in.db.PingContext
	}
	if in.redis != nil {
		checks["redis"] = in.redis.Health
	}
	if in.kafka != nil {
		checks["kafka"] = in.kafka.Ping
	}
	return checks
}

func (in *infra) close() {
	if in.kafka != nil {
		in.kafka.Close()
	}
	if in.redis != nil {
		_ = in.redis.Close()
	}
	if in.db != nil {
		_ = in.db.Close()
	}
}

type application struct {
	handler    *salehandler.Handler
	reconciler *reconcile.Reconciler
	audit      *publisher.Publisher
}

func wire(cfg config.Config, in *infra, log *slog.Logger) *application {
	var (
		credentials credentialservice.Store = credentialstore.NewInMemory()
		ledger      interface {
			saleservice.Store
			retirement.Ledger
			reconcile.Ledger
		} = salestore.NewInMemory()
		manifest artifactservice.Manifest = artifactstore.NewInMemory()
		runner   tx.Runner                = tx.NopRunner{}
		locker   lock.Locker              = lock.NewLocal()
	)
	if in.db != nil {
		credentials = credentialstore.NewPostgres(in.db)
		ledger = salestore.NewPostgres(in.db)
		manifest = artifactstore.NewPostgres(in.db)
		runner = tx.NewPostgresRunner(in.db, cfg.Postgres.TxTimeout)
	}
	if in.redis != nil {
		locker = lock.NewRedis(in.redis.Client, lock.WithExpiry(cfg.Redis.LockExpiry), lock.WithLogger(log))
	}

	auditLog := auditmemory.NewInMemoryStore()
	sinks := audit.Fanout{auditLog}
	if in.kafka != nil {
		sinks = append(sinks, auditkafka.New(in.kafka, cfg.Kafka.TopicPrefix))
	}
	emitter := publisher.NewPublisher(sinks, publisher.WithLogger(log))

	var channel notify.Channel
	if cfg.Telegram.BotToken != "" {
		client, err := telegram.New(cfg.Telegram, telegram.WithLogger(log))
		if err != nil {
			log.Error("telegram channel misconfigured, archives will only be recorded locally", "error", err)
			channel = notify.NewRecorder()
		} else {
			channel = client
		}
	} else {
		log.Warn("SESSIONSALE_TELEGRAM_BOT_TOKEN not set, archives are recorded in memory only")
		channel = notify.NewRecorder()
	}

	saleMetrics := salemetrics.New()
	artifacts := artifactservice.New(manifest, storage.NewFS(cfg.Artifacts.Root), artifactservice.WithLogger(log))
	credentialSvc := credentialservice.New(credentials,
		credentialservice.WithLogger(log),
		credentialservice.WithAuditPublisher(emitter),
		credentialservice.WithLocker(locker),
		credentialservice.WithTxRunner(runner),
		credentialservice.WithArtifactRegistrar(artifacts),
	)
	protocol := retirement.New(credentialSvc, artifacts, ledger, channel, cfg.Retirement,
		retirement.WithLogger(log),
		retirement.WithAuditPublisher(emitter),
		retirement.WithMetrics(saleMetrics),
	)
	saleSvc := saleservice.New(ledger, credentialSvc, protocol,
		saleservice.WithLogger(log),
		saleservice.WithAuditPublisher(emitter),
		saleservice.WithLocker(locker),
		saleservice.WithTxRunner(runner),
		saleservice.WithMetrics(saleMetrics),
	)
	reconciler := reconcile.New(credentialSvc, ledger, saleSvc, cfg.Reconciliation,
		reconcile.WithLogger(log),
		reconcile.WithAuditPublisher(emitter),
		reconcile.WithMetrics(saleMetrics),
	)

	return &application{
		handler:    salehandler.New(credentialSvc, saleSvc, reconciler, log),
		reconciler: reconciler,
		audit:      emitter,
	}
}
