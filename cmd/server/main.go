package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/twmb/franz-go/pkg/kgo"
	"golang.org/x/sync/errgroup"

	apphandler "transferdesk/internal/application/handler"
	appmetrics "transferdesk/internal/application/metrics"
	appservice "transferdesk/internal/application/service"
	appstore "transferdesk/internal/application/store"
	"transferdesk/internal/evaluation"
	evalhandler "transferdesk/internal/evaluation/handler"
	evalmetrics "transferdesk/internal/evaluation/metrics"
	evalstore "transferdesk/internal/evaluation/store"
	httpapi "transferdesk/internal/http"
	"transferdesk/internal/jwttoken"
	"transferdesk/internal/platform/config"
	"transferdesk/internal/platform/httpserver"
	"transferdesk/internal/platform/logger"
	platformredis "transferdesk/internal/platform/redis"
	quotahandler "transferdesk/internal/quota/handler"
	quotaservice "transferdesk/internal/quota/service"
	quotastore "transferdesk/internal/quota/store"
	"transferdesk/internal/ranking"
	rankhandler "transferdesk/internal/ranking/handler"
	rankmetrics "transferdesk/internal/ranking/metrics"
	rankstore "transferdesk/internal/ranking/store"
	"transferdesk/internal/registry"
	registryhandler "transferdesk/internal/registry/handler"
	"transferdesk/internal/reporting"
	reporthandler "transferdesk/internal/reporting/handler"
	audit "transferdesk/pkg/platform/audit"
	auditmemory "transferdesk/pkg/platform/audit/store/memory"
	auditpostgres "transferdesk/pkg/platform/audit/store/postgres"
	"transferdesk/pkg/platform/audit/publisher"
	auditworker "transferdesk/pkg/platform/audit/worker"
	txpkg "transferdesk/pkg/platform/tx"
)

// applicationStore joins the write-side contract with the reporting read
// side, both satisfied by each application store implementation.
type applicationStore interface {
	appservice.Store
	reporting.StatusCounter
}

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence: postgres when configured, in-memory otherwise.
	var (
		db         *sql.DB
		appStore   applicationStore
		evalStore  evaluation.Store
		quotaStore quotaservice.Store
		rankStore  ranking.Store
		auditStore audit.Store
		txRunner   txpkg.Runner = txpkg.NopRunner{}
	)
	if cfg.PostgresDSN != "" {
		var err error
		db, err = sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return err
		}
		appStore = appstore.NewPostgres(db)
		evalStore = evalstore.NewPostgres(db)
		quotaStore = quotastore.NewPostgres(db)
		rankStore = rankstore.NewPostgres(db)
		auditStore = auditpostgres.New(db)
		txRunner = txpkg.NewSQLRunner(db)
		log.Info("using postgres storage")
	} else {
		appStore = appstore.NewInMemory()
		evalStore = evalstore.NewInMemory()
		quotaStore = quotastore.NewInMemory()
		rankStore = rankstore.NewInMemory()
		auditStore = auditmemory.NewInMemoryStore()
		log.Warn("POSTGRES_DSN not set, using in-memory storage")
	}

	// Cohort lock: redis when configured, process-local otherwise.
	var locker ranking.Locker = ranking.NewMemoryLocker()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = ranking.NewRedisLocker(redisClient.Client)
		log.Info("using redis cohort locks")
	}

	auditor := publisher.NewPublisher(auditStore)
	defer auditor.Close()

	requirements := registry.NewRequirements()
	baseScores := registry.NewBaseScores()

	appSvc := appservice.New(appStore,
		appservice.WithTxRunner(txRunner),
		appservice.WithAuditPublisher(auditor),
		appservice.WithLogger(log),
		appservice.WithMetrics(appmetrics.New()),
	)
	quotaSvc := quotaservice.New(quotaStore,
		quotaservice.WithAuditPublisher(auditor),
		quotaservice.WithLogger(log),
	)
	evalSvc := evaluation.New(evalStore, appStore, requirements, baseScores, rankStore,
		evaluation.WithTxRunner(txRunner),
		evaluation.WithAuditPublisher(auditor),
		evaluation.WithLogger(log),
		evaluation.WithMetrics(evalmetrics.New()),
	)
	rankSvc := ranking.New(rankStore, evalStore, quotaSvc, locker,
		ranking.WithTxRunner(txRunner),
		ranking.WithAuditPublisher(auditor),
		ranking.WithLogger(log),
		ranking.WithMetrics(rankmetrics.New()),
	)
	reportSvc := reporting.New(appStore, auditStore, log)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "transferdesk", "transferdesk-api")
	router := httpapi.NewRouter(tokens, log,
		apphandler.New(appSvc, log),
		evalhandler.New(evalSvc, log),
		rankhandler.New(rankSvc, log),
		quotahandler.New(quotaSvc, log),
		registryhandler.New(requirements, baseScores, log),
		reporthandler.New(reportSvc, log),
	)
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting transferdesk", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// The outbox relay only runs with durable storage and a broker.
	if db != nil && len(cfg.Kafka.Brokers) > 0 {
		kafkaClient, err := kgo.NewClient(
			kgo.SeedBrokers(cfg.Kafka.Brokers...),
			kgo.DefaultProduceTopic(cfg.Kafka.Topic),
		)
		if err != nil {
			return err
		}
		defer kafkaClient.Close()
		relay := auditworker.New(db, kafkaClient, cfg.Kafka.Topic, log)
		group.Go(func() error {
			return relay.Run(ctx)
		})
		log.Info("audit outbox relay started", "topic", cfg.Kafka.Topic)
	}

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return group.Wait()
}
