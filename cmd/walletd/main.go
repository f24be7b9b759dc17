// walletd is the persona wallet daemon. It owns the device identity, serves
// the local wallet API, and talks to the content store, the claim ledger, and
// the disclosure relay. Business logic lives in the internal packages; main
// only wires dependencies and the process lifecycle.
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

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"persona/internal/cas"
	"persona/internal/confirm"
	"persona/internal/identity"
	"persona/internal/platform/config"
	"persona/internal/platform/httpserver"
	"persona/internal/platform/logger"
	"persona/internal/platform/metrics"
	platformredis "persona/internal/platform/redis"
	"persona/internal/registry"
	"persona/internal/relay"
	"persona/internal/wallet"
	"persona/internal/wallet/handler"
	"persona/pkg/platform/audit"
	kafkapub "persona/pkg/platform/audit/publishers/kafka"
	auditmemory "persona/pkg/platform/audit/store/memory"
	auditpostgres "persona/pkg/platform/audit/store/postgres"
	auditworker "persona/pkg/platform/audit/worker"
)

func main() {
	if err := run(); err != nil {
		slog.Error("walletd exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional pointer cache.
	var cache *registry.PointerCache
	rdb, err := platformredis.New(cfg.Redis)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
		cache = registry.NewPointerCache(rdb.Client, config.PointerCacheTTL)
		log.Info("pointer cache enabled")
	}

	store := cas.New(cfg.StoreAddURL, cfg.StoreFetchURL)
	ledger := registry.NewHTTPLedger(cfg.LedgerURL)
	reg := registry.New(ledger, cache, registry.TxOptions{
		GasLimit: cfg.GasLimit,
		GasPrice: cfg.GasPrice,
	})
	rel := relay.New(cfg.RelayURL)
	confirmer := confirm.NewService(cfg.ConfirmSigningKey, cfg.ConfirmTTL)

	// Audit trail: durable store plus optional Kafka feed, fed by a worker so
	// wallet flows never block on audit IO.
	auditStore, closeAuditStore, err := newAuditStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAuditStore()

	var sink audit.Publisher
	kafkaPub, err := kafkapub.New(cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
	if err != nil {
		return err
	}
	if kafkaPub != nil {
		defer kafkaPub.Close()
		sink = kafkaPub
		log.Info("audit stream enabled", "topic", cfg.Kafka.AuditTopic)
	}

	inbox := make(chan audit.Event, 256)
	auditor := audit.NewChannelPublisher(inbox)

	// Device identity: load the account record, or mint one on first run.
	accounts := newAccountStore(cfg)
	id, created, err := identity.Ensure(ctx, accounts)
	if err != nil {
		return err
	}
	if created {
		log.Info("generated new identity", "address", id.Addr)
		auditor.Emit(ctx, audit.Event{
			Owner:  id.Addr,
			Action: string(audit.EventIdentityCreated),
		})
	} else {
		log.Info("loaded identity", "address", id.Addr)
	}

	session := wallet.NewSession(wallet.Config{
		Identity:  id,
		Store:     store,
		Registry:  reg,
		Relay:     rel,
		Confirmer: confirmer,
		Logger:    log,
		Metrics:   m,
		Auditor:   auditor,
		GasLimit:  cfg.GasLimit,
	})

	// Resolve the owner's own persona before serving. Failures degrade: the
	// UI shows the load error and the user can still save a fresh persona.
	if err := session.Load(ctx); err != nil {
		log.Warn("persona load failed, continuing with empty profile", "error", err)
	}

	router := chi.NewRouter()
	handler.New(session, log, m).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return auditworker.NewWorker(auditStore, sink, inbox, log).Run(gctx)
	})
	g.Go(func() error {
		log.Info("starting walletd", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("walletd stopped")
	return nil
}

func newAccountStore(cfg config.Wallet) identity.Store {
	if cfg.AccountFile != "" {
		return identity.NewFileStore(cfg.AccountFile)
	}
	return identity.NewInMemoryStore()
}

func newAuditStore(ctx context.Context, cfg config.Wallet) (audit.Store, func(), error) {
	if cfg.AuditDBURL == "" {
		return auditmemory.NewInMemoryStore(), func() {}, nil
	}

	db, err := sql.Open("postgres", cfg.AuditDBURL)
	if err != nil {
		return nil, nil, err
	}
	store := auditpostgres.New(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, func() { db.Close() }, nil
}
