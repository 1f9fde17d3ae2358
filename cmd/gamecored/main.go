package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hexgame/gamecore/internal/config"
	"github.com/hexgame/gamecore/internal/durable"
	"github.com/hexgame/gamecore/internal/handoff"
	"github.com/hexgame/gamecore/internal/logging"
	"github.com/hexgame/gamecore/internal/placement"
	"github.com/hexgame/gamecore/internal/recovery"
	"github.com/hexgame/gamecore/internal/resolver"
	"github.com/hexgame/gamecore/internal/runtime"
	"github.com/hexgame/gamecore/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(nodeID string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m              gamecored  v0.1.0            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       hex-grid session core · Go          \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mnode:\033[0m %s\n\n", nodeID)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ───────────────────────────────────────────────

func run() error {
	cfgPath := "config/gamecored.toml"
	if p := os.Getenv("GAMECORE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		cfg = &config.Config{}
		*cfg = config.Default()
		fmt.Fprintf(os.Stderr, "warn: %v, falling back to defaults\n", err)
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Cluster.NodeID)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// 1. Durable Summary Store: pool + migrations (spec.md §6 "Environment").
	printSection("durable summary store")
	db, err := durable.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("postgres connected")

	if err := durable.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("schema migrations applied")
	repo := durable.NewRepo(db)
	fmt.Println()

	// 2. Redis: Handoff Store + PRS cluster transport.
	printSection("cluster transport")
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	defer redisClient.Close()
	printOK("redis connected")

	hsStore := handoff.NewRedisStore(redisClient)
	broadcaster := runtime.NewRedisBroadcaster(redisClient, log)
	printOK("handoff store and broadcaster ready")
	fmt.Println()

	// 3. PRS: ring + membership + registry + supervisor.
	printSection("placement registry & supervisor")
	ring := placement.NewRing(128)
	rules := resolver.DefaultRules()

	starter := func(ctx context.Context, joinCode string, initial session.Session, exited func(placement.ExitReason)) (placement.Handle, error) {
		a := runtime.New(
			initial,
			rules,
			cfg.Round.Duration(),
			repo,
			hsStore,
			cfg.Handoff.StashGrace(),
			broadcaster,
			log,
			exited,
		)
		return a, nil
	}

	registry := placement.NewRegistry(redisClient, ring, cfg.Cluster.NodeID, starter, hsStore, cfg.Handoff.PickupRetry(), cfg.Handoff.PickupTotal(), log)
	placement.NewSupervisor(registry, repo, log)

	membership := placement.NewMembership(redisClient, cfg.Cluster.NodeID, cfg.Cluster.Heartbeat(), ring, log)
	membership.OnNodeDown(func(nodeID string) {
		log.Warn("peer node considered down", zap.String("node_id", nodeID))
	})
	membershipCtx, stopMembership := context.WithCancel(context.Background())
	defer stopMembership()
	go func() {
		if err := membership.Run(membershipCtx); err != nil && membershipCtx.Err() == nil {
			log.Error("membership loop exited", zap.Error(err))
		}
	}()
	printOK(fmt.Sprintf("joined hash ring as %s", cfg.Cluster.NodeID))
	fmt.Println()

	// 4. Recovery Service: resume every Active summary (spec.md §4.8).
	printSection("recovery")
	recoverySvc := recovery.New(repo, registry, log)
	if err := recoverySvc.ResumeAllActiveSessions(ctx); err != nil {
		return fmt.Errorf("resume active sessions: %w", err)
	}
	printOK("active sessions resumed")
	fmt.Println()

	// 5. Metrics endpoint.
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	metricsSrv := &http.Server{Addr: ":9090", Handler: metricsMux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", zap.Error(err))
		}
	}()

	printSection("ready")
	printReady(fmt.Sprintf("round duration %s", cfg.Round.Duration()))
	printReady("metrics on :9090/metrics")
	fmt.Println()

	// 6. Block until an OS signal asks us to stop.
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-shutdownCh
	log.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Stop accepting new membership churn, then stash every locally-owned
	// Active session before exiting (spec.md §6 "shutdown order").
	stopMembership()
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Handoff.StashGrace()+time.Second)
	defer cancelShutdown()

	for _, h := range registry.LocalSessions() {
		h.RequestShutdown(placement.ExitShutdown)
	}
	<-time.After(cfg.Handoff.StashGrace())

	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("gamecored stopped")
	return nil
}
