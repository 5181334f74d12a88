package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"pthooks/config"
	"pthooks/observability/logging"
	telemetry "pthooks/observability/otel"
	"pthooks/storage"
)

func main() {
	configFile := flag.String("config", "./hooksim.toml", "Path to the configuration file")
	memory := flag.Bool("memory", false, "Keep state in memory instead of the configured data dir")
	depositors := flag.Int("depositors", 24, "Number of simulated vault depositors")
	seed := flag.String("seed", "", "Seed for the draw randomness (random when empty)")
	elapsed := flag.Duration("elapsed", time.Hour, "Time after the draw closes at which prizes are claimed")
	serve := flag.Bool("serve", false, "Keep serving /metrics and /status after the run")
	flag.Parse()

	logger := logging.Setup("hooksim", strings.TrimSpace(os.Getenv("HOOKSIM_ENV")))

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("Failed to load config", logging.Err(err))
		os.Exit(1)
	}

	shutdownTelemetry, err := telemetry.Init(context.Background(), telemetry.FromEnv("hooksim", cfg.Environment, os.Getenv))
	if err != nil {
		logger.Error("Failed to initialise telemetry", logging.Err(err))
		os.Exit(1)
	}
	defer func() {
		_ = shutdownTelemetry(context.Background())
	}()

	var db storage.Database
	if *memory {
		db = storage.NewMemDB()
	} else {
		ldb, err := storage.NewLevelDB(cfg.DataDir)
		if err != nil {
			logger.Error("Failed to open database", slog.String("path", cfg.DataDir), logging.Err(err))
			os.Exit(1)
		}
		db = ldb
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sim, err := newSimulation(cfg, db, logger, *depositors)
	if err != nil {
		logger.Error("Failed to set up simulation", logging.Err(err))
		os.Exit(1)
	}
	report, err := sim.run(ctx, drawRandom(*seed), *elapsed)
	if err != nil {
		logger.Error("Simulation failed", logging.Err(err))
		os.Exit(1)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		logger.Error("Failed to write report", logging.Err(err))
		os.Exit(1)
	}

	if !*serve || strings.TrimSpace(cfg.MetricsAddress) == "" {
		return
	}
	status := &statusStore{}
	status.add(report)
	srv := &http.Server{
		Addr:              cfg.MetricsAddress,
		Handler:           newRouter(status),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger.Info("serving metrics", slog.String("address", cfg.MetricsAddress))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server failed", logging.Err(err))
		os.Exit(1)
	}
}

// drawRandom hashes seed into draw randomness. An empty seed draws a fresh
// random value.
func drawRandom(seed string) *uint256.Int {
	if strings.TrimSpace(seed) == "" {
		seed = uuid.NewString()
	}
	return new(uint256.Int).SetBytes(ethcrypto.Keccak256([]byte(seed)))
}
