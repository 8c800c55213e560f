// Package main implements the Profile Control Container entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/profile-control/pcc/internal/api"
	"github.com/profile-control/pcc/internal/audit"
	"github.com/profile-control/pcc/internal/auth"
	"github.com/profile-control/pcc/internal/config"
	"github.com/profile-control/pcc/internal/manager"
	"github.com/profile-control/pcc/internal/modem"
	"github.com/profile-control/pcc/internal/modem/fake"
	"github.com/profile-control/pcc/internal/store"
	"github.com/profile-control/pcc/internal/telemetry"
)

const (
	DefaultAddr      = ":8000"
	DefaultStorePath = "profiles.db"
	DefaultLogDir    = "logs"
	Version          = "1.0.0"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting profile control container", zap.String("version", Version))

	// Step 1: Load configuration
	cfgPath := os.Getenv("PCC_CONFIG")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatal("failed to load configuration", zap.Error(err))
	}
	provider := config.NewProvider(cfg, cfgPath)
	log.Info("configuration loaded",
		zap.Int("subscriptionId", cfg.SubscriptionID),
		zap.Bool("carrierSpecific", cfg.CarrierSpecific))

	// Step 2: Open the profile store
	storePath := getEnv("PCC_STORE_PATH", DefaultStorePath)
	storeClient, err := store.OpenSQLite(storePath)
	if err != nil {
		log.Fatal("failed to open profile store", zap.String("path", storePath), zap.Error(err))
	}
	log.Info("profile store opened", zap.String("path", storePath))

	// Step 3: Initialize audit logger
	auditLogger, err := audit.NewLogger(getEnv("PCC_LOG_DIR", DefaultLogDir))
	if err != nil {
		log.Fatal("failed to initialize audit logger", zap.Error(err))
	}
	log.Info("audit logger initialized", zap.String("file", auditLogger.FilePath()))

	// Step 4: Initialize the modem pusher. No vendor adapter is bundled;
	// the in-process fake records every push and stands in for the HAL.
	pusher := modem.NewPusher(fake.New(), log.Named("modem"))
	log.Info("modem pusher initialized")

	// Step 5: Create and start the profile manager
	mgr := manager.New(storeClient, provider, pusher, auditLogger, log.Named("manager"))
	mgr.Start()
	log.Info("profile manager started")

	// Step 6: Initialize telemetry hub and subscribe it to profile changes
	hub := telemetry.NewHub(cfg.EventBufferSize, cfg.HeartbeatInterval, func() map[string]interface{} {
		snap := mgr.Snapshot()
		return map[string]interface{}{
			"profileCount":   len(snap.Profiles),
			"preferredSetId": snap.PreferredSetID,
			"hasPreferred":   snap.Preferred != nil,
		}
	})
	mgr.RegisterObserver(hub, nil)
	log.Info("telemetry hub initialized")

	// Step 7: Watch the configuration file for changes
	var watcher *config.Watcher
	if cfgPath != "" {
		watcher, err = config.NewWatcher(cfgPath, func() {
			if err := provider.Reload(); err != nil {
				log.Warn("configuration reload failed", zap.Error(err))
				return
			}
			mgr.Notify(manager.TriggerConfigUpdated)
		})
		if err != nil {
			log.Fatal("failed to create config watcher", zap.Error(err))
		}
		if err := watcher.Start(); err != nil {
			log.Fatal("failed to start config watcher", zap.Error(err))
		}
		log.Info("configuration watcher started", zap.String("path", cfgPath))
	}

	// Step 8: Set up authentication
	authMiddleware, err := buildAuthMiddleware()
	if err != nil {
		log.Fatal("failed to configure authentication", zap.Error(err))
	}
	if authMiddleware == nil {
		log.Warn("authentication disabled, all endpoints are unprotected")
	}

	// Step 9: Start the HTTP API server
	server := api.NewServer(mgr, hub, provider, authMiddleware,
		30*time.Second, 30*time.Second, 120*time.Second)
	addr := getEnv("PCC_ADDR", DefaultAddr)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(addr); err != nil {
			serverErr <- err
		}
	}()
	log.Info("http server started", zap.String("addr", addr))

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		log.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("http server failed", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.Warn("error stopping http server", zap.Error(err))
	}
	if watcher != nil {
		watcher.Stop()
	}
	mgr.Stop()
	hub.Stop()
	pusher.Wait()
	if err := storeClient.Close(); err != nil {
		log.Warn("error closing profile store", zap.Error(err))
	}
	if err := auditLogger.Close(); err != nil {
		log.Warn("error closing audit logger", zap.Error(err))
	}

	log.Info("shutdown complete")
}

// buildAuthMiddleware configures JWT verification from the environment.
// PCC_AUTH_SECRET selects HS256; PCC_AUTH_PUBLIC_KEY (PEM) selects RS256.
// With neither set, authentication is disabled.
func buildAuthMiddleware() (*auth.Middleware, error) {
	if secret := os.Getenv("PCC_AUTH_SECRET"); secret != "" {
		verifier, err := auth.NewVerifier(auth.VerifierConfig{
			Algorithm: "HS256",
			SecretKey: secret,
		})
		if err != nil {
			return nil, err
		}
		return auth.NewMiddleware(verifier), nil
	}
	if pem := os.Getenv("PCC_AUTH_PUBLIC_KEY"); pem != "" {
		verifier, err := auth.NewVerifier(auth.VerifierConfig{
			Algorithm:    "RS256",
			PublicKeyPEM: pem,
		})
		if err != nil {
			return nil, err
		}
		return auth.NewMiddleware(verifier), nil
	}
	return nil, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
