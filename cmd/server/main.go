/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the vacation entitlement engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env file, environment overrides)
  2. Configure logging
  3. Initialize SQLite store
  4. Create API handler with dependencies
  5. Start rollover scheduler
  6. Start server with graceful shutdown

CONFIGURATION (env vars or .env):
  SERVER_PORT         HTTP server port (default: 8080)
  DATABASE_PATH       SQLite database path (default: vacation.db)
                      Use ":memory:" for in-memory database
  SCHEDULER_ENABLED   Automatic January rollover (default: true)
  SCHEDULER_INTERVAL  Rollover check interval (default: 1h)
  LOG_LEVEL           trace|debug|info|warn|error (default: info)
  CORS_ORIGINS        Comma-separated allowed origins

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
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

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/retailhr/vacation-engine/api"
	"github.com/retailhr/vacation-engine/store/sqlite"
)

func main() {
	loadConfig()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(viper.GetString("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}

	// Initialize store
	store, err := sqlite.New(viper.GetString("DATABASE_PATH"))
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer store.Close()

	// Initialize handler and router
	handler := api.NewHandler(store, log)
	origins := strings.Split(viper.GetString("CORS_ORIGINS"), ",")
	router := api.NewRouter(handler, origins)

	// Rollover scheduler
	scheduler := api.NewRolloverScheduler(store, log)
	scheduler.Enabled = viper.GetBool("SCHEDULER_ENABLED")
	if interval := viper.GetDuration("SCHEDULER_INTERVAL"); interval > 0 {
		scheduler.CheckInterval = interval
	} else {
		log.WithField("value", viper.GetString("SCHEDULER_INTERVAL")).
			Warn("Invalid SCHEDULER_INTERVAL, using default 1h")
	}
	scheduler.Start()
	defer scheduler.Stop()

	port := viper.GetInt("SERVER_PORT")
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.WithField("port", port).Info("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("Server forced to shutdown")
	}

	log.Info("Server stopped")
}

// loadConfig reads .env when present; environment variables win.
func loadConfig() {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("DATABASE_PATH", "vacation.db")
	viper.SetDefault("SCHEDULER_ENABLED", true)
	viper.SetDefault("SCHEDULER_INTERVAL", time.Hour)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("CORS_ORIGINS", "http://localhost:5173,http://localhost:8080")

	// Missing .env is fine, env vars and defaults cover it.
	_ = viper.ReadInConfig()
}
