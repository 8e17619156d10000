// Package main provides the entry point for the book catalog server.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/listenupapp/bookcatalog/internal/di"
	"github.com/listenupapp/bookcatalog/internal/logger"
)

func main() {
	// Create DI container
	injector := di.NewContainer(os.Args[1:])

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		os.Exit(1)
	}

	// Get logger for shutdown messages
	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// The container shuts handles down in reverse dependency order:
	// HTTP server, catalog, event stream, index, credential store.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Shutdown complete")
}
