package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/api"
	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/config"
	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/klaviyo"
	"github.com/michellemazo-scentco/fundraiseathon-klayvio-integration/internal/relay"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  Fundraiseathon Webhook Relay (cmd/server/main.go)         ║")
	log.Println("║  Klaviyo profile upsert + list subscriptions               ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	// Load configuration; fall back to environment-only when no config
	// file ships with the deployment
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("Failed to load config: %v", err)
		}
		log.Println("[config] no config file found, using environment only")
		cfg = config.FromEnv()
	}

	// A misconfigured relay still serves: deliveries are answered with a
	// machine-readable 500 instead of the process crash-looping behind
	// the form platform.
	cfgErr := cfg.Validate()
	if cfgErr != nil {
		log.Printf("WARNING: configuration incomplete: %v", cfgErr)
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	// Initialize Klaviyo client
	client := klaviyo.NewClient(klaviyo.Config{
		BaseURL:  cfg.Klaviyo.BaseURL,
		APIKey:   cfg.Klaviyo.APIKey,
		Revision: cfg.Klaviyo.Revision,
		Timeout:  cfg.Klaviyo.Timeout(),
	})

	// Initialize the relay workflow and webhook server
	svc := relay.NewService(client, cfg.Klaviyo, cfg.Intake)
	server := api.NewServer(api.NewHandler(svc, cfg.Intake.SharedSecret, cfgErr))

	log.Printf("Relay configured: %d list(s), job verification %v, shared secret %v",
		len(cfg.Klaviyo.ListIDs), !cfg.Klaviyo.SkipJobVerify, cfg.Intake.SharedSecret != "")

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	log.Println("Webhook relay is ready")

	<-done
	log.Println("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
