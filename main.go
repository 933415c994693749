package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"voting-registry/api"
	"voting-registry/service"
)

type Config struct {
	StorageDir      string        `env:"REGISTRY_STORAGE_DIR" envDefault:"registry_data"`
	Port            int           `env:"REGISTRY_PORT" envDefault:"8080"`
	SessionDuration time.Duration `env:"REGISTRY_SESSION_DURATION" envDefault:"0"`
	Namespace       string        `env:"REGISTRY_NAMESPACE"`
}

func parseConfig() (*Config, error) {
	var config Config
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	// Flags override the environment
	flag.StringVar(&config.StorageDir, "storage-dir", config.StorageDir, "directory for journal snapshots and credentials")
	flag.IntVar(&config.Port, "port", config.Port, "HTTP listen port")
	flag.DurationVar(&config.SessionDuration, "session-duration", config.SessionDuration, "voting session window, 0 means no deadline")
	flag.StringVar(&config.Namespace, "namespace", config.Namespace, "registry namespace address, defaults to the owner address")
	flag.Parse()

	return &config, nil
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	config, err := parseConfig()
	if err != nil {
		log.Fatalf("Failed to parse configuration: %v", err)
	}

	registryService, err := service.NewRegistryService(service.Config{
		StoragePath:     config.StorageDir,
		Namespace:       config.Namespace,
		SessionDuration: config.SessionDuration,
	})
	if err != nil {
		log.Fatalf("Failed to initialize registry service: %v", err)
	}

	log.Printf("Registry namespace: %s, owner: %s",
		registryService.Namespace().Hex(), registryService.OwnerAddress().Hex())

	server := api.NewServer(registryService)
	mux := http.NewServeMux()
	server.Routes(mux)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	serverChan := make(chan error, 1)
	go func() {
		log.Printf("Starting server on port %d...\n", config.Port)
		serverChan <- http.ListenAndServe(fmt.Sprintf(":%d", config.Port), mux)
	}()

	select {
	case err := <-serverChan:
		log.Fatalf("Server error: %v", err)
	case sig := <-sigChan:
		log.Printf("Received signal: %v\n", sig)
		registryService.EndSession()
		log.Println("Server shutdown completed")
	}
}
