// Package encounter parses encounter service flags and launches the service.
package encounter

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/louisbranch/initiative/internal/content"
	api "github.com/louisbranch/initiative/internal/encounter/api/http"
	"github.com/louisbranch/initiative/internal/encounter/service"
	"github.com/louisbranch/initiative/internal/encounter/storage/sqlite"
	entrypoint "github.com/louisbranch/initiative/internal/platform/cmd"
)

// Config holds encounter command configuration.
type Config struct {
	Port       int    `env:"INITIATIVE_ENCOUNTER_PORT" envDefault:"8080"`
	DBPath     string `env:"INITIATIVE_ENCOUNTER_DB_PATH" envDefault:"encounters.db"`
	ContentDir string `env:"INITIATIVE_ENCOUNTER_CONTENT_DIR"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The encounter HTTP server port")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the SQLite database file")
	fs.StringVar(&cfg.ContentDir, "content", cfg.ContentDir, "Directory of YAML monster content (optional)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the encounter HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEncounter, func(ctx context.Context) error {
		return serve(ctx, cfg)
	})
}

func serve(ctx context.Context, cfg Config) error {
	store, err := sqlite.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("close storage: %v", err)
		}
	}()

	var library *content.Library
	if cfg.ContentDir != "" {
		library, err = content.Load(cfg.ContentDir)
		if err != nil {
			return fmt.Errorf("load content: %w", err)
		}
		log.Printf("loaded %d content records from %s", library.Len(), cfg.ContentDir)
	}

	hub := api.NewHub()
	opts := []service.Option{service.WithNotifier(hub)}
	if library != nil {
		opts = append(opts, service.WithLibrary(library))
	}
	svc := service.New(store, opts...)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.NewServer(svc, hub, library).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("encounter API listening on %s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
