package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/careerpath/internal/api"
	"github.com/kalambet/careerpath/internal/config"
	"github.com/kalambet/careerpath/internal/gemini"
	"github.com/kalambet/careerpath/internal/roadmap"
	"github.com/kalambet/careerpath/internal/session"
	"github.com/kalambet/careerpath/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the careerpath HTTP server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		persist, _ := cmd.Flags().GetBool("persist")
		return runServer(persist)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show careerpath server and configuration status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	serveCmd.Flags().Bool("persist", false, "keep sessions on disk when storage.data_dir is :memory:")
}

// newFetcher builds the roadmap fetcher from config. Without an API key the
// fetcher serves templates only.
func newFetcher(cfg config.Config) *roadmap.Fetcher {
	var gen roadmap.RemoteGenerator
	if cfg.Gemini.APIKey != "" {
		gen = gemini.NewClient(cfg.Gemini.APIKey,
			gemini.WithBaseURL(cfg.Gemini.BaseURL),
			gemini.WithModel(cfg.Gemini.Model),
			gemini.WithTimeout(cfg.Gemini.Timeout),
		)
	} else {
		printWarning("%s", config.MissingKeyHint())
	}
	return roadmap.NewFetcher(gen, roadmap.WithSchemaValidation(cfg.Roadmap.SchemaValidation))
}

// openSessions opens storage and the session manager on top of it. The
// returned cleanup stops generation before closing the database.
func openSessions(cfg config.Config, dataDir string, fetcher session.Fetcher) (*session.Manager, func(), error) {
	store, err := storage.Open(dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage: %w", err)
	}

	// Slots left generating by a previous process will never complete.
	if n, err := store.ReleaseAbandoned(); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("releasing abandoned roadmaps: %w", err)
	} else if n > 0 {
		slog.Info("released abandoned roadmap slots", "count", n)
	}

	mgr := session.NewManager(store, fetcher, session.WithMaxConcurrent(cfg.Roadmap.MaxConcurrent))
	cleanup := func() {
		if err := mgr.Close(); err != nil {
			slog.Warn("stopping roadmap generation", "error", err)
		}
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}
	return mgr, cleanup, nil
}

func runServer(persist bool) error {
	fmt.Fprintln(os.Stderr, versionString())

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg.Log.Level)

	// Check if a server is already running via the health endpoint.
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		printWarning("careerpath is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}

	dataDir := cfg.Storage.DataDir
	if persist && (dataDir == storage.MemoryDir || dataDir == "") {
		dataDir = config.DefaultDataDir()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher := newFetcher(cfg)
	mgr, cleanup, err := openSessions(cfg, dataDir, fetcher)
	if err != nil {
		return err
	}
	defer cleanup()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewHandler(api.Deps{Sessions: mgr, Fetcher: fetcher}),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		slog.Info("careerpath listening", "addr", addr, "data_dir", dataDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for signal or server error.
	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	// Graceful shutdown with timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	running, careers := serverStatus(client, serverURL)
	if running {
		printStatus("Server", "running on port %d", cfg.Server.Port)
		printStatus("Careers", "%d", careers)
	} else {
		printStatus("Server", "stopped")
	}

	printStatus("Gemini model", "%s", cfg.Gemini.Model)
	if cfg.Gemini.APIKey != "" {
		printStatus("Gemini key", "configured")
	} else {
		printStatus("Gemini key", "missing (templates only)")
	}
	printStatus("Schema validation", "%t", cfg.Roadmap.SchemaValidation)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

// serverStatus reports whether the server answers /health and, if so, how
// many careers it serves.
func serverStatus(client *http.Client, baseURL string) (bool, int) {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false, 0
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, 0
	}

	resp, err = client.Get(baseURL + "/careers")
	if err != nil {
		return true, 0
	}
	defer resp.Body.Close()
	var careers []json.RawMessage
	if json.NewDecoder(resp.Body).Decode(&careers) != nil {
		return true, 0
	}
	return true, len(careers)
}
