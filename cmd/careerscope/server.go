package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/careerscope/careerscope/internal/api"
	"github.com/careerscope/careerscope/internal/config"
	"github.com/careerscope/careerscope/internal/extract"
	"github.com/careerscope/careerscope/internal/ingest"
	"github.com/careerscope/careerscope/internal/insight"
	"github.com/careerscope/careerscope/internal/llm"
	"github.com/careerscope/careerscope/internal/profile"
	"github.com/careerscope/careerscope/internal/rank"
	"github.com/careerscope/careerscope/internal/storage"
	"github.com/careerscope/careerscope/internal/synth"
	"github.com/careerscope/careerscope/internal/transcript"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the careerscope server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running careerscope server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show careerscope system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "careerscope.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer() error {
	fmt.Fprintf(os.Stderr, "careerscope version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize structured logging.
	logLevel := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	// Write PID file. Check if server is already running via health endpoint.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("careerscope is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("careerscope is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// LLM backend. Analysis degrades rather than failing when it is down, so
	// an unreachable backend at startup is a warning, not an error.
	client := llm.New(cfg.LLM.BaseURL, cfg.LLM.APIKey)
	if !client.IsRunning(ctx) {
		printWarning("LLM backend not reachable at %s; analysis will degrade to fallbacks until it is up", cfg.LLM.BaseURL)
	}

	// Open storage.
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	// Build the analysis pipeline.
	extractor := extract.New(client, cfg.LLM.Model)
	synthesizer := synth.New(extractor, cfg.Analysis.Location, slog.Default())
	embedder := rank.NewEmbedder(client, cfg.LLM.EmbedModel)
	ranker := rank.NewRanker(embedder, store, store)
	profiles := profile.NewManager(store)
	insights := insight.NewBatcher(insight.NewGenerator(extractor), slog.Default())
	sessions := transcript.NewSessions()

	deps := api.Deps{
		Cards:      store,
		Profiles:   profiles,
		Synth:      synthesizer,
		Insights:   insights,
		Ranker:     ranker,
		Embedder:   embedder,
		Videos:     store,
		Sessions:   sessions,
		Token:      cfg.Server.Token,
		EmbedModel: cfg.LLM.EmbedModel,
		Version:    version,
		Health:     client.IsRunning,
		Logger:     slog.Default(),
	}

	// Start the embedding backfill worker.
	worker := ingest.NewWorker(store, embedder, 500*time.Millisecond)
	go worker.Run(ctx)

	// Compose top-level router: MCP transport + REST convenience routes.
	mcpSrv := api.NewMCPServer(deps)
	streamable := api.NewStreamableServer(mcpSrv)

	topRouter := chi.NewRouter()
	topRouter.Mount("/mcp", streamable)
	topRouter.Mount("/", api.NewAppHandler(deps))

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: topRouter,
	}

	// Start server in a goroutine.
	errCh := make(chan error, 1)
	go func() {
		fmt.Fprintf(os.Stderr, "careerscope listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("careerscope is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop careerscope (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to careerscope (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == 200 {
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	llmClient := llm.New(cfg.LLM.BaseURL, cfg.LLM.APIKey)
	probeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if llmClient.IsRunning(probeCtx) {
		printStatus("LLM backend", "running at %s", cfg.LLM.BaseURL)
	} else {
		printStatus("LLM backend", "not running")
	}

	printStatus("Model", "%s", cfg.LLM.Model)
	printStatus("Embed model", "%s", cfg.LLM.EmbedModel)
	printStatus("Location", "%s", cfg.Analysis.Location)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
