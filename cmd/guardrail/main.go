// Package main is the GuardRail CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/NamanLimani/guardrail-ai/internal/cli"
	"github.com/NamanLimani/guardrail-ai/internal/config"
	"github.com/NamanLimani/guardrail-ai/internal/models"
	"github.com/NamanLimani/guardrail-ai/internal/pipeline"
	"github.com/NamanLimani/guardrail-ai/internal/risk"
	"github.com/NamanLimani/guardrail-ai/internal/server"
	"github.com/NamanLimani/guardrail-ai/internal/watcher"
	"github.com/NamanLimani/guardrail-ai/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "config.yaml"
	defaultServerURL  = "http://localhost:8000"
	shutdownTimeout   = 30 * time.Second
)

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage(os.Stderr)
		os.Exit(1)
	}
	if err := run(os.Args[1], os.Args[2:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("invalid usage")

// run dispatches a subcommand. Output of local commands goes to out.
func run(command string, args []string, out io.Writer) error {
	switch command {
	case "server":
		return runServer(args)
	case "redact":
		return runRedact(args, out)
	case "process":
		return runProcess(args, out)
	case "search":
		return runSearch(args, out)
	case "status":
		return runStatus(args, out)
	case "version", "--version", "-v":
		fmt.Fprintf(out, "guardrail version %s\n", version)
		return nil
	case "help", "--help", "-h":
		printUsage(out)
		return nil
	}
	printUsage(os.Stderr)
	return fmt.Errorf("unknown command %q: %w", command, errUsage)
}

func printUsage(w io.Writer) {
	fmt.Fprint(w, `GuardRail - privacy-preserving document intelligence

Usage:
  guardrail <command> [flags]

Commands:
  server    Start the HTTP API (and the inbox watcher when configured)
  redact    Redact a local file and print the result
  process   Run a local file through the full pipeline and store it
  search    Semantic search against a running server
  status    Show document counts and providers of a running server
  version   Print the version
  help      Show this help

Run 'guardrail <command> -h' for command flags.
`)
}

// loadConfig loads path, falling back to defaults (plus environment) when it does not exist.
func loadConfig(path string, debugFlag bool) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debugFlag)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, logger, err := loadConfig(*configPath, *debug)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logger.Info("config loaded", zap.String("config_path", *configPath), zap.Bool("debug", cfg.Debug || *debug))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	// Work left in processing by a previous run has no worker any more.
	if n, err := components.Storage.FailProcessing(ctx, pipeline.ReasonInterrupted); err != nil {
		logger.Warn("failed to reset interrupted documents", zap.Error(err))
	} else if n > 0 {
		logger.Info("marked interrupted documents as failed", zap.Int64("count", n))
	}

	dispatcher := pipeline.NewDispatcher(components.Pipeline, cfg.Pipeline.Workers, cfg.Pipeline.QueueSize, logger)
	intake := pipeline.NewIntake(components.Storage, components.Blobs, dispatcher, components.Keyword, logger)

	var watch *watcher.Watcher
	if len(cfg.Watch.Directories) > 0 {
		inbox := watcher.NewInbox(intake, cfg.Watch.Owner, cfg.Watch.RemoveAfterIngest, logger)
		watch = watcher.New(cfg.Watch.Directories, cfg.Watch.Extensions, cfg.Watch.RecursiveOrDefault(), inbox,
			watcher.WithLogger(logger))
		if err := watch.Start(ctx); err != nil {
			return fmt.Errorf("start watcher: %w", err)
		}
		go watch.SyncExisting(ctx)
	}

	deps := server.Deps{
		Store:     components.Storage,
		Uploads:   intake,
		Retriever: components.Engine,
		Answerer:  components.Composer,
		Lookup:    components.Keyword,
		Queue:     dispatcher,
	}
	if components.Transcriber != nil {
		deps.Transcriber = components.Transcriber
	}
	diskPaths := []string{cfg.Storage.BleveIndexPath}
	if cfg.Storage.Driver == "sqlite3" {
		diskPaths = append(diskPaths, cfg.Storage.DatabasePath)
	}
	if cfg.Blob.Backend == "local" {
		diskPaths = append(diskPaths, cfg.Blob.UploadDir)
	}
	srv := server.NewServer(deps, server.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		TopK:           cfg.Chat.TopK,
		DebugEvents:    cfg.Chat.DebugEvents,
		DiskPaths:      diskPaths,
		Providers:      providers(cfg, components),
	}, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(cfg.Server.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Warn("server shutdown failed", zap.Error(err))
	}
	if watch != nil {
		watch.Stop()
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.Warn("pipeline did not drain before shutdown", zap.Int("pending", dispatcher.Pending()), zap.Error(err))
	}
	return nil
}

func runRedact(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("redact", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	format := fs.String("format", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(fs.Output(), "Usage: guardrail redact [flags] <file>")
		return errUsage
	}
	outFormat, err := cli.ParseFormat(*format)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(*configPath, *debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path := fs.Arg(0)
	text, err := buildExtractor(cfg.OCR, logger).Extract(ctx, path)
	if err != nil {
		return fmt.Errorf("extract %s: %w", path, err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no text found in %s", path)
	}

	res := buildRedactor(cfg.Redact, logger).Redact(ctx, text)
	score := risk.Score(res.Stats)
	r := cli.Redaction{
		Filename: filepath.Base(path),
		Text:     res.Text,
		Stats:    res.Stats,
		Score:    score,
		Level:    risk.Level(score),
	}
	if res.Entities.IsDegraded() {
		r.Degraded = res.Entities.Reason
	}
	return cli.WriteRedaction(out, r, outFormat)
}

func runProcess(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("process", flag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	owner := fs.String("owner", "local", "owner (user) id to store the document under")
	format := fs.String("format", "text", "output format: text or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(fs.Output(), "Usage: guardrail process [flags] <file>")
		return errUsage
	}
	outFormat, err := cli.ParseFormat(*format)
	if err != nil {
		return err
	}

	cfg, logger, err := loadConfig(*configPath, *debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dispatcher := pipeline.NewDispatcher(components.Pipeline, 1, 1, logger)
	intake := pipeline.NewIntake(components.Storage, components.Blobs, dispatcher, components.Keyword, logger)
	doc, err := intake.Accept(ctx, *owner, filepath.Base(path), "", f)
	if err != nil {
		_ = dispatcher.Stop(ctx)
		return fmt.Errorf("accept %s: %w", path, err)
	}
	if err := dispatcher.Stop(ctx); err != nil {
		return fmt.Errorf("process %s: %w", path, err)
	}

	stored, err := components.Storage.GetDocument(context.WithoutCancel(ctx), doc.ID)
	if err != nil {
		return err
	}
	if err := cli.WriteDocument(out, stored, outFormat); err != nil {
		return err
	}
	if stored.Status == models.StatusFailed {
		return fmt.Errorf("processing failed: %s", stored.FailureReason)
	}
	return nil
}

func runSearch(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	owner := fs.String("owner", "local", "owner (user) id to search")
	format := fs.String("format", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		fmt.Fprintln(fs.Output(), "Usage: guardrail search [flags] <query>")
		return errUsage
	}
	outFormat, err := cli.ParseFormat(*format)
	if err != nil {
		return err
	}

	var matches []models.ScoredMatch
	endpoint := strings.TrimRight(*serverURL, "/") + "/api/v1/" + url.PathEscape(*owner) + "/search"
	if err := postJSON(endpoint, models.SearchRequest{Query: query}, &matches); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return cli.WriteMatches(out, query, matches, outFormat)
}

// statusResponse is the shape of GET /api/v1/status.
type statusResponse struct {
	Documents      map[models.Status]int64 `json:"documents"`
	Providers      map[string]string       `json:"providers"`
	QueuePending   *int                    `json:"queue_pending,omitempty"`
	DiskUsageBytes *int64                  `json:"disk_usage_bytes,omitempty"`
}

func runStatus(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	format := fs.String("format", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	outFormat, err := cli.ParseFormat(*format)
	if err != nil {
		return err
	}

	resp, err := http.Get(strings.TrimRight(*serverURL, "/") + "/api/v1/status")
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return err
	}
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return writeStatus(out, status, outFormat)
}

func writeStatus(w io.Writer, s statusResponse, format cli.OutputFormat) error {
	if format == cli.OutputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	var total int64
	for _, n := range s.Documents {
		total += n
	}
	fmt.Fprintf(w, "documents:          %d\n", total)
	for _, st := range []models.Status{models.StatusProcessing, models.StatusCompleted, models.StatusFailed} {
		fmt.Fprintf(w, "  %-16s  %d\n", st+":", s.Documents[st])
	}
	if s.QueuePending != nil {
		fmt.Fprintf(w, "queue_pending:      %d\n", *s.QueuePending)
	}
	if s.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d\n", *s.DiskUsageBytes)
	}
	if len(s.Providers) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# providers")
		for _, name := range []string{"storage", "blob", "entities", "embedding", "chat"} {
			if v, ok := s.Providers[name]; ok {
				fmt.Fprintf(w, "%-18s  %s\n", name+":", v)
			}
		}
	}
	return nil
}

func postJSON(endpoint string, body, dst any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if err := checkResponse(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func checkResponse(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}
