// Package main is the Teller CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/covebank/teller/internal/acctsvc"
	"github.com/covebank/teller/internal/action"
	"github.com/covebank/teller/internal/answer"
	"github.com/covebank/teller/internal/cli"
	"github.com/covebank/teller/internal/config"
	"github.com/covebank/teller/internal/embedding"
	"github.com/covebank/teller/internal/extract"
	"github.com/covebank/teller/internal/ingest"
	"github.com/covebank/teller/internal/intent"
	"github.com/covebank/teller/internal/ledger"
	"github.com/covebank/teller/internal/llm"
	"github.com/covebank/teller/internal/models"
	"github.com/covebank/teller/internal/orchestrator"
	"github.com/covebank/teller/internal/retriever"
	"github.com/covebank/teller/internal/server"
	"github.com/covebank/teller/internal/snapshot"
	"github.com/covebank/teller/internal/watcher"
	"github.com/covebank/teller/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/teller/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory (for development); if that exists
// it is used, so that "teller serve" from the project dir uses the project's
// config (including debug).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	// API keys come from the environment; a .env in the working directory is
	// a convenience for development and never required.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "serve":
		runServe()
	case "accounts":
		runAccounts()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("teller version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// newEmbedder builds the embedder selected by config. The onnx provider
// falls back to the mock embedder when the native runtime or model is
// unavailable, matching how a dev checkout without the model file behaves.
func newEmbedder(cfg *config.Config, logger *zap.Logger) (embedding.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAIEmbedder(embedding.OpenAIConfig{
			BaseURL:    cfg.Embedding.BaseURL,
			APIKeyEnv:  cfg.Embedding.APIKeyEnv,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			CacheSize:  cfg.Embedding.CacheSize,
		})
	case "onnx":
		onnxEmbedder, err := embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			logger.Warn("onnx embedder unavailable, using mock", zap.Error(err))
			return embedding.NewMockEmbedder(cfg.Embedding.Dimensions), nil
		}
		return onnxEmbedder, nil
	case "mock", "":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

func newLLMClient(cfg *config.Config) (*llm.Client, error) {
	return llm.NewClient(llm.Config{
		BaseURL:   cfg.LLM.BaseURL,
		APIKeyEnv: cfg.LLM.APIKeyEnv,
		Model:     cfg.LLM.Model,
		Timeout:   time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
}

func newOrchestrator(cfg *config.Config, corpus answer.Retriever, logger *zap.Logger) (*orchestrator.Orchestrator, error) {
	llmClient, err := newLLMClient(cfg)
	if err != nil {
		return nil, err
	}
	answers, err := answer.New(corpus, llmClient, cfg.Chat.TopK, cfg.Chat.ContextChars, answer.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	actions := action.NewAgent(cfg.Accounts.BaseURL, action.WithLogger(logger))
	return orchestrator.New(
		intent.NewKeywordClassifier(),
		answers,
		actions,
		orchestrator.WithLogger(logger),
		orchestrator.WithTimeout(time.Duration(cfg.Chat.RequestTimeoutSecs)*time.Second),
	), nil
}

func runServe() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize embedder", zap.Error(err))
	}
	defer embedder.Close()

	corpus := &corpusHandle{}
	if r, err := retriever.New(cfg.Storage.SnapshotDir, embedder); err != nil {
		logger.Warn("corpus not loaded; FAQ answers unavailable until ingestion",
			zap.String("snapshot_dir", cfg.Storage.SnapshotDir),
			zap.Error(err))
	} else {
		corpus.set(r)
		logger.Info("corpus loaded", zap.Int("chunks", r.Size()))
	}

	orch, err := newOrchestrator(cfg, corpus, logger)
	if err != nil {
		logger.Fatal("Failed to initialize chat pipeline", zap.Error(err))
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Ingest.Watch {
		pipeline, err := ingest.New(
			extract.NewExtractor(),
			embedder,
			cfg.Storage.SnapshotDir,
			cfg.Ingest.ChunkSize,
			cfg.Ingest.ChunkOverlap,
			cfg.Ingest.PreviewChars,
			cfg.Ingest.Extensions,
			ingest.WithLogger(logger),
		)
		if err != nil {
			logger.Fatal("Failed to initialize ingest pipeline", zap.Error(err))
		}
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		w := watcher.New(cfg.Ingest.DocsDir, cfg.Ingest.Extensions, func(ctx context.Context) {
			result, err := pipeline.Ingest(ctx, cfg.Ingest.DocsDir)
			if err != nil {
				logger.Warn("re-ingest failed", zap.Error(err))
				return
			}
			r, err := retriever.New(cfg.Storage.SnapshotDir, embedder)
			if err != nil {
				logger.Warn("corpus reload failed", zap.Error(err))
				return
			}
			corpus.set(r)
			logger.Info("corpus reloaded",
				zap.Int("documents", result.Documents),
				zap.Int("chunks", result.Chunks),
				zap.Int("failures", len(result.Failures)))
		}, watchOpts...)
		if err := w.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(orch, corpus, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runAccounts() {
	fs := flag.NewFlagSet("accounts", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	list := fs.Bool("list", false, "print seeded accounts and exit")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug || *debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := ledger.Open(cfg.Storage.LedgerPath)
	if err != nil {
		logger.Fatal("Failed to open ledger", zap.Error(err))
	}
	defer store.Close()

	if *list {
		accounts, err := store.ListAccounts(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "List failed: %v\n", err)
			os.Exit(1)
		}
		for _, a := range accounts {
			for _, c := range a.Cards {
				fmt.Printf("%s  balance %10.2f  card *%s (%s)\n", a.ID, a.Balance, c.Last4, c.Status)
			}
		}
		return
	}

	svc := acctsvc.NewService(store, cfg.Accounts.Host, cfg.Accounts.Port, logger)
	go func() {
		if err := svc.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Account service failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = svc.Stop(ctx)
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	addFile := fs.String("add", "", "append a single document to the existing snapshot")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize embedder", zap.Error(err))
	}
	defer embedder.Close()

	pipeline, err := ingest.New(
		extract.NewExtractor(),
		embedder,
		cfg.Storage.SnapshotDir,
		cfg.Ingest.ChunkSize,
		cfg.Ingest.ChunkOverlap,
		cfg.Ingest.PreviewChars,
		cfg.Ingest.Extensions,
		ingest.WithLogger(logger),
	)
	if err != nil {
		logger.Fatal("Failed to initialize ingest pipeline", zap.Error(err))
	}

	ctx := context.Background()
	var result *ingest.Result
	if *addFile != "" {
		result, err = pipeline.AddDocument(ctx, *addFile)
	} else {
		folder := cfg.Ingest.DocsDir
		if fs.NArg() > 0 {
			folder = fs.Arg(0)
		}
		result, err = pipeline.Ingest(ctx, folder)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ingestion failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Ingested %d document(s), %d chunk(s)\n", result.Documents, result.Chunks)
	for _, f := range result.Failures {
		fmt.Printf("  skipped %s: %s\n", f.Path, f.Err)
	}
}

// askArgsReorder moves flags that appear after the question to the front so
// flag.Parse sees them. Go's flag package stops at the first non-flag
// argument.
func askArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "assistant URL (empty = run the pipeline in-process)")
	accountID := fs.String("account", "", "account id for action requests")
	cardLast4 := fs.String("card", "", "card last4 for block requests")
	authenticated := fs.Bool("auth", false, "mark the request as authenticated")
	sessionID := fs.String("session", "", "session id to reuse")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(askArgsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: teller ask [flags] <question>")
		os.Exit(1)
	}
	question := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if question == "" {
		fmt.Println("Usage: teller ask [flags] <question>")
		os.Exit(1)
	}

	req := &models.ChatRequest{
		SessionID:     *sessionID,
		UserText:      question,
		AccountID:     *accountID,
		CardLast4:     *cardLast4,
		Authenticated: *authenticated,
	}

	var resp *models.ChatResponse
	if *serverURL != "" {
		var err error
		resp, err = chatViaHTTP(*serverURL, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		logger, err := utils.NewLogger(cfg.Debug)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		embedder, err := newEmbedder(cfg, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize embedder: %v\n", err)
			os.Exit(1)
		}
		defer embedder.Close()

		r, err := retriever.New(cfg.Storage.SnapshotDir, embedder)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load corpus: %v\n", err)
			os.Exit(1)
		}
		orch, err := newOrchestrator(cfg, r, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize chat pipeline: %v\n", err)
			os.Exit(1)
		}
		resp, err = orch.Handle(context.Background(), req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Ask failed: %v\n", err)
			os.Exit(1)
		}
	}

	format, err := cli.ParseFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := cli.WriteChatResponse(os.Stdout, resp, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func chatViaHTTP(serverURL string, req *models.ChatRequest) (*models.ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+"/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var out models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "assistant URL (empty = read the snapshot directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	var status map[string]any
	if *serverURL != "" {
		resp, err := http.Get(*serverURL + "/api/v1/status")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			b, _ := io.ReadAll(resp.Body)
			fmt.Fprintf(os.Stderr, "Server returned %d: %s\n", resp.StatusCode, string(b))
			os.Exit(1)
		}
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			fmt.Fprintf(os.Stderr, "Parse failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, _, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}
		chunks := 0
		if snap, err := snapshot.Load(cfg.Storage.SnapshotDir); err == nil {
			chunks = snap.Index.Size()
		}
		status = map[string]any{
			"chunks": chunks,
			"ready":  chunks > 0,
			"config": map[string]any{
				"embedding_provider":   cfg.Embedding.Provider,
				"embedding_dimensions": cfg.Embedding.Dimensions,
				"chunk_size":           cfg.Ingest.ChunkSize,
				"chunk_overlap":        cfg.Ingest.ChunkOverlap,
				"top_k":                cfg.Chat.TopK,
				"snapshot_dir":         cfg.Storage.SnapshotDir,
				"docs_dir":             cfg.Ingest.DocsDir,
			},
		}
	}

	switch *outputFormat {
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(status); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
	case "text":
		fmt.Printf("chunks: %v\n", status["chunks"])
		fmt.Printf("ready:  %v\n", status["ready"])
		if cfgInfo, ok := status["config"].(map[string]any); ok {
			fmt.Println()
			fmt.Println("# configuration")
			for _, key := range []string{"embedding_provider", "embedding_dimensions", "chunk_size", "chunk_overlap", "top_k", "snapshot_dir", "docs_dir"} {
				if v, ok := cfgInfo[key]; ok {
					fmt.Printf("%-21s %v\n", key+":", v)
				}
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`teller - demo banking assistant with grounded FAQ answers

Usage:
  teller serve [flags]            Start the assistant HTTP API
  teller accounts [flags]         Start the mock account service (or --list accounts)
  teller ingest [flags] [folder]  Build the corpus snapshot from documents
  teller ask [flags] <question>   Ask the assistant a question
  teller status [flags]           Show corpus/config status
  teller version                  Show version
  teller help                     Show this help

Serve Flags:
  --config string    Config file path (default: /usr/local/etc/teller/config.yaml)
  --debug            Enable debug logging

Accounts Flags:
  --config string    Config file path
  --list             Print seeded accounts and exit

Ingest Flags:
  --config string    Config file path
  --add string       Append a single document instead of rebuilding

Ask Flags:
  --server string    Assistant URL (default: http://localhost:8080). Use --server "" to run in-process.
  --account string   Account id for action requests
  --card string      Card last4 for block requests
  --auth             Mark the request as authenticated
  --session string   Session id to reuse
  --output string    Output format: text or json (default: text)

Status Flags:
  --server string    Assistant URL (default: http://localhost:8080). Use --server "" to read the snapshot directly.
  --output string    Output format: text or json (default: text)

Examples:
  teller accounts
  teller ingest ./docs
  teller serve
  teller ask "What is the ATM withdrawal limit?"
  teller ask --auth --account acct_123 "please block my card"
  teller status --output json`)
}
