// Taskerd is an autonomous conversational assistant daemon.
//
// It exposes an HTTP API (synchronous chat plus a gateway webhook),
// optionally consumes inbound messages over a websocket gateway, and
// answers them through a tool-calling agent loop: web search, link
// fetching, media generation with provider fallback, QR codes, and
// cross-turn context memory. Configuration is loaded from a single
// YAML file discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	taskerd serve      Start the daemon
//	taskerd version    Print version and build information
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"

	"github.com/aviv90/tasker-agent/internal/agent"
	"github.com/aviv90/tasker-agent/internal/announce"
	"github.com/aviv90/tasker-agent/internal/api"
	"github.com/aviv90/tasker-agent/internal/buildinfo"
	"github.com/aviv90/tasker-agent/internal/config"
	"github.com/aviv90/tasker-agent/internal/fallback"
	"github.com/aviv90/tasker-agent/internal/fetch"
	"github.com/aviv90/tasker-agent/internal/gateway"
	"github.com/aviv90/tasker-agent/internal/llm"
	"github.com/aviv90/tasker-agent/internal/media"
	"github.com/aviv90/tasker-agent/internal/memory"
	"github.com/aviv90/tasker-agent/internal/orchestrator"
	"github.com/aviv90/tasker-agent/internal/planner"
	"github.com/aviv90/tasker-agent/internal/qr"
	"github.com/aviv90/tasker-agent/internal/search"
	"github.com/aviv90/tasker-agent/internal/tools"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so the
// full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the taskerd command. Arguments are
// parsed by hand: the flag package relies on package-level globals,
// which makes it impossible to call run() concurrently from tests, and
// the argument surface here is two flags and two commands.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var command string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			return fmt.Errorf("unknown argument: %s", args[i])
		}
	}

	switch command {
	case "serve", "":
		return runServe(ctx, stdout, configPath)
	case "version":
		fmt.Fprintln(stdout, buildinfo.String())
		return nil
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "taskerd - autonomous conversational assistant")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: taskerd [flags] <command>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Start the daemon (default)")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	return nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	return cfg, cfgPath, nil
}

// announcer adapts the MQTT publisher to the orchestrator's observer
// interface.
type announcer struct {
	pub *announce.Publisher
}

func (a announcer) RequestHandled(ctx context.Context, chatID string, res *orchestrator.Result, elapsed time.Duration) {
	a.pub.AnnounceRequest(ctx, announce.RequestEvent{
		ChatID:     chatID,
		Success:    res.Success,
		Timeout:    res.Timeout,
		ToolsUsed:  res.ToolsUsed,
		Iterations: res.Iterations,
		DurationMS: elapsed.Milliseconds(),
	})
}

func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting taskerd", "version", buildinfo.Version, "commit", buildinfo.GitCommit)

	// Secrets referenced from config as ${VAR} may live in a .env file.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("dotenv load failed", "error", err)
	}

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Reconfigure the logger now that the desired level is known. The
	// initial Info-level logger covers only the startup banner.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		logger = newLogger(stdout, level)
	}

	logger.Info("config loaded",
		"path", cfgPath,
		"port", cfg.Listen.Port,
		"model", cfg.Model.Name,
	)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory %s: %w", cfg.DataDir, err)
	}

	// --- Context memory ---
	// SQLite-backed per-chat state: conversation history plus the ledger
	// of generated assets, so "that image" keeps meaning across restarts.
	dbPath := filepath.Join(cfg.DataDir, "tasker.db")
	store, err := memory.NewSQLiteStore(dbPath)
	if err != nil {
		return fmt.Errorf("open memory database %s: %w", dbPath, err)
	}
	defer store.Close()
	mem := memory.NewManager(store, cfg.Agent.ContextMemory, logger)
	logger.Info("memory database opened", "path", dbPath, "context_memory", cfg.Agent.ContextMemory)

	// --- Chat model ---
	llmClient := llm.NewOpenAIClient(cfg.Model.APIKey, cfg.Model.BaseURL, logger)

	// --- Generated-asset storage ---
	files, err := media.NewFileStore(cfg.Assets.Dir, cfg.Assets.BaseURL)
	if err != nil {
		return fmt.Errorf("create assets directory %s: %w", cfg.Assets.Dir, err)
	}

	// --- Media providers ---
	// The raw OpenAI client is shared with the media provider for image
	// generation and speech synthesis.
	oaCfg := openai.DefaultConfig(cfg.Model.APIKey)
	if cfg.Model.BaseURL != "" {
		oaCfg.BaseURL = cfg.Model.BaseURL
	}
	oaClient := openai.NewClientWithConfig(oaCfg)
	speaker := media.NewOpenAIProvider(oaClient, files)

	mediaMgr := media.NewManager(logger)
	mediaMgr.Register(speaker)
	if cfg.Media.Replicate.APIToken != "" {
		mediaMgr.Register(media.NewReplicateProvider(media.ReplicateConfig{
			APIToken:     cfg.Media.Replicate.APIToken,
			ImageVersion: cfg.Media.Replicate.ImageVersion,
			VideoVersion: cfg.Media.Replicate.VideoVersion,
			MusicVersion: cfg.Media.Replicate.MusicVersion,
			PollInterval: time.Duration(cfg.Media.Replicate.PollIntervalSec) * time.Second,
		}, logger))
	}
	for kindName, provider := range cfg.Media.Primary {
		kind, err := media.ParseKind(kindName)
		if err != nil {
			return fmt.Errorf("media.primary: %w", err)
		}
		mediaMgr.SetPrimary(kind, provider)
	}

	// --- Web search ---
	searchMgr := search.NewManager(cfg.Search.Primary)
	if cfg.Search.Brave.APIKey != "" {
		searchMgr.Register(search.NewBrave(cfg.Search.Brave.APIKey))
	}
	if cfg.Search.SearXNG.BaseURL != "" {
		searchMgr.Register(search.NewSearXNG(cfg.Search.SearXNG.BaseURL))
	}

	// --- Tools ---
	registry := tools.NewRegistry()
	if searchMgr.Configured() {
		registry.Register(search.NewTool(searchMgr))
	} else {
		logger.Warn("no search provider configured, web_search tool unavailable")
	}
	registry.Register(fetch.NewTool(fetch.New()))
	registry.Register(media.NewImageTool(mediaMgr))
	registry.Register(media.NewVideoTool(mediaMgr))
	registry.Register(media.NewMusicTool(mediaMgr))
	registry.Register(media.NewSpeechTool(speaker))
	registry.Register(media.NewAnalyzeTool(media.NewAnalyzer(llmClient, cfg.Model.Name)))
	registry.Register(media.NewMediaPostTool(mediaMgr, speaker))
	registry.Register(qr.NewTool(qr.NewGenerator(files)))
	registry.Register(fallback.NewTool(fallback.NewEngine(mediaMgr, logger)))
	registry.Register(memory.NewHistoryTool(mem))
	logger.Info("tools registered", "tools", registry.Names())

	// --- Agent loop, planner, orchestrator ---
	loop := agent.NewLoop(llmClient, registry, agent.Config{
		Model:            cfg.Model.Name,
		MaxIterations:    cfg.Agent.MaxIterations,
		MaxParallelTools: cfg.Agent.MaxParallelTools,
	}, logger)
	pl := planner.NewLLMPlanner(llmClient, cfg.Model.Name, logger)
	orc := orchestrator.New(loop, pl, mem, cfg.Timeout(), logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Event publishing ---
	if cfg.MQTT.Enabled {
		pub := announce.New(announce.Config{
			Broker:      cfg.MQTT.Broker,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
		}, logger)
		if err := pub.Start(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := pub.Stop(stopCtx); err != nil {
				logger.Warn("mqtt shutdown", "error", err)
			}
		}()
		orc.SetObserver(announcer{pub: pub})
	}

	// --- Chat gateway ---
	var responder api.Responder
	if cfg.Gateway.Enabled {
		gw := gateway.NewClient(gateway.Config{
			BaseURL:    cfg.Gateway.BaseURL,
			InstanceID: cfg.Gateway.InstanceID,
			APIToken:   cfg.Gateway.APIToken,
		})
		responder = gw

		if cfg.Gateway.WSUrl != "" {
			recv := gateway.NewReceiver(cfg.Gateway.WSUrl, func(ctx context.Context, msg gateway.Inbound) {
				res := orc.Handle(ctx, msg.ChatID, msg.Text)
				api.Deliver(ctx, gw, msg.ChatID, res, logger)
			}, logger)
			go recv.Run(ctx)
		}
	}

	// --- HTTP API ---
	addr := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	server := api.NewServer(addr, orc, responder, cfg.Assets.Dir, logger)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("api server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}
