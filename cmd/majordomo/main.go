package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"majordomo/internal/config"
	"majordomo/internal/engine"
	"majordomo/internal/guard"
	"majordomo/internal/llm"
	"majordomo/internal/logging"
	"majordomo/internal/plan"
	"majordomo/internal/planner"
	"majordomo/internal/session"
	"majordomo/internal/stream"
	"majordomo/internal/tools"
)

var (
	// Global flags
	verbose   bool
	workspace string
	listen    string

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "majordomo",
	Short: "majordomo - conversational automation assistant",
	Long: `majordomo turns natural-language requests into tool invocations and
streams plan progress back to the client in real time.

A guard chain rejects control/noise input before any planning happens;
accepted requests are decomposed into a step DAG, executed with
bounded concurrency, and emitted as a sequence-numbered event stream
that clients reconcile into consistent state.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if workspace == "" {
			workspace, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to resolve workspace: %w", err)
			}
		}
		if err := logging.Initialize(workspace); err != nil {
			logger.Warn("category logging unavailable", zap.Error(err))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

// serveCmd starts the WebSocket server
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebSocket server",
	Long: `Serves the duplex streaming endpoint at /ws.

Clients send {"type": "message", "text": ...} and {"type": "cancel"}
frames; majordomo answers with reply frames plus the plan event
stream (one "plan" snapshot, then sequence-numbered "plan_update"
events per step transition).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

// runCmd executes a single request without a server
var runCmd = &cobra.Command{
	Use:   "run [request]",
	Short: "Run a single request and print the outcome",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runOnce,
}

// versionCmd prints the version
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the majordomo version",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.DefaultConfig()
		fmt.Printf("majordomo %s\n", cfg.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace directory (default: current directory)")
	serveCmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}

// buildPipeline wires the shared components once and returns a
// per-connection session factory. The LLM client and classifier are
// fixed for the process lifetime; guard keywords and execution budgets
// are re-read through current so config edits reach new sessions.
func buildPipeline(cfg *config.Config, current func() *config.Config) (func(sink engine.EventSink) *session.Session, error) {
	client, err := llm.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	registry := tools.NewRegistry()
	tools.RegisterBuiltins(registry)

	invoker := engine.NewToolInvoker(registry)
	batcher := llm.NewBatcher(client, cfg.LLM.MaxParallel)
	analyzer := planner.NewParallelIntentAnalyzer(batcher)

	var classifier *guard.LowSignalClassifier
	if cfg.Classifier.Enabled {
		clsClient, err := llm.NewClassifierClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create classifier client: %w", err)
		}
		classifier = guard.NewLowSignalClassifier(clsClient, cfg.Classifier)
	}

	factory := func(sink engine.EventSink) *session.Session {
		live := current()
		g := guard.NewControlInputGuard(live.Guard)
		ex := engine.New(invoker, sink, live.Execution.MaxParallel, live.GetStepTimeout())
		p := planner.NewLLMPlanner(client, registry)
		return session.New(g, classifier, p, ex, analyzer)
	}

	return factory, nil
}

func serve() error {
	path := config.ConfigPath(workspace)

	var cfg *config.Config
	current := func() *config.Config { return cfg }

	watcher, err := config.NewWatcher(path)
	if err != nil {
		logger.Warn("config hot-reload unavailable", zap.Error(err))
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		defer watcher.Close()
		cfg = watcher.Current()
		current = watcher.Current
		watcher.OnReload(func(c *config.Config) {
			logger.Info("config reloaded", zap.String("path", path))
		})
	}

	factory, err := buildPipeline(cfg, current)
	if err != nil {
		return err
	}

	addr := cfg.Stream.ListenAddr
	if listen != "" {
		addr = listen
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("starting majordomo server",
		zap.String("addr", addr),
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model))

	srv := stream.NewServer(cfg, factory)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}

	logger.Info("server shut down")
	return nil
}

// stdoutSink prints plan events as JSON lines for one-shot runs.
type stdoutSink struct{}

func (stdoutSink) SendPlan(ev plan.Event) {
	if data, err := json.Marshal(ev); err == nil {
		fmt.Println(string(data))
	}
}

func (stdoutSink) SendUpdate(ev plan.UpdateEvent) {
	if data, err := json.Marshal(ev); err == nil {
		fmt.Println(string(data))
	}
}

func runOnce(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(config.ConfigPath(workspace))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	factory, err := buildPipeline(cfg, func() *config.Config { return cfg })
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := factory(stdoutSink{})
	reply := sess.HandleMessage(ctx, strings.Join(args, " "))
	fmt.Println(reply.Text)
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
