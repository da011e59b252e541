// stockd is the stock-analysis service: a streaming multi-step analysis
// pipeline (fundamental + technical fan-out, LLM synthesis) served over SSE,
// with local one-shot and remote watch modes for the terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RyanProMax/stock-analysis/internal/analysis"
	"github.com/RyanProMax/stock-analysis/internal/config"
	"github.com/RyanProMax/stock-analysis/internal/events"
	"github.com/RyanProMax/stock-analysis/internal/factors"
	"github.com/RyanProMax/stock-analysis/internal/llm"
	"github.com/RyanProMax/stock-analysis/internal/logging"
	"github.com/RyanProMax/stock-analysis/internal/market"
	"github.com/RyanProMax/stock-analysis/internal/router"
	"github.com/RyanProMax/stock-analysis/internal/transport"
)

var (
	// Global flags
	verbose bool
	cfgPath string

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "stockd",
	Short: "Streaming stock analysis service",
	Long: `stockd runs stock analysis sessions: fundamental and technical factor
analysis in parallel, followed by an LLM synthesis step whose reasoning and
answer are streamed live.

Run "stockd serve" to expose the SSE API, "stockd analyze SYMBOL" for a local
one-shot session, or "stockd watch SYMBOL" to follow a session on a running
server.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/SSE analysis server",
	RunE:  runServe,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [symbol...]",
	Short: "Run analysis sessions locally and print the live stream",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAnalyze,
}

var watchCmd = &cobra.Command{
	Use:   "watch [symbol]",
	Short: "Follow a session streamed by a running server",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

var serverURL string

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "stockd.yaml", "Path to config file")
	watchCmd.Flags().StringVar(&serverURL, "server", "http://localhost:8000", "Base URL of a running stockd server")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(watchCmd)
}

// newOrchestrator assembles the full pipeline from config. The market source
// is the deterministic synthetic feed; swap here once a live data source is
// wired.
func newOrchestrator() (*analysis.Orchestrator, config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, config.Config{}, err
	}
	client, err := llm.NewOpenAIClient(cfg.LLM, logger)
	if err != nil {
		return nil, config.Config{}, err
	}
	provider := factors.NewMarketProvider(market.NewSyntheticSource(), cfg.Analysis.HistoryDays)
	return analysis.New(provider, client, cfg.Analysis, logger), cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	orch, cfg, err := newOrchestrator()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: transport.NewServer(orch, logger).Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	orch, _, err := newOrchestrator()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, symbol := range args {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := router.New()
		for ev := range orch.Stream(ctx, symbol) {
			printEvent(r, ev)
		}
		if r.Failure() != "" {
			return errors.New(r.Failure())
		}
	}
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := router.New()
	client := transport.NewClient(serverURL)
	if err := client.Stream(ctx, args[0], func(ev events.Event) error {
		printEvent(r, ev)
		return nil
	}); err != nil {
		return err
	}
	if r.Failure() != "" {
		return errors.New(r.Failure())
	}
	return nil
}

// printEvent folds the event into the router and renders a terminal-friendly
// line or delta. Thinking and streaming deltas print inline, everything else
// gets its own line.
func printEvent(r *router.Router, ev events.Event) {
	wasStreaming := streamingAny(r)
	r.Apply(ev)

	// Close an open delta line before switching to line-oriented output.
	if wasStreaming && ev.Kind != events.KindThinking && ev.Kind != events.KindStreaming {
		fmt.Println()
	}

	switch ev.Kind {
	case events.KindStart:
		fmt.Printf("=== %s ===\n", ev.Symbol)
	case events.KindProgress:
		fmt.Printf("[%s] %s: %s\n", ev.Status, ev.Step, ev.Message)
	case events.KindThinking, events.KindStreaming:
		fmt.Print(ev.Content)
	case events.KindError:
		fmt.Printf("error: %s\n", ev.Message)
	case events.KindComplete:
		if ev.Result != nil {
			fmt.Printf("--- %s: %s ---\n", ev.Result.Symbol, ev.Result.Decision.Action)
		}
	}
}

func streamingAny(r *router.Router) bool {
	for _, step := range r.Steps() {
		if r.State(step).Streaming {
			return true
		}
	}
	return false
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
