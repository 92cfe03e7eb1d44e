// ollamagate — HTTP chat gateway in front of a local Ollama daemon.
//
// Usage:
//
//	ollamagate serve
//	ollamagate serve --ollama-url http://localhost:11434/api --port 8080
//	ollamagate ask --model llama3 "why is the sky blue?"
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hartyporpoise/ollamagate/internal/api"
	"github.com/hartyporpoise/ollamagate/internal/config"
	"github.com/hartyporpoise/ollamagate/internal/host"
	"github.com/hartyporpoise/ollamagate/internal/logging"
	"github.com/hartyporpoise/ollamagate/internal/metrics"
	"github.com/hartyporpoise/ollamagate/internal/ollama"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	cfg := config.FromEnv()

	root := &cobra.Command{
		Use:           "ollamagate",
		Short:         "ollamagate — chat gateway for a local Ollama daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.OllamaURL, "ollama-url", cfg.OllamaURL, "Ollama API base URL (including /api)")
	pf.DurationVar(&cfg.RequestTimeout, "timeout", cfg.RequestTimeout, "Deadline for each Ollama call (0 = none)")
	pf.BoolVar(&cfg.RepairFragments, "repair-fragments", cfg.RepairFragments,
		"Try to repair undecodable response lines instead of skipping them")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	pf.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format: text or json")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Start the gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), &cfg, stderr)
		},
	}
	f := serve.Flags()
	f.StringVar(&cfg.Host, "host", cfg.Host, "Bind address")
	f.IntVarP(&cfg.Port, "port", "p", cfg.Port, "HTTP port")
	f.StringVar(&cfg.StaticDir, "static-dir", cfg.StaticDir,
		"Front-end directory (embedded assets are used if it does not exist)")

	var model string
	ask := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send one prompt to Ollama and print the flattened reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), &cfg, model, strings.Join(args, " "), stdout, stderr)
		},
	}
	ask.Flags().StringVarP(&model, "model", "m", "llama3", "Model name")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the ollamagate version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(stdout, "ollamagate", api.Version)
		},
	}

	root.AddCommand(serve, ask, version)
	return root
}

func runServe(ctx context.Context, cfg *config.Config, stderr io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	info := host.Detect()
	log.Info("host", "cpu", info.ModelName, "cores", info.LogicalCores, "simd", info.FeatureSummary())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	oc := newBridge(cfg, log)

	// Non-fatal: Ollama may start after the gateway.
	if v, err := api.Ping(ctx, oc); err == nil {
		log.Info("ollama reachable", "url", cfg.OllamaURL, "version", v)
	} else {
		log.Warn("cannot reach Ollama, make sure it is running with 'ollama serve'",
			"url", cfg.OllamaURL, "error", err)
	}

	srv := api.NewServer(cfg, oc, metrics.NewCollector(), info, log)
	return srv.Run(ctx)
}

func runAsk(ctx context.Context, cfg *config.Config, model, prompt string, stdout, stderr io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)

	res, err := newBridge(cfg, log).Generate(ctx, ollama.GenerateRequest{Model: model, Prompt: prompt})
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, res.Text)
	return nil
}

func newBridge(cfg *config.Config, log *slog.Logger) *ollama.Client {
	return ollama.NewClient(cfg.OllamaURL,
		ollama.WithTimeout(cfg.RequestTimeout),
		ollama.WithRepair(cfg.RepairFragments),
		ollama.WithLogger(log),
	)
}
