package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/foxzi/pca/internal/config"
	"github.com/foxzi/pca/internal/gophish"
	"github.com/foxzi/pca/internal/history"
	"github.com/foxzi/pca/internal/logging"
	"github.com/foxzi/pca/internal/metrics"
	"github.com/foxzi/pca/internal/prompt"
)

var (
	cfgFile   string
	envFile   string
	logLevel  string
	logFormat string
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

var (
	banner  = color.New(color.FgHiCyan, color.Bold)
	success = color.New(color.FgHiGreen)
)

// environment is what every command needs after flags and config are read
type environment struct {
	cfg    *config.Config
	logger *slog.Logger
}

var env environment

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pca",
	Short: "pca - phishing campaign assessment toolkit for Gophish",
	Long: `pca builds phishing assessment documents and loads, exports, completes,
tests and cleans them on a Gophish server.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("pca version %s\n", version)
		if commit != "unknown" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with PCA_* variables")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "info", "log level (debug, info, warning, error, critical)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	rootCmd.AddCommand(versionCmd)
}

// setup loads the dotenv file and config and builds the logger
func setup(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if f := cmd.Flags().Lookup("log-level"); f != nil && f.Changed {
		cfg.Logging.Level = logLevel
	}
	if f := cmd.Flags().Lookup("log-format"); f != nil && f.Changed {
		cfg.Logging.Format = logFormat
	}

	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}

	env = environment{
		cfg:    cfg,
		logger: logging.New(os.Stderr, level, cfg.Logging.Format),
	}
	metrics.SetGlobal(metrics.New())
	return nil
}

// runInfo is filled in by a command for the run journal
type runInfo struct {
	assessmentID string
	counts       map[string]int
}

type commandFunc func(ctx context.Context, cmd *cobra.Command, args []string, info *runInfo) error

// runE wraps a command with SIGINT cancellation, run metrics and the
// history journal.
func runE(name string, fn commandFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		info := &runInfo{}
		start := time.Now()
		err := fn(ctx, cmd, args, info)
		if err != nil {
			logging.Critical(env.logger, "command failed", "command", name, "error", err)
		}

		finish(name, start, info, err)
		return err
	}
}

func finish(name string, start time.Time, info *runInfo, runErr error) {
	metrics.RecordRun(name, runErr)
	if path := env.cfg.Metrics.Textfile; path != "" {
		if err := metrics.Global().WriteTextfile(path); err != nil {
			env.logger.Warn("failed to write metrics", "path", path, "error", err)
		}
	}

	if env.cfg.History.Disabled {
		return
	}
	store, err := history.Open(env.cfg.History.Path)
	if err != nil {
		env.logger.Debug("history unavailable", "error", err)
		return
	}
	defer store.Close()

	entry := &history.Entry{
		Command:      name,
		AssessmentID: info.assessmentID,
		Server:       env.cfg.Server.URL,
		StartedAt:    start,
		Duration:     time.Since(start),
		Counts:       info.counts,
	}
	if runErr != nil {
		entry.Result = history.ResultError
		entry.Error = runErr.Error()
	}
	if err := store.Record(context.Background(), entry); err != nil {
		env.logger.Warn("failed to record history", "error", err)
	}
}

// newPrompter reads from the terminal with line editing, or from stdin
// line by line when input is piped.
func newPrompter() (*prompt.Prompter, func(), error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return prompt.New(prompt.NewStream(os.Stdin, os.Stdout), os.Stdout, env.logger), func() {}, nil
	}
	t, err := prompt.NewTerminal()
	if err != nil {
		return nil, nil, err
	}
	return prompt.New(t, os.Stdout, env.logger), func() { t.Close() }, nil
}

// serverArgs splits the optional trailing SERVER API_KEY positionals
func serverArgs(args []string, fixed int) (string, string, error) {
	switch len(args) - fixed {
	case 0:
		return "", "", nil
	case 2:
		return args[fixed], args[fixed+1], nil
	}
	return "", "", fmt.Errorf("SERVER and API_KEY must be given together")
}

// connect builds a Gophish client from config and positionals and checks
// the server answers before anything is changed.
func connect(ctx context.Context, args []string, fixed int) (*gophish.Client, error) {
	url, key, err := serverArgs(args, fixed)
	if err != nil {
		return nil, err
	}
	cfg := env.cfg
	if err := cfg.SetServer(url, key); err != nil {
		return nil, err
	}
	if err := cfg.RequireServer(); err != nil {
		return nil, err
	}

	client, err := gophish.NewClient(cfg.Server.URL, cfg.Server.APIKey, gophish.Options{
		Timeout:   cfg.Server.Timeout,
		VerifyTLS: cfg.Server.VerifyTLS,
	})
	if err != nil {
		return nil, err
	}

	env.logger.Debug("connecting to gophish", "url", client.BaseURL())
	if err := client.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", client.BaseURL(), err)
	}
	return client, nil
}

// serverUsage is appended to commands taking the optional positionals
const serverUsage = "[SERVER API_KEY]"
