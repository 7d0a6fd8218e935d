package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aiox-platform/contextflow/internal/app"
	"github.com/aiox-platform/contextflow/internal/config"
)

var (
	debug        bool
	embedded     bool
	embeddedPath string
	userID       string
)

var rootCmd = &cobra.Command{
	Use:   "contextflow",
	Short: "ContextFlow: workflows over hybrid memory",
	Long: `ContextFlow runs multi-agent workflows whose agents share short-term
conversation memory in Redis and long-term knowledge with hybrid retrieval.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&embedded, "embedded", false, "keep long-term memory in an embedded store instead of PostgreSQL")
	rootCmd.PersistentFlags().StringVar(&embeddedPath, "embedded-path", "", "directory for the embedded store (default $MEMORY_EMBEDDED_PATH, in-memory if unset)")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "", "user id owning sessions and knowledge (default $WORKFLOW_USER_ID)")
}

// loadConfig reads config, applies global flags and validates what local commands need.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.Log.Level = "debug"
	}
	if embedded {
		cfg.Memory.Backend = "embedded"
	}
	if embeddedPath != "" {
		cfg.Memory.EmbeddedPath = embeddedPath
	}
	if userID != "" {
		cfg.Workflow.UserID = userID
	}
	app.SetupLogger(cfg.Log)

	if err := cfg.ValidateRuntime(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStack loads config and opens the memory stack for a command.
func openStack(ctx context.Context) (*config.Config, *app.Stack, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	stack, err := app.Open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, stack, nil
}

// readInput joins args, or reads stdin when there are none.
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.TrimSpace(strings.Join(args, " ")), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("no input: pass it as arguments or on stdin")
	}
	return text, nil
}
