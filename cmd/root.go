package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/valerioTomassi/linefile/internal/logging"
)

var errConfig = errors.New("config error")

var (
	// cfg merges persistent flags, LINEFILE_* environment variables and the
	// optional --config file.
	cfg     = viper.New()
	cfgFile string
)

// rootCmd is the base command executed when no subcommand is provided.
var rootCmd = &cobra.Command{
	Use:   "linefile",
	Short: "Read files line by line",
	Long: `linefile opens files and reads them one raw line at a time, terminators
included. It prints, heads and appends lines, and reports per-file line
statistics for whole directory trees.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return err
		}
		if cfg.GetBool("no-color") {
			color.NoColor = true
		}
		logger := logging.New(cmd.ErrOrStderr(), cfg.GetString("log-level"))
		cmd.SetContext(logging.WithLogger(cmd.Context(), logger))
		return nil
	},
}

// Execute runs the CLI. Called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (yaml, json or toml)")
	pf.String("log-level", "warn", "Log level: debug, info, warn, error")
	pf.Bool("no-color", false, "Disable colored output")

	cfg.SetEnvPrefix("LINEFILE")
	cfg.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cfg.AutomaticEnv()
	for _, name := range []string{"log-level", "no-color"} {
		if err := cfg.BindPFlag(name, pf.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func loadConfig() error {
	if cfgFile == "" {
		return nil
	}
	cfg.SetConfigFile(cfgFile)
	if err := cfg.ReadInConfig(); err != nil {
		return fmt.Errorf("%w: %w", errConfig, err)
	}
	return nil
}

// resetFlags restores flag defaults once a command finishes so values don't
// leak between executions of the shared command tree.
func resetFlags(cmd *cobra.Command, names ...string) {
	for _, name := range names {
		if f := cmd.Flags().Lookup(name); f != nil {
			f.Changed = false
			_ = f.Value.Set(f.DefValue)
		}
	}
}
