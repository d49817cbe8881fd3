// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdftext CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdftext/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is configured in PersistentPreRunE once the config is loaded.
var logger = zerolog.Nop()

// rootCmd is the base command for the pdftext CLI.
var rootCmd = &cobra.Command{
	Use:   "pdftext",
	Short: "Extract plain text from PDF documents",
	Long: `pdftext reads PDF documents and produces a plain-text transcript:
fragments of each page joined by spaces, one line per page, pages in order.
An extraction either yields the whole transcript or fails with a classified
error (malformed document, unreadable page, timeout); partial text is never
reported as success.

Text is read from the document's text layer. Scanned pages without a text
layer yield empty lines.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger = newLogger(cfg.Log, os.Stderr)
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug().Str("file", used).Msg("using config file")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./pdftext.yaml or ~/.config/pdftext/pdftext.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("journal-dir", "", "directory holding the run journal (default .pdftext)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("journal.dir", rootCmd.PersistentFlags().Lookup("journal-dir"))
}

func initConfig() {
	// A missing .env is normal.
	_ = godotenv.Load()

	setDefaults(types.DefaultConfig())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdftext")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdftext"))
		}
	}

	viper.SetEnvPrefix("PDFTEXT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "warning: reading config %s: %v\n", cfgFile, err)
		}
	}
}

// setDefaults registers every key so that environment variables can
// override keys that appear in neither a config file nor a flag.
func setDefaults(d types.Config) {
	viper.SetDefault("parser.backend", string(d.Parser.Backend))
	viper.SetDefault("parser.strict", d.Parser.Strict)
	viper.SetDefault("parser.image", d.Parser.Image)
	viper.SetDefault("pipeline.step_timeout", d.Pipeline.StepTimeout)
	viper.SetDefault("batch.out_dir", d.Batch.OutDir)
	viper.SetDefault("batch.concurrency", d.Batch.Concurrency)
	viper.SetDefault("batch.force", d.Batch.Force)
	viper.SetDefault("journal.enabled", d.Journal.Enabled)
	viper.SetDefault("journal.dir", d.Journal.Dir)
	viper.SetDefault("log.level", d.Log.Level)
	viper.SetDefault("log.format", d.Log.Format)
}

// loadConfig merges defaults, config file, environment and flags.
func loadConfig() (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := viper.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
