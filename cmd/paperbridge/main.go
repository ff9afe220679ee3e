package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/paperbridge/paperbridge/internal/bridge"
	"github.com/paperbridge/paperbridge/internal/bridge/config"
	"github.com/paperbridge/paperbridge/internal/version"
)

var rootCmd = &cobra.Command{
	Use:     "paperbridge",
	Short:   "Bidirectional bridge between a Supernote device and Paperless-ngx",
	Version: version.Detailed(),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		cmd.SilenceUsage = true

		setupLogging(cfg)
		slog.Info("paperbridge", "version", version.Version, "revision", version.Revision)

		b, err := bridge.New(cfg)
		if err != nil {
			return err
		}

		defer slog.Info("Bye!")
		if err := b.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("bridge run", "error", err)
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().SortFlags = false
	rootCmd.Flags().StringP("paperless-url", "u", "", "Paperless-ngx base URL")
	rootCmd.Flags().StringP("note-dir", "n", "", "Directory the device syncs .note files into")
	rootCmd.Flags().StringP("document-dir", "d", "", "Directory the device syncs documents from")
	rootCmd.PersistentFlags().StringP("config", "c", config.DefaultConfigPath, "Config file")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newSyncCmd())
}

func loadConfig(cmd *cobra.Command) error {
	// Secrets may live in a .env next to the working directory.
	godotenv.Load()

	v := viper.GetViper()
	config.SetDefaults(v)

	if cmd.Flag("config").Changed {
		v.SetConfigFile(cmd.Flag("config").Value.String())
	} else {
		v.AddConfigPath(filepath.Join(home(), ".paperbridge"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		enoent := errors.Is(err, os.ErrNotExist)
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if !enoent && !notFound {
			return fmt.Errorf("config read '%s': %w", v.ConfigFileUsed(), err)
		}
	}

	v.BindPFlag("paperless_url", cmd.Flags().Lookup("paperless-url"))
	v.BindPFlag("note_dir", cmd.Flags().Lookup("note-dir"))
	v.BindPFlag("document_dir", cmd.Flags().Lookup("document-dir"))

	v.SetEnvPrefix("PAPERBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return nil
}

func home() string {
	h, _ := os.UserHomeDir()
	return h
}

func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	stdoutHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		NoColor:    !isatty.IsTerminal(os.Stdout.Fd()),
	})

	handler := slog.Handler(stdoutHandler)
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err == nil {
			if file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				fileHandler := slog.NewTextHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
				handler = newMultiHandler(stdoutHandler, fileHandler)
			}
		}
	}

	slog.SetDefault(slog.New(handler))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
