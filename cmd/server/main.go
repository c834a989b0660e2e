package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-relay/internal/app"
	"github.com/vovakirdan/wirechat-relay/internal/config"
	"github.com/vovakirdan/wirechat-relay/internal/log"
)

type flags struct {
	configPath string
	addr       string
	logLevel   string
}

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &flags{}

	root := &cobra.Command{
		Use:           "server",
		Short:         "Room-scoped real-time chat relay",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), f)
		},
	}
	root.PersistentFlags().StringVar(&f.configPath, "config", "", "path to config.yaml")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.Flags().StringVar(&f.addr, "addr", "", "HTTP listen address")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), f)
		},
	}
	serveCmd.Flags().StringVar(&f.addr, "addr", "", "HTTP listen address")

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the messages table and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return migrate(cmd.Context(), f)
		},
	}

	root.AddCommand(serveCmd, migrateCmd)
	return root
}

func loadConfig(f *flags) (config.Config, *zerolog.Logger, error) {
	bootLogger := log.New(f.logLevel)

	cfg, path, err := config.Load(bootLogger, f.configPath)
	if err != nil {
		return cfg, bootLogger, err
	}
	cfg.UpdateFrom(config.Config{Addr: f.addr, LogLevel: f.logLevel})

	logger := log.New(cfg.LogLevel)
	logger.Debug().Str("config", path).Msg("configuration loaded")
	return cfg, logger, nil
}

func serve(ctx context.Context, f *flags) error {
	cfg, logger, err := loadConfig(f)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, &cfg, logger)
	if err != nil {
		return err
	}

	logger.Info().Str("addr", cfg.Addr).Msg("starting chat relay")
	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("server exited with error: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}

func migrate(ctx context.Context, f *flags) error {
	cfg, logger, err := loadConfig(f)
	if err != nil {
		return err
	}

	st, err := app.OpenStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("schema applied")
	return nil
}
