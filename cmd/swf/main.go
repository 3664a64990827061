package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/sprintwithfriends/internal/app"
	"github.com/nhle/sprintwithfriends/internal/logging"
	"github.com/nhle/sprintwithfriends/internal/model"
	"github.com/nhle/sprintwithfriends/internal/server"
	"github.com/nhle/sprintwithfriends/internal/theme"
)

// Set via ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	verbose    bool

	cfg    *model.AppConfig
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "swf",
	Short: "SprintWithFriends - a shared sprint board in your terminal",
	Long: `SprintWithFriends keeps a personal sprint board and shows your
friends' tasks next to your own. Sign in with a magic link, invite a
friend, and drag cards between lanes as the sprint moves.

Run without arguments to open the board.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = model.LoadConfig(configPath)
		if err != nil {
			return err
		}
		theme.Apply(cfg.Display.Theme)

		// The terminal belongs to the TUI; everything else logs to stderr.
		toFile := cmd == cmd.Root()
		logger, err = logging.New(cfg.Log, toFile, verbose)
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
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBoard()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the landing server for sign-in links and invites",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the current configuration (defaults plus overrides) to disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := model.SaveConfig(configPath, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "swf %s (commit %s, built %s)\n", version, commit, date)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", model.DefaultConfigPath(), "config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(serveCmd, configCmd, versionCmd)
}

func runBoard() error {
	svc, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("closing services", zap.Error(err))
		}
	}()

	m := app.New(app.Deps{
		Gateway: svc.gateway,
		Session: svc.provider,
		Invites: svc.invites,
		Inbox:   svc.inbox,
		Logger:  logger,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running board: %w", err)
	}
	return nil
}

func runServer() error {
	svc, err := buildServices(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.Warn("closing services", zap.Error(err))
		}
	}()

	srv := server.New(svc.provider, svc.broker, svc.gateway, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start(cfg.Server.Listen) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down landing server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("shutting down: %w", err)
	}
	return <-errCh
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
