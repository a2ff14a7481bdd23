package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yungbote/mediaforge-backend/internal/app"
	"github.com/yungbote/mediaforge-backend/internal/platform/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "mediaforge",
		Short:         "Media ingest and processing pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newWorkerCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newSweepCommand())
	return rootCmd
}

// withApp wires the full application, runs fn and tears everything down.
func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	log, err := app.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	a, err := app.New(ctx, log)
	if err != nil {
		log.Error("bootstrap failed", "error", err)
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func newServeCommand() *cobra.Command {
	var withWorker bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.RunServer(ctx, withWorker)
			})
		},
	}
	cmd.Flags().BoolVar(&withWorker, "with-worker", true, "Also run the job worker in this process")
	return cmd
}

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background job worker",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				return a.RunWorker(ctx)
			})
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLogger(func(log *logger.Logger) error {
				if err := app.Migrate(log); err != nil {
					return err
				}
				log.Info("migrations applied")
				return nil
			})
		},
	}
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove abandoned upload sessions once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withLogger(func(log *logger.Logger) error {
				n, err := app.SweepOnce(cmd.Context(), log)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d upload session(s)\n", n)
				return nil
			})
		},
	}
}

func withLogger(fn func(*logger.Logger) error) error {
	log, err := app.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	return fn(log)
}
