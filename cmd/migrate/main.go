package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/storefront-catalog/pkg/config"
	"github.com/angelmondragon/storefront-catalog/pkg/db"
	"github.com/angelmondragon/storefront-catalog/pkg/logger"
	"github.com/angelmondragon/storefront-catalog/pkg/migrate"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir string
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Manage the storefront schema",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", migrate.DefaultDir, "goose migrations directory")

	root.AddCommand(
		&cobra.Command{
			Use:   "create <name>",
			Short: "Write an empty timestamped migration",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := migrate.CreateSQLMigration(dir, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check migration names and goose annotations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				if err := migrate.ValidateDir(dir); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations ok")
				return nil
			},
		},
		withRunner(&dir, &cobra.Command{Use: "up", Short: "Apply pending migrations", Args: cobra.NoArgs},
			func(ctx context.Context, r *migrate.Runner, _ *cobra.Command, _ []string) error {
				return r.Up(ctx)
			}),
		withRunner(&dir, &cobra.Command{Use: "down", Short: "Roll back the latest migration", Args: cobra.NoArgs},
			func(ctx context.Context, r *migrate.Runner, _ *cobra.Command, _ []string) error {
				return r.Down(ctx)
			}),
		withRunner(&dir, &cobra.Command{Use: "to <version>", Short: "Move the schema to a YYYYMMDDHHMMSS version", Args: cobra.ExactArgs(1)},
			func(ctx context.Context, r *migrate.Runner, _ *cobra.Command, args []string) error {
				return r.To(ctx, args[0])
			}),
		withRunner(&dir, &cobra.Command{Use: "status", Short: "List migrations and whether they are applied", Args: cobra.NoArgs},
			func(ctx context.Context, r *migrate.Runner, cmd *cobra.Command, _ []string) error {
				statuses, err := r.Status(ctx)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tFILE")
				for _, st := range statuses {
					applied := "-"
					if !st.AppliedAt.IsZero() {
						applied = st.AppliedAt.UTC().Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", st.Source.Version, st.State, applied, st.Source.Path)
				}
				return tw.Flush()
			}),
	)
	return root
}

type runnerFunc func(ctx context.Context, r *migrate.Runner, cmd *cobra.Command, args []string) error

// withRunner gives cmd a live database connection and a runner over dir.
func withRunner(dir *string, cmd *cobra.Command, run runnerFunc) *cobra.Command {
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		logg := logger.New(logger.Options{
			ServiceName: "migrate",
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		})
		ctx := logg.WithFields(cmd.Context(), map[string]any{
			"env": cfg.App.Env,
			"cmd": cmd.Name(),
			"dir": *dir,
		})
		if err := migrate.UseDriver(cfg.DB.Driver); err != nil {
			return err
		}

		client, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			logg.Error(ctx, "database unavailable", err)
			return err
		}
		defer client.Close()
		sqlDB, err := client.DB().DB()
		if err != nil {
			return err
		}
		runner, err := migrate.NewRunner(sqlDB, *dir, logg)
		if err != nil {
			return err
		}
		if err := run(ctx, runner, cmd, args); err != nil {
			logg.Error(ctx, "migrate failed", err)
			return err
		}
		return nil
	}
	return cmd
}
