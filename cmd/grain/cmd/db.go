package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/psantana5/grain/internal/config"
	"github.com/psantana5/grain/pkg/cleanup"
	"github.com/psantana5/grain/pkg/logging"
	"github.com/psantana5/grain/pkg/store"
)

var purgeDays int

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database maintenance",
	Long:  `Maintenance tasks the server also runs on a schedule. They open the configured database directly.`,
}

var dbPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Permanently remove old trash and expired sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, cfg *config.Config, st store.Store, log *zap.Logger) error {
			cc := cfg.CleanupConfig()
			if cmd.Flags().Changed("older-than") {
				cc.TrashRetentionDays = purgeDays
			}
			m := cleanup.New(cc, st, log)
			if err := m.RunOnce(ctx); err != nil {
				return err
			}

			stats := m.Stats()
			return render(stdout(cmd), outputFormat, stats, func(w io.Writer) error {
				if cc.TrashRetentionDays == 0 {
					fmt.Fprintln(w, "Trash retention is 0, trash left alone")
				}
				rows := [][2]string{}
				for _, table := range []string{store.TableLumber, store.TableFinishes, store.TableSheetGoods,
					store.TableConsumables, store.TableTools, store.TableProjects} {
					rows = append(rows, [2]string{table, fmt.Sprint(stats.PurgedByTable[table])})
				}
				rows = append(rows,
					[2]string{"total purged", fmt.Sprint(stats.TotalRecordsPurged)},
					[2]string{"sessions expired", fmt.Sprint(stats.TotalSessionsExpired)})
				return renderFields(w, rows)
			})
		})
	},
}

var dbVacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Reclaim space and refresh planner statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, cfg *config.Config, st store.Store, log *zap.Logger) error {
			m := cleanup.New(cfg.CleanupConfig(), st, log)
			if err := m.Vacuum(ctx); err != nil {
				return err
			}
			fmt.Fprintf(stdout(cmd), "✓ Vacuumed in %s\n", m.Stats().LastVacuumDuration)
			return nil
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{dbPurgeCmd, dbVacuumCmd} {
		addDatabaseFlags(c)
	}
	dbPurgeCmd.Flags().IntVar(&purgeDays, "older-than", 30, "purge records trashed more than this many days ago")

	dbCmd.AddCommand(dbPurgeCmd, dbVacuumCmd)
	rootCmd.AddCommand(dbCmd)
}

// withStore loads the server config, opens the database and runs fn.
// Logs go to stderr so stdout stays clean for command output.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, st store.Store, log *zap.Logger) error) error {
	cfg, _, err := loadServerConfig(cmd, serverFlags)
	if err != nil {
		return err
	}

	lc := cfg.LoggingConfig()
	lc.Stderr = true
	lc.Format = "console"
	lc.File = ""
	log, _, err := logging.New(lc)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx := cmd.Context()
	st, err := store.NewStore(ctx, cfg.StoreConfig())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer st.Close()

	return fn(ctx, cfg, st, log)
}
