package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"finease/internal/backend"
	"finease/internal/cli"
	"finease/internal/config"
	"finease/internal/store/mongo"
	"finease/internal/store/sqlite"
)

func newMigrateCommand() *cobra.Command {
	var (
		rollback int
		status   bool
	)
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Prepare the configured store",
		Long: "Applies the SQLite schema migrations, or creates the MongoDB indexes, " +
			"for the backend selected by DATA_BACKEND.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cli.LoadEnvFile(envFiles(cmd)...); err != nil {
				return err
			}
			cfg := config.Load()
			logger := cli.SetupLogger(cfg.LogLevel)

			bc, err := backend.FromAppConfig(cfg)
			if err != nil {
				return err
			}
			if err := bc.Validate(); err != nil {
				return err
			}

			switch bc.Type {
			case backend.SQLiteBackend:
				switch {
				case status:
				case rollback > 0:
					if err := sqlite.RollbackMigrations(bc.SQLiteDBPath, rollback); err != nil {
						return err
					}
					logger.Info("Migrations rolled back", "steps", rollback, "db_path", bc.SQLiteDBPath)
				default:
					if err := sqlite.RunMigrations(bc.SQLiteDBPath); err != nil {
						return err
					}
				}
				st, err := sqlite.Status(bc.SQLiteDBPath)
				if err != nil {
					return err
				}
				cmd.Printf("sqlite schema version %d (dirty: %t)\n", st.Version, st.Dirty)
				return nil

			case backend.MongoBackend:
				if status || rollback > 0 {
					return fmt.Errorf("--status and --rollback apply to the sqlite backend only")
				}
				ctx, cancel := context.WithTimeout(cmd.Context(), bc.ConnectTimeout)
				defer cancel()
				st, err := mongo.Connect(ctx, mongo.Config{
					URI:            bc.MongoURI,
					Database:       bc.MongoDatabase,
					Collection:     bc.MongoCollection,
					ConnectTimeout: bc.ConnectTimeout,
				})
				if err != nil {
					return err
				}
				defer st.Close()
				if err := st.EnsureIndexes(ctx); err != nil {
					return err
				}
				cmd.Printf("mongodb indexes ensured on %s.%s\n", bc.MongoDatabase, bc.MongoCollection)
				return nil

			default:
				cmd.Println("memory backend has no schema")
				return nil
			}
		},
	}
	cmd.Flags().IntVar(&rollback, "rollback", 0, "revert this many sqlite migrations")
	cmd.Flags().BoolVar(&status, "status", false, "only print the sqlite schema version")
	return cmd
}
