package migrate

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/config"
	"github.com/mpapenbr/racestore/pkg/db/migrate"
	"github.com/mpapenbr/racestore/pkg/utils"
)

var target int

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "performs database migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return startMigration(cmd.Context())
		},
	}

	cmd.Flags().IntVar(&target,
		"target",
		migrate.Latest,
		"schema version to migrate to")
	cmd.Flags().BoolVar(&config.Backups,
		"backups",
		true,
		"create a backup of the store before migrating")
	cmd.Flags().StringVar(&config.BackupDir,
		"backup-dir",
		"",
		"directory for backups (default: next to the store)")
	cmd.Flags().IntVar(&config.MigrationRetries,
		"retries",
		5,
		"number of attempts while the database is busy")
	cmd.Flags().StringVar(&config.MigrationRetryPause,
		"retry-pause",
		"5s",
		"pause between attempts")
	cmd.Flags().BoolVar(&config.FreshCreate,
		"fresh-create",
		true,
		"create empty stores directly at the latest version")
	return cmd
}

func startMigration(ctx context.Context) error {
	sqlLogger, err := utils.SetupLogging()
	if err != nil {
		return err
	}
	store, err := utils.OpenDB(ctx, config.DB, sqlLogger)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := append(utils.MigrateOptions(store), migrate.WithTarget(target))
	res, err := migrate.Migrate(ctx, store, opts...)
	if err != nil {
		log.Error("Migration failed", log.ErrorField(err))
		return err
	}
	switch {
	case res.Incompatible:
		log.Warn("Store is newer than this release", log.Int("version", res.From))
	case res.From == res.To:
		log.Info("No Migration required", log.Int("version", res.From))
	default:
		log.Info("Migration done",
			log.Int("from", res.From),
			log.Int("to", res.To),
			log.String("backup", res.Backup))
	}
	return nil
}
