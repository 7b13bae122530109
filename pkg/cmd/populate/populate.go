package populate

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/config"
	"github.com/mpapenbr/racestore/pkg/transfer"
	"github.com/mpapenbr/racestore/pkg/utils"
)

func NewPopulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "populate",
		Short: "copies the content of the source store into the empty store of --db",
		Long: `The destination is migrated to the schema version of the source first.
The command refuses to run if the destination contains any data.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return populate(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&config.SourceDB,
		"source-db",
		"",
		"connection string or file path of the source store")
	_ = cmd.MarkFlagRequired("source-db")
	return cmd
}

func populate(ctx context.Context) error {
	sqlLogger, err := utils.SetupLogging()
	if err != nil {
		return err
	}
	if config.SourceDB == config.DB {
		return fmt.Errorf("source and destination are the same store")
	}
	src, err := utils.OpenDB(ctx, config.SourceDB, sqlLogger)
	if err != nil {
		return err
	}
	defer src.Close()
	dst, err := utils.OpenDB(ctx, config.DB, sqlLogger)
	if err != nil {
		return err
	}
	defer dst.Close()

	log.Info("Populating store",
		log.String("source", utils.RedactDBURL(config.SourceDB)),
		log.String("destination", utils.RedactDBURL(config.DB)))
	ctx = log.AddToContext(ctx, log.Default())
	res, err := transfer.Populate(ctx, dst, src)
	if err != nil {
		log.Error("Populate failed", log.ErrorField(err))
		return err
	}
	var total int64
	for _, n := range res.Rows {
		total += n
	}
	log.Info("Populate done",
		log.Int("version", res.Version),
		log.Int("tables", len(res.Rows)),
		log.Int64("rows", total))
	return nil
}
