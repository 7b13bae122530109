package compact

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/service"
	"github.com/mpapenbr/racestore/pkg/utils"
)

var olderThan time.Duration

func NewCompactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compact",
		Short: "removes trajectories of old laps",
		Long: `Trajectories of laps older than --older-than are removed unless the lap is the
best valid lap of its player and car on the combo.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return compact(cmd.Context())
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 90*24*time.Hour,
		"minimum age of laps to compact")
	return cmd
}

func compact(ctx context.Context) error {
	sqlLogger, err := utils.SetupLogging()
	if err != nil {
		return err
	}
	store, err := utils.OpenStore(ctx, sqlLogger)
	if err != nil {
		return err
	}
	defer store.Close()

	s := service.NewStore(store, service.WithLogger(log.Default().Named("store")))
	cutoff := time.Now().Add(-olderThan)
	n, err := s.CompactBlobs(ctx, cutoff)
	if err != nil {
		return err
	}
	log.Info("Trajectories removed", log.Int("laps", n), log.Time("before", cutoff))
	return nil
}
