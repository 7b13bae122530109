package recalc

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/service"
	"github.com/mpapenbr/racestore/pkg/utils"
)

var sessionIDs []int64

func NewRecalcCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "recalculates the finish positions of sessions from their laps and corrections",
		RunE: func(cmd *cobra.Command, args []string) error {
			return recalc(cmd.Context())
		},
	}
	cmd.Flags().Int64SliceVar(&sessionIDs, "session", nil, "id of the session (repeatable)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func recalc(ctx context.Context) error {
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
	for _, id := range sessionIDs {
		if err := s.RecalculateSessionPositions(ctx, id); err != nil {
			return fmt.Errorf("session %d: %w", id, err)
		}
		log.Info("Positions recalculated", log.Int64("session", id))
	}
	return nil
}
