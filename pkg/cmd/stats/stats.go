package stats

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mpapenbr/racestore/log"
	"github.com/mpapenbr/racestore/pkg/service"
	"github.com/mpapenbr/racestore/pkg/utils"
)

type statsConfig struct {
	from, to      string
	invalidate    bool
	track, guid   string
	cars          []string
	maxLapTime    time.Duration
	maxCuts       int64
	outputFormat  string
	timeReference time.Time
}

func NewStatsCmd() *cobra.Command {
	cfg := statsConfig{}
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "prints lap statistics of a time window",
		Long: `Prints the number of laps per track, car and combo, the players per day and
the number of bans of the window [from, to). With --invalidate laps matching the
--invalidate-* filters are marked invalid before counting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.timeReference = time.Now()
			return printStats(cmd.Context(), cmd.OutOrStdout(), &cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.from, "from", "",
		"start of the window (2006-01-02 or RFC3339, default: 7 days before --to)")
	cmd.Flags().StringVar(&cfg.to, "to", "",
		"end of the window (2006-01-02 or RFC3339, default: now)")
	cmd.Flags().BoolVar(&cfg.invalidate, "invalidate", false,
		"invalidate laps matching the --invalidate-* filters")
	cmd.Flags().StringVar(&cfg.track, "invalidate-track", "",
		"restrict invalidation to this track")
	cmd.Flags().StringSliceVar(&cfg.cars, "invalidate-cars", nil,
		"restrict invalidation to these cars")
	cmd.Flags().StringVar(&cfg.guid, "invalidate-guid", "",
		"restrict invalidation to this player")
	cmd.Flags().DurationVar(&cfg.maxLapTime, "invalidate-max-laptime", 0,
		"invalidate laps faster than this")
	cmd.Flags().Int64Var(&cfg.maxCuts, "invalidate-max-cuts", -1,
		"invalidate laps with more cuts than this (-1 disables)")
	cmd.Flags().StringVar(&cfg.outputFormat, "output", "yaml", "output format (yaml)")
	return cmd
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

func (cfg *statsConfig) query() (service.StatisticsQuery, error) {
	ret := service.StatisticsQuery{To: cfg.timeReference}
	var err error
	if cfg.to != "" {
		if ret.To, err = parseTime(cfg.to); err != nil {
			return ret, err
		}
	}
	ret.From = ret.To.AddDate(0, 0, -7)
	if cfg.from != "" {
		if ret.From, err = parseTime(cfg.from); err != nil {
			return ret, err
		}
	}
	if !ret.From.Before(ret.To) {
		return ret, fmt.Errorf("--from must be before --to")
	}
	if cfg.invalidate {
		f := &service.InvalidateFilter{
			Track:      cfg.track,
			Cars:       cfg.cars,
			GUID:       cfg.guid,
			MaxLapTime: cfg.maxLapTime.Milliseconds(),
		}
		if cfg.maxCuts >= 0 {
			f.MaxCuts = null.From(cfg.maxCuts)
		}
		ret.Invalidate = f
	}
	return ret, nil
}

func printStats(ctx context.Context, w io.Writer, cfg *statsConfig) error {
	if cfg.outputFormat != "yaml" {
		return fmt.Errorf("unsupported output format %q", cfg.outputFormat)
	}
	query, err := cfg.query()
	if err != nil {
		return err
	}
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
	res, err := s.Statistics(ctx, query)
	if err != nil {
		return err
	}
	return writeYAML(w, res)
}

func writeYAML(w io.Writer, res *service.Statistics) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return err
	}
	return enc.Close()
}
