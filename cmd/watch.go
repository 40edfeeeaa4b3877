package cmd

import (
	"context"
	"time"

	"github.com/cachegate/cachegate/backend"
	"github.com/cachegate/cachegate/bloom"
	"github.com/cachegate/cachegate/gate"
	"github.com/cachegate/cachegate/prom"
	st "github.com/cachegate/cachegate/settings"
	"github.com/spf13/cobra"
)

var watchIntervalSeconds int

func scrapeFilters(ctx context.Context, store backend.Backend, bins []string) {
	for _, bin := range bins {
		item, err := store.Get(ctx, gate.StorageKey(bin), false)
		if err != nil {
			st.Logger.Warn().Err(err).Str("bin", bin).Msg("failed to read filter state")
			continue
		}
		if item == nil {
			prom.FilterFillRatio.WithLabelValues(bin).Set(0)
			prom.FilterKeys.WithLabelValues(bin).Set(0)
			continue
		}
		filter, err := bloom.UnmarshalBinary(item.Data)
		if err != nil {
			st.Logger.Warn().Err(err).Str("bin", bin).Msg("unreadable filter state")
			continue
		}
		prom.FilterFillRatio.WithLabelValues(bin).Set(filter.EstimatedFillRatio())
		prom.FilterKeys.WithLabelValues(bin).Set(float64(filter.Count()))
	}
}

func runWatch(args []string) {
	ctx := context.Background()
	store := filterStore()

	go prom.StartStandalonePromServer()

	scrapeFilters(ctx, store, args)
	ticker := time.NewTicker(time.Duration(watchIntervalSeconds) * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		scrapeFilters(ctx, store, args)
	}
}

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch <bin>...",
	Short: "Export filter saturation metrics for one or more bins",
	Long: `Polls each bin's persisted admission filter and exports its fill ratio
and admitted key count on the prometheus endpoint. Pair with an alert on
cachegate_filter_fill_ratio to catch undersized bins before their false
positive rate degrades.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runWatch(args)
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchIntervalSeconds, "interval", 60, "seconds between filter state polls")
	rootCmd.AddCommand(watchCmd)
}
