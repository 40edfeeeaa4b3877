package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/cachegate/cachegate/backend"
	"github.com/cachegate/cachegate/bloom"
	"github.com/cachegate/cachegate/gate"
	st "github.com/cachegate/cachegate/settings"
	"github.com/spf13/cobra"
)

// filterStore connects to the configured store holding filter state.
func filterStore() backend.Backend {
	store, err := backend.NewRedisBackend(st.Filter.StoreBin)
	if err != nil {
		fmt.Println("Error creating redis client:", err)
		os.Exit(1)
	}
	return store
}

func runInspect(args []string) {
	ctx := context.Background()
	store := filterStore()
	for _, bin := range args {
		item, err := store.Get(ctx, gate.StorageKey(bin), false)
		if err != nil {
			fmt.Printf("%s\terror: %v\n", bin, err)
			continue
		}
		if item == nil {
			fmt.Printf("%s\tno persisted filter state\n", bin)
			continue
		}
		filter, err := bloom.UnmarshalBinary(item.Data)
		if err != nil {
			fmt.Printf("%s\tunreadable filter state: %v\n", bin, err)
			continue
		}
		fmt.Printf("%s\tbits=%d k=%d keys=%d fill=%.4f est_fp=%.6f expire=%d\n",
			bin, filter.Bits(), filter.K(), filter.Count(),
			filter.EstimatedFillRatio(), filter.EstimatedFalsePositiveRate(), item.Expire)
	}
}

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <bin>...",
	Short: "Print persisted filter state for one or more bins",
	Long: `Loads each bin's persisted admission filter from the filter store and
prints its parameters, fill ratio and estimated false positive rate. A
fill ratio approaching 0.5 means the bin's expected_size is undersized.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runInspect(args)
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
