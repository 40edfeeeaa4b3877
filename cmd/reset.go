package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/cachegate/cachegate/gate"
	"github.com/spf13/cobra"
)

func runReset(args []string) {
	ctx := context.Background()
	store := filterStore()
	for _, bin := range args {
		if err := store.Delete(ctx, gate.StorageKey(bin)); err != nil {
			fmt.Printf("%s\terror: %v\n", bin, err)
			os.Exit(1)
		}
		fmt.Printf("%s\tfilter state deleted\n", bin)
	}
}

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset <bin>...",
	Short: "Delete persisted filter state for one or more bins",
	Long: `Deletes each bin's persisted admission filter. The next flush that sees
new keys allocates a fresh filter from the bin configuration. Every key
then needs one new sighting before its writes pass through again.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runReset(args)
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
