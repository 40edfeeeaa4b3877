package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cachegate",
	Short: "Operate on persisted cache admission filters",
	Long: `cachegate keeps one-hit wonders out of expensive cache backends by
requiring a key to be seen twice before its writes pass through.

The admission filters live in a shared store (usually redis) and are
normally maintained by the library embedded in the serving application.
These commands inspect and reset that persisted state out of band.
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
