package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vongform/vongform/internal/update"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the vongform version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "vongform version %s (%s)\n", version, update.Platform())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
