package echotrace

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mymoliy/echotrace/pkg/version"
)

func init() {
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("echotrace %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
	},
}
