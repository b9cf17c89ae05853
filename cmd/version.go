// version.go implements the "payd version" command.
package cmd

import (
	"fmt"

	"github.com/payd-dev/payd/internal/version"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(_ *cobra.Command, _ []string) error {
		info := version.Get()
		if JSON() {
			return PrintJSON(info)
		}
		fmt.Fprint(Out(), info.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
