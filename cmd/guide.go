// guide.go implements the "payd guide" command for documentation access.
//
// Guides are embedded in the binary via the guide package, so the
// documentation is always available without external files. Terminal
// output gets glamour markdown rendering for readability; pipe or
// redirect gets raw markdown for machine consumption.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/payd-dev/payd/guide"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var guideCmd = &cobra.Command{
	Use:   "guide [topic]",
	Short: "Show the payd usage guide",
	Long: `Outputs the payd guide.

  payd guide              # main guide
  payd guide config       # configuration reference
  payd guide extensions   # writing and configuring extensions`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		name := ""
		if len(args) > 0 {
			name = args[0]
		}

		content, err := guide.Get(name)
		if err != nil {
			available, listErr := guide.List()
			if listErr != nil {
				return listErr
			}
			return fmt.Errorf("guide %q not found. Available: %s", name, strings.Join(available, ", "))
		}

		if term.IsTerminal(int(os.Stdout.Fd())) {
			rendered, err := glamour.Render(content, "dark")
			if err == nil {
				fmt.Fprint(Out(), rendered)
				return nil
			}
		}

		fmt.Fprint(Out(), content)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(guideCmd)
}
