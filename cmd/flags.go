// flags.go defines global CLI flags and accessors for shared state.
//
// Separated from root.go to isolate flag definitions from command logic.
// The out writer is a variable so tests can capture command output.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/payd-dev/payd/internal/config"
)

var (
	configPath string
	output     string
)

// out is the output writer for commands. Defaults to os.Stdout.
// Tests can replace this to capture output.
var out io.Writer = os.Stdout

// Out returns the output writer.
func Out() io.Writer { return out }

// SetOut sets the output writer (for testing).
func SetOut(w io.Writer) { out = w }

// JSON returns true if JSON output is requested.
func JSON() bool { return output == "json" }

// PrintJSON marshals v to JSON and writes it to the output writer.
// Returns nil if output format is not JSON.
func PrintJSON(v any) error {
	if !JSON() {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(out, string(b))
	return nil
}

// auditPath derives the audit trail location from the main database
// path: payd.db gets payd-audit.db alongside it.
func auditPath(c *config.Config) string {
	db := c.DatabasePath()
	ext := filepath.Ext(db)
	return strings.TrimSuffix(db, ext) + "-audit" + ext
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "payd.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringVarP(&output, "output", "o", "", "Output format: json")
}
