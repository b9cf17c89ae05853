// extensions.go implements the "payd extensions" command group: listing
// the compiled-in extensions and inspecting their configuration schema.
package cmd

import (
	"fmt"

	"github.com/payd-dev/payd/extension"
	"github.com/payd-dev/payd/extension/all"
	"github.com/spf13/cobra"
)

var extensionsCmd = &cobra.Command{
	Use:   "extensions",
	Short: "List registered extensions",
	RunE: func(_ *cobra.Command, _ []string) error {
		reg := all.NewRegistry()
		listing := reg.List()

		if JSON() {
			return PrintJSON(listing)
		}
		for _, cat := range extension.Categories {
			fmt.Fprintf(Out(), "%s:\n", cat)
			for _, name := range listing[cat] {
				meta, _ := reg.Metadata(cat, name)
				fmt.Fprintf(Out(), "  %-20s %s\n", name, meta.Description)
			}
		}
		return nil
	},
}

var extensionsShowCmd = &cobra.Command{
	Use:   "show <category> <name>",
	Short: "Show an extension's metadata and configuration schema",
	Args:  cobra.ExactArgs(2),
	RunE: func(_ *cobra.Command, args []string) error {
		cat, err := extension.ParseCategory(args[0])
		if err != nil {
			return err
		}

		reg := all.NewRegistry()
		meta, ok := reg.Metadata(cat, args[1])
		if !ok {
			return fmt.Errorf("no %s extension named %q", cat, args[1])
		}
		fields, _ := reg.ConfigSchema(cat, args[1])

		if JSON() {
			return PrintJSON(map[string]any{"metadata": meta, "fields": fields})
		}

		fmt.Fprintf(Out(), "Name:        %s\n", meta.Name)
		fmt.Fprintf(Out(), "Category:    %s\n", meta.Category)
		fmt.Fprintf(Out(), "Version:     %s\n", meta.Version)
		fmt.Fprintf(Out(), "Author:      %s\n", meta.Author)
		fmt.Fprintf(Out(), "Description: %s\n", meta.Description)
		if len(fields) > 0 {
			fmt.Fprintln(Out(), "\nConfiguration:")
			for _, f := range fields {
				req := ""
				if f.Required {
					req = " (required)"
				}
				fmt.Fprintf(Out(), "  %-16s %-9s %s%s\n", f.Name, f.Type, f.Label, req)
			}
		}
		return nil
	},
}

func init() {
	extensionsCmd.AddCommand(extensionsShowCmd)
	rootCmd.AddCommand(extensionsCmd)
}
