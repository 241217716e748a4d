package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rash-sh/rash-go/internal/module"
	"github.com/rash-sh/rash-go/internal/modules"
)

var docCmd = &cobra.Command{
	Use:   "doc",
	Short: "Inspect rash-go's own registered modules",
}

var docModulesJSON bool

var docModulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List every registered module and its parameter schema",
	Long: `List all modules reachable through the module.Registry.

Modules that implement the optional SchemaModule interface also print
their JSON parameter schema; modules that don't show no schema.`,
	RunE: runDocModules,
}

func init() {
	docModulesCmd.Flags().BoolVar(&docModulesJSON, "json", false, "output as JSON")
	docCmd.AddCommand(docModulesCmd)
	rootCmd.AddCommand(docCmd)
}

type docModuleEntry struct {
	Name   string `json:"name"`
	Schema any    `json:"schema,omitempty"`
}

func runDocModules(cmd *cobra.Command, args []string) error {
	reg := modules.NewDefaultRegistry()

	names := make([]string, 0, len(reg.Names()))
	for name := range reg.Names() {
		names = append(names, name)
	}
	sort.Strings(names)

	entries := make([]docModuleEntry, 0, len(names))
	for _, name := range names {
		entry := docModuleEntry{Name: name}
		if mod, err := reg.Lookup(name); err == nil {
			if schemaMod, ok := mod.(module.SchemaModule); ok {
				entry.Schema = schemaMod.JSONSchema()
			}
		}
		entries = append(entries, entry)
	}

	if docModulesJSON {
		return outputDocModulesJSON(cmd, entries)
	}
	return outputDocModulesText(cmd, entries)
}

func outputDocModulesJSON(cmd *cobra.Command, entries []docModuleEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func outputDocModulesText(cmd *cobra.Command, entries []docModuleEntry) error {
	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODULE\tSCHEMA")
	for _, e := range entries {
		schema := "-"
		if e.Schema != nil {
			schema = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\n", e.Name, schema)
	}
	return w.Flush()
}
