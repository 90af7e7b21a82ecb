package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

type catalogSummary struct {
	Features  []catalogFeature  `json:"features"`
	Aliases   map[string]string `json:"aliases"`
	Abilities int               `json:"abilities"`
}

type catalogFeature struct {
	Slug      string   `json:"slug"`
	Label     string   `json:"label"`
	Abilities []string `json:"abilities"`
}

func newCatalogCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the feature catalogue",
	}
	var (
		file       string
		jsonOutput bool
	)
	validate := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the catalogue, then print a summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := file
			if path == "" {
				path = opts.CatalogPath
			}
			cat, err := opts.LoadCatalog(path)
			if err != nil {
				return err
			}
			summary := catalogSummary{Aliases: cat.Aliases()}
			for _, def := range cat.Features() {
				summary.Features = append(summary.Features, catalogFeature{Slug: def.Slug, Label: def.Label, Abilities: def.Abilities})
				summary.Abilities += len(def.Abilities)
			}
			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "FEATURE\tLABEL\tABILITIES")
			for _, f := range summary.Features {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%d\n", f.Slug, f.Label, len(f.Abilities))
			}
			if err := w.Flush(); err != nil {
				return err
			}
			aliases := make([]string, 0, len(summary.Aliases))
			for from := range summary.Aliases {
				aliases = append(aliases, from)
			}
			sort.Strings(aliases)
			for _, from := range aliases {
				cmd.Printf("alias %s -> %s\n", from, summary.Aliases[from])
			}
			cmd.Printf("catalog ok: %d features, %d abilities, %d aliases\n", len(summary.Features), summary.Abilities, len(summary.Aliases))
			return nil
		},
	}
	validate.Flags().StringVarP(&file, "file", "f", "", "catalogue YAML file (defaults to CATALOG_PATH or the embedded catalogue)")
	validate.Flags().BoolVar(&jsonOutput, "json", false, "print the catalogue as JSON")
	cmd.AddCommand(validate)
	return cmd
}
