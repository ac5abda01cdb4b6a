package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/law-makers/weeklyad/internal/extract"
	"github.com/law-makers/weeklyad/internal/ui"
)

var storesCmd = &cobra.Command{
	Use:         "stores",
	Short:       "List the stores weeklyad can crawl",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipApp: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		w := cmd.OutOrStdout()
		ui.Heading(w, "Registered stores")
		for _, name := range extract.Stores() {
			ex, err := extract.Lookup(name)
			if err != nil {
				return err
			}
			site := ex.Site()
			fmt.Fprintf(w, "%s\n", ui.Bold(site.Store))
			ui.Field(w, "Flow", site.Flow)
			ui.Field(w, "Entry", site.EntryURL)
			fmt.Fprintln(w)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(storesCmd)
}
