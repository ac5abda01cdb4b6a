package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/law-makers/weeklyad/internal/store"
	"github.com/law-makers/weeklyad/internal/ui"
)

var mirrorWeek string

var mirrorCmd = &cobra.Command{
	Use:   "mirror <store>",
	Short: "Copy a stored week into the sqlite mirror",
	Long: `Reads the store/week document and inserts every item, with its image bytes,
into the crawler_results table served by /weekly-ad.

A date given to --week is stored as the ad's starting date as is; a week key
maps to its Monday.`,
	Example: `  weeklyad mirror heb --week 2025-03-05`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := GetApp(cmd)
		week := mirrorWeek
		if week == "" {
			week = store.CurrentWeek()
		}
		n, err := a.MirrorWeek(cmd.Context(), args[0], week)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("✓ Mirrored %d items into %s", n, a.Mirror.Path())))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mirrorCmd)
	mirrorCmd.Flags().StringVar(&mirrorWeek, "week", "", "Week key or ad starting date; defaults to the current week")
}
