package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/law-makers/weeklyad/internal/store"
)

var weekCmd = &cobra.Command{
	Use:   "week [date|week]",
	Short: "Print the ISO week key and starting date",
	Long: `Prints the week folder key (YYYY-Www) and the Monday it starts on, for today
or for the given date or week key.`,
	Example: `  weeklyad week
  weeklyad week 2025-03-05
  weeklyad week 2025-W10`,
	Args:        cobra.MaximumNArgs(1),
	Annotations: map[string]string{skipApp: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		in := store.CurrentWeek()
		if len(args) == 1 {
			in = args[0]
		}
		w, err := store.ParseWeek(in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", w.Key(), w.StartDate())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(weekCmd)
}
