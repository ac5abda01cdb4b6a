package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/weeklyad/internal/store"
	"github.com/law-makers/weeklyad/internal/utils/output"
)

var (
	exportWeek   string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export <store>",
	Short: "Export a stored week as json, csv, html or markdown",
	Example: `  # Markdown table of this week's HEB ad on stdout
  weeklyad export heb --format md

  # CSV file for a past week
  weeklyad export kroger --week 2025-W10 --format csv -o kroger.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&exportWeek, "week", "", "Week key or date; defaults to the current week")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format: json, csv, html, markdown")
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "Output file (default stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)

	format, err := output.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	ex, err := a.Registry.Lookup(args[0])
	if err != nil {
		return err
	}
	storeName := ex.Site().Store

	week := exportWeek
	if week == "" {
		week = store.CurrentWeek()
	}
	key, err := store.WeekKey(week)
	if err != nil {
		return err
	}
	startDate, _ := store.StartDate(week)

	items, err := a.Store.ReadItems(storeName, key)
	if err != nil {
		return err
	}
	folder, err := a.Store.Folder(storeName, key, false)
	if err != nil {
		return err
	}

	e := &output.Export{
		Store:     storeName,
		Week:      key,
		StartDate: startDate,
		Items:     items,
		ImageBase: folder,
	}

	var w io.Writer = cmd.OutOrStdout()
	if exportOut != "" {
		// Images are referenced relative to the exported file.
		if rel, err := filepath.Rel(filepath.Dir(exportOut), folder); err == nil {
			e.ImageBase = filepath.ToSlash(rel)
		}
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOut, err)
		}
		defer f.Close()
		w = f
	}

	if err := output.Write(w, format, e); err != nil {
		return err
	}
	if exportOut != "" {
		log.Info().Str("file", exportOut).Str("format", string(format)).Int("items", len(items)).Msg("Export written")
	}
	return nil
}
