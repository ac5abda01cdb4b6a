package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/law-makers/weeklyad/internal/app"
	"github.com/law-makers/weeklyad/internal/config"
	"github.com/law-makers/weeklyad/internal/pipeline"
	"github.com/law-makers/weeklyad/internal/ui"
)

var (
	crawlAll      bool
	crawlWeek     string
	crawlFromHTML string
	crawlMirror   bool
	crawlNoBar    bool
)

var crawlCmd = &cobra.Command{
	Use:   "crawl [store...]",
	Short: "Crawl the weekly ad of one or more stores",
	Long: `Opens each store's weekly ad in a browser, walks its pages or panels, and
appends every complete item to data/<store>/<week>/weekly_ad.json with
its image next to it.

Stores run one after another; a failing store does not stop the rest.`,
	Example: `  # Crawl HEB for the current week
  weeklyad crawl heb

  # Crawl every registered store and mirror the results into sqlite
  weeklyad crawl --all --mirror

  # Replay a saved page instead of launching a browser
  weeklyad crawl kroger --from-html kroger.html --week 2025-W10`,
	RunE: runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	f := crawlCmd.Flags()
	f.BoolVar(&crawlAll, "all", false, "Crawl every registered store")
	f.StringVar(&crawlWeek, "week", "", "Week key (2025-W10) or date; defaults to the current week")
	f.StringVar(&crawlFromHTML, "from-html", "", "Replay a saved HTML page instead of launching a browser")
	f.BoolVar(&crawlMirror, "mirror", false, "Also insert kept items into the sqlite mirror")
	f.BoolVar(&crawlNoBar, "no-progress", false, "Disable progress bars")
	f.Int("concurrency", config.DefaultConcurrency, "Parallel image downloads")
	f.StringArrayP("header", "H", nil, `Extra image request header "Key: Value" (repeatable)`)
}

func runCrawl(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	stores := args
	if crawlAll {
		stores = a.Registry.Stores()
	}
	if len(stores) == 0 {
		return fmt.Errorf("name at least one store or pass --all (known: %s)", strings.Join(a.Registry.Stores(), ", "))
	}

	out := cmd.OutOrStdout()
	showBar := !crawlNoBar && !a.Config.JSONLog

	var reports []*pipeline.Report
	failed := map[string]error{}
	for _, name := range stores {
		if err := cmd.Context().Err(); err != nil {
			return err
		}

		opts := app.CrawlOptions{
			Week:     crawlWeek,
			FromHTML: crawlFromHTML,
			Mirror:   crawlMirror,
		}
		var bar *crawlBar
		if showBar {
			bar = newCrawlBar(cmd.ErrOrStderr(), name)
			opts.Progress = bar.update
		}

		rep, err := a.Crawl(cmd.Context(), name, opts)
		if bar != nil {
			bar.finish()
		}
		if err != nil {
			log.Error().Err(err).Str("store", name).Str("code", string(pipeline.CodeOf(err))).Msg("Crawl failed")
			failed[name] = err
			continue
		}
		reports = append(reports, rep)
	}

	printReports(out, reports, failed)

	if len(failed) > 0 {
		errs := make([]error, 0, len(failed))
		for _, err := range failed {
			errs = append(errs, err)
		}
		return fmt.Errorf("%d of %d stores failed: %w", len(failed), len(stores), errors.Join(errs...))
	}
	return nil
}

func printReports(w io.Writer, reports []*pipeline.Report, failed map[string]error) {
	ui.Heading(w, "Weekly ad crawl")
	for _, rep := range reports {
		fmt.Fprintf(w, "%s %s %s\n", ui.Success("✓"), ui.Bold(rep.Store), ui.Dim(rep.Week))
		ui.Field(w, "Cards", rep.Cards)
		ui.Field(w, "Kept", rep.Kept)
		if len(rep.Skipped) > 0 {
			ui.Field(w, "Skipped", formatSkips(rep))
		}
		if rep.Document != "" {
			ui.Field(w, "Document", rep.Document)
		}
		if rep.Mirrored > 0 {
			ui.Field(w, "Mirrored", rep.Mirrored)
		}
		ui.Field(w, "Took", rep.Duration.Round(time.Millisecond))
		fmt.Fprintln(w)
	}

	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "%s %s %s\n\n", ui.Error("✗"), ui.Bold(name), failed[name])
	}
}

func formatSkips(rep *pipeline.Report) string {
	parts := make([]string, 0, len(rep.Skipped))
	for reason, n := range rep.Skipped {
		parts = append(parts, fmt.Sprintf("%s=%d", reason, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

// crawlBar shows a spinner while cards are counted and a bar while images
// download.
type crawlBar struct {
	bar   *progressbar.ProgressBar
	store string
	stage pipeline.Stage
}

func newCrawlBar(w io.Writer, store string) *crawlBar {
	if w == nil {
		w = os.Stderr
	}
	return &crawlBar{
		store: store,
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(store+": cards"),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionThrottle(100*time.Millisecond),
		),
	}
}

func (b *crawlBar) update(p pipeline.Progress) {
	if p.Stage != b.stage {
		b.stage = p.Stage
		b.bar.Describe(fmt.Sprintf("%s: %s", b.store, p.Stage))
		if p.Total >= 0 {
			b.bar.ChangeMax(p.Total)
		}
	}
	_ = b.bar.Set(p.Done)
}

func (b *crawlBar) finish() {
	_ = b.bar.Finish()
	_ = b.bar.Clear()
}
