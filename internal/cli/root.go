package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/law-makers/weeklyad/internal/app"
	"github.com/law-makers/weeklyad/internal/config"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "weeklyad",
	Short: "Crawl grocery weekly ads and serve them per store and week",
	Long: `weeklyad drives a browser through each store's weekly ad, keeps every
complete item (name, price, image) and appends it to a per-store, per-week
JSON document next to the downloaded images. A read API serves the stored
weeks, optionally from a sqlite mirror.`,
	Version:       app.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}
		app.SetupLogging(cfg)
		if !needsApp(cmd) || GetApp(cmd) != nil {
			return nil
		}

		a, err := app.New(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		SetApp(cmd, a)
		opened = a
		return nil
	},
}

// opened is the Application created for the running command, closed by
// Execute whether or not the command succeeded.
var opened *app.Application

// Execute runs the root command with ctx, which is cancelled on interrupt.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if opened != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = opened.Close(closeCtx)
		opened = nil
	}
	return err
}

func init() {
	config.RegisterFlags(rootCmd)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.Flags().BoolP("help", "h", false, "Help for weeklyad")
	rootCmd.Flags().Bool("version", false, "Version for weeklyad")

	rootCmd.SetHelpFunc(helpFunc)
	rootCmd.SetUsageFunc(usageFunc)
}
