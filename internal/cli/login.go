package cli

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/law-makers/weeklyad/internal/auth"
	"github.com/law-makers/weeklyad/internal/browser"
	"github.com/law-makers/weeklyad/internal/ui"
)

var (
	loginURL     string
	waitSelector string
	loginTimeout time.Duration
)

var loginCmd = &cobra.Command{
	Use:   "login <store>",
	Short: "Clear a store's bot checks in a visible browser and save the session",
	Long: `Opens a visible browser on the store's weekly ad. Get past any login,
location prompt or verification page by hand, then press Enter (or let --wait
detect the page). The cookies are saved as the store's session and installed
on every later crawl of that store.

In headless environments export cookies from a desktop browser instead and
use "weeklyad sessions import".`,
	Example: `  # Save a session for Tom Thumb
  weeklyad login tomthumb

  # Finish automatically once the flyer is visible
  weeklyad login kroger --wait "a.ViewAd"`,
	Args: cobra.ExactArgs(1),
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVar(&loginURL, "url", "", "Page to open (default: the store's weekly ad)")
	loginCmd.Flags().StringVarP(&waitSelector, "wait", "w", "", "CSS selector that signals the login is done")
	loginCmd.Flags().DurationVar(&loginTimeout, "login-timeout", 5*time.Minute, "Timeout for the whole login")
}

func runLogin(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	ex, err := a.Registry.Lookup(args[0])
	if err != nil {
		return err
	}
	site := ex.Site()
	url := loginURL
	if url == "" {
		url = site.EntryURL
	}

	out := cmd.OutOrStdout()
	ui.Heading(out, "🔐 Interactive Login")
	ui.Field(out, "Store", site.Store)
	ui.Field(out, "URL", url)
	if waitSelector != "" {
		ui.Field(out, "Waiting", waitSelector)
	}
	ui.Field(out, "Timeout", loginTimeout)

	session, err := auth.InteractiveLogin(cmd.Context(), auth.LoginOptions{
		Store:        site.Store,
		URL:          url,
		WaitSelector: waitSelector,
		Timeout:      loginTimeout,
		Browser: browser.Options{
			ChromePath:    a.Config.ChromePath,
			LibDir:        a.Config.LibDir,
			RemoteURL:     a.Config.BrowserURL,
			UserAgent:     a.Config.UserAgent,
			Proxy:         a.Proxies.Next(),
			ActionTimeout: a.Config.PageTimeout,
		},
		In:  cmd.InOrStdin(),
		Out: out,
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	log.Info().Str("store", site.Store).Int("cookies", len(session.Cookies)).Msg("Saving session")
	if err := a.Vault.Save(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Fprintln(out, ui.Success("\n✓ Session saved"))
	if !session.ExpiresAt.IsZero() {
		ui.Field(out, "Expires", session.ExpiresAt.Format(time.RFC1123))
	}
	fmt.Fprintf(out, "\n%s %s\n\n", ui.Dim("Used automatically by"), ui.Accent("weeklyad crawl "+site.Store))
	return nil
}
