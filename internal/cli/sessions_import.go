package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/law-makers/weeklyad/internal/auth"
	"github.com/law-makers/weeklyad/internal/ui"
)

var (
	importFile   string
	importURL    string
	importFormat string
)

var sessionsImportCmd = &cobra.Command{
	Use:   "import <store>",
	Short: "Save cookies exported from a browser as a store session",
	Long: `Imports cookies exported from a desktop browser, for environments where
"weeklyad login" cannot open a window.

Accepted formats:
- storage-state: a browser automation storage state ({"cookies": [...]})
- json: a cookie-export extension array (expirationDate honored)
- netscape: a curl/wget cookies.txt`,
	Example: `  # From a storage-state file
  weeklyad sessions import tomthumb --file state.json

  # From stdin in cookies.txt format
  weeklyad sessions import kroger --format netscape < cookies.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runSessionsImport,
}

func init() {
	sessionsCmd.AddCommand(sessionsImportCmd)

	f := sessionsImportCmd.Flags()
	f.StringVar(&importFile, "file", "", "Cookie export file (default stdin)")
	f.StringVar(&importURL, "url", "", "Site URL recorded with the session (default: the store's weekly ad)")
	f.StringVar(&importFormat, "format", auth.FormatStorageState, "Input format: storage-state, json, netscape")
}

func runSessionsImport(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	ex, err := a.Registry.Lookup(args[0])
	if err != nil {
		return err
	}
	site := ex.Site()

	var in io.Reader = cmd.InOrStdin()
	if importFile != "" {
		f, err := os.Open(importFile)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", importFile, err)
		}
		defer f.Close()
		in = f
	}

	cookies, err := auth.ParseCookies(in, importFormat)
	if err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}
	if len(cookies) == 0 {
		return fmt.Errorf("no cookies imported")
	}

	url := importURL
	if url == "" {
		url = site.EntryURL
	}
	session := auth.NewSession(site.Store, url, cookies)
	if err := a.Vault.Save(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, ui.Success(fmt.Sprintf("\n✓ Session %q imported", session.Name)))
	ui.Field(out, "Cookies", len(cookies))
	if !session.ExpiresAt.IsZero() {
		ui.Field(out, "Expires", session.ExpiresAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(out)
	return nil
}
