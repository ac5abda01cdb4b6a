package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/law-makers/weeklyad/internal/auth"
	"github.com/law-makers/weeklyad/internal/ui"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage saved store sessions",
	Long: `List, view, import and delete the cookie sessions saved per store.

Sessions live in the OS keyring, or under ~/.weeklyad/sessions when no
keyring is available.`,
	Example: `  weeklyad sessions list
  weeklyad sessions view kroger
  weeklyad sessions delete kroger --yes`,
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved sessions",
	Args:  cobra.NoArgs,
	RunE:  runSessionsList,
}

var sessionsViewCmd = &cobra.Command{
	Use:   "view <store>",
	Short: "Show one saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsView,
}

var deleteYes bool

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <store>",
	Short: "Delete a saved session",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessionsDelete,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsViewCmd, sessionsDeleteCmd)
	sessionsDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Delete without asking")
}

func runSessionsList(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	out := cmd.OutOrStdout()

	names, err := a.Vault.List()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}
	if len(names) == 0 {
		fmt.Fprintln(out, "\nNo saved sessions. Create one with:")
		fmt.Fprintf(out, "  %s\n\n", ui.Accent("weeklyad login <store>"))
		return nil
	}

	ui.Heading(out, fmt.Sprintf("📋 Saved Sessions (%d)", len(names)))
	for _, name := range names {
		fmt.Fprintln(out, ui.Bold(name))
		s, err := a.Vault.Load(name)
		if s == nil {
			fmt.Fprintf(out, "  %s\n\n", ui.Warn(err.Error()))
			continue
		}
		ui.Field(out, "Cookies", len(s.Cookies))
		ui.Field(out, "Status", sessionStatus(s, err))
		fmt.Fprintln(out)
	}
	return nil
}

func runSessionsView(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	out := cmd.OutOrStdout()

	s, err := a.Vault.Load(args[0])
	if s == nil {
		return fmt.Errorf("failed to load session %q: %w", args[0], err)
	}

	ui.Heading(out, "🔍 Session "+s.Name)
	ui.Field(out, "URL", s.URL)
	ui.Field(out, "Created", s.CreatedAt.Format(time.RFC1123))
	ui.Field(out, "Status", sessionStatus(s, err))

	fmt.Fprintf(out, "\nCookies (%d):\n", len(s.Cookies))
	for i, c := range s.Cookies {
		if i == 10 {
			fmt.Fprintf(out, "  ... and %d more\n", len(s.Cookies)-10)
			break
		}
		fmt.Fprintf(out, "  • %s %s\n", c.Name, ui.Dim(c.Domain+c.Path))
	}
	fmt.Fprintln(out)
	return nil
}

func sessionStatus(s *auth.Session, loadErr error) string {
	switch {
	case errors.Is(loadErr, auth.ErrSessionExpired):
		return ui.Warn(fmt.Sprintf("expired %s ago", time.Since(s.ExpiresAt).Round(time.Hour)))
	case s.ExpiresAt.IsZero():
		return ui.Success("valid (session cookies)")
	default:
		return ui.Success(fmt.Sprintf("valid until %s", s.ExpiresAt.Format(time.RFC1123)))
	}
}

func runSessionsDelete(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	out := cmd.OutOrStdout()
	name := args[0]

	if !deleteYes && !confirm(cmd.InOrStdin(), out, fmt.Sprintf("Delete session %q?", name)) {
		fmt.Fprintln(out, "Cancelled.")
		return nil
	}
	if err := a.Vault.Delete(name); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Fprintln(out, ui.Success(fmt.Sprintf("✓ Session %q deleted", name)))
	return nil
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
