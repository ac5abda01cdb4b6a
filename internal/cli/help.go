package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/law-makers/weeklyad/internal/ui"
)

// helpFunc renders colorized help to stdout.
func helpFunc(cmd *cobra.Command, args []string) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "\n%s\n", ui.Bold(ui.Accent(strings.ToUpper(cmd.Name()))))
	if cmd.Short != "" {
		fmt.Fprintln(w, cmd.Short)
	}
	if cmd.Long != "" && cmd.Long != cmd.Short {
		fmt.Fprintf(w, "\n%s\n", wrapText(cmd.Long, 80))
	}

	writeUsage(w, cmd)

	if cmd.HasExample() {
		section(w, "Examples")
		prevCommand := false
		for _, line := range strings.Split(cmd.Example, "\n") {
			line = strings.TrimSpace(line)
			switch {
			case line == "":
			case strings.HasPrefix(line, "#"):
				if prevCommand {
					fmt.Fprintln(w)
				}
				fmt.Fprintf(w, "  %s\n", ui.Dim(line))
				prevCommand = false
			default:
				fmt.Fprintf(w, "  %s\n", ui.Success("$ "+strings.TrimPrefix(line, "$ ")))
				prevCommand = true
			}
		}
	}

	writeCommands(w, cmd)

	if cmd.HasAvailableLocalFlags() {
		section(w, "Flags")
		writeFlags(w, cmd.LocalFlags().FlagUsages())
	}
	if cmd.HasAvailableInheritedFlags() {
		section(w, "Global Flags")
		writeFlags(w, cmd.InheritedFlags().FlagUsages())
	}

	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "\n%s\n", ui.Dim(fmt.Sprintf("Use \"%s <command> --help\" for more information about a command.", cmd.CommandPath())))
	}
	fmt.Fprintln(w)
}

// usageFunc renders the short usage shown after argument errors.
func usageFunc(cmd *cobra.Command) error {
	w := cmd.ErrOrStderr()
	writeUsage(w, cmd)
	writeCommands(w, cmd)
	if cmd.HasAvailableLocalFlags() {
		section(w, "Flags")
		writeFlags(w, cmd.LocalFlags().FlagUsages())
	}
	fmt.Fprintf(w, "\n%s\n", ui.Dim(fmt.Sprintf("Use \"%s --help\" for more information.", cmd.CommandPath())))
	return nil
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n", ui.Bold(title))
}

func writeUsage(w io.Writer, cmd *cobra.Command) {
	section(w, "Usage")
	if cmd.Runnable() {
		fmt.Fprintf(w, "  %s\n", ui.Accent(cmd.UseLine()))
	}
	if cmd.HasAvailableSubCommands() {
		fmt.Fprintf(w, "  %s %s %s\n", ui.Accent(cmd.CommandPath()), ui.Warn("<command>"), ui.Dim("[flags]"))
	}
}

func writeCommands(w io.Writer, cmd *cobra.Command) {
	if !cmd.HasAvailableSubCommands() {
		return
	}
	section(w, "Commands")

	var cmds []*cobra.Command
	width := 0
	for _, c := range cmd.Commands() {
		if c.IsAvailableCommand() && c.Name() != "help" {
			cmds = append(cmds, c)
			width = max(width, len(c.Name()))
		}
	}
	for _, c := range cmds {
		fmt.Fprintf(w, "  %s%s%s\n", ui.Accent(c.Name()), strings.Repeat(" ", width-len(c.Name())+2), ui.Dim(c.Short))
	}
}

// writeFlags re-aligns pflag's usage block with colored flag names.
func writeFlags(w io.Writer, usages string) {
	lines := strings.Split(usages, "\n")

	width := 28
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		if strings.HasPrefix(trimmed, "-") {
			name, _, _ := strings.Cut(trimmed, "  ")
			width = max(width, len(strings.TrimSpace(name)))
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		switch {
		case trimmed == "":
		case strings.HasPrefix(trimmed, "-"):
			name, desc, ok := strings.Cut(trimmed, "  ")
			name = strings.TrimSpace(name)
			if !ok {
				fmt.Fprintf(w, "  %s\n", ui.Success(name))
				continue
			}
			fmt.Fprintf(w, "  %s%s%s\n", ui.Success(name), strings.Repeat(" ", width-len(name)+2), ui.Dim(strings.TrimSpace(desc)))
		default:
			fmt.Fprintf(w, "%s%s\n", strings.Repeat(" ", width+4), ui.Dim(trimmed))
		}
	}
}

// wrapText wraps text at width, keeping paragraphs and list items on their
// own lines.
func wrapText(text string, width int) string {
	var paragraphs []string
	for _, para := range strings.Split(text, "\n\n") {
		var lines []string
		for _, line := range strings.Split(para, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
				lines = append(lines, line)
				continue
			}

			var cur strings.Builder
			for _, word := range strings.Fields(line) {
				switch {
				case cur.Len() == 0:
				case cur.Len()+1+len(word) <= width:
					cur.WriteByte(' ')
				default:
					lines = append(lines, cur.String())
					cur.Reset()
				}
				cur.WriteString(word)
			}
			if cur.Len() > 0 {
				lines = append(lines, cur.String())
			}
		}
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
