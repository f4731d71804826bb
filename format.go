package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/stagstation/stagsync/internal/service"
	savesync "github.com/stagstation/stagsync/internal/sync"
)

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	if !cc.Flags.Quiet {
		fmt.Fprintf(cc.Err, format, args...)
	}
}

// styles renders table headers and statuses. Every style is a no-op when
// stdout is not a terminal.
type styles struct {
	header lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	faint  lipgloss.Style
	code   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	if !isTerminal(w) {
		plain := lipgloss.NewStyle()
		return styles{header: plain, ok: plain, warn: plain, faint: plain, code: plain}
	}

	return styles{
		header: lipgloss.NewStyle().Bold(true),
		ok:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		warn:   lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		faint:  lipgloss.NewStyle().Faint(true),
		code:   lipgloss.NewStyle().Bold(true).Border(lipgloss.RoundedBorder()).Padding(0, 2),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// status colors a comparison status: green when nothing needs doing.
func (s styles) status(st savesync.Status) string {
	if st == savesync.StatusInSync {
		return s.ok.Render(string(st))
	}

	return s.warn.Render(string(st))
}

// Size unit constants for human-readable formatting.
const (
	sizeKB = 1024
	sizeMB = 1024 * 1024
	sizeGB = 1024 * 1024 * 1024
	sizeTB = 1024 * 1024 * 1024 * 1024
)

// formatSize returns a human-readable size string (e.g. "1.2 MB").
func formatSize(bytes int64) string {
	switch {
	case bytes >= sizeTB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/float64(sizeTB))
	case bytes >= sizeGB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(sizeGB))
	case bytes >= sizeMB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(sizeMB))
	case bytes >= sizeKB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(sizeKB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}

// formatTime returns a compact local timestamp for display. The zero time
// prints as "-".
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	t = t.Local()

	if t.Year() == time.Now().Year() {
		return t.Format("Jan _2 15:04:05")
	}

	return t.Format("Jan _2  2006")
}

// printTable writes aligned columns to w. headers and each row must have
// the same length. Widths are measured before styling so escape codes do
// not skew alignment.
func printTable(w io.Writer, st styles, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}

	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	printRow(w, headers, widths, st.header)

	for _, row := range rows {
		printRow(w, row, widths, lipgloss.NewStyle())
	}
}

func printRow(w io.Writer, cells []string, widths []int, style lipgloss.Style) {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		pad := widths[i] - lipgloss.Width(cell)
		parts[i] = style.Render(cell) + strings.Repeat(" ", pad)
	}

	fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
}

// printJSON writes v as indented JSON.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// finish turns a service result into the command's output. In JSON mode the
// whole envelope is printed, failures included; otherwise text renders the
// data and failures become errors for main to print.
func (cc *CLIContext) finish(res service.Result, text func() error) error {
	if cc.Flags.JSON {
		if err := printJSON(cc.Out, res); err != nil {
			return err
		}

		if !res.Success {
			return errReported
		}

		return nil
	}

	if !res.Success {
		return resultError(res)
	}

	if text == nil {
		return nil
	}

	return text()
}

// resultError adds a hint for failures the user can fix.
func resultError(res service.Result) error {
	switch res.Kind {
	case service.KindNotLoggedIn, service.KindUnauthorized:
		return fmt.Errorf("%s (run 'stagsync login' first)", res.Error)
	case service.KindNoCredentials:
		return fmt.Errorf("%s (download an OAuth desktop client secret and pass it with 'stagsync login --credentials')", res.Error)
	default:
		return fmt.Errorf("%s", res.Error)
	}
}
