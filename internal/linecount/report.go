package linecount

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/valerioTomassi/linefile/internal/logging"
)

// Summary holds aggregate statistics over a scan.
type Summary struct {
	Files        int   `json:"files"`
	Lines        int   `json:"lines"`
	Blank        int   `json:"blank"`
	Bytes        int64 `json:"bytes"`
	Unterminated int   `json:"unterminated"`
}

// ReportData feeds the JSON and Markdown reports.
type ReportData struct {
	Files   []FileStat `json:"files"`
	Summary Summary    `json:"summary"`
}

// Summarize totals stats.
func Summarize(stats []FileStat) Summary {
	s := Summary{Files: len(stats)}
	for _, st := range stats {
		s.Lines += st.Lines
		s.Blank += st.Blank
		s.Bytes += st.Bytes
		if st.Unterminated {
			s.Unterminated++
		}
	}
	return s
}

// buildReportData returns a path-sorted copy of stats with its summary.
func buildReportData(stats []FileStat) ReportData {
	cp := make([]FileStat, len(stats))
	copy(cp, stats)
	sort.Slice(cp, func(i, j int) bool { return cp[i].File < cp[j].File })
	return ReportData{Files: cp, Summary: Summarize(cp)}
}

// GenerateJSONReport writes a JSON report to output on the OS filesystem.
func GenerateJSONReport(ctx context.Context, stats []FileStat, output string) error {
	return GenerateJSONReportWithFS(ctx, stats, output, osfs.Default)
}

// GenerateJSONReportWithFS writes the JSON report through fsys.
func GenerateJSONReportWithFS(ctx context.Context, stats []FileStat, output string, fsys billy.Basic) error {
	f, err := fsys.Create(output)
	if err != nil {
		return fmt.Errorf("create %q: %w", output, err)
	}
	defer SafeClose(logging.FromContext(ctx), f, output)

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(buildReportData(stats))
}

// GenerateMarkdownReport writes a Markdown report to output on the OS
// filesystem.
func GenerateMarkdownReport(ctx context.Context, stats []FileStat, output string) error {
	return GenerateMarkdownReportWithFS(ctx, stats, output, osfs.Default)
}

// GenerateMarkdownReportWithFS writes the Markdown report through fsys.
func GenerateMarkdownReportWithFS(ctx context.Context, stats []FileStat, output string, fsys billy.Basic) error {
	data := buildReportData(stats)
	f, err := fsys.Create(output)
	if err != nil {
		return fmt.Errorf("create %q: %w", output, err)
	}
	defer SafeClose(logging.FromContext(ctx), f, output)

	var b strings.Builder
	b.WriteString("# linefile report\n\n")
	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Files: %d\n", data.Summary.Files)
	fmt.Fprintf(&b, "- Lines: %d\n", data.Summary.Lines)
	fmt.Fprintf(&b, "- Blank: %d\n", data.Summary.Blank)
	fmt.Fprintf(&b, "- Bytes: %d\n", data.Summary.Bytes)
	fmt.Fprintf(&b, "- Missing final newline: %d\n", data.Summary.Unterminated)
	b.WriteString("\n## Files\n\n")
	b.WriteString("| File | Lines | Blank | Bytes | Final newline |\n")
	b.WriteString("|------|------:|------:|------:|:-------------:|\n")
	for _, st := range data.Files {
		nl := "yes"
		if st.Unterminated {
			nl = "no"
		}
		fmt.Fprintf(&b, "| %s | %d | %d | %d | %s |\n", mdCell(st.File), st.Lines, st.Blank, st.Bytes, nl)
	}

	_, err = io.WriteString(f, b.String())
	return err
}

var mdCellEscaper = strings.NewReplacer(`|`, `\|`)

// mdCell keeps a pipe in a file name from splitting the table row.
func mdCell(s string) string {
	return mdCellEscaper.Replace(s)
}
