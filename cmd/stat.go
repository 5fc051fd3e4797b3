package cmd

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/valerioTomassi/linefile/internal/linecount"
)

func init() {
	rootCmd.AddCommand(statCmd)
	statCmd.Flags().StringP("path", "p", ".", "Directory path to scan")
	statCmd.Flags().String("report", "table", "Output format: one of table, json, md")
	statCmd.Flags().String("out", "", "Output filename when --report is json|md; defaults: report.json/report.md. Use with --out-dir to control directory")
	statCmd.Flags().String("ignore", "", "Comma-separated list of directory names to skip")
	statCmd.Flags().String("out-dir", "", "Directory where report is written when using --report json/md; if file path is relative it will be placed inside this directory")
}

var statCmd = &cobra.Command{
	Use:   "stat",
	Short: "Report line counts for every file in a directory",
	Long: `Recursively reads every file under a folder, line by line, and reports
line, blank line and byte counts plus whether each file ends with a newline.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		defer resetFlags(cmd, "path", "report", "out", "ignore", "out-dir")

		p, _ := cmd.Flags().GetString("path")
		i, _ := cmd.Flags().GetString("ignore")
		r, _ := cmd.Flags().GetString("report")
		outName, _ := cmd.Flags().GetString("out")
		od, _ := cmd.Flags().GetString("out-dir")
		w := cmd.OutOrStdout()

		r = strings.ToLower(strings.TrimSpace(r))
		switch r {
		case "", "table":
			r = "table"
		case "json", "md":
		default:
			return errors.New("invalid --report value; must be one of: table, json, md")
		}

		stats, err := linecount.ScanDir(cmd.Context(), p, buildIgnoreList(i))
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Fprintln(w, "No files found.")
			return nil
		}

		if r == "table" {
			renderTable(w, stats)
			printSummary(w, linecount.Summarize(stats))
			return nil
		}

		if strings.TrimSpace(outName) == "" {
			outName = "report." + r
		}
		// report writers create missing parent directories
		outPath := resolveOutputPath(outName, od)

		switch r {
		case "json":
			if err := linecount.GenerateJSONReport(cmd.Context(), stats, outPath); err != nil {
				return err
			}
			fmt.Fprintf(w, "JSON report written to %s\n", outPath)
		case "md":
			if err := linecount.GenerateMarkdownReport(cmd.Context(), stats, outPath); err != nil {
				return err
			}
			fmt.Fprintf(w, "Markdown report written to %s\n", outPath)
		}
		return nil
	},
}

// buildIgnoreList parses a comma-separated ignore string into a slice, trimming spaces.
func buildIgnoreList(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// renderTable writes one row per file.
func renderTable(w io.Writer, stats []linecount.FileStat) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Lines", "Blank", "Bytes", "Final newline"})
	for _, st := range stats {
		nl := color.New(color.FgGreen).Sprint("yes")
		if st.Unterminated {
			nl = color.New(color.FgRed).Sprint("no")
		}
		table.Append([]string{
			st.File,
			fmt.Sprintf("%d", st.Lines),
			fmt.Sprintf("%d", st.Blank),
			fmt.Sprintf("%d", st.Bytes),
			nl,
		})
	}
	table.Render()
}

// resolveOutputPath determines the final output path based on the provided
// filename and optional outDir. If filename is absolute, outDir is ignored.
func resolveOutputPath(filename, outDir string) string {
	if filename == "" {
		return filename
	}
	if filepath.IsAbs(filename) || outDir == "" {
		return filename
	}
	return filepath.Join(outDir, filename)
}

func printSummary(w io.Writer, s linecount.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, color.New(color.FgGreen, color.Bold).Sprint("Summary:"))
	fmt.Fprintf(w, "  Files: %d\n", s.Files)
	fmt.Fprintf(w, "  Lines: %d\n", s.Lines)
	fmt.Fprintf(w, "  Blank: %d\n", s.Blank)
	fmt.Fprintf(w, "  Bytes: %d\n", s.Bytes)
	if s.Unterminated > 0 {
		fmt.Fprintln(w, color.New(color.FgYellow).Sprintf("  Missing final newline: %d", s.Unterminated))
	}
}
