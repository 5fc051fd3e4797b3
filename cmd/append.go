package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valerioTomassi/linefile/internal/files"
	"github.com/valerioTomassi/linefile/internal/logging"
)

func init() {
	rootCmd.AddCommand(appendCmd)
	appendCmd.Flags().Bool("truncate", false, "Empty the file before writing instead of appending")
}

var appendCmd = &cobra.Command{
	Use:   "append <path> <line>...",
	Short: "Append lines to a file, creating it if needed",
	Long: `Writes each argument as one line. A newline terminator is added to lines
that don't already end with one.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer resetFlags(cmd, "truncate")
		truncate, _ := cmd.Flags().GetBool("truncate")

		mode := files.ModeAppend
		if truncate {
			mode = files.ModeWrite
		}
		logger := logging.FromContext(cmd.Context())
		path, lines := args[0], args[1:]

		err := files.Use(path, func(f *files.LineFile) error {
			for _, line := range lines {
				if !strings.HasSuffix(line, "\n") {
					line += "\n"
				}
				if _, err := f.WriteString(line); err != nil {
					return err
				}
			}
			return nil
		}, files.WithMode(mode), files.WithLogger(logger))
		if err != nil {
			return err
		}
		logger.Info("lines written", "path", path, "count", len(lines), "mode", mode.String())
		fmt.Fprintf(cmd.OutOrStdout(), "%d line(s) written to %s\n", len(lines), path)
		return nil
	},
}
