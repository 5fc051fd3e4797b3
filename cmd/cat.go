package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/valerioTomassi/linefile/internal/files"
	"github.com/valerioTomassi/linefile/internal/logging"
)

func init() {
	rootCmd.AddCommand(catCmd)
	catCmd.Flags().BoolP("number", "n", false, "Prefix every line with its line number")
	catCmd.Flags().Int("skip", 0, "Skip this many lines before printing")
}

var catCmd = &cobra.Command{
	Use:   "cat <path>",
	Short: "Print the raw lines of a file",
	Long:  `Prints a file line by line exactly as stored, line terminators included.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer resetFlags(cmd, "number", "skip")
		number, _ := cmd.Flags().GetBool("number")
		skip, _ := cmd.Flags().GetInt("skip")
		w := cmd.OutOrStdout()

		return files.Use(args[0], func(f *files.LineFile) error {
			n := 0
			if skip > 0 {
				for _, err := range f.Lines() {
					if err != nil {
						return err
					}
					n++
					if n == skip {
						break
					}
				}
			}
			// picks up right after the skipped lines
			for line, err := range f.Lines() {
				if err != nil {
					return err
				}
				n++
				if number {
					fmt.Fprint(w, lineNumber(n))
				}
				fmt.Fprint(w, line)
			}
			return nil
		}, files.WithLogger(logging.FromContext(cmd.Context())))
	},
}

func lineNumber(n int) string {
	return color.New(color.FgCyan).Sprintf("%6d  ", n)
}
