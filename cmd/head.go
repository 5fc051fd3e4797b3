package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/valerioTomassi/linefile/internal/files"
	"github.com/valerioTomassi/linefile/internal/logging"
)

func init() {
	rootCmd.AddCommand(headCmd)
	headCmd.Flags().IntP("lines", "n", 10, "Number of lines to print")
}

var headCmd = &cobra.Command{
	Use:   "head <path>",
	Short: "Print the first lines of a file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		defer resetFlags(cmd, "lines")
		limit, _ := cmd.Flags().GetInt("lines")
		if limit < 0 {
			return errors.New("invalid --lines value; must not be negative")
		}
		w := cmd.OutOrStdout()

		return files.Use(args[0], func(f *files.LineFile) error {
			for i := 0; i < limit; i++ {
				line, err := f.ReadLine()
				if errors.Is(err, io.EOF) {
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprint(w, line)
			}
			return nil
		}, files.WithLogger(logging.FromContext(cmd.Context())))
	},
}
