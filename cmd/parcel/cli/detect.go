package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/meigma/parcel"
)

var detectCmd = &cobra.Command{
	Use:   "detect <file>...",
	Short: "Identify the format of files",
	Long: `Detect prints the format of each file, read from its leading bytes and,
failing that, its name. Files that cannot be identified are reported and
make the command fail after all files are examined.

Examples:
  parcel detect download.bin
  parcel detect *.gz`,
	GroupID: "info",
	Args:    cobra.MinimumNArgs(1),
	RunE:    runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)
}

func runDetect(cmd *cobra.Command, args []string) error {
	client, err := newClient(nil)
	if err != nil {
		return err
	}

	var errs []error
	for _, path := range args {
		f, err := client.Detect(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", path, f)
	}
	return errors.Join(errs...)
}

var formatsCmd = &cobra.Command{
	Use:     "formats",
	Short:   "List supported formats",
	GroupID: "info",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		printFormats(cmd)
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

func printFormats(cmd *cobra.Command) {
	tw := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(tw, "FORMAT\tEXTENSION\tCLASS")
	for _, f := range parcel.Formats() {
		fmt.Fprintf(tw, "%s\t.%s\t%s\n", f, f.Extension(), f.Class())
	}
	tw.Flush()
}
