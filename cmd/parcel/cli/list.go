package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/parcel"
)

var (
	listFormat string
	listLong   bool
	listHuman  bool
)

var listCmd = &cobra.Command{
	Use:     "ls <archive>",
	Aliases: []string{"list", "preview"},
	Short:   "List the files an archive would extract",
	GroupID: "info",
	Long: `Ls prints the names of the files unpack would create, without writing
anything. Directories and unreadable entries are omitted.

Examples:
  parcel ls build.tar.gz
  parcel ls -l site.zip
  parcel ls -lH --format tar backup.bin`,
	Args:              cobra.ExactArgs(1),
	RunE:              runList,
	ValidArgsFunction: completeArchive,
}

func init() {
	flags := listCmd.Flags()
	flags.StringVarP(&listFormat, "format", "f", "", "Archive format (default: detected)")
	flags.BoolVarP(&listLong, "long", "l", false, "Use long listing format")
	flags.BoolVarP(&listHuman, "human-readable", "H", false, "Print sizes in human-readable format")
	//nolint:errcheck // flag is defined above
	listCmd.RegisterFlagCompletionFunc("format", completeFormats)
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	f, err := parseFormatFlag(listFormat)
	if err != nil {
		return err
	}

	client, err := newClient(nil)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	out := cmd.OutOrStdout()
	if !listLong {
		names, err := client.Preview(ctx, args[0], f)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	entries, err := client.List(ctx, args[0], f)
	if err != nil {
		return err
	}
	printLongListing(out, entries)
	return nil
}

// printLongListing prints mode, size, and name in ls -l style format.
func printLongListing(w io.Writer, entries []parcel.Entry) {
	tw := newTabWriter(w)
	for _, entry := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", entry.Mode, formatSize(entry.Size), entry.Name)
	}
	tw.Flush()
}

// formatSize formats an entry size for display.
func formatSize(size int64) string {
	if size < 0 {
		return "-"
	}
	if listHuman {
		//nolint:gosec // G115: size is non-negative
		return humanize.IBytes(uint64(size))
	}
	return strconv.FormatInt(size, 10)
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}
