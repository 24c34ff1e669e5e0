package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/meigma/parcel"
)

var (
	unpackFormat  string
	unpackFlatten bool
)

var unpackCmd = &cobra.Command{
	Use:   "unpack <archive> [directory]",
	Short: "Extract an archive or compressed file",
	Long: `Unpack extracts an archive into a directory, the archive's own directory by
default, and prints every path it creates.

The format is detected from the file contents unless --format is given.
Entries whose names would leave the directory are written under their base
name inside it and reported as a warning.

Gzip and .Z files decompress into the directory when it exists, or to the
given path otherwise.

Examples:
  parcel unpack build.tar.gz ./out
  parcel unpack --flatten site.zip ./assets
  parcel unpack --delete-source notes.txt.gz`,
	GroupID:           "core",
	Args:              cobra.RangeArgs(1, 2),
	RunE:              runUnpack,
	ValidArgsFunction: completeArchiveThenDir,
}

func init() {
	flags := unpackCmd.Flags()
	flags.StringVarP(&unpackFormat, "format", "f", "", "Archive format (default: detected)")
	flags.BoolVar(&unpackFlatten, "flatten", false, "Extract every file directly into the directory")
	flags.Bool("delete-source", false, "Remove the archive after a successful unpack")
	//nolint:errcheck // flag is defined above
	viper.BindPFlag("unpack.delete-source", flags.Lookup("delete-source"))
	//nolint:errcheck // flag is defined above
	unpackCmd.RegisterFlagCompletionFunc("format", completeFormats)
	rootCmd.AddCommand(unpackCmd)
}

func runUnpack(cmd *cobra.Command, args []string) error {
	f, err := parseFormatFlag(unpackFormat)
	if err != nil {
		return err
	}

	req := parcel.UnpackRequest{
		Source: args[0],
		Format: f,
		Options: parcel.UnpackOptions{
			IgnoreTreeStructure: unpackFlatten,
			DeleteSource:        cfg.Unpack.DeleteSource,
		},
	}
	if len(args) == 2 {
		req.Target = args[1]
	}

	progress, finish := newProgress("Unpacking")
	client, err := newClient(progress)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	paths, err := client.Unpack(ctx, req)
	finish()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}
	return nil
}
