package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/opencontainers/go-digest"
	"github.com/spf13/cobra"

	"github.com/meigma/parcel"
)

var (
	packFormat       string
	packOutput       string
	packFiles        bool
	packBase         string
	packPrefix       string
	packFlatten      bool
	packStripParents bool
	packAbsolute     bool
	packDigest       bool
)

var packCmd = &cobra.Command{
	Use:   "pack <source> [target]",
	Short: "Pack a file or directory into an archive",
	Long: `Pack writes a file or directory into an archive or compressed file.

The format comes from --format, or else from the target's extension. Without
a target the archive is written next to the source, named after it.

With --files every argument is a file to pack and --base names the directory
entry names are computed from.

Examples:
  parcel pack ./build build.tar.gz
  parcel pack --format zip ./docs
  parcel pack notes.txt --format gzip
  parcel pack --files --base ./src -o src.jar ./src/a.class ./src/b.class`,
	GroupID:           "core",
	Args:              cobra.MinimumNArgs(1),
	RunE:              runPack,
	ValidArgsFunction: completePackArgs,
}

func init() {
	flags := packCmd.Flags()
	flags.StringVarP(&packFormat, "format", "f", "", "Archive format (default: inferred from target)")
	flags.StringVarP(&packOutput, "output", "o", "", "Target path")
	flags.BoolVar(&packFiles, "files", false, "Treat every argument as a file to pack (requires --base)")
	flags.StringVar(&packBase, "base", "", "Directory entry names are relative to")
	flags.StringVar(&packPrefix, "prefix", "", "Directory prefix prepended to every entry name")
	flags.BoolVar(&packFlatten, "flatten", false, "Store base names only")
	flags.BoolVar(&packStripParents, "strip-parents", false, "Name entries relative to the base directory itself")
	flags.BoolVar(&packAbsolute, "absolute", false, "Store absolute paths")
	flags.BoolVar(&packDigest, "digest", false, "Print the sha256 digest of the archive")
	//nolint:errcheck // flag is defined above
	packCmd.RegisterFlagCompletionFunc("format", completeFormats)
	rootCmd.AddCommand(packCmd)
}

func runPack(cmd *cobra.Command, args []string) error {
	f, err := parseFormatFlag(packFormat)
	if err != nil {
		return err
	}

	req := parcel.PackRequest{
		Base:   packBase,
		Prefix: packPrefix,
		Target: packOutput,
		Format: f,
		Options: parcel.PackOptions{
			IgnoreTreeStructure:    packFlatten,
			IgnoreParentsDirectory: packStripParents,
			PreserveAbsolutePath:   packAbsolute,
		},
	}
	switch {
	case packFiles:
		req.Files = args
	case len(args) > 2:
		return fmt.Errorf("%w: expected <source> [target], got %d arguments (use --files for a file list)",
			parcel.ErrUsage, len(args))
	default:
		req.Source = args[0]
		if len(args) == 2 {
			if packOutput != "" {
				return fmt.Errorf("%w: target given both as argument and --output", parcel.ErrUsage)
			}
			req.Target = args[1]
		}
	}

	progress, finish := newProgress("Packing")
	client, err := newClient(progress)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	target, err := client.Pack(ctx, req)
	finish()
	if err != nil {
		return err
	}

	info, err := os.Stat(target)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	//nolint:gosec // G115: file sizes are non-negative
	fmt.Fprintf(out, "%s\t%s\n", target, humanize.IBytes(uint64(info.Size())))

	if packDigest {
		d, err := fileDigest(target)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, d)
	}
	return nil
}

// fileDigest returns the sha256 digest of the file at path.
func fileDigest(path string) (digest.Digest, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path was just written by pack
	if err != nil {
		return "", err
	}
	defer f.Close()

	d, err := digest.SHA256.FromReader(f)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return d, nil
}
