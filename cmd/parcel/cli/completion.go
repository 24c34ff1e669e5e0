package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/parcel"
)

// archiveExtensions returns the extensions of every supported format for
// shell file filtering. Compound extensions are reduced to their last part.
func archiveExtensions() []string {
	seen := make(map[string]bool)
	var exts []string
	for _, f := range parcel.Formats() {
		ext := f.Extension()
		if i := strings.LastIndexByte(ext, '.'); i >= 0 {
			ext = ext[i+1:]
		}
		for _, e := range []string{ext, strings.ToUpper(ext)} {
			if !seen[e] {
				seen[e] = true
				exts = append(exts, e)
			}
		}
	}
	return exts
}

// completeArchive suggests archive files for a single archive argument.
func completeArchive(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) >= 1 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return archiveExtensions(), cobra.ShellCompDirectiveFilterFileExt
}

// completeArchiveThenDir provides completion for the unpack command arguments:
// - First arg: archive file
// - Second arg: destination directory
func completeArchiveThenDir(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return archiveExtensions(), cobra.ShellCompDirectiveFilterFileExt
	case 1:
		return nil, cobra.ShellCompDirectiveFilterDirs
	default:
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

// completePackArgs provides completion for the pack command arguments:
// - First arg: source file or directory
// - Second arg: target archive path
func completePackArgs(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return nil, cobra.ShellCompDirectiveDefault
	case 1:
		if packFiles {
			return nil, cobra.ShellCompDirectiveDefault
		}
		return archiveExtensions(), cobra.ShellCompDirectiveFilterFileExt
	default:
		if packFiles {
			return nil, cobra.ShellCompDirectiveDefault
		}
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeFormats suggests values for --format.
func completeFormats(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var completions []string
	for _, f := range parcel.Formats() {
		if name := f.String(); strings.HasPrefix(name, toComplete) {
			completions = append(completions, name)
		}
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}
