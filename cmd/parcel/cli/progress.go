package cli

import (
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"github.com/meigma/parcel"
	"github.com/meigma/parcel/cmd/parcel/cli/config"
)

// shouldShowProgress returns true if progress bars should be displayed.
func shouldShowProgress() bool {
	switch cfg.Progress {
	case config.ProgressPlain:
		return false
	case config.ProgressTTY:
		return true
	default:
		// Auto mode: show progress only if connected to a TTY
		return term.IsTerminal(int(os.Stderr.Fd()))
	}
}

// newProgressBar creates a new progress bar for byte-based operations.
// A negative total renders a spinner.
func newProgressBar(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionUseANSICodes(true),
		progressbar.OptionClearOnFinish(),
	)
}

// newProgress creates a progress callback labelled with description.
// Returns the callback and a finish function to call when done.
// Returns nil callback if progress should not be shown.
func newProgress(description string) (callback parcel.ProgressFunc, finish func()) {
	if !shouldShowProgress() {
		return nil, func() {}
	}

	var bar *progressbar.ProgressBar
	var once sync.Once

	callback = func(event parcel.ProgressEvent) {
		once.Do(func() {
			bar = newProgressBar(event.TotalBytes, description)
		})
		//nolint:errcheck // progress bar errors are not critical
		bar.Set64(event.BytesTransferred)
	}

	finish = func() {
		if bar != nil {
			//nolint:errcheck // progress bar errors are not critical
			bar.Finish()
		}
	}

	return callback, finish
}
