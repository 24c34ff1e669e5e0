package parcel

import (
	"context"
	"log/slog"
	"time"

	"github.com/meigma/parcel/core"
	"github.com/meigma/parcel/internal/archive"
	"github.com/meigma/parcel/internal/command"
	"github.com/meigma/parcel/internal/format"
	"github.com/meigma/parcel/internal/safepath"
)

// DefaultCommandTimeout bounds the external compress and uncompress tools
// when neither the request nor WithCommandTimeout sets a deadline.
const DefaultCommandTimeout = 5 * time.Minute

// Client packs and unpacks archives.
//
// A Client is immutable after construction and safe for concurrent use as
// long as concurrent calls touch disjoint paths.
type Client struct {
	builder   packer
	extractor extractor
	detector  detector
	logger    *slog.Logger

	runner      CommandRunner
	timeout     time.Duration
	stderrGrace time.Duration
	progress    ProgressFunc
}

// NewClient creates a new parcel client.
//
// By default logging is disabled, legacy-Z commands run with
// DefaultCommandTimeout, and no progress is reported.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		logger:  slog.New(slog.DiscardHandler),
		timeout: DefaultCommandTimeout,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	// Wire up default implementations
	if c.runner == nil {
		c.runner = command.NewRunner(c.logger, c.stderrGrace)
	}
	det := format.NewDetector(c.logger)
	c.detector = det
	c.builder = archive.NewBuilder(c.logger, c.runner, c.timeout, c.progress)
	c.extractor = archive.NewExtractor(archive.ExtractorConfig{
		Logger:   c.logger,
		Detector: det,
		Resolver: safepath.NewResolver(),
		Runner:   c.runner,
		Timeout:  c.timeout,
		Progress: c.progress,
	})

	return c, nil
}

// Pack writes the files described by req into an archive or compressed file
// and returns the path written. When req.Target is empty the path is derived
// from the source name and the format extension.
//
// Request validation errors (ErrUsage, ErrNotDetected, ErrFormat) are
// returned before any output is created. Later failures leave a partial
// target behind; cleaning it up is the caller's responsibility.
func (c *Client) Pack(ctx context.Context, req PackRequest) (string, error) {
	return c.builder.Pack(ctx, req)
}

// Unpack extracts req.Source and returns the created paths in archive order.
//
// Entries whose names would escape the target directory are extracted under
// their base name directly inside it and logged as a security warning.
// A failed DeleteSource removal is logged, not returned.
func (c *Client) Unpack(ctx context.Context, req UnpackRequest) ([]string, error) {
	return c.extractor.Unpack(ctx, req)
}

// Preview lists the file entry names Unpack would extract from source without
// writing anything. For gzip and legacy-Z files it returns the single output
// file name. Pass FormatUnspecified to detect the format.
func (c *Client) Preview(ctx context.Context, source string, f Format) ([]string, error) {
	return c.extractor.Preview(ctx, source, f)
}

// List is Preview with the size and mode recorded for each entry.
// Single-stream formats report a size of -1.
func (c *Client) List(ctx context.Context, source string, f Format) ([]Entry, error) {
	return c.extractor.List(ctx, source, f)
}

// Detect determines the format of the file at path from its leading bytes,
// falling back to its name. Returns an error matching ErrNotDetected when
// neither identifies a supported format.
func (c *Client) Detect(path string) (Format, error) {
	return c.detector.Detect(path)
}

// Formats returns every supported format.
func Formats() []Format {
	return format.All()
}

// FormatFromName infers a format from a file name suffix, preferring the
// longest match.
func FormatFromName(name string) (Format, bool) {
	return format.FromName(name)
}

// ParseFormat parses a format name or extension such as "zip", "tar.gz" or
// "gzip".
func ParseFormat(s string) (Format, error) {
	return core.ParseFormat(s)
}
