package archive

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/meigma/parcel/core"
	"github.com/meigma/parcel/internal/contracts"
	"github.com/meigma/parcel/internal/format"
	"github.com/meigma/parcel/internal/progress"
)

// Builder packs files into archives and compressed files.
type Builder struct {
	logger   *slog.Logger
	runner   contracts.CommandRunner
	timeout  time.Duration
	progress core.ProgressFunc
}

// NewBuilder creates a Builder. runner is used for FormatLegacyZ with
// timeout as the default deadline; progress may be nil.
func NewBuilder(logger *slog.Logger, runner contracts.CommandRunner, timeout time.Duration, progress core.ProgressFunc) *Builder {
	return &Builder{
		logger:   discardLogger(logger),
		runner:   runner,
		timeout:  timeout,
		progress: progress,
	}
}

// packPlan is a validated PackRequest with every default resolved.
type packPlan struct {
	format core.Format
	target string
	base   string
	prefix string
	files  []string
	infos  []fs.FileInfo
	total  int64
	opts   core.PackOptions
}

// Pack writes the request's files to its target and returns the target path.
//
// Validation failures are reported before any output is created. A failure
// after the target was created leaves it in place, incomplete.
func (b *Builder) Pack(ctx context.Context, req core.PackRequest) (string, error) {
	plan, err := planPack(req)
	if err != nil {
		return "", err
	}

	b.logger.Info("prepare pack",
		"format", plan.format,
		"target", plan.target,
		"files", len(plan.files),
		"ignore_tree_structure", plan.opts.IgnoreTreeStructure,
		"ignore_parents_directory", plan.opts.IgnoreParentsDirectory,
		"preserve_absolute_path", plan.opts.PreserveAbsolutePath,
		"prefix", plan.prefix,
	)
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(plan.target), dirPerm); err != nil {
		return "", fmt.Errorf("create target directory for %s: %w", plan.target, err)
	}

	switch plan.format {
	case core.FormatGzip:
		err = b.packGzip(ctx, plan)
	case core.FormatLegacyZ:
		err = b.packLegacyZ(ctx, plan, req.Timeout)
	default:
		err = b.packContainer(ctx, plan)
	}
	if err != nil {
		return "", err
	}

	b.logger.Info("packed",
		"format", plan.format,
		"target", plan.target,
		"files", len(plan.files),
		"elapsed", time.Since(start),
	)
	return plan.target, nil
}

// planPack validates req and resolves format, target and the file list.
func planPack(req core.PackRequest) (*packPlan, error) {
	hasSource := req.Source != ""
	hasFiles := len(req.Files) > 0
	switch {
	case hasSource && hasFiles:
		return nil, fmt.Errorf("%w: source and file list are mutually exclusive", core.ErrUsage)
	case !hasSource && !hasFiles:
		return nil, fmt.Errorf("%w: source path or file list required", core.ErrUsage)
	case hasFiles && req.Base == "":
		return nil, fmt.Errorf("%w: file list requires a base directory", core.ErrUsage)
	}

	f := req.Format
	switch {
	case f == core.FormatUnspecified && req.Target == "":
		return nil, fmt.Errorf("%w: format or target required", core.ErrUsage)
	case f == core.FormatUnspecified:
		detected, ok := format.FromName(req.Target)
		if !ok {
			return nil, fmt.Errorf("%w: unsupported target format %q", core.ErrNotDetected, filepath.Base(req.Target))
		}
		f = detected
	case !f.Valid():
		return nil, fmt.Errorf("%w: unsupported format %v", core.ErrUsage, f)
	}

	plan := &packPlan{
		format: f,
		base:   req.Base,
		prefix: normalizePrefix(req.Prefix),
		opts:   req.Options,
	}

	if hasSource {
		info, err := os.Stat(req.Source)
		if err != nil {
			return nil, fmt.Errorf("%w: source %s: %w", core.ErrUsage, req.Source, err)
		}
		if info.IsDir() {
			if f.Class() == core.ClassSingleStream {
				return nil, fmt.Errorf("%w: cannot pack directory %s into %s", core.ErrFormat, req.Source, f)
			}
			if plan.base == "" {
				plan.base = req.Source
			}
			files, err := OSFS(req.Source).regularFiles()
			if err != nil {
				return nil, fmt.Errorf("walk source %s: %w", req.Source, err)
			}
			plan.files = files
		} else {
			plan.files = []string{req.Source}
		}
	} else {
		if f.Class() == core.ClassSingleStream && len(req.Files) != 1 {
			return nil, fmt.Errorf("%w: cannot pack %d files into %s", core.ErrFormat, len(req.Files), f)
		}
		plan.files = req.Files
	}

	plan.infos = make([]fs.FileInfo, len(plan.files))
	for i, file := range plan.files {
		info, err := os.Stat(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", core.ErrUsage, file, err)
		}
		if info.IsDir() && f.Class() == core.ClassSingleStream {
			return nil, fmt.Errorf("%w: cannot pack directory %s into %s", core.ErrFormat, file, f)
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%w: %s is not a regular file", core.ErrUsage, file)
		}
		plan.infos[i] = info
		plan.total += info.Size()
	}

	plan.target = req.Target
	if plan.target == "" {
		// A file list is named after its base, except that a single-stream
		// format is named after the one file it compresses.
		from := req.Source
		switch {
		case from != "":
		case f.Class() == core.ClassSingleStream:
			from = plan.files[0]
		default:
			from = req.Base
		}
		from, err := filepath.Abs(from)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", from, err)
		}
		plan.target = filepath.Join(filepath.Dir(from), format.FileName(filepath.Base(from), f))
	}

	return plan, nil
}

// packContainer writes every planned file as an entry of one container.
func (b *Builder) packContainer(ctx context.Context, plan *packPlan) error {
	newWriter, ok := entryWriters[plan.format]
	if !ok {
		return fmt.Errorf("%w: %s is not a container format", core.ErrUsage, plan.format)
	}

	out, err := os.Create(plan.target)
	if err != nil {
		return fmt.Errorf("create %s: %w", plan.target, err)
	}
	defer out.Close()

	bw := bufio.NewWriterSize(out, ioBufferSize)
	ew := newWriter(bw)
	tracker := progress.NewTracker("pack", plan.total, b.progress)
	buf := make([]byte, copyBufferSize)

	for i, file := range plan.files {
		if err := ctx.Err(); err != nil {
			return err
		}

		name, err := entryName(file, plan.base, plan.prefix, plan.opts)
		if err != nil {
			return err
		}
		b.logger.Debug("adding entry", "index", i+1, "total", len(plan.files), "file", file, "entry", name)

		if err := b.addEntry(ctx, ew, name, file, plan.infos[i], tracker, buf); err != nil {
			return err
		}
	}

	if err := closeAll(ew.Close, bw.Flush, out.Close); err != nil {
		return fmt.Errorf("finish %s: %w", plan.target, err)
	}
	return nil
}

func (b *Builder) addEntry(ctx context.Context, ew entryWriter, name, file string, info fs.FileInfo, tracker *progress.Tracker, buf []byte) error {
	src, err := os.Open(file) //nolint:gosec // G304: source files are caller-provided
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer src.Close()

	w, err := ew.Create(name, info)
	if err != nil {
		return err
	}
	if err := copyWithContext(ctx, w, tracker.Reader(src, name), buf); err != nil {
		return fmt.Errorf("write entry %s: %w", name, err)
	}
	return nil
}

// packGzip compresses the single planned file.
func (b *Builder) packGzip(ctx context.Context, plan *packPlan) error {
	file, info := plan.files[0], plan.infos[0]

	src, err := os.Open(file) //nolint:gosec // G304: source file is caller-provided
	if err != nil {
		return fmt.Errorf("open %s: %w", file, err)
	}
	defer src.Close()

	out, err := os.Create(plan.target)
	if err != nil {
		return fmt.Errorf("create %s: %w", plan.target, err)
	}
	defer out.Close()

	bw := bufio.NewWriterSize(out, ioBufferSize)
	zw := gzip.NewWriter(bw)
	zw.Name = info.Name()
	zw.ModTime = info.ModTime()

	tracker := progress.NewTracker("pack", plan.total, b.progress)
	if err := copyWithContext(ctx, zw, tracker.Reader(src, info.Name()), nil); err != nil {
		return fmt.Errorf("compress %s: %w", file, err)
	}
	if err := closeAll(zw.Close, bw.Flush, out.Close); err != nil {
		return fmt.Errorf("finish %s: %w", plan.target, err)
	}
	return nil
}

// packLegacyZ delegates to the external compress tool.
func (b *Builder) packLegacyZ(ctx context.Context, plan *packPlan, timeout time.Duration) error {
	if b.runner == nil {
		return fmt.Errorf("%w: no command runner for %s", core.ErrUsage, plan.format)
	}
	abs, err := filepath.Abs(plan.files[0])
	if err != nil {
		return fmt.Errorf("resolve %s: %w", plan.files[0], err)
	}
	if timeout <= 0 {
		timeout = b.timeout
	}

	cmd := contracts.Command{
		Args:    []string{"compress", "-f", "-c", abs},
		Output:  plan.target,
		Timeout: timeout,
	}
	if err := b.runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("compress %s: %w", abs, err)
	}
	return nil
}
