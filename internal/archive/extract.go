package archive

import (
	"bufio"
	"context"
	"errors"
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
	"github.com/meigma/parcel/internal/safepath"
)

// Extractor unpacks and previews archives and compressed files.
type Extractor struct {
	logger   *slog.Logger
	detector contracts.FormatDetector
	resolver contracts.PathResolver
	runner   contracts.CommandRunner
	timeout  time.Duration
	progress core.ProgressFunc
}

// ExtractorConfig holds the collaborators of an Extractor. Nil fields get
// defaults except Runner, which FormatLegacyZ requires.
type ExtractorConfig struct {
	Logger   *slog.Logger
	Detector contracts.FormatDetector
	Resolver contracts.PathResolver
	Runner   contracts.CommandRunner
	Timeout  time.Duration
	Progress core.ProgressFunc
}

// NewExtractor creates an Extractor.
func NewExtractor(cfg ExtractorConfig) *Extractor {
	e := &Extractor{
		logger:   discardLogger(cfg.Logger),
		detector: cfg.Detector,
		resolver: cfg.Resolver,
		runner:   cfg.Runner,
		timeout:  cfg.Timeout,
		progress: cfg.Progress,
	}
	if e.detector == nil {
		e.detector = format.NewDetector(e.logger)
	}
	if e.resolver == nil {
		e.resolver = safepath.NewResolver()
	}
	return e
}

// extractState tracks one extraction.
type extractState struct {
	root        string
	flatten     bool
	produced    []string
	buf         []byte
	tracker     *progress.Tracker
	createdDirs map[string]struct{}
}

// Unpack extracts req.Source and returns every path it created, in archive
// order. Directories are included unless IgnoreTreeStructure is set.
func (e *Extractor) Unpack(ctx context.Context, req core.UnpackRequest) ([]string, error) {
	if err := validateSource(req.Source); err != nil {
		return nil, err
	}
	target := req.Target
	if target == "" {
		target = filepath.Dir(req.Source)
	}

	f, err := e.resolveFormat(req.Source, req.Format)
	if err != nil {
		return nil, err
	}

	e.logger.Info("prepare unpack",
		"format", f,
		"source", req.Source,
		"target", target,
		"ignore_tree_structure", req.Options.IgnoreTreeStructure,
		"delete_source", req.Options.DeleteSource,
	)
	start := time.Now()

	var produced []string
	switch f {
	case core.FormatGzip:
		produced, err = e.unpackGzip(ctx, req.Source, target)
	case core.FormatLegacyZ:
		produced, err = e.unpackLegacyZ(ctx, req.Source, target, req.Timeout)
	default:
		produced, err = e.unpackContainer(ctx, req.Source, target, f, req.Options.IgnoreTreeStructure)
	}
	if err != nil {
		return nil, err
	}

	if req.Options.DeleteSource {
		if err := os.Remove(req.Source); err != nil && !errors.Is(err, fs.ErrNotExist) {
			e.logger.Warn("failed to delete source file", "source", req.Source, "error", err)
		} else {
			e.logger.Debug("deleted source file", "source", req.Source)
		}
	}

	e.logger.Info("unpacked",
		"source", req.Source,
		"paths", len(produced),
		"elapsed", time.Since(start),
	)
	return produced, nil
}

// Preview lists the file entries Unpack would create, without writing
// anything. Single-stream formats yield the name of their output file.
func (e *Extractor) Preview(ctx context.Context, source string, f core.Format) ([]string, error) {
	entries, err := e.List(ctx, source, f)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, ent := range entries {
		names = append(names, ent.Name)
	}
	return names, nil
}

// List is Preview with entry sizes and modes.
func (e *Extractor) List(ctx context.Context, source string, f core.Format) ([]core.Entry, error) {
	if err := validateSource(source); err != nil {
		return nil, err
	}
	f, err := e.resolveFormat(source, f)
	if err != nil {
		return nil, err
	}
	e.logger.Info("prepare preview", "source", source, "format", f)

	if f.Class() == core.ClassSingleStream {
		return []core.Entry{{
			Name: format.TrimExtension(filepath.Base(source), f),
			Size: -1,
			Mode: defaultFilePerm,
		}}, nil
	}

	walk, ok := entryWalkers[f]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported format %v", core.ErrUsage, f)
	}
	entries := []core.Entry{}
	err = walk(ctx, source, func(ent *entry) error {
		if ent.skip != "" || ent.dir {
			return nil
		}
		entries = append(entries, core.Entry{Name: ent.name, Size: ent.size, Mode: ent.mode.Perm()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// resolveFormat returns f when set, otherwise the detected format.
func (e *Extractor) resolveFormat(source string, f core.Format) (core.Format, error) {
	if f == core.FormatUnspecified {
		detected, err := e.detector.Detect(source)
		if err != nil {
			return core.FormatUnspecified, err
		}
		e.logger.Debug("detected format", "source", source, "format", detected)
		return detected, nil
	}
	if !f.Valid() {
		return core.FormatUnspecified, fmt.Errorf("%w: unsupported format %v", core.ErrUsage, f)
	}
	return f, nil
}

func validateSource(source string) error {
	if source == "" {
		return fmt.Errorf("%w: source path required", core.ErrUsage)
	}
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("%w: source path %s: %w", core.ErrUsage, source, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: source path is a directory: %s", core.ErrUsage, source)
	}
	return nil
}

// unpackContainer extracts every readable entry of a container format.
func (e *Extractor) unpackContainer(ctx context.Context, source, target string, f core.Format, flatten bool) ([]string, error) {
	walk, ok := entryWalkers[f]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported format %v", core.ErrUsage, f)
	}

	state := &extractState{
		root:        target,
		flatten:     flatten,
		produced:    []string{},
		buf:         make([]byte, copyBufferSize),
		tracker:     progress.NewTracker("unpack", -1, e.progress),
		createdDirs: make(map[string]struct{}),
	}
	err := walk(ctx, source, func(ent *entry) error {
		return e.extractEntry(ctx, ent, state)
	})
	if err != nil {
		return nil, err
	}
	return state.produced, nil
}

// extractEntry writes one entry below state.root.
func (e *Extractor) extractEntry(ctx context.Context, ent *entry, state *extractState) error {
	if ent.skip != "" {
		e.logger.Debug("skipping unreadable entry", "entry", ent.name, "reason", ent.skip)
		return nil
	}
	if safepath.ContainsNull(ent.name) {
		e.logger.Warn("skipping entry with NUL byte in name", "entry", ent.name)
		return nil
	}

	path, escaped := e.resolver.Resolve(state.root, ent.name, state.flatten)
	if !safepath.Within(path, state.root) {
		e.logger.Warn("skipping entry resolved outside target directory", "entry", ent.name, "path", path)
		return nil
	}
	if escaped {
		e.logger.Warn("security risk detected: entry escapes target directory, flattening",
			"entry", ent.name, "path", path)
	}

	if ent.dir {
		if state.flatten {
			return nil
		}
		if err := mkdirAllCached(path, state); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
		state.produced = append(state.produced, path)
		return nil
	}

	if filepath.Clean(path) == filepath.Clean(state.root) {
		e.logger.Warn("skipping entry that does not name a file", "entry", ent.name)
		return nil
	}

	if err := mkdirAllCached(filepath.Dir(path), state); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	if err := writeFile(ctx, path, ent, state); err != nil {
		return err
	}
	e.logger.Debug("extracted entry", "entry", ent.name, "path", path)
	state.produced = append(state.produced, path)
	return nil
}

func writeFile(ctx context.Context, path string, ent *entry, state *extractState) error {
	perm := ent.mode.Perm()
	if perm == 0 {
		perm = defaultFilePerm
	}

	//nolint:gosec // G304: path is resolved under the target root
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	bw := bufio.NewWriterSize(f, ioBufferSize)
	copyErr := copyWithContext(ctx, bw, state.tracker.Reader(ent.r, ent.name), state.buf)
	closeErr := closeAll(bw.Flush, f.Close)
	if copyErr != nil {
		return fmt.Errorf("extract %s: %w", ent.name, copyErr)
	}
	if closeErr != nil {
		return fmt.Errorf("write %s: %w", path, closeErr)
	}
	return nil
}

func mkdirAllCached(path string, state *extractState) error {
	if _, ok := state.createdDirs[path]; ok {
		return nil
	}
	if err := os.MkdirAll(path, dirPerm); err != nil {
		return err
	}
	state.createdDirs[path] = struct{}{}
	return nil
}

// singleStreamOutput returns the output file path for a single-stream
// source: inside target when it is an existing directory, else target itself.
func singleStreamOutput(source, target string, f core.Format) string {
	name := format.TrimExtension(filepath.Base(source), f)
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return filepath.Join(target, name)
	}
	return target
}

// sameFile reports whether out names source, which would truncate the
// source before it is read.
func sameFile(source, out string) bool {
	a, errA := filepath.Abs(source)
	b, errB := filepath.Abs(out)
	if errA == nil && errB == nil && a == b {
		return true
	}
	si, errS := os.Stat(source)
	oi, errO := os.Stat(out)
	return errS == nil && errO == nil && os.SameFile(si, oi)
}

// unpackGzip decompresses a gzip file in one pass.
func (e *Extractor) unpackGzip(ctx context.Context, source, target string) ([]string, error) {
	out := singleStreamOutput(source, target, core.FormatGzip)
	if sameFile(source, out) {
		return nil, fmt.Errorf("%w: output %s would overwrite the source", core.ErrUsage, out)
	}
	if err := os.MkdirAll(filepath.Dir(out), dirPerm); err != nil {
		return nil, fmt.Errorf("create directory for %s: %w", out, err)
	}

	src, err := os.Open(source) //nolint:gosec // G304: archive path is caller-provided
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", source, err)
	}
	defer src.Close()

	zr, err := gzip.NewReader(bufio.NewReaderSize(src, ioBufferSize))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream %s: %w", source, err)
	}
	defer zr.Close()

	state := &extractState{
		buf:     make([]byte, copyBufferSize),
		tracker: progress.NewTracker("unpack", -1, e.progress),
	}
	ent := &entry{name: filepath.Base(out), mode: defaultFilePerm, r: zr}
	if err := writeFile(ctx, out, ent, state); err != nil {
		return nil, err
	}
	e.logger.Debug("decompressed", "source", source, "path", out)
	return []string{out}, nil
}

// unpackLegacyZ delegates to the external uncompress tool.
func (e *Extractor) unpackLegacyZ(ctx context.Context, source, target string, timeout time.Duration) ([]string, error) {
	if e.runner == nil {
		return nil, fmt.Errorf("%w: no command runner for %s", core.ErrUsage, core.FormatLegacyZ)
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", source, err)
	}
	out := singleStreamOutput(source, target, core.FormatLegacyZ)
	if sameFile(source, out) {
		return nil, fmt.Errorf("%w: output %s would overwrite the source", core.ErrUsage, out)
	}
	if err := os.MkdirAll(filepath.Dir(out), dirPerm); err != nil {
		return nil, fmt.Errorf("create directory for %s: %w", out, err)
	}
	if timeout <= 0 {
		timeout = e.timeout
	}

	cmd := contracts.Command{
		Args:    []string{"uncompress", "-c", abs},
		Output:  out,
		Timeout: timeout,
	}
	if err := e.runner.Run(ctx, cmd); err != nil {
		return nil, fmt.Errorf("uncompress %s: %w", abs, err)
	}
	return []string{out}, nil
}
