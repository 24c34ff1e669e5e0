package archive

import (
	"archive/tar"
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/meigma/parcel/core"
)

// entry is one container entry as seen by the unpack and preview engines.
type entry struct {
	name string
	dir  bool
	mode fs.FileMode
	size int64

	// skip explains why the entry cannot be read. Empty when readable.
	skip string

	// r yields the entry's content. It is only valid during the visit.
	r io.Reader
}

// visitFunc is called for every entry in archive order.
type visitFunc func(e *entry) error

// entryWalkers maps every container format to the function that iterates it.
var entryWalkers = map[core.Format]func(ctx context.Context, path string, visit visitFunc) error{
	core.FormatTar:     walkTar(false),
	core.FormatTarGzip: walkTar(true),
	core.FormatZip:     walkZip,
	core.FormatJar:     walkZip,
}

// walkTar returns a walker for plain or gzip-wrapped tar files.
func walkTar(gzipped bool) func(ctx context.Context, path string, visit visitFunc) error {
	return func(ctx context.Context, path string, visit visitFunc) error {
		f, err := os.Open(path) //nolint:gosec // G304: archive path is caller-provided
		if err != nil {
			return err
		}
		defer f.Close()

		var r io.Reader = bufio.NewReaderSize(f, ioBufferSize)
		if gzipped {
			zr, err := gzip.NewReader(r)
			if err != nil {
				return fmt.Errorf("open gzip stream %s: %w", path, err)
			}
			defer zr.Close()
			r = zr
		}

		tr := tar.NewReader(r)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			hdr, err := tr.Next()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("read tar entry in %s: %w", path, err)
			}

			e := &entry{
				name: hdr.Name,
				mode: hdr.FileInfo().Mode(),
				size: hdr.Size,
			}
			switch hdr.Typeflag {
			case tar.TypeDir:
				e.dir = true
			case tar.TypeReg:
				e.r = tr
			default:
				e.skip = fmt.Sprintf("unsupported tar entry type %q", hdr.Typeflag)
			}
			if err := visit(e); err != nil {
				return err
			}
		}
	}
}

// walkZip iterates the central directory of a zip or jar file.
func walkZip(ctx context.Context, path string, visit visitFunc) error {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return fmt.Errorf("open zip %s: %w", path, err)
	}
	defer zr.Close()

	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := visitZipFile(zf, visit); err != nil {
			return err
		}
	}
	return nil
}

func visitZipFile(zf *zip.File, visit visitFunc) error {
	info := zf.FileInfo()
	e := &entry{
		name: zf.Name,
		dir:  info.IsDir(),
		mode: info.Mode(),
		size: info.Size(),
	}
	if e.dir {
		return visit(e)
	}

	if zf.Flags&0x1 != 0 {
		e.skip = "encrypted zip entry"
		return visit(e)
	}

	rc, err := zf.Open()
	if errors.Is(err, zip.ErrAlgorithm) {
		e.skip = fmt.Sprintf("unsupported compression method %d", zf.Method)
		return visit(e)
	}
	if err != nil {
		return fmt.Errorf("open zip entry %s: %w", zf.Name, err)
	}
	defer rc.Close()

	e.r = rc
	return visit(e)
}
