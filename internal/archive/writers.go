package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"io/fs"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"

	"github.com/meigma/parcel/core"
)

// jarMagic is the extra field that marks the first entry of a jar file
// (header ID 0xCAFE, no data).
var jarMagic = []byte{0xfe, 0xca, 0x00, 0x00}

// entryWriter writes container entries sequentially.
type entryWriter interface {
	// Create starts a new regular file entry and returns the writer for its
	// content. The previous entry's writer becomes invalid.
	Create(name string, info fs.FileInfo) (io.Writer, error)
	// Close finishes the container. It does not close the underlying writer.
	Close() error
}

// entryWriters maps every container format to its writer constructor.
var entryWriters = map[core.Format]func(w io.Writer) entryWriter{
	core.FormatTar:     newTarWriter,
	core.FormatTarGzip: newTarGzipWriter,
	core.FormatZip:     newZipWriter,
	core.FormatJar:     newJarWriter,
}

// tarWriter writes tar entries. archive/tar promotes headers from USTAR to
// PAX on its own when a name, size or id does not fit the classic fields.
type tarWriter struct {
	tw *tar.Writer
}

func newTarWriter(w io.Writer) entryWriter {
	return &tarWriter{tw: tar.NewWriter(w)}
}

func (t *tarWriter) Create(name string, info fs.FileInfo) (io.Writer, error) {
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return nil, fmt.Errorf("tar header for %s: %w", name, err)
	}
	hdr.Name = name
	if err := t.tw.WriteHeader(hdr); err != nil {
		return nil, fmt.Errorf("write tar header %s: %w", name, err)
	}
	return t.tw, nil
}

func (t *tarWriter) Close() error {
	return t.tw.Close()
}

// tarGzipWriter is a tar stream inside a gzip member.
type tarGzipWriter struct {
	*tarWriter
	zw *gzip.Writer
}

func newTarGzipWriter(w io.Writer) entryWriter {
	zw := gzip.NewWriter(w)
	return &tarGzipWriter{tarWriter: &tarWriter{tw: tar.NewWriter(zw)}, zw: zw}
}

func (t *tarGzipWriter) Close() error {
	return closeAll(t.tarWriter.Close, t.zw.Close)
}

// zipWriter writes DEFLATE-compressed zip entries.
type zipWriter struct {
	zw  *zip.Writer
	jar bool
	n   int
}

func newZipWriter(w io.Writer) entryWriter {
	return &zipWriter{zw: zip.NewWriter(w)}
}

func newJarWriter(w io.Writer) entryWriter {
	return &zipWriter{zw: zip.NewWriter(w), jar: true}
}

func (z *zipWriter) Create(name string, info fs.FileInfo) (io.Writer, error) {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return nil, fmt.Errorf("zip header for %s: %w", name, err)
	}
	hdr.Name = name
	hdr.Method = zip.Deflate
	if z.jar && z.n == 0 {
		hdr.Extra = append(hdr.Extra, jarMagic...)
	}
	z.n++

	w, err := z.zw.CreateHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("write zip header %s: %w", name, err)
	}
	return w, nil
}

func (z *zipWriter) Close() error {
	return z.zw.Close()
}
