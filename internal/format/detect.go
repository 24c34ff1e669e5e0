package format

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/meigma/parcel/core"
)

const (
	// lookahead is how much of a file is inspected for signatures.
	lookahead = 10 * 1024

	// tarBlockSize is the size of a tar header block.
	tarBlockSize = 512
)

var (
	gzipMagic    = []byte{0x1f, 0x8b}
	legacyZMagic = []byte{0x1f, 0x9d}

	zipMagics = [][]byte{
		{'P', 'K', 0x03, 0x04}, // local file header
		{'P', 'K', 0x05, 0x06}, // end of central directory (empty archive)
		{'P', 'K', 0x07, 0x08}, // spanning marker
	}
)

// Detector determines the format of files on disk.
type Detector struct {
	logger *slog.Logger
}

// NewDetector creates a Detector. A nil logger disables logging.
func NewDetector(logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Detector{logger: logger}
}

// Detect determines the format of the file at path.
//
// Signatures are tried first: gzip (with a look inside the stream for a tar
// header), legacy-Z, tar, then zip (reported as jar when the name ends in
// ".jar"). When no signature matches, or the file cannot be read, the file
// name suffix decides. Returns an error wrapping core.ErrNotDetected when
// neither succeeds.
func (d *Detector) Detect(path string) (core.Format, error) {
	name := filepath.Base(path)

	f, err := os.Open(path) //nolint:gosec // G304: path is caller-provided by design
	if err != nil {
		d.logger.Warn("failed to detect format by header bytes", "path", path, "error", err)
	} else {
		defer f.Close()
		format, sniffErr := d.sniff(f, name)
		if sniffErr != nil {
			d.logger.Warn("failed to detect format by header bytes", "path", path, "error", sniffErr)
		}
		if format.Valid() {
			return format, nil
		}
	}

	if format, ok := FromName(name); ok {
		return format, nil
	}
	return core.FormatUnspecified, fmt.Errorf("%w: %s", core.ErrNotDetected, path)
}

// DetectReader determines the format of the stream r using signatures only,
// falling back to the suffix of name. It consumes from r.
func (d *Detector) DetectReader(r io.Reader, name string) (core.Format, error) {
	format, err := d.sniff(r, name)
	if err != nil {
		d.logger.Warn("failed to detect format by header bytes", "name", name, "error", err)
	}
	if format.Valid() {
		return format, nil
	}
	if format, ok := FromName(name); ok {
		return format, nil
	}
	return core.FormatUnspecified, fmt.Errorf("%w: %s", core.ErrNotDetected, name)
}

// sniff matches signatures in the leading bytes of r. It returns
// FormatUnspecified when nothing matches.
func (d *Detector) sniff(r io.Reader, name string) (core.Format, error) {
	br := bufio.NewReaderSize(r, lookahead)
	head, err := br.Peek(lookahead)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return core.FormatUnspecified, err
	}
	if len(head) < 2 {
		return core.FormatUnspecified, nil
	}

	if bytes.HasPrefix(head, gzipMagic) {
		// The peeked bytes are still buffered, so the gzip reader starts at
		// the beginning of the stream.
		if isTarGzip(br) {
			return core.FormatTarGzip, nil
		}
		return core.FormatGzip, nil
	}

	if bytes.HasPrefix(head, legacyZMagic) {
		return core.FormatLegacyZ, nil
	}

	if IsTarHeader(head) {
		return core.FormatTar, nil
	}

	for _, magic := range zipMagics {
		if bytes.HasPrefix(head, magic) {
			if strings.HasSuffix(strings.ToLower(name), ".jar") {
				return core.FormatJar, nil
			}
			return core.FormatZip, nil
		}
	}

	return core.FormatUnspecified, nil
}

// isTarGzip reports whether the first decompressed block of the gzip stream
// r is a tar header. Corrupt or truncated streams report false.
func isTarGzip(r io.Reader) bool {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return false
	}
	defer zr.Close()

	block := make([]byte, tarBlockSize)
	if _, err := io.ReadFull(zr, block); err != nil {
		return false
	}
	return IsTarHeader(block)
}

// IsTarHeader reports whether b starts with a tar header block. POSIX, GNU
// and old ustar magics are recognized; pre-POSIX (v7) headers are accepted
// when their checksum verifies.
func IsTarHeader(b []byte) bool {
	if len(b) < tarBlockSize {
		return false
	}
	magic := b[257:263]
	version := b[263:265]
	switch {
	case bytes.Equal(magic, []byte("ustar\x00")) && bytes.Equal(version, []byte("00")):
		return true
	case bytes.Equal(magic, []byte("ustar ")) && bytes.Equal(version, []byte(" \x00")):
		return true
	case bytes.Equal(magic, []byte("ustar\x00")) && bytes.Equal(version, []byte{0, 0}):
		return true
	}
	return b[0] != 0 && validChecksum(b[:tarBlockSize])
}

// validChecksum verifies the header checksum of a tar block. The checksum
// field itself is summed as eight spaces.
func validChecksum(block []byte) bool {
	field := strings.Trim(string(block[148:156]), " \x00")
	if field == "" {
		return false
	}
	want, err := strconv.ParseInt(field, 8, 64)
	if err != nil {
		return false
	}

	var unsigned, signed int64
	for i, c := range block {
		if i >= 148 && i < 156 {
			c = ' '
		}
		unsigned += int64(c)
		signed += int64(int8(c)) //nolint:gosec // G115: historic signed checksum variant
	}
	return want == unsigned || want == signed
}
