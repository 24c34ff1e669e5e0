package format

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/parcel/core"
)

func tarBytes(t *testing.T, format tar.Format) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "hello.txt",
		Mode:     0o644,
		Size:     5,
		Typeflag: tar.TypeReg,
		ModTime:  time.Unix(1700000000, 0),
		Format:   format,
	}))
	_, err := tw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	return buf.Bytes()
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func zipBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("hello.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// v7Tar returns a pre-POSIX tar header block: no magic, valid checksum.
func v7Tar(t *testing.T) []byte {
	t.Helper()
	block := tarBytes(t, tar.FormatUSTAR)[:tarBlockSize]
	block = bytes.Clone(block)
	copy(block[257:265], make([]byte, 8))

	var sum int64
	for i, c := range block {
		if i >= 148 && i < 156 {
			c = ' '
		}
		sum += int64(c)
	}
	copy(block[148:156], formatOctal(sum))
	return block
}

func formatOctal(v int64) string {
	s := []byte("0000000\x00")
	for i := 6; i >= 0 && v > 0; i-- {
		s[i] = byte('0' + v%8)
		v /= 8
	}
	return string(s)
}

func TestDetector_Detect(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	tarData := tarBytes(t, tar.FormatUnknown)

	tests := []struct {
		name string
		file string
		data []byte
		want core.Format
	}{
		{name: "tar", file: "a.tar", data: tarData, want: core.FormatTar},
		{name: "gnu tar", file: "gnu.tar", data: tarBytes(t, tar.FormatGNU), want: core.FormatTar},
		{name: "pax tar", file: "pax.tar", data: tarBytes(t, tar.FormatPAX), want: core.FormatTar},
		{name: "v7 tar", file: "old.tar", data: v7Tar(t), want: core.FormatTar},
		{name: "tar named zip", file: "misleading.zip", data: tarData, want: core.FormatTar},
		{name: "tar gzip", file: "a.tar.gz", data: gzipBytes(t, tarData), want: core.FormatTarGzip},
		{name: "tar gzip without suffix", file: "download", data: gzipBytes(t, tarData), want: core.FormatTarGzip},
		{name: "plain gzip", file: "notes.txt.gz", data: gzipBytes(t, []byte("just text")), want: core.FormatGzip},
		{name: "plain gzip named tgz", file: "fake.tar.gz", data: gzipBytes(t, []byte("just text")), want: core.FormatGzip},
		{name: "zip", file: "a.zip", data: zipBytes(t), want: core.FormatZip},
		{name: "zip named jar", file: "app.JAR", data: zipBytes(t), want: core.FormatJar},
		{name: "zip without suffix", file: "blob", data: zipBytes(t), want: core.FormatZip},
		{name: "empty zip", file: "empty", data: []byte{'P', 'K', 0x05, 0x06, 0, 0}, want: core.FormatZip},
		{name: "legacy z", file: "data", data: []byte{0x1f, 0x9d, 0x90, 'a'}, want: core.FormatLegacyZ},
		{name: "name fallback", file: "unknown.tar", data: []byte("not really a tar"), want: core.FormatTar},
		{name: "empty file name fallback", file: "empty.zip", data: nil, want: core.FormatZip},
	}

	d := NewDetector(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, tt.data, 0o644))

			got, err := d.Detect(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetector_NotDetected(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "readme.md")
	require.NoError(t, os.WriteFile(path, []byte("# readme"), 0o644))

	_, err := NewDetector(nil).Detect(path)
	assert.ErrorIs(t, err, core.ErrNotDetected)
	assert.ErrorIs(t, err, core.ErrUsage)
}

func TestDetector_UnreadableFallsBackToName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	got, err := NewDetector(nil).Detect(filepath.Join(dir, "missing.tar.gz"))
	require.NoError(t, err)
	assert.Equal(t, core.FormatTarGzip, got)

	_, err = NewDetector(nil).Detect(filepath.Join(dir, "missing.bin"))
	assert.ErrorIs(t, err, core.ErrNotDetected)
}

func TestDetector_DetectReader(t *testing.T) {
	t.Parallel()

	d := NewDetector(nil)

	got, err := d.DetectReader(bytes.NewReader(gzipBytes(t, tarBytes(t, tar.FormatUnknown))), "stream")
	require.NoError(t, err)
	assert.Equal(t, core.FormatTarGzip, got)

	got, err = d.DetectReader(strings.NewReader("text"), "x.jar")
	require.NoError(t, err)
	assert.Equal(t, core.FormatJar, got)

	_, err = d.DetectReader(strings.NewReader("text"), "x.txt")
	assert.ErrorIs(t, err, core.ErrNotDetected)
}

func TestIsTarHeader(t *testing.T) {
	t.Parallel()

	assert.True(t, IsTarHeader(tarBytes(t, tar.FormatUSTAR)))
	assert.True(t, IsTarHeader(v7Tar(t)))
	assert.False(t, IsTarHeader(make([]byte, tarBlockSize)), "zero block")
	assert.False(t, IsTarHeader([]byte("short")))

	corrupt := bytes.Clone(v7Tar(t))
	corrupt[0] ^= 0xff
	assert.False(t, IsTarHeader(corrupt), "checksum mismatch")
}
