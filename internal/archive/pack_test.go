package archive

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/parcel/core"
)

func TestPlanPack_Validation(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.txt":     "a",
		"b.txt":     "b",
		"dir/c.txt": "c",
	})
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "b.txt")
	dir := filepath.Join(root, "dir")

	tests := []struct {
		name    string
		req     core.PackRequest
		wantErr error
	}{
		{
			name:    "source and files",
			req:     core.PackRequest{Source: a, Files: []string{b}, Base: root, Format: core.FormatZip},
			wantErr: core.ErrUsage,
		},
		{
			name:    "neither source nor files",
			req:     core.PackRequest{Format: core.FormatZip},
			wantErr: core.ErrUsage,
		},
		{
			name:    "files without base",
			req:     core.PackRequest{Files: []string{a}, Format: core.FormatZip},
			wantErr: core.ErrUsage,
		},
		{
			name:    "no format and no target",
			req:     core.PackRequest{Source: a},
			wantErr: core.ErrUsage,
		},
		{
			name:    "unknown target extension",
			req:     core.PackRequest{Source: a, Target: filepath.Join(root, "out.rar")},
			wantErr: core.ErrNotDetected,
		},
		{
			name:    "invalid format",
			req:     core.PackRequest{Source: a, Format: core.Format(99)},
			wantErr: core.ErrUsage,
		},
		{
			name:    "missing source",
			req:     core.PackRequest{Source: filepath.Join(root, "missing"), Format: core.FormatTar},
			wantErr: core.ErrUsage,
		},
		{
			name:    "directory into gzip",
			req:     core.PackRequest{Source: dir, Format: core.FormatGzip},
			wantErr: core.ErrFormat,
		},
		{
			name:    "two files into gzip",
			req:     core.PackRequest{Files: []string{a, b}, Base: root, Format: core.FormatGzip},
			wantErr: core.ErrFormat,
		},
		{
			name:    "directory in file list into gzip",
			req:     core.PackRequest{Files: []string{dir}, Base: root, Format: core.FormatGzip},
			wantErr: core.ErrFormat,
		},
		{
			name:    "directory in file list into zip",
			req:     core.PackRequest{Files: []string{a, dir}, Base: root, Format: core.FormatZip},
			wantErr: core.ErrUsage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := planPack(tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPlanPack_NotDetectedIsUsage(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(src, []byte("a"), 0o644))

	_, err := planPack(core.PackRequest{Source: src, Target: src + ".rar"})
	assert.ErrorIs(t, err, core.ErrNotDetected)
	assert.ErrorIs(t, err, core.ErrUsage)
}

func TestPlanPack_Defaults(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"site/index.html":    "<html>",
		"site/css/main.css":  "body{}",
		"notes/readme.txt":   "hi",
		"notes/changelog.md": "v1",
	})

	t.Run("target from directory source", func(t *testing.T) {
		t.Parallel()

		plan, err := planPack(core.PackRequest{Source: filepath.Join(root, "site"), Format: core.FormatTarGzip})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "site.tar.gz"), plan.target)
		assert.Equal(t, filepath.Join(root, "site"), plan.base)
		assert.Len(t, plan.files, 2)
		assert.Equal(t, int64(len("<html>")+len("body{}")), plan.total)
	})

	t.Run("target from base of file list", func(t *testing.T) {
		t.Parallel()

		files := []string{
			filepath.Join(root, "notes", "readme.txt"),
			filepath.Join(root, "notes", "changelog.md"),
		}
		plan, err := planPack(core.PackRequest{Files: files, Base: filepath.Join(root, "notes"), Format: core.FormatZip})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "notes.zip"), plan.target)
		assert.Equal(t, files, plan.files)
	})

	t.Run("single-stream target from the listed file", func(t *testing.T) {
		t.Parallel()

		files := []string{filepath.Join(root, "notes", "readme.txt")}
		plan, err := planPack(core.PackRequest{Files: files, Base: filepath.Join(root, "notes"), Format: core.FormatGzip})
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(root, "notes", "readme.txt.gz"), plan.target)
	})

	t.Run("format from target name", func(t *testing.T) {
		t.Parallel()

		plan, err := planPack(core.PackRequest{
			Source: filepath.Join(root, "site"),
			Target: filepath.Join(root, "out", "SITE.TAR.GZ"),
		})
		require.NoError(t, err)
		assert.Equal(t, core.FormatTarGzip, plan.format)
	})
}

func TestPack_NoOutputOnValidationFailure(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a", "b.txt": "b"})
	target := filepath.Join(root, "both.gz")

	_, err := NewBuilder(nil, nil, 0, nil).Pack(context.Background(), core.PackRequest{
		Files:  []string{filepath.Join(root, "a.txt"), filepath.Join(root, "b.txt")},
		Base:   root,
		Target: target,
		Format: core.FormatGzip,
	})
	require.ErrorIs(t, err, core.ErrFormat)
	assert.NoFileExists(t, target)
}

func TestPack_CreatesTargetDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/a.txt": "a"})
	target := filepath.Join(root, "nested", "deeper", "out.tar")

	got, err := NewBuilder(nil, nil, 0, nil).Pack(context.Background(), core.PackRequest{
		Source: filepath.Join(root, "src"),
		Target: target,
	})
	require.NoError(t, err)
	assert.Equal(t, target, got)
	assert.FileExists(t, target)
}

func TestPack_JarMagic(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"classes/A.class": "a",
		"classes/B.class": "b",
	})
	target := filepath.Join(root, "app.jar")

	_, err := NewBuilder(nil, nil, 0, nil).Pack(context.Background(), core.PackRequest{
		Source: filepath.Join(root, "classes"),
		Target: target,
	})
	require.NoError(t, err)

	zr, err := zip.OpenReader(target)
	require.NoError(t, err)
	defer zr.Close()

	require.Len(t, zr.File, 2)
	assert.True(t, bytes.HasPrefix(zr.File[0].Extra, jarMagic), "first entry should carry the jar marker")
	assert.False(t, bytes.HasPrefix(zr.File[1].Extra, jarMagic), "only the first entry carries the jar marker")
	for _, f := range zr.File {
		assert.Equal(t, zip.Deflate, f.Method)
	}
}

func TestPack_Progress(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"data/one.txt": "0123456789",
		"data/two.txt": "abcde",
	})

	var events []core.ProgressEvent
	b := NewBuilder(nil, nil, 0, func(e core.ProgressEvent) {
		events = append(events, e)
	})
	_, err := b.Pack(context.Background(), core.PackRequest{
		Source: filepath.Join(root, "data"),
		Format: core.FormatZip,
	})
	require.NoError(t, err)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, "pack", last.Operation)
	assert.Equal(t, int64(15), last.BytesTransferred)
	assert.Equal(t, int64(15), last.TotalBytes)
}

func TestPack_ContextCanceled(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeTree(t, root, map[string]string{"src/a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBuilder(nil, nil, 0, nil).Pack(ctx, core.PackRequest{
		Source: filepath.Join(root, "src"),
		Format: core.FormatTar,
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPack_LegacyZ(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "data.txt")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	runner := &fakeRunner{output: "compressed"}
	b := NewBuilder(nil, runner, time.Minute, nil)

	target, err := b.Pack(context.Background(), core.PackRequest{Source: src, Format: core.FormatLegacyZ})
	require.NoError(t, err)
	assert.Equal(t, src+".z", target)
	assert.Equal(t, "compressed", readFile(t, target))

	cmds := runner.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, []string{"compress", "-f", "-c", src}, cmds[0].Args)
	assert.Equal(t, target, cmds[0].Output)
	assert.Equal(t, time.Minute, cmds[0].Timeout)

	_, err = b.Pack(context.Background(), core.PackRequest{
		Source:  src,
		Target:  filepath.Join(root, "other.z"),
		Timeout: time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, time.Second, runner.commands()[1].Timeout)
}

func TestPack_LegacyZWithoutRunner(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "data.txt")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))

	_, err := NewBuilder(nil, nil, 0, nil).Pack(context.Background(), core.PackRequest{Source: src, Format: core.FormatLegacyZ})
	assert.ErrorIs(t, err, core.ErrUsage)
}
