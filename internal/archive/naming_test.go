package archive

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/parcel/core"
)

func Test_entryName(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	base := filepath.Join(root, "proj")
	file := filepath.Join(base, "src", "main.go")

	tests := []struct {
		name   string
		base   string
		prefix string
		opts   core.PackOptions
		want   string
	}{
		{
			name: "relative to parent of base",
			base: base,
			want: "proj/src/main.go",
		},
		{
			name: "no base uses base name",
			want: "main.go",
		},
		{
			name: "ignore parents directory",
			base: base,
			opts: core.PackOptions{IgnoreParentsDirectory: true},
			want: "src/main.go",
		},
		{
			name: "ignore parents directory without base falls through",
			opts: core.PackOptions{IgnoreParentsDirectory: true},
			want: "main.go",
		},
		{
			name: "ignore tree structure",
			base: base,
			opts: core.PackOptions{IgnoreTreeStructure: true},
			want: "main.go",
		},
		{
			name: "parents directory wins over tree structure",
			base: base,
			opts: core.PackOptions{IgnoreParentsDirectory: true, IgnoreTreeStructure: true},
			want: "src/main.go",
		},
		{
			name: "absolute path wins over everything",
			base: base,
			opts: core.PackOptions{PreserveAbsolutePath: true, IgnoreTreeStructure: true},
			want: filepath.ToSlash(file),
		},
		{
			name:   "prefix is prepended",
			base:   base,
			prefix: "release/",
			want:   "release/proj/src/main.go",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := entryName(file, tt.base, tt.prefix, tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_normalizePrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "/", want: ""},
		{in: "pkg", want: "pkg/"},
		{in: "pkg/", want: "pkg/"},
		{in: "pkg//", want: "pkg/"},
		{in: "a/b", want: "a/b/"},
		{in: "/pkg", want: "pkg/"},
		{in: "//a/b/", want: "a/b/"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, normalizePrefix(tt.in))
		})
	}
}
