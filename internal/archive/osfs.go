package archive

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Compile-time interface implementation checks.
var (
	_ fs.FS        = (*osFS)(nil)
	_ fs.ReadDirFS = (*osFS)(nil)
	_ fs.StatFS    = (*osFS)(nil)
)

// OSFS returns a filesystem rooted at the given directory path.
func OSFS(root string) *osFS {
	return &osFS{root: root}
}

// osFS is an fs.FS implementation backed by the OS filesystem. Stat follows
// symlinks so that links to regular files are packed as the file they name.
type osFS struct {
	root string
}

// Open implements fs.FS.
//
//nolint:gosec // G304: Path is validated by fs.ValidPath and rooted to o.root
func (o *osFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return os.Open(o.path(name))
}

// ReadDir implements fs.ReadDirFS.
func (o *osFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	return os.ReadDir(o.path(name))
}

// Stat implements fs.StatFS.
func (o *osFS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	return os.Stat(o.path(name))
}

// path returns the OS path of name.
func (o *osFS) path(name string) string {
	return filepath.Join(o.root, filepath.FromSlash(name))
}

// regularFiles walks the tree under o.root and returns the OS paths of all
// regular files in walk order. Symlinks are followed for the file they name
// but symlinked directories are not descended into.
func (o *osFS) regularFiles() ([]string, error) {
	var files []string
	err := fs.WalkDir(o, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			info, statErr := o.Stat(name)
			if statErr != nil || !info.Mode().IsRegular() {
				return nil //nolint:nilerr // dangling or non-file links are not packed
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		files = append(files, o.path(name))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}
