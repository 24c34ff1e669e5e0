package archive

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meigma/parcel/internal/contracts"
)

// writeTree creates files below root. Keys are slash-separated paths.
func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// readFile returns the content of path as a string.
func readFile(t *testing.T, path string) string {
	t.Helper()
	//nolint:gosec // G304: test paths are under t.TempDir()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// fakeRunner records commands and writes output instead of running them.
type fakeRunner struct {
	mu     sync.Mutex
	cmds   []contracts.Command
	output string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, cmd contracts.Command) error {
	f.mu.Lock()
	f.cmds = append(f.cmds, cmd)
	f.mu.Unlock()

	if f.err != nil {
		return f.err
	}
	if cmd.Output != "" {
		return os.WriteFile(cmd.Output, []byte(f.output), 0o644)
	}
	return nil
}

func (f *fakeRunner) commands() []contracts.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]contracts.Command(nil), f.cmds...)
}
