// Package command runs external programs for formats without a native codec.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/meigma/parcel/core"
	"github.com/meigma/parcel/internal/contracts"
)

// DefaultStderrGrace is how long stderr draining may continue after the
// process exits before it is abandoned.
const DefaultStderrGrace = 5 * time.Second

// Compile-time interface implementation check.
var _ contracts.CommandRunner = (*Runner)(nil)

// Runner executes commands synchronously.
type Runner struct {
	logger      *slog.Logger
	stderrGrace time.Duration
}

// NewRunner creates a Runner. A nil logger disables logging and a
// non-positive grace uses DefaultStderrGrace.
func NewRunner(logger *slog.Logger, stderrGrace time.Duration) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if stderrGrace <= 0 {
		stderrGrace = DefaultStderrGrace
	}
	return &Runner{logger: logger, stderrGrace: stderrGrace}
}

// Run starts cmd and waits for it to exit.
//
// When cmd.Timeout elapses the process is killed and an error matching
// core.ErrTimeout is returned. A non-zero exit returns *core.CommandError
// carrying the captured stderr. An output file written before a failure is
// left in place.
func (r *Runner) Run(ctx context.Context, cmd contracts.Command) error {
	if len(cmd.Args) == 0 {
		return fmt.Errorf("%w: empty command", core.ErrUsage)
	}
	line := strings.Join(cmd.Args, " ")

	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}

	//nolint:gosec // G204: arguments are built by the engine, not a shell
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	c.WaitDelay = r.stderrGrace

	stderr := &lockedBuffer{}
	c.Stderr = stderr

	var out *os.File
	if cmd.Output != "" {
		var err error
		out, err = os.Create(cmd.Output)
		if err != nil {
			return fmt.Errorf("create command output %s: %w", cmd.Output, err)
		}
		c.Stdout = out
	}

	r.logger.Debug("running command", "command", line, "output", cmd.Output, "dir", cmd.Dir, "timeout", cmd.Timeout)
	start := time.Now()

	if err := c.Start(); err != nil {
		_ = closeOutput(out)
		return fmt.Errorf("%w: start %q: %w", core.ErrCommandFailed, line, err)
	}
	waitErr := c.Wait()
	closeErr := closeOutput(out)

	if ctxErr := ctx.Err(); waitErr != nil && ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s: %s", core.ErrTimeout, cmd.Timeout, line)
		}
		return fmt.Errorf("command %q: %w", line, ctxErr)
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
	case errors.Is(waitErr, exec.ErrWaitDelay):
		// The process exited cleanly but something still held stderr open.
		r.logger.Debug("abandoned stderr drain", "command", line, "grace", r.stderrGrace)
	case errors.As(waitErr, &exitErr):
		return &core.CommandError{
			Args:     cmd.Args,
			ExitCode: exitErr.ExitCode(),
			Stderr:   strings.TrimSpace(stderr.String()),
		}
	default:
		return fmt.Errorf("%w: %q: %w", core.ErrCommandFailed, line, waitErr)
	}

	if closeErr != nil {
		return fmt.Errorf("close command output %s: %w", cmd.Output, closeErr)
	}

	r.logger.Debug("command finished", "command", line, "elapsed", time.Since(start))
	return nil
}

// closeOutput closes the redirected stdout file, if any.
func closeOutput(out *os.File) error {
	if out == nil {
		return nil
	}
	return out.Close()
}

// lockedBuffer is a bytes.Buffer safe for the exec copy goroutine to write
// while Run reads it after an abandoned drain.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
