// Package executor runs a notebook's code cells by delegating to
// jupyter-nbconvert, the same engine the notebooks were authored
// against. The executed document is read back from stdout; the input
// file on disk is never modified.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aweiler/nbconv/internal/notebook"
)

const (
	DefaultJupyterBin = "jupyter"
	DefaultKernel     = "python3"
	DefaultTimeout    = 10 * time.Minute
)

// Executor executes notebooks against a live kernel.
type Executor struct {
	JupyterBin string
	Kernel     string
	Timeout    time.Duration
}

// New builds an Executor, filling empty settings with defaults.
func New(jupyterBin, kernel string, timeout time.Duration) *Executor {
	e := &Executor{JupyterBin: jupyterBin, Kernel: kernel, Timeout: timeout}
	if e.JupyterBin == "" {
		e.JupyterBin = DefaultJupyterBin
	}
	if e.Kernel == "" {
		e.Kernel = DefaultKernel
	}
	if e.Timeout <= 0 {
		e.Timeout = DefaultTimeout
	}
	return e
}

// Execute runs every code cell of the notebook at path in order and
// returns the executed document. The working directory is the notebook's
// own directory, so files created by cell code land beside it. Any
// unhandled cell error fails the whole run.
func (e *Executor) Execute(ctx context.Context, path string) (*notebook.Notebook, error) {
	ctx, cancel := context.WithTimeout(ctx, e.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.JupyterBin, e.args(filepath.Base(path))...)
	cmd.Dir = filepath.Dir(path)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("execute %s: timed out after %s", filepath.Base(path), e.Timeout)
		}
		return nil, fmt.Errorf("execute %s: %w: %s", filepath.Base(path), err, stderrTail(stderr.String()))
	}

	nb, err := notebook.Read(&stdout)
	if err != nil {
		return nil, fmt.Errorf("read executed %s: %w", filepath.Base(path), err)
	}
	return nb, nil
}

func (e *Executor) args(name string) []string {
	return []string{
		"nbconvert",
		"--to", "notebook",
		"--execute",
		"--stdout",
		"--ExecutePreprocessor.kernel_name=" + e.Kernel,
		"--ExecutePreprocessor.timeout=" + strconv.Itoa(int(e.Timeout.Seconds())),
		name,
	}
}

// stderrTail keeps error messages readable: nbconvert tracebacks can run
// to hundreds of lines, and the useful part is at the end.
func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	const max = 2000
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
