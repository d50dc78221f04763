// Package convert drives the per-notebook pipeline: execute, render to
// HTML fragments, extract the heading hierarchy, and write the JSON (and
// optionally HTML) artifacts beside the source notebook.
package convert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aweiler/nbconv/internal/config"
	"github.com/aweiler/nbconv/internal/executor"
	"github.com/aweiler/nbconv/internal/hierarchy"
	"github.com/aweiler/nbconv/internal/notebook"
	"github.com/aweiler/nbconv/internal/render"
)

const Extension = ".ipynb"

type Converter struct {
	cfg  config.Config
	exec *executor.Executor
	log  *slog.Logger
}

func New(cfg config.Config, log *slog.Logger) *Converter {
	return &Converter{
		cfg:  cfg,
		exec: executor.New(cfg.JupyterBin, cfg.Kernel, cfg.ExecTimeout),
		log:  log,
	}
}

// Dir converts every notebook directly inside dir, one at a time in
// filename order (os.ReadDir sorts, so batch output is deterministic).
// A failing notebook is logged and skipped; it never stops later files.
func (c *Converter) Dir(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("list %s: %w", dir, err)
	}

	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Extension) {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		c.log.Info("processing notebook", "file", entry.Name())
		if _, err := c.File(ctx, filepath.Join(dir, entry.Name())); err != nil {
			c.log.Error("conversion failed", "file", entry.Name(), "error", err)
			errs = append(errs, err)
			continue
		}
		c.log.Info("converted notebook", "file", entry.Name())
	}
	return errors.Join(errs...)
}

// File converts a single notebook and returns its hierarchy Document.
// Artifacts are written next to the input with the same basename.
func (c *Converter) File(ctx context.Context, path string) (*hierarchy.Document, error) {
	filename := filepath.Base(path)
	dir := filepath.Dir(path)

	var (
		nb  *notebook.Notebook
		err error
	)
	if c.cfg.NoExecute {
		nb, err = notebook.ReadFile(path)
	} else {
		nb, err = c.exec.Execute(ctx, path)
	}
	if err != nil {
		return nil, err
	}

	markup, err := render.Notebook(nb, dir, filename, render.Options{
		UseBase64:      c.cfg.UseBase64,
		RenderMarkdown: c.cfg.RenderMarkdown,
		Highlight:      c.cfg.Highlight,
		HighlightStyle: c.cfg.HighlightStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", filename, err)
	}

	stem := strings.TrimSuffix(filename, Extension)

	if c.cfg.WriteHTML {
		htmlPath := filepath.Join(dir, stem+".html")
		if err := os.WriteFile(htmlPath, []byte(render.WrapBody(markup)), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", htmlPath, err)
		}
	}

	doc, err := hierarchy.Extract(markup, filename)
	if err != nil {
		return nil, fmt.Errorf("extract hierarchy of %s: %w", filename, err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal hierarchy of %s: %w", filename, err)
	}
	jsonPath := filepath.Join(dir, stem+".json")
	if err := os.WriteFile(jsonPath, out, 0o644); err != nil {
		return nil, fmt.Errorf("write %s: %w", jsonPath, err)
	}

	return doc, nil
}
