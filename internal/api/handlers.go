package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aweiler/nbconv/internal/convert"
	"github.com/aweiler/nbconv/internal/hierarchy"
	"github.com/aweiler/nbconv/internal/notebook"
	"github.com/aweiler/nbconv/internal/render"
)

type convertResponse struct {
	Filename  string          `json:"filename"`
	Hierarchy json.RawMessage `json:"hierarchy"`
	HTML      string          `json:"html"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	if !strings.HasSuffix(filename, convert.Extension) {
		jsonError(w, fmt.Sprintf("unsupported file type: %s", filepath.Ext(filename)), http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	var nb *notebook.Notebook
	if r.FormValue("execute") == "true" {
		if !s.cfg.AllowExecute {
			jsonError(w, "execution is disabled on this server", http.StatusForbidden)
			return
		}
		nb, err = s.executeUpload(r, filename, data)
		if err != nil {
			s.log.Error("notebook execution failed", "file", filename, "error", err)
			jsonError(w, "execution failed: "+err.Error(), http.StatusUnprocessableEntity)
			return
		}
	} else {
		nb, err = notebook.Read(bytes.NewReader(data))
		if err != nil {
			jsonError(w, "invalid notebook: "+err.Error(), http.StatusBadRequest)
			return
		}
	}

	// There is nowhere to write fig files in API mode, so images are
	// always embedded.
	markup, err := render.Notebook(nb, "", filename, render.Options{
		UseBase64:      true,
		RenderMarkdown: s.cfg.RenderMarkdown,
		Highlight:      s.cfg.Highlight,
		HighlightStyle: s.cfg.HighlightStyle,
	})
	if err != nil {
		s.log.Error("render failed", "file", filename, "error", err)
		jsonError(w, "render failed", http.StatusInternalServerError)
		return
	}

	doc, err := hierarchy.Extract(markup, filename)
	if err != nil {
		s.log.Error("hierarchy extraction failed", "file", filename, "error", err)
		jsonError(w, "hierarchy extraction failed", http.StatusInternalServerError)
		return
	}
	hier, err := json.Marshal(doc)
	if err != nil {
		jsonError(w, "marshal failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, convertResponse{
		Filename:  filename,
		Hierarchy: hier,
		HTML:      markup,
	})
}

// executeUpload stages the uploaded notebook in a scratch directory and
// runs it there, so cell code cannot touch anything persistent.
func (s *Server) executeUpload(r *http.Request, filename string, data []byte) (*notebook.Notebook, error) {
	dir, err := os.MkdirTemp("", "nbconv-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, fmt.Errorf("stage notebook: %w", err)
	}
	return s.exec.Execute(r.Context(), path)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	name = strings.ReplaceAll(name, "..", "")
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "notebook.ipynb"
	}
	return name
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
