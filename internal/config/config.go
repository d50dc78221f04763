package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Execution engine
	JupyterBin  string
	Kernel      string
	ExecTimeout time.Duration
	NoExecute   bool

	// Rendering
	UseBase64      bool
	WriteHTML      bool
	RenderMarkdown bool
	Highlight      bool
	HighlightStyle string

	// HTTP API
	Port           string
	APIKey         string
	AllowExecute   bool
	MaxUploadBytes int64
}

func Load() Config {
	cfg := Config{
		JupyterBin:  envOr("NBCONV_JUPYTER_BIN", "jupyter"),
		Kernel:      envOr("NBCONV_KERNEL", "python3"),
		ExecTimeout: envDuration("NBCONV_EXEC_TIMEOUT", 10*time.Minute),

		UseBase64:      envBool("NBCONV_USE_BASE64", false),
		WriteHTML:      envBool("NBCONV_WRITE_HTML", false),
		RenderMarkdown: envBool("NBCONV_RENDER_MARKDOWN", false),
		Highlight:      envBool("NBCONV_HIGHLIGHT", false),
		HighlightStyle: envOr("NBCONV_HIGHLIGHT_STYLE", "github"),

		Port:           envOr("PORT", "8090"),
		APIKey:         os.Getenv("NBCONV_API_KEY"),
		AllowExecute:   envBool("NBCONV_ALLOW_EXECUTE", false),
		MaxUploadBytes: envInt64("NBCONV_MAX_UPLOAD_BYTES", 52428800), // 50MB
	}

	if cfg.ExecTimeout <= 0 {
		cfg.ExecTimeout = 10 * time.Minute
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
