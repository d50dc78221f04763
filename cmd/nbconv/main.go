package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/aweiler/nbconv/internal/api"
	"github.com/aweiler/nbconv/internal/config"
	"github.com/aweiler/nbconv/internal/convert"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd := &cobra.Command{
		Use:   "nbconv",
		Short: "Convert executed notebooks to HTML fragments and hierarchical JSON",
	}

	rootCmd.AddCommand(convertCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func convertCmd() *cobra.Command {
	var (
		useBase64      bool
		writeHTML      bool
		renderMarkdown bool
		highlight      bool
		noExecute      bool
		kernel         string
		timeout        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "convert <dir>",
		Short: "Execute and convert every .ipynb in a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()

			// Flags win over environment when set explicitly.
			flags := cmd.Flags()
			if flags.Changed("base64") {
				cfg.UseBase64 = useBase64
			}
			if flags.Changed("html") {
				cfg.WriteHTML = writeHTML
			}
			if flags.Changed("render-markdown") {
				cfg.RenderMarkdown = renderMarkdown
			}
			if flags.Changed("highlight") {
				cfg.Highlight = highlight
			}
			if flags.Changed("kernel") {
				cfg.Kernel = kernel
			}
			if flags.Changed("timeout") {
				cfg.ExecTimeout = timeout
			}
			cfg.NoExecute = noExecute

			log := slog.New(slog.NewTextHandler(os.Stderr, nil))
			return convert.New(cfg, log).Dir(cmd.Context(), args[0])
		},
	}

	cmd.Flags().BoolVar(&useBase64, "base64", false, "embed images as base64 data URIs instead of fig_NN.png files")
	cmd.Flags().BoolVar(&writeHTML, "html", false, "also write a standalone .html file per notebook")
	cmd.Flags().BoolVar(&renderMarkdown, "render-markdown", false, "render markdown cells instead of escaping them verbatim")
	cmd.Flags().BoolVar(&highlight, "highlight", false, "syntax-highlight code cells with chroma")
	cmd.Flags().BoolVar(&noExecute, "no-execute", false, "convert stored outputs without running a kernel")
	cmd.Flags().StringVar(&kernel, "kernel", "python3", "kernel name for execution")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "per-notebook execution timeout")

	return cmd
}

func serveCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP conversion API",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

			cfg := config.Load()
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}

			srv := api.NewServer(cfg, log)

			httpServer := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      srv,
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			go func() {
				<-cmd.Context().Done()
				log.Info("shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				httpServer.Shutdown(shutdownCtx)
			}()

			log.Info("starting nbconv api", "port", cfg.Port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("server error", "error", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "8090", "listen port")
	return cmd
}
