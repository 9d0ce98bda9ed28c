package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/KaramelBytes/odap/internal/ai"
	"github.com/KaramelBytes/odap/internal/web"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := currentConfig()
		if serveAddr != "" {
			c.Addr = serveAddr
		}
		req, err := newRequester(c)
		if err != nil {
			return err
		}
		srv, err := web.New(newCache(c), req, web.Options{
			Addr:           c.Addr,
			MaxUploadBytes: int64(c.MaxUploadMB) << 20,
			Render:         renderOptions(c),
		}, log)
		if err != nil {
			return err
		}
		if c.APIKey == "" && c.Provider != ai.ProviderOllama {
			log.Warn("no API key configured; insights will fall back until OPENAI_API_KEY is set")
		}
		log.Info("starting dashboard", zap.String("addr", c.Addr), zap.String("provider", c.Provider), zap.String("model", req.Model()))

		ctx, stop := signal.NotifyContext(background(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config, default :8501)")
}

// background is used when a command runs without a cobra context.
func background(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
