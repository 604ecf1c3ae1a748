package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathakanu/inboxpilot/internal/api"
	"github.com/pathakanu/inboxpilot/internal/assistant"
)

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "listen port (defaults to PORT)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard API and the daily reminder digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		if err := a.assistant.StartScheduler(); err != nil {
			return err
		}

		port := servePort
		if port == "" {
			port = a.cfg.Port
		}
		var opts []api.Option
		if a.cfg.WhatsAppDigestEnabled() {
			opts = append(opts, api.WithWhatsAppWebhook(a.cfg.DigestWhatsAppTo, a.cfg.TwilioAuthToken, a.cfg.TwilioWebhookURL))
		}
		server := &http.Server{
			Addr:              ":" + port,
			Handler:           api.NewServer(a.assistant, a.logger, opts...),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			a.logger.Printf("server starting on :%s", port)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		return waitForShutdown(server, a.assistant, a.logger, errCh)
	},
}

func waitForShutdown(server *http.Server, ast *assistant.Assistant, logger *log.Logger, errCh <-chan error) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var serveErr error
	select {
	case <-stop:
		logger.Println("shutting down...")
	case serveErr = <-errCh:
		logger.Printf("server error: %v", serveErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("server shutdown error: %v", err)
	}
	ast.StopScheduler()
	return serveErr
}
