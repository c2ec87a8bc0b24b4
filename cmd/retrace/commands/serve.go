package commands

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/overwatch/retrace/internal/extractor"
	"github.com/overwatch/retrace/internal/logger"
	"github.com/overwatch/retrace/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the extraction HTTP service",
	Long: `Start the HTTP service exposing POST /api/extract, GET /api/health,
and GET /api/stats.

Examples:
  retrace serve --port 8000
  retrace serve -p anthropic -m claude-sonnet-4-20250514
  RETRACE_PORT=9000 retrace serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.Int("port", 8000, "listen port")
	flags.Int("max-retries", 3, "extraction attempts per request")
	flags.Duration("retry-delay", time.Second, "first backoff delay (doubles per attempt)")
	flags.String("max-content-size", "100KB", "max prompt content size (e.g. 100KB, 1MB, 0=unlimited)")
	flags.Bool("no-cleanse", false, "disable HTML cleaning (pass raw HTML to the model)")

	_ = viper.BindPFlag("port", flags.Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	provider, err := buildProvider()
	if err != nil {
		logger.Error("failed to initialize provider", "error", err)
		return err
	}
	logger.Info("provider initialized",
		"provider", provider.Name(),
		"model", provider.Model())

	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	retryDelay, _ := cmd.Flags().GetDuration("retry-delay")

	sizeStr, _ := cmd.Flags().GetString("max-content-size")
	maxContentSize, err := parseContentSize(sizeStr)
	if err != nil {
		return err
	}

	ext := extractor.New(provider,
		extractor.WithMaxAttempts(maxRetries),
		extractor.WithBaseDelay(retryDelay),
		extractor.WithTemperature(viper.GetFloat64("temperature")),
		extractor.WithMaxContentSize(maxContentSize),
	)

	noCleanse, _ := cmd.Flags().GetBool("no-cleanse")
	srv := server.New(ext, provider, server.Config{Clean: !noCleanse})

	port := viper.GetInt("port")
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", "port", port)
	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		return err
	}

	return nil
}

// parseContentSize parses the --max-content-size flag value ("0" or empty
// means unlimited).
func parseContentSize(sizeStr string) (int, error) {
	sizeStr = strings.TrimSpace(sizeStr)
	if sizeStr == "" || sizeStr == "0" {
		return 0, nil
	}

	bytes, err := humanize.ParseBytes(sizeStr)
	if err != nil {
		logger.Error("invalid max-content-size", "value", sizeStr, "error", err)
		return 0, err
	}
	return int(bytes), nil
}
