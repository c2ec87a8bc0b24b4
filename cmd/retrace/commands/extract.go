package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/overwatch/retrace/internal/cleaner"
	"github.com/overwatch/retrace/internal/extractor"
	"github.com/overwatch/retrace/internal/fetcher"
	"github.com/overwatch/retrace/internal/logger"
	"github.com/overwatch/retrace/internal/output"
	"github.com/overwatch/retrace/internal/record"
)

// extractionSummary wraps the records with request metadata for CLI output.
type extractionSummary struct {
	Source           string                 `json:"source"`
	Success          bool                   `json:"success"`
	Records          []record.MissingPerson `json:"records"`
	Discarded        []extractor.Discard    `json:"discarded,omitempty"`
	Confidence       []float64              `json:"confidence"`
	ProcessingTimeMs float64                `json:"processing_time_ms"`
	ModelUsed        string                 `json:"model_used"`
	Message          string                 `json:"message"`
}

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract records from a single page",
	Long: `Run one extraction against a saved HTML file or a live URL and write
the validated records to stdout or a file.

Examples:
  retrace extract --file page.html --state Maharashtra
  retrace extract --url "https://example.gov/missing" --format yaml
  retrace extract --file page.html -o records.jsonl --format jsonl`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	flags := extractCmd.Flags()
	flags.String("file", "", "path to an HTML file")
	flags.String("url", "", "URL to fetch and extract from")
	flags.String("state", "", "source state label (contextual hint for the model)")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, jsonl, yaml")
	flags.Int("max-retries", 3, "extraction attempts")
	flags.String("max-content-size", "100KB", "content size limit before truncation (e.g. 100KB, 1MB)")
	flags.Bool("no-cleanse", false, "disable HTML cleaning")

	extractCmd.MarkFlagsMutuallyExclusive("file", "url")
	extractCmd.MarkFlagsOneRequired("file", "url")
}

func runExtract(cmd *cobra.Command, args []string) error {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	html, source, err := loadContent(cmd)
	if err != nil {
		logger.Error("failed to load content", "error", err)
		return err
	}

	noCleanse, _ := cmd.Flags().GetBool("no-cleanse")
	if !noCleanse {
		html = cleaner.Clean(html)
	}

	provider, err := buildProvider()
	if err != nil {
		logger.Error("failed to initialize provider", "error", err)
		return err
	}

	maxRetries, _ := cmd.Flags().GetInt("max-retries")
	sizeStr, _ := cmd.Flags().GetString("max-content-size")
	maxContentSize, err := parseContentSize(sizeStr)
	if err != nil {
		return fmt.Errorf("invalid --max-content-size: %w", err)
	}

	ext := extractor.New(provider,
		extractor.WithMaxAttempts(maxRetries),
		extractor.WithTemperature(viper.GetFloat64("temperature")),
		extractor.WithMaxContentSize(maxContentSize),
	)

	state, _ := cmd.Flags().GetString("state")

	logger.Info("starting extraction",
		"source", source,
		"provider", provider.Name(),
		"model", provider.Model())

	result, extractErr := ext.Extract(ctx, html, state)
	if extractErr != nil {
		logger.Error("extraction failed", "error", extractErr)
	}

	writer, closeOut, err := openWriter(cmd)
	if err != nil {
		return err
	}
	defer closeOut()

	summary := extractionSummary{
		Source:           source,
		Success:          result.Success,
		Records:          result.Records,
		Discarded:        result.Discards,
		Confidence:       result.Confidence,
		ProcessingTimeMs: float64(result.ProcessingTime.Microseconds()) / 1000.0,
		ModelUsed:        result.ModelUsed,
		Message:          result.Message,
	}

	if werr := writer.Write(summary); werr != nil {
		logger.Error("failed to write output", "error", werr)
		return werr
	}
	if werr := writer.Close(); werr != nil {
		return werr
	}

	logger.Info("extraction complete",
		"records", len(result.Records),
		"discarded", len(result.Discards))

	return extractErr
}

// loadContent reads the page from --file or fetches it from --url.
func loadContent(cmd *cobra.Command) (html, source string, err error) {
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		data, err := os.ReadFile(path) //#nosec G304 -- CLI tool reads a user-specified file
		if err != nil {
			return "", "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), path, nil
	}

	targetURL, _ := cmd.Flags().GetString("url")
	f := fetcher.NewStatic(fetcher.Config{Timeout: 30 * time.Second})
	page, err := f.Fetch(targetURL)
	if err != nil {
		return "", "", err
	}
	return page.HTML, targetURL, nil
}

// openWriter builds the output writer from --output and --format.
func openWriter(cmd *cobra.Command) (output.Writer, func(), error) {
	outFile := os.Stdout
	closeOut := func() {}
	if outPath, _ := cmd.Flags().GetString("output"); outPath != "" {
		f, err := os.Create(outPath) //#nosec G304 -- CLI tool writes to a user-specified file
		if err != nil {
			logger.Error("failed to create output file", "path", outPath, "error", err)
			return nil, nil, err
		}
		outFile = f
		closeOut = func() { _ = f.Close() }
	}

	formatStr, _ := cmd.Flags().GetString("format")
	writer, err := output.NewWriter(outFile, output.Format(formatStr))
	if err != nil {
		closeOut()
		logger.Error("failed to create output writer", "format", formatStr, "error", err)
		return nil, nil, err
	}
	return writer, closeOut, nil
}
