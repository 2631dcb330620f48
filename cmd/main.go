package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"retail-extractor/adapters"
	"retail-extractor/extractor"
	"retail-extractor/internal/dataset"
	"retail-extractor/internal/types"
	"retail-extractor/utils"
)

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	config := types.LoadConfig()

	// Flags default to the environment so either can be used
	var (
		siteFlag     = flag.String("site", "", "Site to extract ("+strings.Join(adapters.Sites(), ", ")+")")
		urlsFlag     = flag.String("urls", "", "Comma-separated product URLs (skips sitemap discovery)")
		limit        = flag.Int("limit", config.Limit, "Maximum number of product URLs taken from the sitemaps")
		outputDir    = flag.String("output", config.OutputDir, "Directory for the CSV files")
		sqlitePath   = flag.String("sqlite", config.SQLitePath, "Also mirror the tables into this SQLite database")
		requestDelay = flag.Duration("delay", config.RequestDelay, "Delay between documents")
		maxRetries   = flag.Int("retries", config.MaxRetries, "Retries after a failed fetch")
		timeout      = flag.Duration("timeout", config.Timeout, "Request timeout")
		useBrowser   = flag.Bool("browser", config.UseHeadlessBrowser, "Render pages with a headless browser")
		httpOnly     = flag.Bool("http-only", false, "Use HTTP requests only (disable headless browser)")
		verbose      = flag.Bool("verbose", false, "Enable verbose logging")
	)
	flag.Parse()

	// Setup logging
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if *siteFlag == "" {
		logger.Fatalf("--site is required (%s)", strings.Join(adapters.Sites(), ", "))
	}

	adapter, err := adapters.ForSite(*siteFlag, logger)
	if err != nil {
		logger.Fatal(err)
	}

	config.Limit = *limit
	config.OutputDir = *outputDir
	config.SQLitePath = *sqlitePath
	config.RequestDelay = *requestDelay
	config.MaxRetries = *maxRetries
	config.Timeout = *timeout

	// The site's own preference applies unless a flag says otherwise
	browserSet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "browser" {
			browserSet = true
		}
	})
	switch {
	case *httpOnly:
		config.UseHeadlessBrowser = false
	case browserSet:
		config.UseHeadlessBrowser = *useBrowser
	default:
		config.UseHeadlessBrowser = config.UseHeadlessBrowser || adapter.PreferBrowser()
	}

	runID := uuid.New().String()
	runLogger := logger.WithFields(logrus.Fields{"run": runID[:8], "site": adapter.Name()})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := extractor.NewMetrics()
	if config.MetricsAddr != "" {
		srv := metrics.Serve(config.MetricsAddr, runLogger)
		defer srv.Close()
	}

	urls, err := productURLs(ctx, *urlsFlag, adapter, config, runLogger)
	if errors.Is(err, context.Canceled) {
		runLogger.Warn("Interrupted during discovery, nothing to extract")
		return
	} else if err != nil {
		runLogger.Fatalf("Discovery failed: %v", err)
	}
	if len(urls) == 0 {
		runLogger.Warn("No product URLs to process")
	}

	fetcher, err := utils.NewFetcher(config, runLogger, config.UseHeadlessBrowser)
	if err != nil {
		runLogger.Fatalf("Failed to create fetcher: %v", err)
	}

	ex := extractor.NewExtractor(adapter, fetcher, config, runLogger, metrics)
	defer ex.Close()

	startTime := time.Now()
	written, runErr := ex.ExtractToCSV(ctx, urls, config.OutputDir)
	endTime := time.Now()

	if errors.Is(runErr, context.Canceled) {
		runLogger.Warn("Run interrupted, collected rows were written")
	} else if runErr != nil {
		runLogger.Errorf("Run finished with errors: %v", runErr)
	}

	rows := make(map[string]int)
	for _, w := range written {
		rows[w.Dataset] = w.Rows
		if w.Table != nil {
			runLogger.Infof("Wrote %d %s rows (%d columns) to %s", w.Rows, w.Dataset, w.Columns, w.Path)
		}
	}

	if config.SQLitePath != "" {
		if err := mirrorToSQLite(config.SQLitePath, adapter.Name(), written, dataset.RunInfo{
			ID:        runID,
			Source:    adapter.Name(),
			StartedAt: startTime,
			EndedAt:   endTime,
			Processed: ex.Stats().Processed,
			Succeeded: ex.Stats().Succeeded,
			Failed:    ex.Stats().Failed,
			Rows:      rows,
		}); err != nil {
			runLogger.Errorf("SQLite mirror failed: %v", err)
		} else {
			runLogger.Infof("Tables mirrored to %s", config.SQLitePath)
		}
	}

	// Print summary
	stats := ex.Stats()
	runLogger.Infof("Extraction completed in %v", endTime.Sub(startTime))
	runLogger.Infof("Documents: %d processed, %d ok, %d failed (%d without identifier)",
		stats.Processed, stats.Succeeded, stats.Failed, stats.MissingIdentifier)
	runLogger.Infof("Rows: master=%d spec=%d media=%d", rows["master"], rows["spec"], rows["media"])

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		os.Exit(1)
	}
}

// productURLs returns the --urls list, or discovers product pages from the
// site's sitemaps
func productURLs(ctx context.Context, urlsFlag string, adapter types.SiteAdapter, config *types.Config, logger types.Logger) ([]string, error) {
	if urlsFlag != "" {
		var urls []string
		for _, u := range strings.Split(urlsFlag, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		return adapters.RemoveDuplicateURLs(urls), nil
	}

	// Sitemaps are plain XML, no rendering needed
	fetcher, err := utils.NewFetcher(config, logger, false)
	if err != nil {
		return nil, err
	}
	defer fetcher.Close()

	return adapters.NewDiscoverer(fetcher, logger).ProductURLs(ctx, adapter, config.Limit)
}

func mirrorToSQLite(path, source string, written []dataset.Written, run dataset.RunInfo) error {
	sink, err := dataset.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer sink.Close()

	if err := sink.WriteAll(source, written); err != nil {
		return err
	}
	return sink.RecordRun(run)
}
