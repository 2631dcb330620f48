package extractor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"retail-extractor/internal/dataset"
	"retail-extractor/internal/types"
	"retail-extractor/utils"
)

// Stats counts what happened to the documents of a run
type Stats struct {
	Total             int
	Processed         int
	Succeeded         int
	Failed            int
	MissingIdentifier int
}

// SuccessRate returns the share of processed documents that yielded records
func (s Stats) SuccessRate() float64 {
	if s.Processed == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Processed) * 100
}

// Extractor runs the per-document pipeline for one site: fetch, extract,
// assemble, collect. Documents are processed one at a time.
type Extractor struct {
	adapter   types.SiteAdapter
	fetcher   utils.Fetcher
	collector *dataset.Collector
	config    *types.Config
	logger    types.Logger
	metrics   *Metrics

	stats Stats
	sleep func(ctx context.Context, d time.Duration) error
}

// NewExtractor creates an extractor. metrics may be nil.
func NewExtractor(adapter types.SiteAdapter, fetcher utils.Fetcher, config *types.Config, logger types.Logger, metrics *Metrics) *Extractor {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Extractor{
		adapter:   adapter,
		fetcher:   fetcher,
		collector: dataset.NewCollector(logger),
		config:    config,
		logger:    logger,
		metrics:   metrics,
		sleep:     sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Collector returns the run's collector
func (e *Extractor) Collector() *dataset.Collector {
	return e.collector
}

// Stats returns the counters so far
func (e *Extractor) Stats() Stats {
	return e.stats
}

// Run processes urls in order. Cancellation is checked between documents, so
// a document that has started is always finished or discarded whole. It
// returns ctx.Err() when interrupted.
func (e *Extractor) Run(ctx context.Context, urls []string) (Stats, error) {
	startTime := time.Now()
	site := e.adapter.Name()
	e.stats.Total += len(urls)
	e.logger.Infof("Starting %s extraction of %d documents at %v", site, len(urls), startTime.Format("15:04:05.000"))

	for i, pageURL := range urls {
		if err := ctx.Err(); err != nil {
			e.logger.Warnf("Interrupted after %d/%d documents", i, len(urls))
			return e.stats, err
		}

		if i > 0 {
			if err := e.sleep(ctx, e.config.RequestDelay); err != nil {
				e.logger.Warnf("Interrupted after %d/%d documents", i, len(urls))
				return e.stats, err
			}
		}

		docStart := time.Now()
		e.logger.Debugf("Processing document %d/%d: %s", i+1, len(urls), pageURL)

		err := e.ProcessDocument(ctx, pageURL)
		e.stats.Processed++
		switch {
		case err == nil:
			e.stats.Succeeded++
			e.metrics.document(site, "ok")
		case errors.Is(err, types.ErrMissingIdentifier):
			e.stats.MissingIdentifier++
			e.stats.Failed++
			e.metrics.document(site, "missing_identifier")
			e.logger.Errorf("No identifier for %s, document skipped", pageURL)
		case ctx.Err() != nil:
			e.stats.Processed--
			e.logger.Warnf("Interrupted while fetching %s", pageURL)
			return e.stats, ctx.Err()
		default:
			e.stats.Failed++
			e.metrics.document(site, "failed")
			e.logger.Warnf("Failed to process %s: %v", pageURL, err)
		}
		e.logger.Debugf("Document %s processed in %v", pageURL, time.Since(docStart))

		if every := e.config.ProgressEvery; every > 0 && e.stats.Processed%every == 0 {
			e.logProgress()
		}
	}

	e.logger.Infof("%s extraction completed in %v", site, time.Since(startTime))
	e.logProgress()
	return e.stats, nil
}

func (e *Extractor) logProgress() {
	e.logger.Infof("Progress: %d/%d processed, %d ok, %d failed (%d without identifier), success rate %.1f%%",
		e.stats.Processed, e.stats.Total, e.stats.Succeeded, e.stats.Failed,
		e.stats.MissingIdentifier, e.stats.SuccessRate())
}

// ProcessDocument fetches one page and hands its records to the collector
func (e *Extractor) ProcessDocument(ctx context.Context, pageURL string) error {
	site := e.adapter.Name()

	fetchStart := time.Now()
	page, err := e.fetcher.Fetch(ctx, pageURL)
	e.metrics.observeFetch(site, fetchStart)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	x, err := e.adapter.Extract(pageURL, page.Body)
	if err != nil {
		return fmt.Errorf("extract %s: %w", pageURL, err)
	}
	for _, p := range x.Problems {
		e.logger.Debugf("Recovered from %v", p)
	}

	records, err := Assemble(x)
	if err != nil {
		return err
	}

	res := e.collector.Collect(records)
	e.metrics.collected(site, res)
	e.logger.Debugf("Collected %s: product=%s specs=%d media=%s",
		records.Product.ProviderKey.String(), res.Product, len(records.Specs), res.Media)
	return nil
}

// Flush writes the collected tables to dir as <site>_master.csv,
// <site>_spec.csv and <site>_media.csv
func (e *Extractor) Flush(dir string) ([]dataset.Written, error) {
	return e.collector.Flush(dir, e.adapter.Name())
}

// ExtractToCSV runs urls and always flushes what was collected, including
// after an interruption
func (e *Extractor) ExtractToCSV(ctx context.Context, urls []string, dir string) ([]dataset.Written, error) {
	_, runErr := e.Run(ctx, urls)

	written, flushErr := e.Flush(dir)
	if flushErr != nil {
		return written, errors.Join(runErr, flushErr)
	}
	return written, runErr
}

// Close cleans up resources
func (e *Extractor) Close() {
	if e.fetcher != nil {
		e.fetcher.Close()
	}
}
