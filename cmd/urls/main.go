// Command urls prints the product URLs found in a site's sitemaps. It is a
// debugging aid for the discovery rules and does not fetch product pages.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"retail-extractor/adapters"
	"retail-extractor/internal/types"
	"retail-extractor/utils"
)

func main() {
	_ = godotenv.Load()

	config := types.LoadConfig()

	var (
		siteFlag = flag.String("site", "", "Site to inspect, empty for all ("+strings.Join(adapters.Sites(), ", ")+")")
		limit    = flag.Int("limit", config.Limit, "Maximum URLs per site (0 for no limit)")
		verbose  = flag.Bool("verbose", false, "Log every sitemap visited")
	)
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	sites := adapters.Sites()
	if *siteFlag != "" {
		sites = []string{*siteFlag}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fetcher, err := utils.NewFetcher(config, logger, false)
	if err != nil {
		logger.Fatalf("Failed to create fetcher: %v", err)
	}
	defer fetcher.Close()

	discoverer := adapters.NewDiscoverer(fetcher, logger)

	for _, name := range sites {
		adapter, err := adapters.ForSite(name, logger)
		if err != nil {
			logger.Error(err)
			continue
		}

		fmt.Printf("=== %s ===\n", adapter.Name())
		for _, sitemap := range adapter.SitemapURLs() {
			fmt.Printf("sitemap: %s\n", sitemap)
		}

		urls, err := discoverer.ProductURLs(ctx, adapter, *limit)
		for i, u := range urls {
			fmt.Printf("  %d: %s\n", i+1, u)
		}
		fmt.Printf("Product URLs found: %d\n\n", len(urls))
		if err != nil {
			logger.Warnf("Discovery for %s stopped: %v", adapter.Name(), err)
			return
		}
	}
}
