package types

import "time"

// SpecPair is a raw specification row read from a product page
type SpecPair struct {
	Key   string
	Value string
}

// Extraction holds the candidate fields a site adapter pulled out of one
// product page. Empty strings mean no strategy produced a value.
type Extraction struct {
	Site        string
	URL         string
	Identifier  string
	Title       string
	Brand       string
	Price       string
	Category    string
	Description string
	Specs       []SpecPair
	Images      []string
	Datasheets  []string

	// Problems collects recoverable parse failures (bad JSON-LD and the like)
	Problems []error
}

// Config holds the configuration for the extractor
type Config struct {
	RequestDelay       time.Duration // minimum spacing between documents
	MaxRetries         int           // extra fetch attempts after the first
	RetryDelay         time.Duration
	Timeout            time.Duration
	UseHeadlessBrowser bool
	UserAgent          string

	OutputDir     string
	SQLitePath    string
	Limit         int
	ProgressEvery int

	CacheBackend string // "", "memory", "memcache" or "redis"
	CacheAddr    string
	CacheTTL     time.Duration

	MetricsAddr string
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		RequestDelay:       2 * time.Second,
		MaxRetries:         2,
		RetryDelay:         5 * time.Second,
		Timeout:            30 * time.Second,
		UseHeadlessBrowser: false,
		UserAgent:          "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		OutputDir:          ".",
		Limit:              50,
		ProgressEvery:      10,
		CacheTTL:           6 * time.Hour,
	}
}

// SiteAdapter defines the interface for site-specific extraction logic
type SiteAdapter interface {
	// Name returns the short site name used for output file names
	Name() string

	// SitemapURLs returns the sitemap entry points used for product discovery
	SitemapURLs() []string

	// MatchProductURL reports whether a discovered URL is a product page
	MatchProductURL(rawURL string) bool

	// PreferBrowser reports whether pages need a rendering fetch
	PreferBrowser() bool

	// Extract parses a fetched product page into candidate fields
	Extract(pageURL string, body []byte) (*Extraction, error)
}

// Logger defines the logging interface
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
