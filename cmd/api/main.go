package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
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

// APIRequest represents the request body for the API
type APIRequest struct {
	Site string   `json:"site"`
	URLs []string `json:"urls"`
}

// APIResult is the outcome of one extraction request
type APIResult struct {
	Site   string                    `json:"site"`
	Stats  extractor.Stats           `json:"stats"`
	Tables map[string]*dataset.Table `json:"tables"`
}

// APIResponse represents the response from the API
type APIResponse struct {
	Success bool       `json:"success"`
	Data    *APIResult `json:"data,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// Server holds the API server configuration
type Server struct {
	logger  *logrus.Logger
	config  *types.Config
	metrics *extractor.Metrics

	newFetcher func(config *types.Config, logger types.Logger, useBrowser bool) (utils.Fetcher, error)
}

// NewServer creates a new API server
func NewServer(config *types.Config) *Server {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if levelStr := os.Getenv("LOG_LEVEL"); levelStr != "" {
		if level, err := logrus.ParseLevel(levelStr); err == nil {
			logger.SetLevel(level)
		}
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Server{
		logger:     logger,
		config:     config,
		metrics:    extractor.NewMetrics(),
		newFetcher: utils.NewFetcher,
	}
}

// handleExtract runs the pipeline over the posted URLs and returns the shaped
// tables instead of writing files
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req APIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var urls []string
	for _, u := range req.URLs {
		if u = strings.TrimSpace(u); u != "" {
			urls = append(urls, u)
		}
	}
	urls = adapters.RemoveDuplicateURLs(urls)
	if len(urls) == 0 {
		s.sendError(w, "No urls provided", http.StatusBadRequest)
		return
	}
	if s.config.Limit > 0 && len(urls) > s.config.Limit {
		s.sendError(w, fmt.Sprintf("Too many urls (max %d)", s.config.Limit), http.StatusBadRequest)
		return
	}

	adapter, err := adapters.ForSite(req.Site, s.logger)
	if err != nil {
		s.sendError(w, err.Error(), http.StatusBadRequest)
		return
	}

	requestLogger := s.logger.WithFields(logrus.Fields{
		"request": uuid.New().String()[:8],
		"site":    adapter.Name(),
	})
	requestLogger.Infof("API request received for %d urls", len(urls))

	fetcher, err := s.newFetcher(s.config, requestLogger, s.config.UseHeadlessBrowser || adapter.PreferBrowser())
	if err != nil {
		requestLogger.Errorf("Failed to create fetcher: %v", err)
		s.sendError(w, "Fetcher unavailable", http.StatusInternalServerError)
		return
	}

	ex := extractor.NewExtractor(adapter, fetcher, s.config, requestLogger, s.metrics)
	defer ex.Close()

	// A disconnecting client cancels the run
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Minute)
	defer cancel()

	stats, err := ex.Run(ctx, urls)
	if err != nil && !errors.Is(err, context.Canceled) {
		requestLogger.Warnf("Run ended early: %v", err)
	}

	response := APIResponse{
		Success: true,
		Data: &APIResult{
			Site:   adapter.Name(),
			Stats:  stats,
			Tables: ex.Collector().Tables(),
		},
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		requestLogger.Errorf("Failed to encode response: %v", err)
	}
}

// sendError sends an error response
func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	response := APIResponse{
		Success: false,
		Error:   message,
	}

	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		s.logger.Errorf("Failed to encode error response: %v", err)
	}
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "healthy",
		"sites":  adapters.Sites(),
	})
}

// Routes returns the server's handler
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/extract", s.handleExtract)
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// Start starts the API server
func (s *Server) Start(port string) error {
	s.logger.Infof("Starting API server on port %s", port)
	s.logger.Info("Available endpoints:")
	s.logger.Info("  POST /extract - Extract product tables from a list of product URLs")
	s.logger.Info("  GET  /health  - Health check")
	s.logger.Info("  GET  /metrics - Prometheus metrics")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return srv.ListenAndServe()
}

func main() {
	// Load .env file if present
	_ = godotenv.Load()

	serverPort := "8080"
	if envPort := os.Getenv("API_PORT"); envPort != "" {
		serverPort = envPort
		fmt.Printf("Using port from environment variable API_PORT: %s\n", serverPort)
	} else {
		fmt.Printf("No API_PORT environment variable found, using default: %s\n", serverPort)
	}

	server := NewServer(types.LoadConfig())

	log.Printf("Starting API server on port %s", serverPort)
	log.Fatal(server.Start(serverPort))
}
