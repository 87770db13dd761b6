// Package main is the shiori CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/shiori/internal/cli"
	"github.com/hyperjump/shiori/internal/config"
	"github.com/hyperjump/shiori/internal/hierarchy"
	"github.com/hyperjump/shiori/internal/indexer"
	"github.com/hyperjump/shiori/internal/keyword"
	"github.com/hyperjump/shiori/internal/metrics"
	"github.com/hyperjump/shiori/internal/models"
	"github.com/hyperjump/shiori/internal/notion"
	"github.com/hyperjump/shiori/internal/publish"
	"github.com/hyperjump/shiori/internal/search"
	"github.com/hyperjump/shiori/internal/server"
	"github.com/hyperjump/shiori/internal/storage"
	"github.com/hyperjump/shiori/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/shiori/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "publish":
		runPublish()
	case "search":
		runSearch()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("shiori version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and creates the logger shared by every subcommand.
func setup(configPath string, debugFlag bool) (*config.Config, *zap.Logger, string) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.Debug = cfg.Debug || debugFlag
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger, resolved
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger, resolvedConfigPath := setup(*configPath, *debug)
	defer logger.Sync()
	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var runner server.Runner
	if components.Publisher != nil {
		runner = components.Publisher
	} else {
		logger.Warn("publishing disabled", zap.Error(cfg.ValidateSource()))
	}
	if cfg.Publish.Key == "" {
		logger.Warn("publish key not set; POST /api/publish will reject every request",
			zap.String("env", config.EnvPublishKey))
	}

	srv := server.NewServer(components.Engine, runner, components.Storage, cfg, components.Metrics, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runPublish() {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	rootID := fs.String("root", "", "root page id (overrides config and ROOT_PAGE_ID)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, logger, _ := setup(*configPath, *debug)
	defer logger.Sync()
	if *rootID != "" {
		cfg.Source.RootPageID = *rootID
	}
	if err := cfg.ValidateSource(); err != nil {
		fmt.Fprintf(os.Stderr, "Cannot publish: %v\n", err)
		os.Exit(1)
	}

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer components.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	res, err := components.Publisher.Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Publish failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WritePublishResult(os.Stdout, res, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// printSearchUsage prints search subcommand usage.
func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: shiori search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  shiori search deploy container
  shiori search --fuzzy propodal                    # typo-tolerant search
  shiori search --server "" --limit 5 billing       # read the local index directly
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchConfigPathFromArgs returns the value of -config/--config from args if present, else defaultPath.
func searchConfigPathFromArgs(args []string, defaultPath string) string {
	for i, a := range args {
		if (a == "-config" || a == "--config") && i+1 < len(args) {
			return args[i+1]
		}
	}
	return defaultPath
}

// searchLimitDefaultFromConfig returns search.default_limit from the config at path,
// or models.DefaultSearchLimit when it cannot be loaded.
func searchLimitDefaultFromConfig(path string) int {
	cfg, _, err := loadConfig(path)
	if err != nil || cfg == nil {
		return models.DefaultSearchLimit
	}
	return cfg.Search.DefaultLimit
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])
	configPath := searchConfigPathFromArgs(searchArgs, defaultConfigPath)

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPathFlag := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the local index directly)")
	limit := fs.Int("limit", searchLimitDefaultFromConfig(configPath), "number of results")
	fuzzyEnabled := fs.Bool("fuzzy", false, "enable fuzzy matching for typo tolerance")
	outputFormat := fs.String("output", "text", "output format: text (human-readable) or json (parseable)")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}
	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	searchQuery := &models.SearchQuery{Query: queryStr, Limit: *limit, Fuzzy: *fuzzyEnabled}

	var searchFn func(*models.SearchQuery) (*models.SearchResponse, error)
	if *serverURL != "" {
		// Use the HTTP API when the server is running (avoids Bleve/SQLite lock conflict).
		searchFn = func(q *models.SearchQuery) (*models.SearchResponse, error) {
			return searchViaHTTP(*serverURL, q)
		}
	} else {
		cfg, logger, _ := setup(*configPathFlag, false)
		defer logger.Sync()
		components, err := initializeComponents(cfg, logger)
		if err != nil {
			logger.Fatal("Failed to initialize", zap.Error(err))
		}
		defer components.Close()
		searchFn = func(q *models.SearchQuery) (*models.SearchResponse, error) {
			return components.Engine.Search(context.Background(), q)
		}
	}

	response, err := searchFn(searchQuery)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	// Retry with fuzzy matching when an exact search finds nothing.
	if !searchQuery.Fuzzy && len(response.Results) == 0 {
		searchQuery.Fuzzy = true
		if fuzzyResponse, fuzzyErr := searchFn(searchQuery); fuzzyErr == nil && len(fuzzyResponse.Results) > 0 {
			response = fuzzyResponse
		}
	}
	if err := cli.WriteSearchResults(os.Stdout, response, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// searchURL builds the GET /api/search URL for query.
func searchURL(serverURL string, query *models.SearchQuery) string {
	v := url.Values{}
	v.Set("q", query.Query)
	if query.Limit > 0 {
		v.Set("limit", strconv.Itoa(query.Limit))
	}
	if query.Fuzzy {
		v.Set("fuzzy", "true")
	}
	return strings.TrimRight(serverURL, "/") + "/api/search?" + v.Encode()
}

func searchViaHTTP(serverURL string, query *models.SearchQuery) (*models.SearchResponse, error) {
	var response models.SearchResponse
	if err := getJSON(searchURL(serverURL, query), &response); err != nil {
		return nil, err
	}
	if response.Query == "" {
		response.Query = query.Query
	}
	if response.Total == 0 {
		response.Total = len(response.Results)
	}
	return &response, nil
}

func getJSON(target string, dest any) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(target)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusResponse is the shape of GET /api/status.
type statusResponse struct {
	Categories     int64           `json:"categories"`
	Articles       int64           `json:"articles"`
	DiskUsageBytes *int64          `json:"disk_usage_bytes,omitempty"`
	LastPublish    *publish.Result `json:"last_publish,omitempty"`
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read local storage)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*outputFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var status statusResponse
	if *serverURL != "" {
		if err := getJSON(strings.TrimRight(*serverURL, "/")+"/api/status", &status); err != nil {
			fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
			os.Exit(1)
		}
	} else {
		cfg, logger, _ := setup(*configPath, false)
		defer logger.Sync()
		store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open storage: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()
		ctx := context.Background()
		if status.Categories, err = store.CountCategories(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Count categories failed: %v\n", err)
			os.Exit(1)
		}
		if status.Articles, err = store.CountArticles(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Count articles failed: %v\n", err)
			os.Exit(1)
		}
		paths := append(storage.DatabaseFiles(cfg.Storage.DatabasePath), cfg.Storage.BleveIndexPath)
		if diskBytes, err := storage.DiskUsageBytes(paths...); err == nil {
			status.DiskUsageBytes = &diskBytes
		}
	}

	if format == cli.OutputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(status)
		return
	}
	fmt.Printf("categories:        %d\n", status.Categories)
	fmt.Printf("articles:          %d\n", status.Articles)
	if status.DiskUsageBytes != nil {
		fmt.Printf("disk_usage_bytes:  %d   # database + keyword index on disk\n", *status.DiskUsageBytes)
	}
	if status.LastPublish != nil {
		fmt.Printf("last_publish:      %s (%d categories, %d articles)\n",
			status.LastPublish.StartedAt.Format(time.RFC3339), status.LastPublish.Categories, status.LastPublish.Articles)
	}
}

// Components holds initialized services.
type Components struct {
	Storage      storage.Storage
	KeywordIndex keyword.KeywordIndex
	Engine       *search.Engine
	Indexer      *indexer.Indexer
	// Publisher is nil when the source token or root page id is missing.
	Publisher *publish.Publisher
	Metrics   *metrics.Metrics
}

func (c *Components) Close() {
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
	if c.KeywordIndex != nil {
		_ = c.KeywordIndex.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	var keywordIndex *keyword.BleveIndex
	if cfg.Storage.BleveIndexPath != "" {
		keywordIndex, err = keyword.NewBleveIndex(cfg.Storage.BleveIndexPath)
	} else {
		logger.Warn("bleve_index_path not set; keyword index is in memory")
		keywordIndex, err = keyword.NewMemoryBleveIndex()
	}
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}

	m := metrics.New()
	engine := search.NewEngine(store, keywordIndex, &cfg.Search)

	idxOpts := []indexer.IndexerOption{
		indexer.WithBatchSize(cfg.Publish.BatchSize),
		indexer.WithPreviewLength(cfg.Publish.PreviewLength),
	}
	if cfg.Debug {
		idxOpts = append(idxOpts, indexer.WithLogger(logger))
	}
	idx := indexer.NewIndexer(store, keywordIndex, idxOpts...)
	if err := rebuildEmptyIndex(context.Background(), store, keywordIndex, idx, logger); err != nil {
		_ = keywordIndex.Close()
		_ = store.Close()
		return nil, err
	}

	components := &Components{
		Storage:      store,
		KeywordIndex: keywordIndex,
		Engine:       engine,
		Indexer:      idx,
		Metrics:      m,
	}
	if cfg.ValidateSource() == nil {
		components.Publisher = newPublisher(cfg, idx, m, logger)
	}
	return components, nil
}

// rebuildEmptyIndex fills an empty keyword index from stored articles, so a new
// or in-memory index still serves everything published earlier.
func rebuildEmptyIndex(ctx context.Context, store storage.Storage, keywordIndex keyword.KeywordIndex, idx *indexer.Indexer, logger *zap.Logger) error {
	docs, err := keywordIndex.DocCount()
	if err != nil {
		return fmt.Errorf("failed to count indexed documents: %w", err)
	}
	if docs > 0 {
		return nil
	}
	stored, err := store.CountArticles(ctx)
	if err != nil {
		return fmt.Errorf("failed to count stored articles: %w", err)
	}
	if stored == 0 {
		return nil
	}
	n, err := idx.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("failed to rebuild keyword index: %w", err)
	}
	logger.Info("keyword index rebuilt from storage", zap.Int("articles", n))
	return nil
}

// newPublisher wires the workspace client, retry policy, fetcher, and builder into a Publisher.
func newPublisher(cfg *config.Config, idx *indexer.Indexer, m *metrics.Metrics, logger *zap.Logger) *publish.Publisher {
	client := notion.NewClient(cfg.Source.Token,
		notion.WithHTTPClient(&http.Client{Timeout: cfg.Source.Timeout}),
		notion.WithBaseURL(cfg.Source.BaseURL),
		notion.WithAPIVersion(cfg.Source.APIVersion),
		notion.WithRateLimit(cfg.Source.RequestsPerSecond, 1),
		notion.WithLogger(logger),
	)
	policy := notion.NewRetryPolicy(
		notion.WithRetryLogger(logger),
		notion.WithOnRetry(m.SourceRetry),
	)
	fetcher := notion.NewFetcher(client, policy,
		notion.WithPageSize(cfg.Source.PageSize),
		notion.WithFetcherLogger(logger),
	)
	builder := hierarchy.NewBuilder(fetcher,
		hierarchy.WithConcurrency(cfg.Publish.Concurrency),
		hierarchy.WithLogger(logger),
	)
	return publish.NewPublisher(builder, idx, cfg.Source.RootPageID,
		publish.WithLogger(logger),
		publish.WithMetrics(m),
	)
}

func printUsage() {
	fmt.Println(`shiori - workspace pages published as searchable documentation

Usage:
  shiori server [flags]           Start the HTTP server
  shiori publish [flags]          Fetch the page tree once and store it
  shiori search [flags] <query>   Search published articles
  shiori status [flags]           Show storage status
  shiori version                  Show version
  shiori help                     Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/shiori/config.yaml)
  --debug            Enable debug logging

Publish Flags:
  --config string    Config file path
  --root string      Root page id (overrides source.root_page_id and ROOT_PAGE_ID)
  --output string    Output format: text or json (default: text)

Search Flags:
  --config string    Config file path (for direct index mode and the default limit)
  --server string    Server URL (default: http://localhost:8080). Use --server "" to read the local index.
  --limit int        Number of results (default from config, or 20)
  --fuzzy            Enable fuzzy matching for typo tolerance (default: false)
  --output string    Output format: text or json (default: text)

Status Flags:
  --config string    Config file path (for direct storage mode)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct storage.
  --output string    Output format: text or json (default: text)

Environment:
  NOTION_TOKEN       Integration token (overrides source.token)
  ROOT_PAGE_ID       Root page id (overrides source.root_page_id)
  PUBLISH_KEY        Shared secret for POST /api/publish (overrides publish.key)

Examples:
  shiori server
  shiori publish --output json
  shiori search "deploy container"
  shiori search --output json billing
  shiori status`)
}
