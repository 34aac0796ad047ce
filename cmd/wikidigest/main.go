package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/wikidigest"
	"github.com/fwojciec/wikidigest/bluemonday"
	"github.com/fwojciec/wikidigest/cache"
	"github.com/fwojciec/wikidigest/chunk"
	"github.com/fwojciec/wikidigest/confluence"
	"github.com/fwojciec/wikidigest/detect"
	"github.com/fwojciec/wikidigest/digest"
	"github.com/fwojciec/wikidigest/elasticsearch"
	"github.com/fwojciec/wikidigest/fs"
	"github.com/fwojciec/wikidigest/gemini"
	"github.com/fwojciec/wikidigest/html"
	"github.com/fwojciec/wikidigest/htmltomarkdown"
	wdhttp "github.com/fwojciec/wikidigest/http"
	"github.com/fwojciec/wikidigest/pipeline"
	wdprom "github.com/fwojciec/wikidigest/prometheus"
	"github.com/fwojciec/wikidigest/redis"
	"github.com/fwojciec/wikidigest/retry"
	"github.com/fwojciec/wikidigest/s3"
	wdslog "github.com/fwojciec/wikidigest/slog"
	"github.com/fwojciec/wikidigest/sqlite"
	"github.com/joho/godotenv"
)

func main() {
	ctx := context.Background()

	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Database path. Set before calling Run().
	DBPath string

	// Getenv looks up configuration. Defaults to os.Getenv.
	Getenv func(string) string

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	closers []io.Closer
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		DBPath: defaultDBPath(),
		Getenv: os.Getenv,
	}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		errs = append(errs, m.closers[i].Close())
	}
	m.closers = nil
	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}
	return errors.Join(errs...)
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("wikidigest"),
		kong.Description("Watch wiki pages and email digests of what changed."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}), // Don't exit on help
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'wikidigest --help' to see available commands")
	}
	if args[0] == "help" || args[0] == "--help" || args[0] == "-h" {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	level := slog.LevelInfo
	if cli.Verbose {
		level = slog.LevelDebug
	}
	deps.Logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	getenv := m.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg, err := LoadConfig(getenv, cli.Pages)
	if err != nil {
		fmt.Fprintf(stderr, "error: %s\n", wikidigest.ErrorMessage(err))
		return err
	}
	deps.Config = cfg

	m.DB = sqlite.NewDB(m.DBPath)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set WIKIDIGEST_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", m.DBPath, err)
	}
	defer m.Close()

	deps.Snapshots = sqlite.NewSnapshotService(m.DB)
	deps.Subscribers = sqlite.NewSubscriberService(m.DB)
	deps.Runs = sqlite.NewRunService(m.DB)

	switch cmd {
	case "detect":
		if err := cfg.ValidateWiki(); err != nil {
			return configError(stderr, err)
		}
		checker := &detect.Detector{
			Pages:      m.pageSource(cfg, deps.Logger),
			Normalizer: html.NewNormalizer(),
			Snapshots:  deps.Snapshots,
			Logger:     deps.Logger,
		}
		if !cli.Detect.Save {
			checker.Snapshots = dryRunSnapshots{deps.Snapshots}
		}
		deps.Checker = checker

	case "run", "serve":
		if err := cfg.ValidatePipeline(); err != nil {
			return configError(stderr, err)
		}
		metrics := wdprom.NewMetrics(nil)
		p, err := m.buildPipeline(ctx, cfg, deps, stderr)
		if err != nil {
			return err
		}
		p.Observer = metrics
		if cmd == "run" {
			p.Progress = progressPrinter(stderr)
		}
		deps.Runner = p
		deps.Metrics = metrics.Handler()
	}

	return kongCtx.Run(deps)
}

// buildPipeline wires every collaborator of a processing run.
func (m *Main) buildPipeline(ctx context.Context, cfg *Config, deps *Dependencies, stderr io.Writer) (*pipeline.Pipeline, error) {
	logger := deps.Logger
	pages := m.pageSource(cfg, logger)

	blobs, err := openBlobStore(ctx, cfg)
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Check S3_BUCKET, S3_REGION and your AWS credentials")
		return nil, fmt.Errorf("failed to open blob store: %w", err)
	}
	store := cache.NewStore(wdslog.NewLoggingBlobStore(blobs, logger), logger)

	var descCache wikidigest.DescriptionCache = &cache.BlobDescriptionCache{Store: store}
	if cfg.RedisAddr != "" {
		rc, err := redis.Open(cfg.RedisAddr, 0)
		if err != nil {
			fmt.Fprintln(stderr, "Hint: REDIS_ADDR is host:port or a redis:// URL")
			return nil, err
		}
		m.closers = append(m.closers, rc)
		descCache = rc
	}

	client, err := gemini.NewClient(ctx, cfg.GeminiAPIKey, "")
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
		return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
	}
	describer := wdslog.NewLoggingDescriber(gemini.NewDescriber(client, gemini.DefaultModel, retry.Default(logger)), logger)
	embedder := wdslog.NewLoggingEmbedder(gemini.NewEmbedder(client, gemini.DefaultEmbeddingModel,
		retry.Policy{Delays: gemini.EmbedRetryDelays(), Logger: logger},
		retry.NewPacer(gemini.DefaultEmbedInterval)), logger)

	esClient, err := elasticsearch.NewClient(cfg.ElasticsearchURL, cfg.ElasticsearchAPIKey)
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Check ELASTICSEARCH_URL and ELASTICSEARCH_API_KEY")
		return nil, err
	}
	indexName := cfg.ElasticsearchIndex
	if indexName == "" {
		indexName = elasticsearch.DefaultIndex
	}
	esIndex := elasticsearch.NewSearchIndex(esClient, indexName, elasticsearch.WithLogger(logger))
	if err := esIndex.EnsureIndex(ctx); err != nil {
		fmt.Fprintln(stderr, "Hint: Check that Elasticsearch is reachable at "+cfg.ElasticsearchURL)
		return nil, fmt.Errorf("failed to prepare search index: %w", err)
	}
	index := wdslog.NewLoggingSearchIndex(esIndex, logger)

	var chunker wikidigest.Chunker = &chunk.Semantic{}
	if cfg.ChunkStrategy == ChunkWholePage {
		chunker = &chunk.WholePage{}
	}

	p := &pipeline.Pipeline{
		Pages:    pages,
		Detector: &detect.Detector{Pages: pages, Normalizer: html.NewNormalizer(), Snapshots: deps.Snapshots, Logger: logger},
		Parser:   html.NewParser(),
		Images: &cache.ImageProcessor{
			Pages:        pages,
			Downloader:   wdhttp.NewDownloader(),
			Store:        store,
			Descriptions: &cache.Descriptions{Cache: descCache, Describer: describer, Logger: logger},
			Logger:       logger,
		},
		Store:   store,
		Chunker: chunker,
		Indexer: &chunk.Indexer{Embedder: embedder, Tokens: gemini.NewTokenCounter(""), Logger: logger},
		Index:   index,
		Runs:    deps.Runs,
		BaseURL: cfg.BaseURL,
		Logger:  logger,
	}

	if cfg.RelayURL == "" {
		logger.Warn("RELAY_URL not set, digests will not be sent")
		return p, nil
	}
	p.Digests = &digest.Service{
		Index:       index,
		Writer:      wdslog.NewLoggingDigestWriter(gemini.NewDigestWriter(client, gemini.DefaultModel, retry.Default(logger)), logger),
		Subscribers: deps.Subscribers,
		Notifier:    wdslog.NewLoggingNotifier(wdhttp.NewNotifier(cfg.RelayURL, logger), logger),
		Sanitizer:   bluemonday.NewSanitizer(),
		Converter:   htmltomarkdown.NewConverter(htmltomarkdown.WithDomain(cfg.BaseURL)),
		Archive:     store,
		Logger:      logger,
	}
	return p, nil
}

func (m *Main) pageSource(cfg *Config, logger *slog.Logger) wikidigest.PageSource {
	client := confluence.NewClient(cfg.BaseURL, cfg.Email, cfg.APIToken, confluence.WithRetryPolicy(retry.Default(logger)))
	return wdslog.NewLoggingPageSource(client, logger)
}

func openBlobStore(ctx context.Context, cfg *Config) (wikidigest.BlobStore, error) {
	if cfg.S3.Bucket != "" {
		return s3.Open(ctx, cfg.S3)
	}
	return fs.NewBlobStore(cfg.BlobDir, ""), nil
}

func configError(stderr io.Writer, err error) error {
	fmt.Fprintf(stderr, "error: %s\n", wikidigest.ErrorMessage(err))
	fmt.Fprintln(stderr, hint(err))
	return err
}

// progressPrinter reports each finished page on w.
func progressPrinter(w io.Writer) pipeline.ProgressFunc {
	return func(e pipeline.ProgressEvent) {
		if e.Type != pipeline.ProgressPageDone {
			return
		}
		status := "ok"
		switch {
		case !e.Result.Success:
			status = "failed"
		case !e.Result.HasChanges:
			status = "unchanged"
		}
		fmt.Fprintf(w, "[%d/%d] %s %s\n", e.Completed, e.Total, e.PageID, status)
	}
}

// dryRunSnapshots reads stored snapshots but drops writes, so that a
// detection preview leaves the next run's baseline untouched.
type dryRunSnapshots struct {
	wikidigest.SnapshotService
}

func (dryRunSnapshots) PutSnapshot(context.Context, *wikidigest.PageSnapshot, string) error {
	return nil
}

func defaultDBPath() string {
	if path := os.Getenv("WIKIDIGEST_DB"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "wikidigest.db"
	}
	dir := filepath.Join(home, ".wikidigest")
	_ = os.MkdirAll(dir, 0755)
	return filepath.Join(dir, "wikidigest.db")
}
