// Package main is the semlight CLI entry point.
package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/semlight/internal/cli"
	"github.com/hyperjump/semlight/internal/config"
	"github.com/hyperjump/semlight/internal/embedding"
	"github.com/hyperjump/semlight/internal/extract"
	"github.com/hyperjump/semlight/internal/page"
	"github.com/hyperjump/semlight/internal/passage"
	"github.com/hyperjump/semlight/internal/provider"
	"github.com/hyperjump/semlight/internal/scoring"
	"github.com/hyperjump/semlight/internal/server"
	"github.com/hyperjump/semlight/internal/topics"
	"github.com/hyperjump/semlight/internal/watcher"
	"github.com/hyperjump/semlight/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/semlight/config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if present; if neither exists the built-in
// defaults are used. Returns the config and the path that was loaded ("" for
// defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if err := config.LoadEnv(); err != nil {
		return nil, "", fmt.Errorf("failed to load .env: %w", err)
	}
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if utils.FileExists(fallback) {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); errors.Is(statErr, fs.ErrNotExist) {
			cfg := &config.Config{}
			config.ApplyDefaults(cfg)
			return cfg, "", nil
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
	case "score":
		runScore()
	case "highlight":
		runHighlight()
	case "topics":
		runTopics()
	case "version", "--version", "-v":
		fmt.Printf("semlight version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// setup loads config and builds the logger shared by every subcommand.
func setup(configPath string, debug bool) (*config.Config, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("config loaded",
		zap.String("config_path", resolved),
		zap.Bool("debug", debugMode),
	)
	return cfg, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := loadTopics(ctx, components.Catalog, cfg.Storage.TopicsPath, logger); err != nil {
		logger.Fatal("Failed to load topics", zap.Error(err))
	}

	if cfg.Topics.WatchOrDefault() && cfg.Storage.TopicsPath != "" {
		w, err := watcher.NewWatcher(
			[]string{cfg.Storage.TopicsPath},
			func(path string) {
				if _, err := components.Catalog.LoadFile(context.Background(), path); err != nil {
					logger.Warn("topics reload failed", zap.String("path", path), zap.Error(err))
				}
			},
			watcher.WithLogger(logger),
		)
		if err != nil {
			logger.Fatal("Failed to create watcher", zap.Error(err))
		}
		if err := w.Start(ctx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
	}

	srv := server.NewServer(
		components.Service,
		components.Highlighter,
		components.Catalog,
		components.Models,
		cfg,
		logger,
	)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// loadTopics imports the topics file when it exists; otherwise the name index
// is built from whatever the database already holds.
func loadTopics(ctx context.Context, catalog *topics.Catalog, path string, logger *zap.Logger) error {
	if path != "" {
		_, err := catalog.LoadFile(ctx, path)
		if err == nil {
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		logger.Info("topics file not found, using stored catalog", zap.String("path", path))
	}
	return catalog.Refresh(ctx)
}

// reorderArgs moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse() sees them. Go's flag
// package stops at the first non-flag argument.
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' && a != "-" {
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

func runScore() {
	fs := flag.NewFlagSet("score", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = load the model in-process)")
	file := fs.String("file", "", "score the passages of a document (txt, md, html, pdf, docx, xlsx, odt, rtf)")
	threshold := fs.Float64("threshold", -1, "highlight threshold for text output (default from config)")
	output := fs.String("output", "text", "output format: text, compact or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: semlight score [flags] <topic> [passage...]\n\n")
		fmt.Fprintf(fs.Output(), "Passages come from the arguments, from --file, or one per line on stdin.\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(reorderArgs(os.Args[2:]))

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}
	topic := fs.Arg(0)

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()
	if *threshold < 0 {
		*threshold = cfg.Highlight.ThresholdOrDefault()
	}

	passages, err := collectPassages(fs.Args()[1:], *file, os.Stdin)
	if err != nil {
		fmt.Printf("Failed to read passages: %v\n", err)
		os.Exit(1)
	}

	var resp scoring.Response
	if *serverURL != "" {
		resp, err = scoreViaHTTP(*serverURL, scoring.Request{Topic: topic, Texts: passages})
		if err != nil {
			fmt.Printf("Score failed: %v\n", err)
			fmt.Println("Hint: start the server with 'semlight server' or pass --server \"\" to score in-process.")
			os.Exit(1)
		}
	} else {
		models, svc := newScoringService(cfg, logger)
		resp = svc.Handle(context.Background(), scoring.Request{Topic: topic, Texts: passages})
		_ = models.Close()
	}
	if resp.Status != scoring.StatusSuccess {
		fmt.Printf("Score failed (%s): %s\n", resp.Kind, resp.Message)
		os.Exit(1)
	}
	report := cli.ScoreReport{Topic: topic, Threshold: *threshold, Results: resp.Results}
	if err := cli.WriteScores(os.Stdout, report, format); err != nil {
		fmt.Printf("Failed to write results: %v\n", err)
		os.Exit(1)
	}
}

// collectPassages returns args when given, else the passages of file, else
// the non-empty lines of stdin.
func collectPassages(args []string, file string, stdin io.Reader) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if file != "" {
		doc, err := extract.NewExtractor(0).Extract(file)
		if err != nil {
			return nil, err
		}
		splitter := passage.NewSplitter(200, 20, page.DefaultMinPassageLength)
		return passage.Texts(splitter.Split(filepath.Base(file), doc.Text)), nil
	}
	var out []string
	sc := bufio.NewScanner(stdin)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

func scoreViaHTTP(serverURL string, req scoring.Request) (scoring.Response, error) {
	var out scoring.Response
	body, err := json.Marshal(req)
	if err != nil {
		return out, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/score", "application/json", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("server returned %d: decode response: %w", resp.StatusCode, err)
	}
	return out, nil
}

func runHighlight() {
	fs := flag.NewFlagSet("highlight", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", defaultServerURL, "server URL (empty = load the model in-process)")
	out := fs.String("out", "", "write the highlighted HTML to this file (default stdout)")
	output := fs.String("output", "html", "output format: html or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: semlight highlight [flags] <topic> <file.html|->\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(reorderArgs(os.Args[2:]))
	if fs.NArg() < 2 {
		fs.Usage()
		os.Exit(1)
	}
	topic, src := fs.Arg(0), fs.Arg(1)

	cfg, logger := setup(*configPath, *debug)
	defer logger.Sync()

	var doc []byte
	var err error
	if src == "-" {
		doc, err = io.ReadAll(os.Stdin)
	} else {
		doc, err = os.ReadFile(src)
	}
	if err != nil {
		fmt.Printf("Failed to read %s: %v\n", src, err)
		os.Exit(1)
	}

	var res *page.Result
	if *serverURL != "" {
		res, err = highlightViaHTTP(*serverURL, topic, string(doc))
	} else {
		models, svc := newScoringService(cfg, logger)
		res, err = newHighlighter(cfg, svc, logger).Highlight(context.Background(), bytes.NewReader(doc), topic)
		_ = models.Close()
	}
	if err != nil {
		fmt.Printf("Highlight failed: %v\n", err)
		os.Exit(1)
	}

	w := io.Writer(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Printf("Failed to create %s: %v\n", *out, err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	if *output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(res)
	} else {
		_, err = io.WriteString(w, res.HTML)
	}
	if err != nil {
		fmt.Printf("Failed to write output: %v\n", err)
		os.Exit(1)
	}
	logger.Info("highlighted", zap.Int("passages", len(res.Passages)), zap.Int("highlighted", res.Highlighted))
}

func highlightViaHTTP(serverURL, topic, doc string) (*page.Result, error) {
	body, err := json.Marshal(map[string]string{"topic": topic, "html": doc})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/highlight", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var e scoring.Response
		if err := json.NewDecoder(resp.Body).Decode(&e); err == nil && e.Message != "" {
			return nil, fmt.Errorf("server returned %d (%s): %s", resp.StatusCode, e.Kind, e.Message)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}
	var res page.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &res, nil
}

// Components holds the long-lived pieces wired by initializeComponents.
type Components struct {
	Models      *provider.Provider
	Service     *scoring.Service
	Highlighter *page.Highlighter
	Catalog     *topics.Catalog
}

// Close releases the model and the topic catalog.
func (c *Components) Close() {
	if c.Models != nil {
		_ = c.Models.Close()
	}
	if c.Catalog != nil {
		_ = c.Catalog.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*Components, error) {
	catalog, err := openCatalog(cfg, logger)
	if err != nil {
		return nil, err
	}
	models, svc := newScoringService(cfg, logger)
	return &Components{
		Models:      models,
		Service:     svc,
		Highlighter: newHighlighter(cfg, svc, logger),
		Catalog:     catalog,
	}, nil
}

// newScoringService builds the lazily loading model provider and the
// scoring service on top of it. Nothing is loaded until the first request.
func newScoringService(cfg *config.Config, logger *zap.Logger) (*provider.Provider, *scoring.Service) {
	models := provider.New(embedding.NewLoader(cfg.Embedding, logger), provider.WithLogger(logger))
	svc := scoring.NewService(models,
		scoring.WithLogger(logger),
		scoring.WithMaxPassages(cfg.Scoring.MaxPassages),
	)
	return models, svc
}

func newHighlighter(cfg *config.Config, svc *scoring.Service, logger *zap.Logger) *page.Highlighter {
	return page.NewHighlighter(svc,
		page.WithThreshold(cfg.Highlight.ThresholdOrDefault()),
		page.WithMinPassageLength(cfg.Highlight.MinPassageLength),
		page.WithClassName(cfg.Highlight.ClassName),
		page.WithLogger(logger),
	)
}

func openCatalog(cfg *config.Config, logger *zap.Logger) (*topics.Catalog, error) {
	store, err := topics.NewSQLiteStore(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize topic storage: %w", err)
	}
	idx, err := topics.NewNameIndex(cfg.Topics.FuzzyThreshold)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize topic index: %w", err)
	}
	return topics.NewCatalog(store, idx, logger), nil
}

func printUsage() {
	fmt.Println(`semlight - Semantic topic highlighting

Usage:
  semlight server [flags]                     Start the HTTP server
  semlight score [flags] <topic> [passage...] Score passages against a topic
  semlight highlight [flags] <topic> <file>   Highlight topic-related passages of an HTML page
  semlight topics <search|list|import|export|generate>
                                              Manage the topic catalog
  semlight version                            Show version
  semlight help                               Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/semlight/config.yaml)
  --debug            Enable debug logging

Score Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to load the model in-process.
  --file string      Score the passages of a document instead of arguments/stdin
  --threshold float  Mark passages at or above this score (default from config, 0.3)
  --output string    Output format: text, compact or json (default: text)

Highlight Flags:
  --server string    Server URL (default: http://localhost:8080). Use --server "" to load the model in-process.
  --out string       Write the result to a file instead of stdout
  --output string    html or json (default: html)

Examples:
  semlight server
  semlight score "space exploration" "The rocket reached orbit" "Bread needs yeast"
  semlight score --server "" --file notes.pdf "machine learning"
  semlight highlight --out marked.html "climate science" article.html
  semlight topics search astronmy
  semlight topics import topics.json
  semlight topics generate --topics base_topics.txt --candidates vocabulary.txt`)
}
