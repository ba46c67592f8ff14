package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/semlight/internal/cli"
	"github.com/hyperjump/semlight/internal/config"
	"github.com/hyperjump/semlight/internal/topics"
	"go.uber.org/zap"
)

func runTopics() {
	if len(os.Args) < 3 {
		printTopicsUsage()
		os.Exit(1)
	}
	sub := os.Args[2]
	args := reorderArgs(os.Args[3:])
	var err error
	switch sub {
	case "search":
		err = runTopicsSearch(args)
	case "list":
		err = runTopicsList(args)
	case "import":
		err = runTopicsImport(args)
	case "export":
		err = runTopicsExport(args)
	case "generate":
		err = runTopicsGenerate(args)
	case "help", "--help", "-h":
		printTopicsUsage()
		return
	default:
		fmt.Printf("Unknown topics command: %s\n", sub)
		printTopicsUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Printf("topics %s: %v\n", sub, err)
		os.Exit(1)
	}
}

// topicsFlags registers the flags shared by every topics subcommand.
func topicsFlags(name string) (*flag.FlagSet, *string, *string, *bool) {
	fs := flag.NewFlagSet("topics "+name, flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	output := fs.String("output", "text", "output format: text, compact or json")
	debug := fs.Bool("debug", false, "enable debug logging")
	return fs, configPath, output, debug
}

// withCatalog opens the catalog, runs fn and closes it.
func withCatalog(configPath string, debug bool, fn func(ctx context.Context, cfg *config.Config, c *topics.Catalog, logger *zap.Logger) error) error {
	cfg, logger := setup(configPath, debug)
	defer logger.Sync()
	catalog, err := openCatalog(cfg, logger)
	if err != nil {
		return err
	}
	defer catalog.Close()
	return fn(context.Background(), cfg, catalog, logger)
}

func runTopicsSearch(args []string) error {
	fs, configPath, output, debug := topicsFlags("search")
	limit := fs.Int("limit", 0, "maximum matches (default from config, 10)")
	_ = fs.Parse(args)
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return fmt.Errorf("usage: semlight topics search [flags] <query>")
	}
	return withCatalog(*configPath, *debug, func(ctx context.Context, cfg *config.Config, c *topics.Catalog, logger *zap.Logger) error {
		if err := c.Refresh(ctx); err != nil {
			return err
		}
		n := *limit
		if n <= 0 {
			n = cfg.Topics.SearchLimit
		}
		matches, err := c.Search(query, n)
		if err != nil {
			return err
		}
		return cli.WriteMatches(os.Stdout, query, matches, format)
	})
}

func runTopicsList(args []string) error {
	fs, configPath, output, debug := topicsFlags("list")
	_ = fs.Parse(args)
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	return withCatalog(*configPath, *debug, func(ctx context.Context, cfg *config.Config, c *topics.Catalog, logger *zap.Logger) error {
		list, err := c.Store().List(ctx)
		if err != nil {
			return err
		}
		return cli.WriteTopics(os.Stdout, list, format)
	})
}

func runTopicsImport(args []string) error {
	fs, configPath, _, debug := topicsFlags("import")
	_ = fs.Parse(args)
	return withCatalog(*configPath, *debug, func(ctx context.Context, cfg *config.Config, c *topics.Catalog, logger *zap.Logger) error {
		path := cfg.Storage.TopicsPath
		if fs.NArg() > 0 {
			path = fs.Arg(0)
		}
		n, err := c.LoadFile(ctx, path)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d topics from %s\n", n, path)
		return nil
	})
}

func runTopicsExport(args []string) error {
	fs, configPath, _, debug := topicsFlags("export")
	_ = fs.Parse(args)
	return withCatalog(*configPath, *debug, func(ctx context.Context, cfg *config.Config, c *topics.Catalog, logger *zap.Logger) error {
		if fs.NArg() == 0 || fs.Arg(0) == "-" {
			return topics.Export(ctx, c.Store(), os.Stdout)
		}
		return exportFile(ctx, c.Store(), fs.Arg(0))
	})
}

func exportFile(ctx context.Context, store topics.Store, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := topics.Export(ctx, store, f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	// Rename so a watching server never reads a half-written file.
	return os.Rename(tmp, path)
}

func runTopicsGenerate(args []string) error {
	fs, configPath, output, debug := topicsFlags("generate")
	topicsFile := fs.String("topics", "", "file with one topic name per line (or pass names as arguments)")
	candidatesFile := fs.String("candidates", "", "file with one candidate keyword per line (required)")
	topK := fs.Int("top-k", 0, "keywords per topic (default from config, 50)")
	cachePath := fs.String("cache", "", "candidate embedding cache (default: keywords.idx next to the database)")
	exportPath := fs.String("export", "-", `write the catalog to this topics.json after generating ("-" = configured topics_path, "" = skip)`)
	_ = fs.Parse(args)
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	if *candidatesFile == "" {
		return fmt.Errorf("--candidates is required")
	}

	names := fs.Args()
	if *topicsFile != "" {
		fromFile, err := topics.ReadLinesFile(*topicsFile)
		if err != nil {
			return err
		}
		names = append(names, fromFile...)
	}
	candidates, err := topics.ReadLinesFile(*candidatesFile)
	if err != nil {
		return err
	}

	return withCatalog(*configPath, *debug, func(ctx context.Context, cfg *config.Config, c *topics.Catalog, logger *zap.Logger) error {
		models, _ := newScoringService(cfg, logger)
		defer models.Close()

		cache := *cachePath
		if cache == "" {
			cache = filepath.Join(filepath.Dir(cfg.Storage.DatabasePath), "keywords.idx")
		}
		k := *topK
		if k <= 0 {
			k = cfg.Topics.KeywordsPerTopic
		}
		gen := topics.NewGenerator(models, c.Store(),
			topics.WithIndexCache(cache),
			topics.WithGeneratorLogger(logger),
		)
		generated, err := gen.Generate(ctx, names, candidates, k)
		if err != nil {
			return err
		}

		dest := *exportPath
		if dest == "-" {
			dest = cfg.Storage.TopicsPath
		}
		if dest != "" {
			if err := exportFile(ctx, c.Store(), dest); err != nil {
				return fmt.Errorf("export catalog: %w", err)
			}
			logger.Info("catalog exported", zap.String("path", dest))
		}
		return cli.WriteTopics(os.Stdout, generated, format)
	})
}

func printTopicsUsage() {
	fmt.Println(`Usage: semlight topics <command> [flags]

Commands:
  search <query>          Find topic names (typo tolerant)
  list                    List topics and their keywords
  import [file]           Replace the catalog with a topics.json file (default: configured topics_path)
  export [file|-]         Write the catalog as topics.json (default: stdout)
  generate [topic...]     Build keyword lists with the embedding model

Common Flags:
  --config string    Config file path
  --output string    text, compact or json (default: text)

Generate Flags:
  --topics string      File with one topic per line
  --candidates string  File with one candidate keyword per line (required)
  --top-k int          Keywords per topic (default: 50)
  --cache string       Candidate embedding cache path
  --export string      Write the catalog to this file afterwards (default: configured topics_path, "" = skip)`)
}
