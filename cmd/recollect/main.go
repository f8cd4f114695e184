// cmd/recollect is the command-line exerciser for the recollect knowledge
// engine. It wires the configured storage backend and LLM provider through
// the ingest pipeline and the hybrid search resolver.
//
// Subcommands:
//
//	recollect ingest -owner <id> [-context work|personal|family] <content...>
//	recollect ask    -owner <id> [-context ...] [-limit n] <question...>
//	recollect tasks  -owner <id> [-context ...]
//	recollect done   -owner <id> -id <task-id>
//	recollect patterns -owner <id> [-category c]
//	recollect observe  -owner <id> -category c [-confidence x] <pattern...>
//
// Configuration comes from RECOLLECT_* environment variables, optionally
// overlaid with a YAML file named by RECOLLECT_CONFIG. All logging goes to
// stderr; stdout carries only command output.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"

	"github.com/recollect-ai/recollect/internal/config"
	"github.com/recollect-ai/recollect/internal/engine"
	"github.com/recollect-ai/recollect/internal/llm"
	"github.com/recollect-ai/recollect/internal/storage"
	"github.com/recollect-ai/recollect/internal/storage/postgres"
	"github.com/recollect-ai/recollect/internal/storage/sqlite"
	"github.com/recollect-ai/recollect/pkg/types"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "recollect: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)

	store, err := openStore(cfg)
	if err != nil {
		logger.Fatal("failed to open store", "engine", cfg.Storage.StorageEngine, "err", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	app, err := newApp(store, cfg, logger)
	if err != nil {
		logger.Fatal("failed to wire engine", "err", err)
	}

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "ingest":
		err = app.runIngest(ctx, args)
	case "ask":
		err = app.runAsk(ctx, args)
	case "tasks":
		err = app.runTasks(ctx, args)
	case "done":
		err = app.runDone(ctx, args)
	case "patterns":
		err = app.runPatterns(ctx, args)
	case "observe":
		err = app.runObserve(ctx, args)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal(cmd+" failed", "err", err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: recollect <ingest|ask|tasks|done|patterns> [flags] [text...]")
}

// newLogger builds the stderr logger from the logging config. An unknown
// level falls back to info.
func newLogger(cfg config.LoggingConfig) *charmlog.Logger {
	level, err := charmlog.ParseLevel(cfg.Level)
	if err != nil {
		level = charmlog.InfoLevel
	}
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "recollect",
	})
	if strings.EqualFold(cfg.Format, "json") {
		logger.SetFormatter(charmlog.JSONFormatter)
	}
	return logger
}

// openStore opens the configured storage backend.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.StorageEngine {
	case "postgres":
		return postgres.New(cfg.Storage.PostgresDSN)
	default:
		return sqlite.New(cfg.Storage.DataPath)
	}
}

// app bundles the wired engine components behind the subcommands.
type app struct {
	store        storage.Store
	pipeline     *engine.Pipeline
	resolver     *engine.HybridResolver
	consolidator *engine.Consolidator
	logger       *charmlog.Logger
}

func newApp(store storage.Store, cfg *config.Config, logger *charmlog.Logger) (*app, error) {
	generator, err := llm.NewTextGenerator(cfg.LLM)
	if err != nil {
		return nil, err
	}
	embedder, err := llm.NewEmbeddingGenerator(cfg.LLM)
	if err != nil {
		return nil, err
	}

	classifier := engine.NewLLMClassifier(generator)
	metadata := engine.NewLLMMetadataExtractor(generator, logger)
	profile := engine.NewLLMProfileExtractor(generator)
	search := engine.NewSearchEngine(store, store, embedder, cfg.Search, logger)

	return &app{
		store:        store,
		pipeline:     engine.NewPipeline(store, classifier, metadata, profile, embedder, logger),
		resolver:     engine.NewHybridResolver(store, search, logger),
		consolidator: engine.NewConsolidator(store, cfg.Patterns, logger),
		logger:       logger,
	}, nil
}

func (a *app) runIngest(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	owner := fs.String("owner", "", "owner ID (required)")
	lifeContext := fs.String("context", "", "life context: work, personal, or family")
	sourceType := fs.String("source-type", "cli", "where the content came from")
	sourceID := fs.String("source-id", "", "identifier of the source message")
	if err := fs.Parse(args); err != nil {
		return err
	}

	content := strings.Join(fs.Args(), " ")
	res, err := a.pipeline.Ingest(ctx, engine.IngestRequest{
		OwnerID:    *owner,
		Content:    content,
		Context:    types.Context(*lifeContext),
		SourceType: *sourceType,
		SourceID:   *sourceID,
	})
	if err != nil {
		return err
	}

	fmt.Printf("classified as %s (confidence %.2f)\n", res.Classification.Kind, res.Classification.Confidence)
	if res.Profile != nil {
		fmt.Printf("profile updated: %s\n", strings.Join(res.UpdatedFields, ", "))
	}
	if res.Memory != nil {
		fmt.Printf("memory %s stored (%s, importance %d)\n", res.Memory.ID, res.Memory.MemoryType, res.Memory.Importance)
	}
	if res.Task != nil {
		fmt.Printf("task %s scheduled for %s\n", res.Task.ID, res.Task.DueDate.Format(time.RFC1123))
	}
	return nil
}

func (a *app) runAsk(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	owner := fs.String("owner", "", "owner ID (required)")
	lifeContext := fs.String("context", "", "life context filter")
	limit := fs.Int("limit", 0, "maximum results (0 = configured default)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	results, err := a.resolver.Resolve(ctx, engine.SearchRequest{
		OwnerID: *owner,
		Query:   strings.Join(fs.Args(), " "),
		Context: types.Context(*lifeContext),
		Limit:   *limit,
	})
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no results")
		return nil
	}

	for i, r := range results {
		switch r.Source {
		case engine.SourceProfile:
			fmt.Printf("%d. [profile] %s = %s\n", i+1, r.FieldPath, r.Answer)
		case engine.SourceTasks:
			due := "no due date"
			if r.Task.DueDate != nil {
				due = r.Task.DueDate.Format(time.RFC1123)
			}
			fmt.Printf("%d. [task] %s (%s)\n", i+1, r.Task.Title, due)
		default:
			fmt.Printf("%d. [memory %.2f] %s\n", i+1, r.Score, r.Memory.Summary)
		}
	}
	return nil
}

func (a *app) runTasks(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("tasks", flag.ExitOnError)
	owner := fs.String("owner", "", "owner ID (required)")
	lifeContext := fs.String("context", "", "life context filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	tasks, err := a.store.QueryTasks(ctx, storage.TaskQuery{
		OwnerID: *owner,
		Context: types.Context(*lifeContext),
		Status:  types.TaskStatusPending,
	})
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("no pending tasks")
		return nil
	}
	for _, t := range tasks {
		due := "no due date"
		if t.DueDate != nil {
			due = t.DueDate.Format(time.RFC1123)
		}
		fmt.Printf("%s  %s  (%s)\n", t.ID, t.Title, due)
	}
	return nil
}

func (a *app) runDone(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("done", flag.ExitOnError)
	owner := fs.String("owner", "", "owner ID (required)")
	id := fs.String("id", "", "task ID (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := a.store.CompleteTask(ctx, *owner, *id); err != nil {
		return err
	}
	fmt.Printf("task %s completed\n", *id)
	return nil
}

func (a *app) runPatterns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("patterns", flag.ExitOnError)
	owner := fs.String("owner", "", "owner ID (required)")
	category := fs.String("category", "", "pattern category filter")
	if err := fs.Parse(args); err != nil {
		return err
	}

	patterns, err := a.store.ListActivePatterns(ctx, storage.PatternQuery{
		OwnerID:  *owner,
		Category: *category,
	})
	if err != nil {
		return err
	}
	if len(patterns) == 0 {
		fmt.Println("no active patterns")
		return nil
	}
	for _, p := range patterns {
		fmt.Printf("%.2f  [%s] %s  (%d observations)\n", p.Confidence, p.Category, p.Pattern, len(p.Evidence))
	}
	return nil
}

func (a *app) runObserve(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("observe", flag.ExitOnError)
	owner := fs.String("owner", "", "owner ID (required)")
	category := fs.String("category", "", "pattern category (required)")
	patternType := fs.String("type", "preference", "pattern type")
	confidence := fs.Float64("confidence", 0.5, "observation confidence (0..1)")
	evidence := fs.String("evidence", "", "memory or task ID backing the observation")
	lifeContext := fs.String("context", "", "life context the pattern applies to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	pattern, created, err := a.consolidator.Observe(ctx, engine.Observation{
		OwnerID:     *owner,
		PatternType: *patternType,
		Category:    *category,
		Pattern:     strings.Join(fs.Args(), " "),
		Confidence:  *confidence,
		EvidenceID:  *evidence,
		Context:     types.Context(*lifeContext),
	})
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("pattern %s created (confidence %.2f)\n", pattern.ID, pattern.Confidence)
	} else {
		fmt.Printf("pattern %s reinforced (confidence %.2f)\n", pattern.ID, pattern.Confidence)
	}
	return nil
}
