// Command jobscout is a personal CLI that extracts structured data from
// resumes and job descriptions with an LLM and tracks job-board postings.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jobscout/config"
	"jobscout/internal/analyze"
	"jobscout/internal/cache"
	"jobscout/internal/jobstore"
	"jobscout/internal/llm"
	"jobscout/internal/logging"
	"jobscout/internal/storage"
)

func main() {
	var (
		configPath  = flag.String("config", "jobscout.yaml", "path to config file")
		verbose     = flag.Bool("v", false, "verbose logging")
		parseResume = flag.String("parse-resume", "", "extract structured data from a resume text file")
		parseJob    = flag.String("parse-job", "", "extract structured data from a job description text file")
		cacheStats  = flag.Bool("cache-stats", false, "print parse cache statistics")
		cleanup     = flag.Bool("cleanup", false, "remove expired cache entries and aged-out job records")
		check       = flag.Bool("check", false, "probe provider availability")
	)
	flag.Parse()

	logging.Setup(*verbose)

	if err := run(*configPath, *parseResume, *parseJob, *cacheStats, *cleanup, *check); err != nil {
		slog.Error("jobscout failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, parseResume, parseJob string, cacheStats, cleanup, check bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := storage.Open(storage.Config{Path: cfg.Store.Path})
	if err != nil {
		return err
	}
	defer store.Close()

	parseCache, err := openCache(cfg, store)
	if err != nil {
		return err
	}
	defer parseCache.Close()

	jobs, err := jobstore.NewSQLite(store.DB())
	if err != nil {
		return err
	}

	client, err := llm.New(llm.Config{
		Provider: cfg.LLM.Provider,
		BaseURL:  providerBaseURL(cfg),
		Model:    providerModel(cfg),
		APIKey:   cfg.LLM.Cloud.APIKey,
		Retry: llm.RetryPolicy{
			MaxRetries: cfg.LLM.MaxRetries,
			BaseDelay:  cfg.LLM.RetryBaseDelay,
			Multiplier: cfg.LLM.RetryMultiplier,
		},
	})
	if err != nil {
		return err
	}

	analyzer := analyze.New(client, parseCache)

	switch {
	case check:
		return runCheck(ctx, cfg, client)
	case cacheStats:
		return runCacheStats(ctx, parseCache)
	case cleanup:
		return runCleanup(ctx, parseCache, jobs, cfg.Store.RetentionDays)
	case parseResume != "":
		return runParse(ctx, analyzer, parseResume, true)
	case parseJob != "":
		return runParse(ctx, analyzer, parseJob, false)
	default:
		flag.Usage()
		return nil
	}
}

func openCache(cfg *config.Config, store *storage.Store) (cache.Cache, error) {
	switch cfg.Cache.Backend {
	case "redis":
		return cache.NewRedis(cache.RedisConfig{
			URL: cfg.Cache.RedisURL,
			TTL: cfg.Cache.TTL,
		})
	default:
		return cache.NewSQLite(store.DB(), cfg.Cache.TTL)
	}
}

func providerBaseURL(cfg *config.Config) string {
	if cfg.LLM.Provider == "cloud" {
		return cfg.LLM.Cloud.BaseURL
	}
	return cfg.LLM.Local.BaseURL
}

func providerModel(cfg *config.Config) string {
	if cfg.LLM.Provider == "cloud" {
		return cfg.LLM.Cloud.Model
	}
	return cfg.LLM.Local.Model
}

func runCheck(ctx context.Context, cfg *config.Config, client llm.Client) error {
	fmt.Printf("local  (%s): %v\n", cfg.LLM.Local.BaseURL, llm.LocalAvailable(ctx, cfg.LLM.Local.BaseURL))
	fmt.Printf("cloud  (credential): %v\n", llm.CloudAvailable(cfg.LLM.Cloud.APIKey))
	fmt.Printf("active (%s/%s): %v\n", client.ProviderName(), client.ModelName(), client.IsAvailable(ctx))
	return nil
}

func runCacheStats(ctx context.Context, c cache.Cache) error {
	stats, err := c.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("entries: %d\nbytes:   %d\nexpired: %d\n",
		stats.Entries, stats.TotalBytes, stats.ExpiredCount)
	return nil
}

func runCleanup(ctx context.Context, c cache.Cache, jobs jobstore.Store, retentionDays int) error {
	removed, err := c.Cleanup(ctx)
	if err != nil {
		return err
	}
	purged, err := jobs.Purge(ctx, time.Now().AddDate(0, 0, -retentionDays))
	if err != nil {
		return err
	}
	slog.Info("cleanup finished", "cache_removed", removed, "jobs_purged", purged)
	return nil
}

func runParse(ctx context.Context, analyzer *analyze.Analyzer, path string, resume bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	var result *analyze.Result
	if resume {
		_, result, err = analyzer.ParseResume(ctx, string(data))
	} else {
		_, result, err = analyzer.ParseJob(ctx, string(data))
	}
	if err != nil {
		return err
	}

	fmt.Println(string(result.Value))
	slog.Info("parse finished",
		"provider", result.Response.Provider,
		"model", result.Response.Model,
		"from_cache", result.Response.FromCache,
		"tokens", result.Response.Usage.TotalTokens)
	return nil
}
