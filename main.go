package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"avalanche-scraper/config"
	"avalanche-scraper/models"
	"avalanche-scraper/scraper/avalanche"
	"avalanche-scraper/scraper/browser"
	"avalanche-scraper/services"
	"avalanche-scraper/storage"
	"avalanche-scraper/utils"
)

func main() {
	cfg := config.Load()
	logger := utils.NewLogger(cfg.Verbose)

	logger.Info("=== Avalanche Forecast Archive Scraper starting ===")
	logger.Info("Config — retries: %d | rate: %dms | fetch timeout: %ds | season only: %v",
		cfg.MaxRetries, cfg.RateLimitMs, cfg.FetchTimeout, cfg.SeasonOnly)

	requests, err := config.LoadRequests(cfg.RequestsPath)
	if err != nil {
		logger.Error("Failed to load scrape requests: %v", err)
		os.Exit(1)
	}
	logger.Info("Loaded %d scrape request(s) from %s", len(requests), cfg.RequestsPath)

	rawCSV, err := storage.NewCSVWriter(cfg.RawCSVPath)
	if err != nil {
		logger.Error("Failed to create raw CSV writer: %v", err)
		os.Exit(1)
	}
	defer rawCSV.Close()

	cleanCSV, err := storage.NewCSVWriter(cfg.CleanCSVPath)
	if err != nil {
		logger.Error("Failed to create cleaned CSV writer: %v", err)
		os.Exit(1)
	}
	defer cleanCSV.Close()

	problemsCSV, err := storage.NewProblemCSVWriter(cfg.ProblemsCSVPath)
	if err != nil {
		logger.Error("Failed to create problems CSV writer: %v", err)
		os.Exit(1)
	}
	defer problemsCSV.Close()

	pgWriter, err := storage.NewPostgresWriter(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure the database is running: docker compose up -d")
		os.Exit(1)
	}
	defer pgWriter.Close()

	fetcher, err := browser.New(cfg.ChromeBin, logger)
	if err != nil {
		logger.Error("Failed to start browser session: %v", err)
		os.Exit(1)
	}
	defer fetcher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scraper := avalanche.New(cfg, logger, fetcher)

	if cfg.Preflight {
		logger.Info("Running archive layout pre-flight check (%s, %s)", requests[0].Region, cfg.PreflightDate)
		if err := scraper.VerifyArchiveLayout(ctx, requests[0].Region, cfg.PreflightDate); err != nil {
			logger.Error("Pre-flight failed — the archive page scheme may have changed: %v", err)
			os.Exit(1)
		}
	}

	cleaner := services.NewCleaner(logger)
	statsEngine := services.NewStatsEngine(logger)

	succeeded := 0
	for _, req := range requests {
		if err := runRequest(ctx, req, scraper, cleaner, statsEngine, rawCSV, cleanCSV, problemsCSV, pgWriter, logger); err != nil {
			if ctx.Err() != nil {
				logger.Warn("Scrape aborted — discarding partial results for %s", req.Region)
				break
			}
			// One bad request must not block the rest of the batch.
			logger.Error("Request %s failed: %v", req.Region, err)
			continue
		}
		succeeded++
	}

	fmt.Printf("  Done. %d/%d requests completed. Raw CSV → %s | Clean data → %s + PostgreSQL (daily_ratings)\n\n",
		succeeded, len(requests), cfg.RawCSVPath, cfg.CleanCSVPath)
}

func runRequest(
	ctx context.Context,
	req models.ScrapeRequest,
	scraper *avalanche.Scraper,
	cleaner *services.Cleaner,
	statsEngine *services.StatsEngine,
	rawCSV, cleanCSV *storage.CSVWriter,
	problemsCSV *storage.ProblemCSVWriter,
	pgWriter *storage.PostgresWriter,
	logger *utils.Logger,
) error {
	result, err := scraper.Scrape(ctx, req)
	if err != nil {
		return err
	}

	if err := rawCSV.Write(result.Ratings); err != nil {
		logger.Error("Raw CSV write failed for %s: %v", req.Region, err)
	}
	if err := problemsCSV.WriteProblems(result.Problems); err != nil {
		logger.Error("Problems CSV write failed for %s: %v", req.Region, err)
	}

	cleaned, err := cleaner.Clean(result.Ratings, req)
	if err != nil {
		return err
	}

	if err := cleanCSV.Write(cleaned); err != nil {
		logger.Error("Cleaned CSV write failed for %s: %v", req.Region, err)
	}
	if err := pgWriter.Write(cleaned); err != nil {
		logger.Error("PostgreSQL write failed for %s: %v", req.Region, err)
	}

	// Report off the stored table when available; fall back to the
	// in-memory dataset when the fetch fails.
	stored, err := pgWriter.FetchRegion(req.Region)
	if err != nil {
		logger.Error("Failed to fetch %s rows from DB for stats: %v", req.Region, err)
		stored = cleaned
	}

	report := statsEngine.Generate(req.Region, stored, result.Problems)
	statsEngine.Print(report)
	return nil
}
