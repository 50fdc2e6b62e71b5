package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bradykim7/auchan-crawler/internal/crawler"
	"github.com/bradykim7/auchan-crawler/internal/models"
	"github.com/bradykim7/auchan-crawler/internal/notify"
	"github.com/bradykim7/auchan-crawler/internal/output"
	"github.com/bradykim7/auchan-crawler/internal/storage"
	"github.com/bradykim7/auchan-crawler/pkg/config"
	"github.com/bradykim7/auchan-crawler/pkg/logger"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	level := zapcore.InfoLevel
	if cfg.IsDevelopment {
		level = zapcore.DebugLevel
	}
	log := logger.New("auchan", logger.Options{Dir: cfg.LogDir, Level: level}).Zap()

	// Create context that will be canceled on interrupt
	ctx, cancel := context.WithCancel(context.Background())

	// Handle graceful shutdown
	go func() {
		sc := make(chan os.Signal, 1)
		signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM)
		<-sc
		log.Info("Received shutdown signal, stopping crawl...")
		cancel()
	}()

	err = run(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Error("Crawl failed", zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}

	log.Info("Crawl finished successfully")
	_ = log.Sync()
}

// run crawls the catalog and delivers the result to every configured sink.
// The JSON file is written even when the crawl fails part way.
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	started := time.Now()

	opts, err := crawler.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}

	c, err := crawler.New(opts, log)
	if err != nil {
		return fmt.Errorf("failed to initialize crawler: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			log.Error("Error closing crawler", zap.Error(err))
		}
	}()

	products, crawlErr := c.Run(ctx)
	stats := c.Stats()
	log.Info("Products collected",
		zap.Int("total", len(products)),
		zap.Int("pages", stats.PagesFetched),
		zap.Int("brand_fallbacks", stats.BrandFallbacks))

	errs := []error{crawlErr}

	if err := output.WriteJSON(cfg.OutputPath, products); err != nil {
		errs = append(errs, fmt.Errorf("failed to write output: %w", err))
	} else {
		log.Info("Output written", zap.String("path", cfg.OutputPath))

		if cfg.S3Bucket != "" {
			errs = append(errs, uploadOutput(ctx, cfg, log))
		}
	}

	if cfg.MongoDBURI != "" {
		errs = append(errs, saveProducts(ctx, cfg, log, products))
	}

	if cfg.DiscordToken != "" {
		regions := make([]string, 0, len(cfg.Regions))
		for _, r := range cfg.Regions {
			regions = append(regions, r.Name)
		}
		errs = append(errs, sendSummary(cfg, log, notify.RunSummary{
			CatalogURL:     cfg.CatalogURL,
			Regions:        regions,
			Products:       products,
			PagesFetched:   stats.PagesFetched,
			BrandFallbacks: stats.BrandFallbacks,
			OutputPath:     cfg.OutputPath,
			Duration:       time.Since(started),
			Err:            crawlErr,
		}))
	}

	return errors.Join(errs...)
}

func uploadOutput(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	uploader, err := output.NewS3Uploader(ctx, cfg.AWSRegion, cfg.S3Bucket, log)
	if err != nil {
		return err
	}
	return uploader.UploadFile(ctx, cfg.OutputPath, cfg.S3Key)
}

func saveProducts(ctx context.Context, cfg *config.Config, log *zap.Logger, products []models.Product) error {
	db, err := storage.NewMongoDB(ctx, cfg.MongoDBURI, cfg.MongoDBDatabase, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Disconnect(); err != nil {
			log.Error("Error disconnecting from MongoDB", zap.Error(err))
		}
	}()

	repo := storage.NewProductRepository(db.Collection(storage.ProductsCollection), log)
	if err := repo.EnsureIndexes(ctx); err != nil {
		log.Warn("Failed to set up database indices", zap.Error(err))
	}
	_, err = repo.SaveAll(ctx, products)
	return err
}

// sendSummary uses its own context so a cancelled crawl is still reported.
func sendSummary(cfg *config.Config, log *zap.Logger, summary notify.RunSummary) error {
	notifier, err := notify.NewDiscordNotifier(cfg.DiscordToken, cfg.ProductChannelID, log)
	if err != nil {
		return err
	}
	defer notifier.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return notifier.NotifyRun(ctx, summary)
}
