package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/postflowhq/carousel-service/internal/config"
	"github.com/postflowhq/carousel-service/internal/events"
	"github.com/postflowhq/carousel-service/internal/instagram"
	"github.com/postflowhq/carousel-service/internal/render"
	"github.com/postflowhq/carousel-service/internal/schedule"
	"github.com/postflowhq/carousel-service/internal/services/publisher"
	"github.com/postflowhq/carousel-service/internal/storage"
	"github.com/postflowhq/carousel-service/internal/storage/local"
	minioStorage "github.com/postflowhq/carousel-service/internal/storage/minio"
)

type SchedulerWorker struct {
	store    *schedule.Store
	pipeline *publisher.Service
	interval time.Duration
	logger   *slog.Logger
}

func NewSchedulerWorker(store *schedule.Store, pipeline *publisher.Service, interval time.Duration) *SchedulerWorker {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	return &SchedulerWorker{
		store:    store,
		pipeline: pipeline,
		interval: interval,
		logger:   logger,
	}
}

func (sw *SchedulerWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	sw.logger.Info("Scheduler worker started",
		"interval", sw.interval.String())

	// Run once immediately on startup
	sw.processDueItem(ctx)

	for {
		select {
		case <-ctx.Done():
			sw.logger.Info("Scheduler worker shutting down")
			return
		case <-ticker.C:
			sw.processDueItem(ctx)
		}
	}
}

// processDueItem publishes the item due this hour, if any. A failed publish
// is logged and the item stays pending, so the next matching tick within the
// same hour retries it.
func (sw *SchedulerWorker) processDueItem(ctx context.Context) {
	item, ok := sw.store.NextDue(time.Now())
	if !ok {
		return
	}

	startTime := time.Now()

	sw.logger.Info("Publishing scheduled item",
		"item_id", item.ID,
		"title", item.Content.Title)

	result, err := sw.pipeline.PublishContent(ctx, item.Content)
	if err != nil {
		sw.logger.Error("Failed to publish scheduled item",
			"item_id", item.ID,
			"error", err.Error(),
			"duration_ms", time.Since(startTime).Milliseconds())
		return
	}

	if err := sw.store.MarkPublished(item.ID, result.PostID); err != nil {
		sw.logger.Error("Published but failed to update the calendar",
			"item_id", item.ID,
			"post_id", result.PostID,
			"error", err.Error())
		return
	}

	sw.logger.Info("Scheduled item published",
		"item_id", item.ID,
		"post_id", result.PostID,
		"duration_ms", time.Since(startTime).Milliseconds())
}

func main() {
	// Load config
	cfg := config.MustLoad()

	store, err := schedule.Open(cfg.Schedule.CalendarPath)
	if err != nil {
		log.Fatal("Failed to open content calendar:", err)
	}
	defer store.Close()
	slog.Info("Content calendar loaded", slog.String("path", cfg.Schedule.CalendarPath))

	localUploader, err := local.NewUploader(cfg.Render.StaticDir, cfg.HTTPServer.PublicBaseURL)
	if err != nil {
		log.Fatal("Failed to initialize local storage:", err)
	}

	var uploader storage.Uploader = localUploader
	if cfg.MinIO.Endpoint != "" {
		minioUploader, err := minioStorage.NewUploader(cfg.MinIO)
		if err != nil {
			log.Fatal("Failed to initialize MinIO storage:", err)
		}
		uploader = storage.NewFallback(minioUploader, localUploader)
	}

	renderer, err := render.NewRenderer(cfg.Render)
	if err != nil {
		log.Fatal("Failed to initialize renderer:", err)
	}

	pipeline := publisher.NewService(renderer, uploader, instagram.NewClient(cfg.Instagram), events.NoopPublisher{})

	worker := NewSchedulerWorker(store, pipeline, cfg.Worker.Interval)

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("Received shutdown signal")
		cancel()
	}()

	// Start the worker
	worker.Start(ctx)

	slog.Info("Scheduler worker stopped")
}
