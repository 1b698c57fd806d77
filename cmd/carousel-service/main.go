package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/postflowhq/carousel-service/internal/config"
	"github.com/postflowhq/carousel-service/internal/events"
	calendarHandler "github.com/postflowhq/carousel-service/internal/http/handlers/calendar"
	publishHandler "github.com/postflowhq/carousel-service/internal/http/handlers/publish"
	wsHandler "github.com/postflowhq/carousel-service/internal/http/handlers/websocket"
	"github.com/postflowhq/carousel-service/internal/http/middleware"
	"github.com/postflowhq/carousel-service/internal/instagram"
	"github.com/postflowhq/carousel-service/internal/ratelimit"
	"github.com/postflowhq/carousel-service/internal/render"
	"github.com/postflowhq/carousel-service/internal/schedule"
	"github.com/postflowhq/carousel-service/internal/services/publisher"
	"github.com/postflowhq/carousel-service/internal/storage"
	"github.com/postflowhq/carousel-service/internal/storage/local"
	minioStorage "github.com/postflowhq/carousel-service/internal/storage/minio"
	"github.com/postflowhq/carousel-service/internal/websocket"
)

func main() {
	// load config
	cfg := config.MustLoad()

	// schedule store setup
	store, err := schedule.Open(cfg.Schedule.CalendarPath)
	if err != nil {
		log.Fatal("Failed to open content calendar:", err)
	}
	defer store.Close()
	slog.Info("Content calendar loaded", slog.String("path", cfg.Schedule.CalendarPath))

	// image hosting: prefer MinIO, fall back to locally served files
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
		slog.Info("Connected to MinIO", slog.String("endpoint", cfg.MinIO.Endpoint))
	}

	renderer, err := render.NewRenderer(cfg.Render)
	if err != nil {
		log.Fatal("Failed to initialize renderer:", err)
	}

	igClient := instagram.NewClient(cfg.Instagram)

	// websocket hub for publish progress events
	hub := websocket.NewHub()
	go hub.Run()

	pipeline := publisher.NewService(renderer, uploader, igClient, events.NewEventPublisher(hub))

	// redis-backed per-account publish limiter
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Address,
		DB:   cfg.Redis.DB,
	})
	limiter := ratelimit.NewPublishLimiter(redisClient, cfg.Instagram.PublishesPerHour, cfg.Instagram.PublishesPerHour)

	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	publishLimit := middleware.PublishRateLimit(limiter, cfg.Instagram.AccountID, cfg.Instagram.PublishesPerHour)

	// setup server
	router := http.NewServeMux()

	router.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	router.Handle("POST /publish", auth(publishLimit(publishHandler.Carousel(igClient))))
	router.Handle("POST /publish/content", auth(publishLimit(publishHandler.Content(pipeline))))
	router.Handle("GET /calendar", auth(calendarHandler.List(store)))
	router.Handle("POST /calendar", auth(calendarHandler.Add(store)))
	router.HandleFunc("GET /ws", wsHandler.Handler(hub, cfg.JWTSecret))

	// fallback images are served from here
	router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.Render.StaticDir))))

	router.Handle("GET /swagger/", httpSwagger.WrapHandler)

	server := http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: router,
	}

	log.Println("server started on", cfg.HTTPServer.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = server.Shutdown(ctx)
	if err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
		return
	}

	slog.Info("Server stopped")
}
