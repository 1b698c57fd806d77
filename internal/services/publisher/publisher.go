package publisher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/postflowhq/carousel-service/internal/events"
	"github.com/postflowhq/carousel-service/internal/instagram"
	"github.com/postflowhq/carousel-service/internal/storage"
	"github.com/postflowhq/carousel-service/internal/types"
)

// Renderer produces the ordered slide images for one post.
type Renderer interface {
	Render(title string, slides []string, cta string) ([]string, error)
}

// Orchestrator drives the platform's three-phase publish protocol.
type Orchestrator interface {
	Publish(ctx context.Context, caption string, mediaURLs []string, enhancedCaption string) (*instagram.PublishResult, error)
}

// Service runs the full pipeline for one post: render the slides, host
// them, then hand the URLs to the orchestrator. Everything is sequential;
// image order is slide order all the way through.
type Service struct {
	renderer     Renderer
	uploader     storage.Uploader
	orchestrator Orchestrator
	events       events.Publisher
}

// NewService wires the pipeline collaborators.
func NewService(renderer Renderer, uploader storage.Uploader, orchestrator Orchestrator, events events.Publisher) *Service {
	return &Service{
		renderer:     renderer,
		uploader:     uploader,
		orchestrator: orchestrator,
		events:       events,
	}
}

// PublishContent renders, uploads and publishes one post.
func (s *Service) PublishContent(ctx context.Context, content types.PostContent) (*instagram.PublishResult, error) {
	start := time.Now()
	s.events.PublishStarted(content.Title, len(content.Slides))

	paths, err := s.renderer.Render(content.Title, content.Slides, content.CTA)
	if err != nil {
		s.events.PublishFailed(content.Title, err)
		return nil, fmt.Errorf("rendering slides: %w", err)
	}
	s.events.PublishProgress("rendered", fmt.Sprintf("%d images", len(paths)))

	mediaURLs := make([]string, 0, len(paths))
	for i, path := range paths {
		url, err := s.uploader.Store(ctx, path)
		if err != nil {
			s.events.PublishFailed(content.Title, err)
			return nil, fmt.Errorf("uploading image %d of %d: %w", i+1, len(paths), err)
		}
		mediaURLs = append(mediaURLs, url)
	}
	s.events.PublishProgress("uploaded", fmt.Sprintf("%d images", len(mediaURLs)))

	result, err := s.orchestrator.Publish(ctx, content.Caption, mediaURLs, content.EnhancedCaption)
	if err != nil {
		s.events.PublishFailed(content.Title, err)
		return nil, err
	}

	s.events.PublishSucceeded(result.PostID, result.ContainerIDs, result.CarouselContainerID)
	slog.Info("publish pipeline completed",
		slog.String("title", content.Title),
		slog.String("post_id", result.PostID),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()))

	return result, nil
}
