package instagram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// PublishResult is the terminal record of one carousel publish.
// Success implies PostID is set. Container ids are returned for diagnostics:
// a failed publish can leave orphaned containers on the platform side and
// there is no rollback for them.
type PublishResult struct {
	Success             bool     `json:"success"`
	PostID              string   `json:"post_id,omitempty"`
	ContainerIDs        []string `json:"container_ids"`
	CarouselContainerID string   `json:"carousel_container_id"`
	// Truncated is set when the input exceeded MaxCarouselItems and the
	// trailing images were dropped.
	Truncated bool `json:"truncated,omitempty"`
}

// Publish runs the three-phase carousel protocol: one media container per
// image, a carousel container grouping them, then the publish call. Phases
// run strictly in order and phase 1 creates containers in input order, since
// that order is the slide order viewers see.
func (c *Client) Publish(ctx context.Context, caption string, mediaURLs []string, enhancedCaption string) (*PublishResult, error) {
	if c.accessToken == "" || c.accountID == "" {
		return nil, ErrMissingCredentials
	}
	if len(mediaURLs) == 0 {
		return nil, ErrNoImages
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	truncated := false
	if len(mediaURLs) > MaxCarouselItems {
		slog.Warn("carousel exceeds platform limit, truncating",
			slog.Int("given", len(mediaURLs)),
			slog.Int("limit", MaxCarouselItems))
		mediaURLs = mediaURLs[:MaxCarouselItems]
		truncated = true
	}

	containerIDs, err := c.createItemContainers(ctx, mediaURLs)
	if err != nil {
		return nil, err
	}

	effectiveCaption := caption
	if enhancedCaption != "" {
		effectiveCaption = enhancedCaption
	}

	carouselID, err := c.createCarouselContainer(ctx, containerIDs, effectiveCaption)
	if err != nil {
		return nil, err
	}

	postID, err := c.publishCarousel(ctx, carouselID)
	if err != nil {
		return nil, err
	}

	slog.Info("carousel published",
		slog.String("post_id", postID),
		slog.Int("images", len(containerIDs)))

	return &PublishResult{
		Success:             true,
		PostID:              postID,
		ContainerIDs:        containerIDs,
		CarouselContainerID: carouselID,
		Truncated:           truncated,
	}, nil
}

// createItemContainers runs phase 1: one container per image, strictly
// sequential, with a fixed delay between consecutive calls (not before the
// first). Any single failure aborts the whole publish; a carousel built from
// a subset of the images would silently reorder the slides.
func (c *Client) createItemContainers(ctx context.Context, mediaURLs []string) ([]string, error) {
	containerIDs := make([]string, 0, len(mediaURLs))

	for i, url := range mediaURLs {
		if i > 0 {
			if err := c.wait(ctx, c.containerDelay); err != nil {
				return nil, err
			}
		}

		id, err := c.post(ctx, fmt.Sprintf("/%s/media", c.accountID), map[string]string{
			"image_url":        url,
			"is_carousel_item": "true",
		})
		if err != nil {
			return nil, fmt.Errorf("creating media container for image %d of %d: %w", i+1, len(mediaURLs), err)
		}

		containerIDs = append(containerIDs, id)
	}

	if len(containerIDs) == 0 {
		return nil, fmt.Errorf("no media containers were created")
	}

	return containerIDs, nil
}

// createCarouselContainer runs phase 2: a single container of CAROUSEL type
// referencing all phase-1 ids in order. No retry at this phase.
func (c *Client) createCarouselContainer(ctx context.Context, containerIDs []string, caption string) (string, error) {
	id, err := c.post(ctx, fmt.Sprintf("/%s/media", c.accountID), map[string]string{
		"media_type": "CAROUSEL",
		"children":   strings.Join(containerIDs, ","),
		"caption":    caption,
	})
	if err != nil {
		return "", fmt.Errorf("creating carousel container: %w", err)
	}

	return id, nil
}

// publishCarousel runs phase 3 as a bounded retry loop. The platform needs
// processing time after the carousel container is created, so a delay is
// observed before every attempt, including the first. Only transient
// failures are retried; the retry delay grows geometrically.
func (c *Client) publishCarousel(ctx context.Context, carouselID string) (string, error) {
	delay := c.publishDelay
	retryDelay := c.initialRetryDelay

	var lastErr error
	for attempt := 1; attempt <= c.maxPublishRetries+1; attempt++ {
		if err := c.wait(ctx, delay); err != nil {
			return "", err
		}

		postID, err := c.post(ctx, fmt.Sprintf("/%s/media_publish", c.accountID), map[string]string{
			"creation_id": carouselID,
		})
		if err == nil {
			return postID, nil
		}

		if !isTransient(err) {
			return "", fmt.Errorf("publishing carousel: %w", err)
		}

		slog.Warn("transient publish failure, will retry",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()))

		lastErr = err
		delay = retryDelay
		retryDelay = scaleDelay(retryDelay, c.backoffFactor)
	}

	return "", fmt.Errorf("publishing carousel: retries exhausted after %d attempts: %w", c.maxPublishRetries+1, lastErr)
}
