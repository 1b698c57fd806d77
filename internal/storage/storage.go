package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Uploader turns a local image file into a publicly fetchable URL. The URL
// must stay valid at least until the publish protocol finishes, since the
// platform fetches the image when the media container is created.
type Uploader interface {
	Store(ctx context.Context, localPath string) (string, error)
}

// Fallback prefers the primary uploader and falls back to the secondary when
// the primary fails. Only a failure of both is surfaced.
type Fallback struct {
	primary   Uploader
	secondary Uploader
}

// NewFallback wires a primary uploader with a local fallback.
func NewFallback(primary, secondary Uploader) *Fallback {
	return &Fallback{
		primary:   primary,
		secondary: secondary,
	}
}

// Store implements Uploader.
func (f *Fallback) Store(ctx context.Context, localPath string) (string, error) {
	url, primaryErr := f.primary.Store(ctx, localPath)
	if primaryErr == nil {
		return url, nil
	}

	slog.Warn("primary upload failed, falling back to local storage",
		slog.String("path", localPath),
		slog.String("error", primaryErr.Error()))

	url, secondaryErr := f.secondary.Store(ctx, localPath)
	if secondaryErr != nil {
		return "", fmt.Errorf("both uploads failed: primary: %v, fallback: %w", primaryErr, secondaryErr)
	}

	return url, nil
}
