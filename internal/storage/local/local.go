package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Uploader is the filesystem fallback: it copies images into a directory
// served by this service's own HTTP server and builds URLs from the
// configured public base address.
type Uploader struct {
	staticDir string
	baseURL   string
}

// NewUploader creates the static directory if needed.
func NewUploader(staticDir, publicBaseURL string) (*Uploader, error) {
	if err := os.MkdirAll(staticDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create static dir: %w", err)
	}

	return &Uploader{
		staticDir: staticDir,
		baseURL:   strings.TrimSuffix(publicBaseURL, "/"),
	}, nil
}

// Store implements storage.Uploader by copying the file into the served
// directory. Rendered files already carry unique names, so the base name is
// kept as-is.
func (u *Uploader) Store(ctx context.Context, localPath string) (string, error) {
	name := filepath.Base(localPath)

	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer src.Close()

	dst, err := os.Create(filepath.Join(u.staticDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create static copy: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("failed to copy %s: %w", localPath, err)
	}

	return fmt.Sprintf("%s/static/%s", u.baseURL, name), nil
}
