package minio

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/postflowhq/carousel-service/internal/config"
)

// Uploader stores rendered slide images in a MinIO bucket and hands out
// direct public URLs for them.
type Uploader struct {
	client     *minio.Client
	bucketName string
	useSSL     bool
}

// NewUploader creates the MinIO client and makes sure the bucket exists.
func NewUploader(cfg config.MinIO) (*Uploader, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	uploader := &Uploader{
		client:     client,
		bucketName: cfg.BucketName,
		useSSL:     cfg.UseSSL,
	}

	if err := uploader.ensureBucket(); err != nil {
		return nil, fmt.Errorf("failed to ensure bucket exists: %w", err)
	}

	return uploader, nil
}

// ensureBucket creates the bucket if it doesn't exist
func (u *Uploader) ensureBucket() error {
	ctx := context.Background()

	exists, err := u.client.BucketExists(ctx, u.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check if bucket exists: %w", err)
	}

	if !exists {
		err = u.client.MakeBucket(ctx, u.bucketName, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// Store uploads one image and returns its public bucket URL.
func (u *Uploader) Store(ctx context.Context, localPath string) (string, error) {
	ext := filepath.Ext(localPath)
	objectKey := fmt.Sprintf("carousels/%s%s", uuid.New().String(), ext)

	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "image/png"
	}

	_, err := u.client.FPutObject(ctx, u.bucketName, objectKey, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", localPath, err)
	}

	return u.mediaURL(objectKey), nil
}

// mediaURL builds the direct public URL for an uploaded object. The bucket
// is expected to allow anonymous reads so the platform can fetch the image.
func (u *Uploader) mediaURL(objectKey string) string {
	scheme := "http"
	if u.useSSL {
		scheme = "https"
	}

	endpoint := strings.TrimPrefix(u.client.EndpointURL().String(), scheme+"://")
	return fmt.Sprintf("%s://%s/%s/%s", scheme, endpoint, u.bucketName, objectKey)
}
