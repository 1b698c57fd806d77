package instagram

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/postflowhq/carousel-service/internal/config"
)

// MaxCarouselItems is the platform's hard ceiling on images per carousel.
const MaxCarouselItems = 10

// Client talks to the Instagram Graph API for a single business account.
type Client struct {
	http        *resty.Client
	accessToken string
	accountID   string

	containerDelay    time.Duration
	publishDelay      time.Duration
	initialRetryDelay time.Duration
	maxPublishRetries int
	backoffFactor     float64

	// wait is swapped out in tests to record delays instead of sleeping.
	wait func(ctx context.Context, d time.Duration) error

	// mu serializes publishes: the Graph API rejects concurrent content
	// publishing from one account, so at most one runs at a time.
	mu sync.Mutex
}

// NewClient creates a Graph API client from the instagram config section.
func NewClient(cfg config.Instagram) *Client {
	httpClient := resty.New().
		SetBaseURL(cfg.APIBaseURL).
		SetTimeout(30 * time.Second)

	return &Client{
		http:              httpClient,
		accessToken:       cfg.AccessToken,
		accountID:         cfg.AccountID,
		containerDelay:    cfg.ContainerDelay,
		publishDelay:      cfg.PublishDelay,
		initialRetryDelay: cfg.InitialRetryDelay,
		maxPublishRetries: cfg.MaxPublishRetries,
		backoffFactor:     cfg.BackoffFactor,
		wait:              sleepContext,
	}
}

// sleepContext blocks for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// scaleDelay grows a retry delay by the configured backoff factor.
func scaleDelay(d time.Duration, factor float64) time.Duration {
	return time.Duration(float64(d) * factor)
}

// idResponse is the success body of every Graph API call we make.
type idResponse struct {
	ID string `json:"id"`
}

// post issues one form-encoded Graph API call and returns the created id.
func (c *Client) post(ctx context.Context, path string, form map[string]string) (string, error) {
	form["access_token"] = c.accessToken

	var result idResponse
	var apiErr errorEnvelope

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(&result).
		SetError(&apiErr).
		Post(path)
	if err != nil {
		return "", fmt.Errorf("request to %s failed: %w", path, err)
	}

	if resp.IsError() {
		if apiErr.Err.Message != "" {
			return "", &apiErr.Err
		}
		return "", &APIError{
			Message: fmt.Sprintf("unexpected status %s", resp.Status()),
			Code:    resp.StatusCode(),
		}
	}

	if result.ID == "" {
		return "", fmt.Errorf("response from %s contained no id", path)
	}

	return result.ID, nil
}
