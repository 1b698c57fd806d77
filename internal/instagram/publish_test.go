package instagram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/postflowhq/carousel-service/internal/config"
)

// graphCall records one request the fake Graph API received.
type graphCall struct {
	Path string
	Form map[string]string
}

// fakeGraph is an httptest-backed Graph API double. The respond function
// decides the outcome of each call; calls are recorded in arrival order.
type fakeGraph struct {
	mu      sync.Mutex
	calls   []graphCall
	respond func(call graphCall, n int) (int, string)
	server  *httptest.Server
}

func newFakeGraph(respond func(call graphCall, n int) (int, string)) *fakeGraph {
	fg := &fakeGraph{respond: respond}
	fg.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		form := make(map[string]string)
		for key := range r.PostForm {
			form[key] = r.PostForm.Get(key)
		}

		call := graphCall{Path: r.URL.Path, Form: form}

		fg.mu.Lock()
		fg.calls = append(fg.calls, call)
		n := len(fg.calls)
		fg.mu.Unlock()

		status, body := fg.respond(call, n)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	return fg
}

func (fg *fakeGraph) Calls() []graphCall {
	fg.mu.Lock()
	defer fg.mu.Unlock()

	calls := make([]graphCall, len(fg.calls))
	copy(calls, fg.calls)
	return calls
}

func (fg *fakeGraph) Close() {
	fg.server.Close()
}

func (c *graphCall) isItemContainer() bool {
	return strings.HasSuffix(c.Path, "/media") && c.Form["is_carousel_item"] == "true"
}

func (c *graphCall) isCarouselContainer() bool {
	return strings.HasSuffix(c.Path, "/media") && c.Form["media_type"] == "CAROUSEL"
}

func (c *graphCall) isPublish() bool {
	return strings.HasSuffix(c.Path, "/media_publish")
}

func apiErrorBody(code int, message string) string {
	return fmt.Sprintf(`{"error":{"message":"%s","type":"OAuthException","code":%d}}`, message, code)
}

// happyResponder answers phase-1 calls with id1, id2, ... then cid and post1.
func happyResponder() func(call graphCall, n int) (int, string) {
	items := 0
	return func(call graphCall, n int) (int, string) {
		switch {
		case call.isPublish():
			return http.StatusOK, `{"id":"post1"}`
		case call.isCarouselContainer():
			return http.StatusOK, `{"id":"cid"}`
		default:
			items++
			return http.StatusOK, fmt.Sprintf(`{"id":"id%d"}`, items)
		}
	}
}

// newTestClient builds a client against the fake server with millisecond
// delays and a wait function that records instead of sleeping.
func newTestClient(fg *fakeGraph, waits *[]time.Duration) *Client {
	client := NewClient(config.Instagram{
		AccessToken:       "test-token",
		AccountID:         "17841400000000000",
		APIBaseURL:        fg.server.URL,
		ContainerDelay:    2 * time.Millisecond,
		PublishDelay:      5 * time.Millisecond,
		MaxPublishRetries: 3,
		InitialRetryDelay: 10 * time.Millisecond,
		BackoffFactor:     2,
	})
	client.wait = func(ctx context.Context, d time.Duration) error {
		*waits = append(*waits, d)
		return ctx.Err()
	}
	return client
}

func TestPublish_HappyPath(t *testing.T) {
	fg := newFakeGraph(happyResponder())
	defer fg.Close()

	var waits []time.Duration
	client := newTestClient(fg, &waits)

	result, err := client.Publish(context.Background(), "Test", []string{"http://img/a", "http://img/b", "http://img/c"}, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if !result.Success {
		t.Fatal("Expected success")
	}
	if result.PostID != "post1" {
		t.Fatalf("Expected post id post1, got %q", result.PostID)
	}
	if result.CarouselContainerID != "cid" {
		t.Fatalf("Expected carousel container cid, got %q", result.CarouselContainerID)
	}
	if len(result.ContainerIDs) != 3 {
		t.Fatalf("Expected 3 container ids, got %d", len(result.ContainerIDs))
	}
	for i, want := range []string{"id1", "id2", "id3"} {
		if result.ContainerIDs[i] != want {
			t.Fatalf("Container id %d: expected %s, got %s", i, want, result.ContainerIDs[i])
		}
	}
	if result.Truncated {
		t.Fatal("Expected no truncation for 3 images")
	}

	calls := fg.Calls()
	if len(calls) != 5 {
		t.Fatalf("Expected 5 calls (3 items + carousel + publish), got %d", len(calls))
	}

	// Phase 1 calls carry the image URLs in input order.
	for i, want := range []string{"http://img/a", "http://img/b", "http://img/c"} {
		if !calls[i].isItemContainer() {
			t.Fatalf("Call %d: expected item container creation, got %+v", i, calls[i])
		}
		if got := calls[i].Form["image_url"]; got != want {
			t.Fatalf("Call %d: expected image_url %s, got %s", i, want, got)
		}
		if calls[i].Form["access_token"] != "test-token" {
			t.Fatalf("Call %d is missing the access token", i)
		}
	}

	// Phase 2 groups the ids in order with the caption.
	if !calls[3].isCarouselContainer() {
		t.Fatalf("Call 3: expected carousel container creation, got %+v", calls[3])
	}
	if got := calls[3].Form["children"]; got != "id1,id2,id3" {
		t.Fatalf("Expected children id1,id2,id3, got %s", got)
	}
	if got := calls[3].Form["caption"]; got != "Test" {
		t.Fatalf("Expected caption Test, got %s", got)
	}

	// Phase 3 publishes the carousel container.
	if !calls[4].isPublish() {
		t.Fatalf("Call 4: expected publish, got %+v", calls[4])
	}
	if got := calls[4].Form["creation_id"]; got != "cid" {
		t.Fatalf("Expected creation_id cid, got %s", got)
	}

	// Delays: between consecutive item calls (not before the first), then
	// one processing delay before the publish attempt.
	expected := []time.Duration{2 * time.Millisecond, 2 * time.Millisecond, 5 * time.Millisecond}
	if len(waits) != len(expected) {
		t.Fatalf("Expected %d delays, got %d: %v", len(expected), len(waits), waits)
	}
	for i, want := range expected {
		if waits[i] != want {
			t.Fatalf("Delay %d: expected %v, got %v", i, want, waits[i])
		}
	}
}

func TestPublish_EnhancedCaptionWins(t *testing.T) {
	fg := newFakeGraph(happyResponder())
	defer fg.Close()

	var waits []time.Duration
	client := newTestClient(fg, &waits)

	_, err := client.Publish(context.Background(), "plain", []string{"http://img/a"}, "enhanced")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	for _, call := range fg.Calls() {
		if call.isCarouselContainer() && call.Form["caption"] != "enhanced" {
			t.Fatalf("Expected enhanced caption, got %q", call.Form["caption"])
		}
	}
}

func TestPublish_TruncatesToTen(t *testing.T) {
	fg := newFakeGraph(happyResponder())
	defer fg.Close()

	var waits []time.Duration
	client := newTestClient(fg, &waits)

	urls := make([]string, 12)
	for i := range urls {
		urls[i] = fmt.Sprintf("http://img/%d", i+1)
	}

	result, err := client.Publish(context.Background(), "Test", urls, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Truncated {
		t.Fatal("Expected the result to be flagged as truncated")
	}
	if len(result.ContainerIDs) != MaxCarouselItems {
		t.Fatalf("Expected %d container ids, got %d", MaxCarouselItems, len(result.ContainerIDs))
	}

	items := 0
	for _, call := range fg.Calls() {
		url := call.Form["image_url"]
		if url == "http://img/11" || url == "http://img/12" {
			t.Fatalf("Image beyond the carousel limit leaked into a call: %s", url)
		}
		if call.isItemContainer() {
			items++
		}
	}
	if items != MaxCarouselItems {
		t.Fatalf("Expected %d item container calls, got %d", MaxCarouselItems, items)
	}
}

func TestPublish_EmptyListIsValidationError(t *testing.T) {
	fg := newFakeGraph(happyResponder())
	defer fg.Close()

	var waits []time.Duration
	client := newTestClient(fg, &waits)

	_, err := client.Publish(context.Background(), "Test", nil, "")
	if !errors.Is(err, ErrNoImages) {
		t.Fatalf("Expected ErrNoImages, got %v", err)
	}
	if len(fg.Calls()) != 0 {
		t.Fatalf("Expected no network calls, got %d", len(fg.Calls()))
	}
}

func TestPublish_MissingCredentials(t *testing.T) {
	fg := newFakeGraph(happyResponder())
	defer fg.Close()

	var waits []time.Duration
	client := newTestClient(fg, &waits)
	client.accessToken = ""

	_, err := client.Publish(context.Background(), "Test", []string{"http://img/a"}, "")
	if !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("Expected ErrMissingCredentials, got %v", err)
	}
	if len(fg.Calls()) != 0 {
		t.Fatalf("Expected no network calls, got %d", len(fg.Calls()))
	}
}

func TestPublish_Phase1FailureAborts(t *testing.T) {
	fg := newFakeGraph(func(call graphCall, n int) (int, string) {
		if n == 2 {
			return http.StatusBadRequest, apiErrorBody(100, "Invalid parameter")
		}
		return http.StatusOK, fmt.Sprintf(`{"id":"id%d"}`, n)
	})
	defer fg.Close()

	var waits []time.Duration
	client := newTestClient(fg, &waits)

	_, err := client.Publish(context.Background(), "Test", []string{"http://img/a", "http://img/b", "http://img/c"}, "")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if !strings.Contains(err.Error(), "image 2 of 3") {
		t.Fatalf("Expected the error to name image 2, got: %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid parameter") {
		t.Fatalf("Expected the platform message to surface, got: %v", err)
	}

	calls := fg.Calls()
	if len(calls) != 2 {
		t.Fatalf("Expected exactly 2 calls before aborting, got %d", len(calls))
	}
	for _, call := range calls {
		if call.isCarouselContainer() || call.isPublish() {
			t.Fatalf("Later phase call made after a phase-1 failure: %+v", call)
		}
	}
}

func TestPublish_Phase2FailureIsTerminal(t *testing.T) {
	fg := newFakeGraph(func(call graphCall, n int) (int, string) {
		if call.isCarouselContainer() {
			return http.StatusInternalServerError, apiErrorBody(100, "Carousel rejected")
		}
		return http.StatusOK, fmt.Sprintf(`{"id":"id%d"}`, n)
	})
	defer fg.Close()

	var waits []time.Duration
	client := newTestClient(fg, &waits)

	_, err := client.Publish(context.Background(), "Test", []string{"http://img/a"}, "")
	if err == nil || !strings.Contains(err.Error(), "creating carousel container") {
		t.Fatalf("Expected a carousel container error, got: %v", err)
	}

	for _, call := range fg.Calls() {
		if call.isPublish() {
			t.Fatal("Publish call made after a phase-2 failure")
		}
	}
}

func TestPublish_TransientFailuresRetryThenSucceed(t *testing.T) {
	publishAttempts := 0
	fg := newFakeGraph(func(call graphCall, n int) (int, string) {
		switch {
		case call.isPublish():
			publishAttempts++
			if publishAttempts <= 3 {
				return http.StatusInternalServerError, apiErrorBody(1, "An unknown error occurred")
			}
			return http.StatusOK, `{"id":"post1"}`
		case call.isCarouselContainer():
			return http.StatusOK, `{"id":"cid"}`
		default:
			return http.StatusOK, `{"id":"id1"}`
		}
	})
	defer fg.Close()

	var waits []time.Duration
	client := newTestClient(fg, &waits)

	result, err := client.Publish(context.Background(), "Test", []string{"http://img/a"}, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !result.Success || result.PostID != "post1" {
		t.Fatalf("Expected a successful result, got %+v", result)
	}
	if publishAttempts != 4 {
		t.Fatalf("Expected 4 publish attempts, got %d", publishAttempts)
	}

	// One image means no container delays: the recorded waits are the
	// before-attempt delays. The inter-attempt delays must strictly grow.
	if len(waits) != 4 {
		t.Fatalf("Expected 4 delays (one per attempt), got %d: %v", len(waits), waits)
	}
	for i := 2; i < len(waits); i++ {
		if waits[i] <= waits[i-1] {
			t.Fatalf("Retry delays are not strictly increasing: %v", waits)
		}
	}
}

func TestPublish_FatalPublishErrorIsNotRetried(t *testing.T) {
	publishAttempts := 0
	fg := newFakeGraph(func(call graphCall, n int) (int, string) {
		switch {
		case call.isPublish():
			publishAttempts++
			return http.StatusBadRequest, apiErrorBody(190, "Invalid OAuth access token")
		case call.isCarouselContainer():
			return http.StatusOK, `{"id":"cid"}`
		default:
			return http.StatusOK, `{"id":"id1"}`
		}
	})
	defer fg.Close()

	var waits []time.Duration
	client := newTestClient(fg, &waits)

	_, err := client.Publish(context.Background(), "Test", []string{"http://img/a"}, "")
	if err == nil || !strings.Contains(err.Error(), "Invalid OAuth access token") {
		t.Fatalf("Expected the platform message to surface, got: %v", err)
	}
	if publishAttempts != 1 {
		t.Fatalf("Expected exactly 1 publish attempt, got %d", publishAttempts)
	}
}

func TestPublish_RetriesExhausted(t *testing.T) {
	publishAttempts := 0
	fg := newFakeGraph(func(call graphCall, n int) (int, string) {
		switch {
		case call.isPublish():
			publishAttempts++
			return http.StatusInternalServerError, apiErrorBody(1, "An unknown error occurred")
		case call.isCarouselContainer():
			return http.StatusOK, `{"id":"cid"}`
		default:
			return http.StatusOK, `{"id":"id1"}`
		}
	})
	defer fg.Close()

	var waits []time.Duration
	client := newTestClient(fg, &waits)
	client.maxPublishRetries = 2

	_, err := client.Publish(context.Background(), "Test", []string{"http://img/a"}, "")
	if err == nil || !strings.Contains(err.Error(), "retries exhausted") {
		t.Fatalf("Expected a retries exhausted error, got: %v", err)
	}
	if publishAttempts != 3 {
		t.Fatalf("Expected 3 publish attempts for 2 retries, got %d", publishAttempts)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"unknown error code", &APIError{Code: 1, Message: "An unknown error occurred"}, true},
		{"service unavailable code", &APIError{Code: 2, Message: "Service temporarily unavailable"}, true},
		{"unknown error message only", &APIError{Code: 500, Message: "Unknown error, please retry"}, true},
		{"auth failure", &APIError{Code: 190, Message: "Invalid OAuth access token"}, false},
		{"wrapped api error", fmt.Errorf("publishing: %w", &APIError{Code: 1, Message: "unknown error"}), true},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isTransient(tc.err); got != tc.want {
				t.Fatalf("isTransient(%v): expected %v, got %v", tc.err, tc.want, got)
			}
		})
	}
}
