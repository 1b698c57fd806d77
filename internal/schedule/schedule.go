package schedule

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/postflowhq/carousel-service/internal/types"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Store is the JSON-file-backed content calendar. All mutations are written
// back to disk before they return.
type Store struct {
	mu    sync.Mutex
	path  string
	items []types.ScheduledItem
}

// Open loads the calendar from path. A missing file is an empty calendar,
// not an error, so a fresh deployment starts clean.
func Open(path string) (*Store, error) {
	store := &Store{path: path}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read calendar: %w", err)
	}

	if err := json.Unmarshal(data, &store.items); err != nil {
		return nil, fmt.Errorf("failed to parse calendar %s: %w", path, err)
	}

	return store, nil
}

// Close persists the calendar a final time.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist()
}

// NextDue returns the first pending item whose date and hour match now.
// Scheduling granularity is the hour: minutes on the item are ignored, so
// the worker can tick more often than items are spaced without double
// matching. When several items share an hour the first in store order wins.
func (s *Store) NextDue(now time.Time) (*types.ScheduledItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	date := now.Format(dateLayout)
	for i := range s.items {
		item := &s.items[i]
		if item.Status != types.StatusPending || item.Date != date {
			continue
		}

		scheduled, err := time.Parse(timeLayout, item.Time)
		if err != nil {
			continue
		}
		if scheduled.Hour() == now.Hour() {
			copied := *item
			return &copied, true
		}
	}

	return nil, false
}

// Add stores a new pending item, assigning it an id.
func (s *Store) Add(item types.ScheduledItem) (types.ScheduledItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item.ID = uuid.New().String()
	item.Status = types.StatusPending
	s.items = append(s.items, item)

	if err := s.persist(); err != nil {
		return types.ScheduledItem{}, err
	}

	return item, nil
}

// List returns a snapshot of every calendar item.
func (s *Store) List() []types.ScheduledItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]types.ScheduledItem, len(s.items))
	copy(items, s.items)
	return items
}

// MarkPublished records the platform post id against an item and flips its
// status so it is never selected again.
func (s *Store) MarkPublished(id, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.items {
		if s.items[i].ID != id {
			continue
		}

		s.items[i].Status = types.StatusPublished
		s.items[i].PostID = postID
		s.items[i].PostedAt = time.Now().UTC().Format(time.RFC3339)

		return s.persist()
	}

	return fmt.Errorf("scheduled item %s not found", id)
}

// persist writes the calendar atomically via a temp file rename.
// Callers must hold the mutex.
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode calendar: %w", err)
	}

	tmp := filepath.Join(filepath.Dir(s.path), "."+filepath.Base(s.path)+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write calendar: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace calendar: %w", err)
	}

	return nil
}
