package store

import (
	"fmt"
	"time"

	"github.com/spf13/afero"

	"cinefuse/internal/models"
)

// HistoryStore keeps one watch-history file per user.
type HistoryStore struct {
	fileStore
}

// NewHistoryStore creates a history store rooted at dir.
func NewHistoryStore(dir string) *HistoryStore {
	return NewHistoryStoreWithFs(afero.NewOsFs(), dir)
}

// NewHistoryStoreWithFs creates a history store on the given filesystem.
func NewHistoryStoreWithFs(fs afero.Fs, dir string) *HistoryStore {
	return &HistoryStore{fileStore: newFileStore(fs, dir, "history")}
}

func historyFile(userID string) string {
	return fmt.Sprintf("history_%s.json", userID)
}

// List returns a user's watch history, most recently watched first.
func (s *HistoryStore) List(userID string) ([]models.WatchEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.WatchEntry
	if err := s.load(historyFile(userID), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Record upserts progress for one title (or one episode of it) and
// moves the entry to the front. Progress reports arrive every few
// seconds during playback, so the same key is overwritten constantly.
func (s *HistoryStore) Record(userID string, entry models.WatchEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := historyFile(userID)
	var entries []models.WatchEntry
	if err := s.load(name, &entries); err != nil {
		return err
	}
	if entry.WatchedAt.IsZero() {
		entry.WatchedAt = time.Now().UTC()
	}

	kept := entries[:0]
	for _, e := range entries {
		if e.MediaID == entry.MediaID && e.Season == entry.Season && e.Episode == entry.Episode {
			continue
		}
		kept = append(kept, e)
	}
	entries = append([]models.WatchEntry{entry}, kept...)
	return s.save(name, entries)
}

// Remove deletes every history entry for one title.
func (s *HistoryStore) Remove(userID, mediaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := historyFile(userID)
	var entries []models.WatchEntry
	if err := s.load(name, &entries); err != nil {
		return err
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.MediaID != mediaID {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(entries) {
		return nil
	}
	return s.save(name, kept)
}

// Clear wipes a user's entire history.
func (s *HistoryStore) Clear(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(historyFile(userID), []models.WatchEntry{})
}
