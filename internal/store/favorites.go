package store

import (
	"fmt"
	"time"

	"github.com/spf13/afero"

	"cinefuse/internal/models"
)

// FavoriteStore keeps one favorites file per user.
type FavoriteStore struct {
	fileStore
}

// NewFavoriteStore creates a favorite store rooted at dir.
func NewFavoriteStore(dir string) *FavoriteStore {
	return NewFavoriteStoreWithFs(afero.NewOsFs(), dir)
}

// NewFavoriteStoreWithFs creates a favorite store on the given filesystem.
func NewFavoriteStoreWithFs(fs afero.Fs, dir string) *FavoriteStore {
	return &FavoriteStore{fileStore: newFileStore(fs, dir, "favorites")}
}

func favoritesFile(userID string) string {
	return fmt.Sprintf("favorites_%s.json", userID)
}

// List returns a user's favorites, newest first.
func (s *FavoriteStore) List(userID string) ([]models.FavoriteEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []models.FavoriteEntry
	if err := s.load(favoritesFile(userID), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Add saves a catalog item to a user's favorites. Adding an item that is
// already saved is a no-op.
func (s *FavoriteStore) Add(userID string, entry models.FavoriteEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := favoritesFile(userID)
	var entries []models.FavoriteEntry
	if err := s.load(name, &entries); err != nil {
		return err
	}
	for _, e := range entries {
		if e.MediaID == entry.MediaID {
			return nil
		}
	}
	if entry.AddedAt.IsZero() {
		entry.AddedAt = time.Now().UTC()
	}
	entries = append([]models.FavoriteEntry{entry}, entries...)
	return s.save(name, entries)
}

// Remove deletes one favorite. Removing an absent item is a no-op.
func (s *FavoriteStore) Remove(userID, mediaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := favoritesFile(userID)
	var entries []models.FavoriteEntry
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
