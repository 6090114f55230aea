package store

import (
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"

	"cinefuse/internal/models"
)

func TestUserStoreCreateAndAuthenticate(t *testing.T) {
	s := NewUserStoreWithFs(afero.NewMemMapFs(), "/data")

	first, err := s.Create("alice", "hunter2")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !first.IsAdmin {
		t.Fatal("first account must be admin")
	}
	if first.PasswordHash == "hunter2" {
		t.Fatal("password must never be stored in the clear")
	}

	second, err := s.Create("bob", "secret")
	if err != nil {
		t.Fatalf("Create second: %v", err)
	}
	if second.IsAdmin {
		t.Fatal("later accounts must not be admin")
	}

	if _, err := s.Create("alice", "other"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate username: got %v", err)
	}

	user, err := s.Authenticate("alice", "hunter2")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if user.ID != first.ID {
		t.Fatalf("authenticated wrong user: %s", user.ID)
	}

	// Unknown user and wrong password are indistinguishable.
	if _, err := s.Authenticate("alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := s.Authenticate("mallory", "hunter2"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: got %v", err)
	}

	if n, _ := s.Count(); n != 2 {
		t.Fatalf("Count: got %d", n)
	}
}

func TestUserStoreChangePassword(t *testing.T) {
	s := NewUserStoreWithFs(afero.NewMemMapFs(), "/data")
	user, err := s.Create("alice", "old-pass")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.ChangePassword(user.ID, "wrong", "new-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current password: got %v", err)
	}
	if err := s.ChangePassword(user.ID, "old-pass", "new-pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := s.Authenticate("alice", "new-pass"); err != nil {
		t.Fatalf("authenticate with new password: %v", err)
	}
	if _, err := s.Authenticate("alice", "old-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatal("old password must stop working")
	}
}

func TestUserStoreGetByID(t *testing.T) {
	s := NewUserStoreWithFs(afero.NewMemMapFs(), "/data")
	user, _ := s.Create("alice", "pw")

	got, err := s.GetByID(user.ID)
	if err != nil || got.Username != "alice" {
		t.Fatalf("GetByID: %v %+v", err, got)
	}
	if _, err := s.GetByID("no-such-id"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing id: got %v", err)
	}
}

func TestFavoriteStoreRoundTrip(t *testing.T) {
	s := NewFavoriteStoreWithFs(afero.NewMemMapFs(), "/data")

	if err := s.Add("u1", models.FavoriteEntry{MediaID: "tmdb_movie_550", Title: "Fight Club", Type: models.MediaTypeMovie}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add("u1", models.FavoriteEntry{MediaID: "anilist_anime_21", Title: "ONE PIECE", Type: models.MediaTypeAnime}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	// Duplicate add is a no-op.
	if err := s.Add("u1", models.FavoriteEntry{MediaID: "tmdb_movie_550", Title: "Fight Club"}); err != nil {
		t.Fatalf("duplicate Add: %v", err)
	}

	list, err := s.List("u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 favorites, got %d", len(list))
	}
	if list[0].MediaID != "anilist_anime_21" {
		t.Fatalf("newest first: got %s", list[0].MediaID)
	}
	if list[0].AddedAt.IsZero() {
		t.Fatal("AddedAt must be stamped")
	}

	// Per-user isolation.
	other, err := s.List("u2")
	if err != nil || len(other) != 0 {
		t.Fatalf("other user must see nothing: %v %v", err, other)
	}

	if err := s.Remove("u1", "tmdb_movie_550"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove("u1", "not-saved"); err != nil {
		t.Fatalf("removing an absent item must be a no-op: %v", err)
	}
	list, _ = s.List("u1")
	if len(list) != 1 || list[0].MediaID != "anilist_anime_21" {
		t.Fatalf("after remove: %+v", list)
	}
}

func TestHistoryStoreUpsert(t *testing.T) {
	s := NewHistoryStoreWithFs(afero.NewMemMapFs(), "/data")

	if err := s.Record("u1", models.WatchEntry{MediaID: "tmdb_tv_1399", Season: 1, Episode: 1, ProgressSeconds: 120}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record("u1", models.WatchEntry{MediaID: "tmdb_movie_550", ProgressSeconds: 30}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	// Progress update on the same episode replaces, never duplicates.
	if err := s.Record("u1", models.WatchEntry{MediaID: "tmdb_tv_1399", Season: 1, Episode: 1, ProgressSeconds: 300}); err != nil {
		t.Fatalf("Record update: %v", err)
	}
	// A different episode of the same show is its own entry.
	if err := s.Record("u1", models.WatchEntry{MediaID: "tmdb_tv_1399", Season: 1, Episode: 2, ProgressSeconds: 10}); err != nil {
		t.Fatalf("Record episode 2: %v", err)
	}

	list, err := s.List("u1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 entries, got %d: %+v", len(list), list)
	}
	if list[0].Episode != 2 {
		t.Fatalf("most recent first: got %+v", list[0])
	}
	for _, e := range list {
		if e.MediaID == "tmdb_tv_1399" && e.Episode == 1 && e.ProgressSeconds != 300 {
			t.Fatalf("progress not updated: %+v", e)
		}
	}

	if err := s.Remove("u1", "tmdb_tv_1399"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	list, _ = s.List("u1")
	if len(list) != 1 || list[0].MediaID != "tmdb_movie_550" {
		t.Fatalf("remove must drop every episode of the title: %+v", list)
	}

	if err := s.Clear("u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if list, _ := s.List("u1"); len(list) != 0 {
		t.Fatalf("after clear: %+v", list)
	}
}

func TestStoresPersistAcrossReopen(t *testing.T) {
	fs := afero.NewMemMapFs()

	s := NewFavoriteStoreWithFs(fs, "/data")
	if err := s.Add("u1", models.FavoriteEntry{MediaID: "tmdb_movie_550", Title: "Fight Club", AddedAt: time.Now()}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	reopened := NewFavoriteStoreWithFs(fs, "/data")
	list, err := reopened.List("u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("favorites must survive a restart: %v %+v", err, list)
	}
}
