package catalog

import (
	"testing"

	"cinefuse/internal/models"
)

func TestMergeKeepsDistinctTitles(t *testing.T) {
	in := []models.MediaItem{
		{ID: "tmdb_movie_1", Title: "Dune", Year: "2021", Source: "tmdb"},
		{ID: "tmdb_movie_2", Title: "Arrival", Year: "2016", Source: "tmdb"},
	}
	out := Merge(in)
	if len(out) != 2 {
		t.Fatalf("expected 2 items, got %d", len(out))
	}
}

func TestMergeCollapsesSameTitleAndYear(t *testing.T) {
	in := []models.MediaItem{
		{ID: "tmdb_movie_1", Title: "Dune", Year: "2021", Source: "tmdb"},
		{ID: "jikan_anime_9", Title: "DUNE!!", Year: "2021", Source: "jikan"},
	}
	out := Merge(in)
	if len(out) != 1 {
		t.Fatalf("expected exactly 1 survivor, got %d", len(out))
	}
}

func TestMergeIdempotent(t *testing.T) {
	in := []models.MediaItem{
		{Title: "Dune", Year: "2021", Source: "tmdb", PosterURL: "http://x/a.jpg"},
		{Title: "dune", Year: "2021", Source: "anilist"},
		{Title: "Arrival", Year: "2016", Source: "tmdb"},
		{Title: "Arrival", Year: "2021", Source: "tvmaze"}, // different year, kept
	}
	once := Merge(in)
	twice := Merge(once)
	if len(once) != len(twice) {
		t.Fatalf("merge not idempotent: %d then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID || once[i].Title != twice[i].Title {
			t.Fatalf("merge(merge(x)) diverged at %d: %+v vs %+v", i, once[i], twice[i])
		}
	}
}

func TestMergePosterImprovementWins(t *testing.T) {
	in := []models.MediaItem{
		{ID: "a", Title: "Dune", Year: "2021", Source: "tmdb"},
		{ID: "b", Title: "Dune", Year: "2021", Source: "tmdb", PosterURL: "http://x/p.jpg"},
	}
	out := Merge(in)
	if len(out) != 1 {
		t.Fatalf("expected 1 item, got %d", len(out))
	}
	if out[0].PosterURL == "" {
		t.Fatal("survivor must have the poster")
	}
}

func TestMergeFirstSeenWinsWithoutImprovement(t *testing.T) {
	in := []models.MediaItem{
		{ID: "first", Title: "Dune", Year: "2021", Source: "tmdb", PosterURL: "http://x/1.jpg"},
		{ID: "second", Title: "Dune", Year: "2021", Source: "jikan", PosterURL: "http://x/2.jpg"},
	}
	out := Merge(in)
	if out[0].ID != "first" {
		t.Fatalf("expected first-seen record to survive, got %s", out[0].ID)
	}
}

// A local record (no source) with a poster beats an earlier provider
// record without one: the poster criterion fires and replacement is a
// full discard, so the surviving record keeps its empty source.
func TestMergeLocalRecordWithPosterReplacesProviderRecord(t *testing.T) {
	in := []models.MediaItem{
		{ID: "tmdb_movie_1", Title: "Dune", Year: "2021", Source: "tmdb"},
		{ID: "local_1", Title: "dune!!", Year: "2021", PosterURL: "http://x/p.jpg"},
	}
	out := Merge(in)
	if len(out) != 1 {
		t.Fatalf("expected 1 item, got %d", len(out))
	}
	if out[0].ID != "local_1" {
		t.Fatalf("expected local record to survive, got %s", out[0].ID)
	}
	if out[0].Source != "" {
		t.Fatalf("replacement is full discard; source should stay empty, got %q", out[0].Source)
	}
}

func TestMergeStreamingImprovementWins(t *testing.T) {
	in := []models.MediaItem{
		{ID: "a", Title: "Dune", Year: "2021", Source: "tvmaze", PosterURL: "http://x/p.jpg"},
		{ID: "b", Title: "Dune", Year: "2021", Source: "tmdb", PosterURL: "http://x/p.jpg", HasStreaming: true},
	}
	out := Merge(in)
	if !out[0].HasStreaming {
		t.Fatal("streamable record must win over non-streamable")
	}
}

func TestMergeSkipsRecordsWithoutTitleOrYear(t *testing.T) {
	in := []models.MediaItem{
		{ID: "junk", Title: "", Year: ""},
		{ID: "ok", Title: "Dune", Year: "2021"},
	}
	out := Merge(in)
	if len(out) != 1 || out[0].ID != "ok" {
		t.Fatalf("record without title and year must never be emitted: %+v", out)
	}
}

func TestMergeFallsBackToReleaseDateYear(t *testing.T) {
	in := []models.MediaItem{
		{ID: "a", Title: "Dune", ReleaseDate: "2021-10-22"},
		{ID: "b", Title: "Dune", Year: "2021"},
	}
	out := Merge(in)
	if len(out) != 1 {
		t.Fatalf("release-date year must collapse with explicit year, got %d items", len(out))
	}
}

func TestNormalizeTitle(t *testing.T) {
	tests := map[string]string{
		"Dune: Part Two":  "dune part two",
		"dune   part two": "dune part two",
		"DUNE!!":          "dune",
		"Spider-Man":      "spider man",
		"Léon":            "leon",
		"":                "",
	}
	for input, expect := range tests {
		if got := normalizeTitle(input); got != expect {
			t.Fatalf("normalizeTitle(%q) = %q, want %q", input, got, expect)
		}
	}
}

func TestMergeUsesOriginalTitleWhenTitleEmpty(t *testing.T) {
	in := []models.MediaItem{
		{ID: "a", OriginalTitle: "Seven Samurai", Year: "1954"},
		{ID: "b", Title: "Seven Samurai", Year: "1954"},
	}
	out := Merge(in)
	if len(out) != 1 {
		t.Fatalf("original title must participate in the dedup key, got %d items", len(out))
	}
}
