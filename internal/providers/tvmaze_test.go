package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cinefuse/internal/models"
)

const tvmazeShowJSON = `{
	"id": 82, "name": "Game of Thrones", "premiered": "2011-04-17",
	"summary": "<p>Seven noble families fight for control.</p>",
	"genres": ["Drama", "Adventure"],
	"rating": {"average": 8.9},
	"image": {"medium": "http://img/m.jpg", "original": "http://img/o.jpg"},
	"externals": {"imdb": "tt0944947", "thetvdb": 121361},
	"weight": 99
}`

func TestTVMazePageIndexTranslation(t *testing.T) {
	gotPage := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPage <- r.URL.Query().Get("page")
		w.Write([]byte("[" + tvmazeShowJSON + "]"))
	}))
	defer srv.Close()

	client := NewTVMazeClient(newTestCache())
	client.baseURL = srv.URL

	items, err := client.FetchPage(context.Background(), 1, PageOptions{})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	// Callers speak 1-indexed; the upstream index counts from 0.
	if upstream := <-gotPage; upstream != "0" {
		t.Fatalf("page 1 must query upstream page 0, got %q", upstream)
	}
	if len(items) != 1 || items[0].ID != "tvmaze_tv_82" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestTVMazeEndOfIndexIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewTVMazeClient(newTestCache())
	client.baseURL = srv.URL

	items, err := client.FetchPage(context.Background(), 9999, PageOptions{})
	if err != nil {
		t.Fatalf("404 past the last page must not be an error, got %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected an empty page, got %d items", len(items))
	}
}

func TestTVMazeMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[` + tvmazeShowJSON + `,
			{"id": 83, "name": "No Image Show", "premiered": "2019-01-01"},
			{"id": 84, "premiered": "2020-01-01"}
		]`))
	}))
	defer srv.Close()

	client := NewTVMazeClient(newTestCache())
	client.baseURL = srv.URL

	items, err := client.FetchPage(context.Background(), 1, PageOptions{})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	// A missing poster is tolerated here; only untitled shows are dropped.
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}

	got := items[0]
	if got.Type != models.MediaTypeTV || got.Source != "tvmaze" {
		t.Fatalf("source/type: got %q/%q", got.Source, got.Type)
	}
	if got.Overview != "Seven noble families fight for control." {
		t.Fatalf("summary markup must be stripped, got %q", got.Overview)
	}
	if got.PosterURL != "http://img/o.jpg" {
		t.Fatalf("poster must prefer the original image, got %q", got.PosterURL)
	}
	if got.Year != "2011" {
		t.Fatalf("year: got %q", got.Year)
	}
	if got.HasStreaming {
		t.Fatal("tvmaze records carry no embed-usable id and are never streamable")
	}
	if got.ExtraString("imdb_id") != "tt0944947" || got.ExtraInt("tvdb_id") != 121361 {
		t.Fatalf("externals: got %v", got.Extra)
	}

	if items[1].PosterURL != "" || items[1].ID != "tvmaze_tv_83" {
		t.Fatalf("imageless show mapped wrong: %+v", items[1])
	}
}

func TestTVMazeSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/shows" || r.URL.Query().Get("q") != "thrones" {
			t.Errorf("unexpected search request: %s", r.URL.String())
		}
		w.Write([]byte(`[{"score": 0.9, "show": ` + tvmazeShowJSON + `}]`))
	}))
	defer srv.Close()

	client := NewTVMazeClient(newTestCache())
	client.baseURL = srv.URL

	items, err := client.FetchPage(context.Background(), 1, PageOptions{Query: "thrones"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Game of Thrones" {
		t.Fatalf("unexpected search results: %+v", items)
	}
}

func TestStripTags(t *testing.T) {
	tests := map[string]string{
		"<p>Hello <b>world</b></p>": "Hello world",
		"plain text":                "plain text",
		"":                          "",
		"a < b":                     "a ",
	}
	for input, expect := range tests {
		if got := stripTags(input); got != expect {
			t.Fatalf("stripTags(%q) = %q, want %q", input, got, expect)
		}
	}
}
