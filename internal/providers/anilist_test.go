package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cinefuse/internal/models"
)

func TestAniListFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode query: %v", err)
		}
		if !strings.Contains(req.Query, "Page(page: $page, perPage: $perPage)") {
			t.Errorf("unexpected query: %s", req.Query)
		}
		if req.Variables["page"] != float64(3) || req.Variables["perPage"] != float64(20) {
			t.Errorf("unexpected variables: %v", req.Variables)
		}

		w.Write([]byte(`{"data": {"Page": {"media": [
			{"id": 21, "idMal": 21,
			 "title": {"romaji": "One Piece", "english": "ONE PIECE", "native": "ワンピース"},
			 "description": "Gold Roger was known as the Pirate King.",
			 "coverImage": {"large": "http://img/op.jpg"},
			 "bannerImage": "http://img/op-banner.jpg",
			 "averageScore": 88, "popularity": 500000,
			 "genres": ["Action", "Adventure"], "episodes": 1000,
			 "startDate": {"year": 1999, "month": 10, "day": 20}},
			{"id": 99, "title": {}, "coverImage": {"large": "http://img/x.jpg"}}
		]}}}`))
	}))
	defer srv.Close()

	client := NewAniListClient(newTestCache(), true)
	client.baseURL = srv.URL

	items, err := client.FetchPage(context.Background(), 3, PageOptions{})
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("untitled media must be dropped, got %d items", len(items))
	}

	got := items[0]
	if got.ID != "anilist_anime_21" || got.Type != models.MediaTypeAnime {
		t.Fatalf("id/type: got %q/%q", got.ID, got.Type)
	}
	if got.Title != "ONE PIECE" || got.OriginalTitle != "ワンピース" {
		t.Fatalf("titles: got %q/%q", got.Title, got.OriginalTitle)
	}
	// Scores arrive 0-100 and must land on the canonical 0-10 scale.
	if got.Rating != 8.8 {
		t.Fatalf("rating: got %v", got.Rating)
	}
	if got.Year != "1999" || got.ReleaseDate != "1999-10-20" {
		t.Fatalf("dates: got %q/%q", got.Year, got.ReleaseDate)
	}
	if !got.HasStreaming {
		t.Fatal("anilist records are directly streamable when an embed source is enabled")
	}
	if got.ExtraInt("anilist_id") != 21 || got.ExtraInt("mal_id") != 21 || got.ExtraInt("episodes") != 1000 {
		t.Fatalf("extras: got %v", got.Extra)
	}
}

func TestAniListSearchVariable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]interface{} `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		if req.Variables["search"] != "one piece" {
			t.Errorf("search variable: got %v", req.Variables["search"])
		}
		w.Write([]byte(`{"data": {"Page": {"media": []}}}`))
	}))
	defer srv.Close()

	client := NewAniListClient(newTestCache(), true)
	client.baseURL = srv.URL

	if _, err := client.FetchPage(context.Background(), 1, PageOptions{Query: "one piece"}); err != nil {
		t.Fatalf("search: %v", err)
	}
}

func TestAniListQueryErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data": null, "errors": [{"message": "rate limited"}]}`))
	}))
	defer srv.Close()

	client := NewAniListClient(newTestCache(), true)
	client.baseURL = srv.URL

	_, err := client.FetchPage(context.Background(), 1, PageOptions{})
	if err == nil || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("GraphQL errors must surface, got %v", err)
	}
}
