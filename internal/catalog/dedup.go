package catalog

import (
	"strings"

	"github.com/mozillazg/go-unidecode"

	"cinefuse/internal/models"
)

// Merge collapses records describing the same title across providers
// into one, keyed by normalized title + year. Providers are queried in
// a fixed order (local media first where present, primary metadata
// provider next, free providers last), so the policy is first-seen
// precedence with replacement only when the incoming record is clearly
// better evidenced: it has a source where the stored one does not, it is
// streamable where the stored one is not, it has a poster or genres
// where the stored one has none. Replacement fully discards the loser;
// no field-level merging.
//
// The criteria are not transitive-safe under input reordering; merge is
// a single pass, so for a fixed input order the result is deterministic.
func Merge(items []models.MediaItem) []models.MediaItem {
	best := make(map[string]models.MediaItem, len(items))
	order := make([]string, 0, len(items))

	for _, item := range items {
		key := dedupKey(item)
		if key == "_" {
			// No usable title or year; never emitted.
			continue
		}
		stored, seen := best[key]
		if !seen {
			best[key] = item
			order = append(order, key)
			continue
		}
		if improves(item, stored) {
			best[key] = item
		}
	}

	out := make([]models.MediaItem, 0, len(order))
	for _, key := range order {
		out = append(out, best[key])
	}
	return out
}

// improves applies the replacement criteria in fixed order.
func improves(incoming, stored models.MediaItem) bool {
	switch {
	case incoming.Source != "" && stored.Source == "":
		return true
	case incoming.HasStreaming && !stored.HasStreaming:
		return true
	case incoming.PosterURL != "" && stored.PosterURL == "":
		return true
	case len(incoming.Genres) > 0 && len(stored.Genres) == 0:
		return true
	}
	return false
}

// dedupKey is normalizedTitle + "_" + year. Year falls back to the
// release date's leading digits when the explicit field is empty.
func dedupKey(item models.MediaItem) string {
	title := item.Title
	if title == "" {
		title = item.OriginalTitle
	}
	year := item.Year
	if year == "" {
		year = models.YearFromDate(item.ReleaseDate)
	}
	return normalizeTitle(title) + "_" + year
}

// normalizeTitle transliterates to ASCII, lowercases, strips
// punctuation and collapses whitespace, so "Dune: Part Two" and
// "dune part two!!" produce the same key.
func normalizeTitle(title string) string {
	ascii := strings.ToLower(unidecode.Unidecode(title))

	var b strings.Builder
	b.Grow(len(ascii))
	lastSpace := true
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		case r == ' ' || r == '\t' || r == '-' || r == '_':
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
		// Everything else is punctuation; dropped.
	}
	return strings.TrimSpace(b.String())
}
