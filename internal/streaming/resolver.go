package streaming

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

// Resolver turns a canonical id/type/season/episode into a playback URL
// by walking the fallback chain in priority order.
//
// Two modes: ResolveFast builds the top-priority URL without any network
// I/O (bulk listing paths care about latency, not certainty); Resolve
// probes each candidate for liveness and returns the first that answers,
// degrading to the top-priority URL when nothing does - a probe's notion
// of "live" is a heuristic with false negatives, so the client-side
// player gets to make the final attempt.
type Resolver struct {
	sources  []Source
	builders map[string]URLBuilder
	probe    *http.Client
	log      *slog.Logger
}

// NewResolver creates a resolver over the configured sources. Disabled
// sources are kept (the set is small) and skipped at resolution time.
func NewResolver(sources []Source) *Resolver {
	ordered := make([]Source, len(sources))
	copy(ordered, sources)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	return &Resolver{
		sources:  ordered,
		builders: defaultBuilders(),
		probe: &http.Client{
			Timeout: 3 * time.Second,
		},
		log: slog.Default().With("component", "resolver"),
	}
}

// ResolveFast returns the URL for the highest-priority enabled source
// that can serve the request. No network I/O. ok is false only when no
// enabled source has a scheme for the request.
func (r *Resolver) ResolveFast(req EmbedRequest) (string, bool) {
	for _, src := range r.sources {
		if !src.Enabled {
			continue
		}
		builder, known := r.builders[src.Name]
		if !known {
			continue
		}
		if url, ok := builder.Build(req); ok {
			return url, true
		}
	}
	return "", false
}

// Resolve probes sources in priority order and returns the first URL
// judged live. When nothing is judged live but at least one URL could
// be built, the top-priority URL is returned anyway.
func (r *Resolver) Resolve(ctx context.Context, req EmbedRequest) (string, bool) {
	url, _ := r.resolveVerified(ctx, req)
	return url, url != ""
}

// CheckAvailability reports whether a verified-live source exists for
// the request. Unlike Resolve it does not count the unconditional
// best-effort fallback as available.
func (r *Resolver) CheckAvailability(ctx context.Context, req EmbedRequest) bool {
	_, live := r.resolveVerified(ctx, req)
	return live
}

// resolveVerified walks the chain once. Returns the first live URL with
// live=true, or the top-priority buildable URL with live=false, or
// ("", false) when no enabled source can serve the request.
func (r *Resolver) resolveVerified(ctx context.Context, req EmbedRequest) (string, bool) {
	first := ""
	for _, src := range r.sources {
		if !src.Enabled {
			continue
		}
		builder, known := r.builders[src.Name]
		if !known {
			continue
		}
		url, ok := builder.Build(req)
		if !ok {
			continue
		}
		if first == "" {
			first = url
		}
		if r.isLive(ctx, url) {
			return url, true
		}
		r.log.Debug("source not live, trying next", "source", src.Name)
	}
	return first, false
}

// isLive issues a lightweight HEAD request with a short timeout. Any
// 2xx counts as live; a sub-500 non-2xx is inconclusive and a 5xx,
// timeout or network error is a miss - all three fall through to the
// next source.
func (r *Resolver) isLive(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := r.probe.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
