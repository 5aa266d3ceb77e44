// ABOUTME: Render pipeline shared by the web relay, the render endpoint, and the CLI.
// ABOUTME: Parses, composes and renders a full buffer, memoised through RenderCache when a TTL is set.

package render

import "time"

// Pipeline renders whole markdown buffers. The zero value renders without caching.
type Pipeline struct {
	cache *RenderCache
}

// NewPipeline returns a pipeline that caches results for ttl. A ttl of zero or
// less disables caching.
func NewPipeline(ttl time.Duration) *Pipeline {
	p := &Pipeline{}
	if ttl > 0 {
		p.cache = NewRenderCache(Markdown, ttl, DefaultMaxEntries)
	}
	return p
}

// Render re-renders the entire buffer. Streaming callers pass the accumulated
// text on every delta and final=true once the stream has completed.
func (p *Pipeline) Render(text string, final bool) string {
	if p == nil || p.cache == nil {
		return Markdown(text, final)
	}
	return p.cache.Render(text, final)
}

// Cached reports the number of cached entries.
func (p *Pipeline) Cached() int {
	if p == nil || p.cache == nil {
		return 0
	}
	return p.cache.Len()
}
