package drawio

import (
	"context"
	"encoding/base64"
	"fmt"
	"html"
	"strings"
	"sync"
)

// ─────────────────────────────────────────────────────────────
// Preview renderer — static containers plus async cache fill
// ─────────────────────────────────────────────────────────────

// RenderBlock produces the self-contained container markup for one
// diagram block. If the source already carries an inline SVG it is
// embedded directly as a best-effort static preview; otherwise an edit
// placeholder is produced. Malformed XML falls back to the placeholder.
func RenderBlock(xml string, id int, name string) string {
	label := name
	if label == "" {
		label = "Diagram"
	}

	inner := fmt.Sprintf(
		`<div class="drawio-placeholder"><span class="drawio-label">%s</span><button class="drawio-edit" data-drawio-edit="%d">Edit</button></div>`,
		html.EscapeString(label), id,
	)
	if svg, ok := extractInlineSVG(xml); ok {
		inner = svg
	}

	return fmt.Sprintf(
		`<div class="drawio-block" data-drawio-id="%d" data-drawio-name="%s">%s</div>`,
		id, html.EscapeString(name), inner,
	)
}

// extractInlineSVG pulls an embedded <svg> element out of diagram source
// saved in the editable-SVG format. Returns false when no complete
// element is present, including truncated or inside-out markup.
func extractInlineSVG(xml string) (string, bool) {
	start := strings.Index(xml, "<svg")
	if start < 0 {
		return "", false
	}
	end := strings.Index(xml[start:], "</svg>")
	if end < 0 {
		return "", false
	}
	return xml[start : start+end+len("</svg>")], true
}

// DecodeArtifact normalizes an exported artifact. The legacy form is a
// data URL whose base64 payload follows the first comma; the modern form
// is raw SVG passed through unchanged.
func DecodeArtifact(data string) (string, error) {
	if !strings.HasPrefix(data, "data:") {
		return data, nil
	}
	comma := strings.IndexByte(data, ',')
	if comma < 0 {
		return "", fmt.Errorf("data url without payload")
	}
	decoded, err := base64.StdEncoding.DecodeString(data[comma+1:])
	if err != nil {
		return "", fmt.Errorf("decode artifact: %w", err)
	}
	return string(decoded), nil
}

// PreviewUpdateFunc receives the artifact to swap into one block's
// container once a cached preview is available.
type PreviewUpdateFunc func(blockID int, artifact string)

// Renderer fills rendered containers with cached artifacts after mount.
type Renderer struct {
	cache *CacheClient
}

// NewRenderer creates a Renderer backed by cache.
func NewRenderer(cache *CacheClient) *Renderer {
	return &Renderer{cache: cache}
}

// RefreshPreviews looks up each block's artifact by fingerprint and
// delivers hits through update. Fetches run concurrently; misses and
// artifacts that fail to decode are skipped, leaving the prior preview
// in place. Blocks until every lookup has resolved.
func (r *Renderer) RefreshPreviews(ctx context.Context, blocks []Block, update PreviewUpdateFunc) {
	var wg sync.WaitGroup
	for _, b := range blocks {
		wg.Add(1)
		go func(b Block) {
			defer wg.Done()
			fp := r.cache.Fingerprint(b.SourceXML)
			raw, ok := r.cache.Fetch(ctx, fp)
			if !ok {
				return
			}
			artifact, err := DecodeArtifact(raw)
			if err != nil {
				return
			}
			update(b.ID, artifact)
		}(b)
	}
	wg.Wait()
}
