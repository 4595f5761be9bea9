package drawio

import (
	"regexp"
	"strings"
)

// ─────────────────────────────────────────────────────────────
// Block locator — fenced drawio regions in markdown source
// ─────────────────────────────────────────────────────────────

// Block is one located diagram region in a note's markdown text.
// IDs are 0-based ordinals assigned per parse pass; they are not stable
// across edits that add or remove earlier blocks. Spans are byte offsets
// of the full fenced region (header line through closing fence line,
// excluding the trailing newline) and are recomputed on every parse.
type Block struct {
	ID        int    `json:"id"`
	SourceXML string `json:"sourceXml"`
	Name      string `json:"name"`
	SpanStart int    `json:"-"`
	SpanEnd   int    `json:"-"`
}

// Opening fence: three or more backticks, the drawio language tag, and an
// optional name="label" (or bare name=label) on the same line.
var fenceOpenRe = regexp.MustCompile("^(`{3,})drawio(?:[ \t]+name=(?:\"([^\"]*)\"|([^ \t\"]+)))?[ \t]*$")

// Closing fence: backticks only, at least as long as the opening run.
var fenceCloseRe = regexp.MustCompile("^(`{3,})[ \t]*$")

// ParseBlocks scans doc for fenced drawio blocks, in document order.
// Unterminated fences are not matched. A document with no diagram blocks
// returns nil.
func ParseBlocks(doc string) []Block {
	var blocks []Block

	inFence := false
	openLen := 0
	spanStart := 0
	bodyStart := 0
	name := ""

	pos := 0
	for pos <= len(doc) {
		lineEnd := strings.IndexByte(doc[pos:], '\n')
		var line string
		var next int
		if lineEnd < 0 {
			line = doc[pos:]
			next = len(doc) + 1
		} else {
			line = doc[pos : pos+lineEnd]
			next = pos + lineEnd + 1
		}

		if !inFence {
			if m := fenceOpenRe.FindStringSubmatch(line); m != nil {
				inFence = true
				openLen = len(m[1])
				spanStart = pos
				bodyStart = next
				if m[2] != "" {
					name = m[2]
				} else {
					name = m[3]
				}
			}
		} else if m := fenceCloseRe.FindStringSubmatch(line); m != nil && len(m[1]) >= openLen {
			body := ""
			if bodyStart <= pos {
				body = strings.TrimSuffix(doc[bodyStart:pos], "\n")
			}
			blocks = append(blocks, Block{
				ID:        len(blocks),
				SourceXML: body,
				Name:      name,
				SpanStart: spanStart,
				SpanEnd:   pos + len(line),
			})
			inFence = false
		}

		pos = next
	}

	return blocks
}

// ReplaceBlock replaces the id-th fenced drawio block of doc with a new
// fence carrying xml and name (the name attribute is omitted when empty).
// Only the bytes of the matched fence change; everything else is returned
// byte-identical. If no block has that ordinal, doc is returned unchanged.
func ReplaceBlock(doc string, id int, xml, name string) string {
	blocks := ParseBlocks(doc)
	if id < 0 || id >= len(blocks) {
		return doc
	}
	b := blocks[id]
	return doc[:b.SpanStart] + renderFence(xml, name) + doc[b.SpanEnd:]
}

// sanitizeName drops the characters that cannot appear inside a quoted
// fence-header attribute: double quotes and control characters would
// produce a header the fence scanner no longer matches, losing the block.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '"' || r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, name)
}

// renderFence builds a complete fenced block for xml. The fence is
// lengthened past any backtick run that opens a line of the body, so the
// new block always re-parses as a single region.
func renderFence(xml, name string) string {
	fenceLen := 3
	for _, line := range strings.Split(xml, "\n") {
		run := 0
		for run < len(line) && line[run] == '`' {
			run++
		}
		if run >= fenceLen {
			fenceLen = run + 1
		}
	}
	fence := strings.Repeat("`", fenceLen)

	name = sanitizeName(name)

	var sb strings.Builder
	sb.WriteString(fence)
	sb.WriteString("drawio")
	if name != "" {
		sb.WriteString(` name="`)
		sb.WriteString(name)
		sb.WriteString(`"`)
	}
	sb.WriteString("\n")
	if xml != "" {
		sb.WriteString(xml)
		sb.WriteString("\n")
	}
	sb.WriteString(fence)
	return sb.String()
}
