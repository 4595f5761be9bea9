package drawio

import (
	"strings"
	"testing"
)

// ─────────────────────────────────────────────────────────────
// Block locator unit tests
// ─────────────────────────────────────────────────────────────

func TestParseBlocks_SingleNamedBlock(t *testing.T) {
	doc := "```drawio name=\"X\"\n<mxGraphModel/>\n```"
	blocks := ParseBlocks(doc)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(blocks))
	}
	b := blocks[0]
	if b.ID != 0 {
		t.Errorf("expected id 0, got %d", b.ID)
	}
	if b.Name != "X" {
		t.Errorf("expected name %q, got %q", "X", b.Name)
	}
	if b.SourceXML != "<mxGraphModel/>" {
		t.Errorf("expected source %q, got %q", "<mxGraphModel/>", b.SourceXML)
	}
	if got := doc[b.SpanStart:b.SpanEnd]; got != doc {
		t.Errorf("span does not cover the full fence: %q", got)
	}
}

func TestParseBlocks_UnquotedName(t *testing.T) {
	blocks := ParseBlocks("```drawio name=arch\n<a/>\n```\n")
	if len(blocks) != 1 || blocks[0].Name != "arch" {
		t.Fatalf("expected one block named arch, got %+v", blocks)
	}
}

func TestParseBlocks_NoBlocks(t *testing.T) {
	if blocks := ParseBlocks("# Just prose\n\nNothing fenced here.\n"); len(blocks) != 0 {
		t.Fatalf("expected no blocks, got %d", len(blocks))
	}
	// A plain code fence is not a diagram block.
	if blocks := ParseBlocks("```go\nfunc main() {}\n```\n"); len(blocks) != 0 {
		t.Fatalf("go fence matched as diagram, got %d blocks", len(blocks))
	}
}

func TestParseBlocks_Unterminated(t *testing.T) {
	if blocks := ParseBlocks("```drawio\n<a/>\n"); len(blocks) != 0 {
		t.Fatalf("unterminated fence matched, got %d blocks", len(blocks))
	}
}

func TestParseBlocks_OrdinalIDs(t *testing.T) {
	doc := "```drawio\n<a/>\n```\n\ntext\n\n```drawio name=\"two\"\n<b/>\n```\n"
	blocks := ParseBlocks(doc)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if blocks[0].ID != 0 || blocks[1].ID != 1 {
		t.Errorf("ids not ordinal: %d, %d", blocks[0].ID, blocks[1].ID)
	}
	if blocks[0].SourceXML != "<a/>" || blocks[1].SourceXML != "<b/>" {
		t.Errorf("sources wrong: %q, %q", blocks[0].SourceXML, blocks[1].SourceXML)
	}
}

func TestParseBlocks_LongerClosingFence(t *testing.T) {
	blocks := ParseBlocks("```drawio\n<a/>\n`````\n")
	if len(blocks) != 1 || blocks[0].SourceXML != "<a/>" {
		t.Fatalf("longer closing fence not accepted: %+v", blocks)
	}
}

func TestParseBlocks_EmptyBody(t *testing.T) {
	blocks := ParseBlocks("```drawio\n```\n")
	if len(blocks) != 1 || blocks[0].SourceXML != "" {
		t.Fatalf("expected one empty block, got %+v", blocks)
	}
}

func TestReplaceBlock_Locality(t *testing.T) {
	prefix := "# Title\n\nsome prose\n\n"
	suffix := "\n\nmore prose\n"
	doc := prefix + "```drawio name=\"d\"\n<old/>\n```" + suffix

	patched := ReplaceBlock(doc, 0, "<new/>", "d")
	if !strings.HasPrefix(patched, prefix) {
		t.Error("prefix bytes disturbed")
	}
	if !strings.HasSuffix(patched, suffix) {
		t.Error("suffix bytes disturbed")
	}
	if !strings.Contains(patched, "<new/>") || strings.Contains(patched, "<old/>") {
		t.Errorf("body not replaced: %q", patched)
	}
}

func TestReplaceBlock_Idempotent(t *testing.T) {
	doc := "a\n```drawio\n<old/>\n```\nb\n"
	once := ReplaceBlock(doc, 0, "<new/>", "n")
	twice := ReplaceBlock(once, 0, "<new/>", "n")
	if once != twice {
		t.Fatalf("not idempotent:\nonce:  %q\ntwice: %q", once, twice)
	}
}

func TestReplaceBlock_RoundTrip(t *testing.T) {
	doc := "```drawio\n<a/>\n```\n\n```drawio\n<b/>\n```\n"
	patched := ReplaceBlock(doc, 1, "<c/>", "renamed")
	blocks := ParseBlocks(patched)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks after patch, got %d", len(blocks))
	}
	if blocks[1].SourceXML != "<c/>" {
		t.Errorf("round-trip source: got %q", blocks[1].SourceXML)
	}
	if blocks[1].Name != "renamed" {
		t.Errorf("round-trip name: got %q", blocks[1].Name)
	}
	if blocks[0].SourceXML != "<a/>" {
		t.Errorf("earlier block disturbed: %q", blocks[0].SourceXML)
	}
}

func TestReplaceBlock_OutOfRange(t *testing.T) {
	doc := "```drawio\n<a/>\n```\n"
	if got := ReplaceBlock(doc, 1, "<b/>", ""); got != doc {
		t.Errorf("out-of-range id changed the document")
	}
	if got := ReplaceBlock(doc, -1, "<b/>", ""); got != doc {
		t.Errorf("negative id changed the document")
	}
	if got := ReplaceBlock("no fences", 0, "<b/>", ""); got != "no fences" {
		t.Errorf("fence-free document changed")
	}
}

func TestReplaceBlock_IdenticalSiblings(t *testing.T) {
	doc := "```drawio\n<same/>\n```\n\n```drawio\n<same/>\n```\n"
	patched := ReplaceBlock(doc, 1, "<changed/>", "")
	blocks := ParseBlocks(patched)
	if blocks[0].SourceXML != "<same/>" || blocks[1].SourceXML != "<changed/>" {
		t.Fatalf("wrong sibling replaced: %q / %q", blocks[0].SourceXML, blocks[1].SourceXML)
	}
}

func TestReplaceBlock_OmitsEmptyName(t *testing.T) {
	patched := ReplaceBlock("```drawio name=\"x\"\n<a/>\n```\n", 0, "<a/>", "")
	if strings.Contains(patched, "name=") {
		t.Fatalf("empty name not omitted: %q", patched)
	}
}

// Quotes and control characters in a name would break the fence header
// and lose the block on the next parse; they must be stripped.
func TestReplaceBlock_SanitizesName(t *testing.T) {
	doc := "```drawio\n<a/>\n```\n"
	for name, want := range map[string]string{
		`a"b`:      "ab",
		"a\nb":     "ab",
		"a\tb":     "ab",
		`"><evil>`: "><evil>",
	} {
		patched := ReplaceBlock(doc, 0, "<a/>", name)
		blocks := ParseBlocks(patched)
		if len(blocks) != 1 {
			t.Fatalf("name %q: block lost, doc=%q", name, patched)
		}
		if blocks[0].Name != want {
			t.Errorf("name %q: round-tripped as %q, want %q", name, blocks[0].Name, want)
		}
	}
}

// A body containing backtick runs must still re-parse as one block.
func TestReplaceBlock_FenceInBody(t *testing.T) {
	doc := "```drawio\n<a/>\n```\n"
	patched := ReplaceBlock(doc, 0, "x\n```\ny", "")
	blocks := ParseBlocks(patched)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 block, got %d: %q", len(blocks), patched)
	}
	if blocks[0].SourceXML != "x\n```\ny" {
		t.Fatalf("body mangled: %q", blocks[0].SourceXML)
	}
}
