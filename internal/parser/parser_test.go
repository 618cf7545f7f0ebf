package parser

import (
	"testing"
)

func TestParseFrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: My Note\ntags:\n  - go\n  - test\n---\n# Heading\nSome body text.\n")
	res := Parse(input)
	if res.Title != "My Note" {
		t.Errorf("title = %q, want %q", res.Title, "My Note")
	}
	if res.Frontmatter == nil {
		t.Fatal("frontmatter is nil")
	}
	if len(res.Tags) < 2 {
		t.Errorf("tags = %v, want at least [go test]", res.Tags)
	}
	if res.Body == "" {
		t.Error("body is empty")
	}
}

func TestParseNoFrontmatter(t *testing.T) {
	res := Parse([]byte("# Just a Heading\nContent here.\n"))
	if res.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", res.Frontmatter)
	}
	if res.Title != "Just a Heading" {
		t.Errorf("title = %q", res.Title)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	input := []byte("---\n: bad yaml [\n---\nbody\n")
	res := Parse(input)
	if res.Frontmatter != nil {
		t.Error("expected nil frontmatter for invalid YAML")
	}
	if res.Body != string(input) {
		t.Error("invalid frontmatter should leave the whole input as body")
	}
}

func TestHeadingsOutline(t *testing.T) {
	input := []byte("## Start writing Markdown\n\nintro\n\n# Top *level*\n\nSetext\n------\n\n### `code` head\n")
	res := Parse(input)
	want := []Heading{
		{Level: 2, Text: "Start writing Markdown"},
		{Level: 1, Text: "Top level"},
		{Level: 2, Text: "Setext"},
		{Level: 3, Text: "code head"},
	}
	if len(res.Headings) != len(want) {
		t.Fatalf("headings = %+v, want %+v", res.Headings, want)
	}
	for i := range want {
		if res.Headings[i] != want[i] {
			t.Errorf("headings[%d] = %+v, want %+v", i, res.Headings[i], want[i])
		}
	}
	if res.Title != "Top level" {
		t.Errorf("title = %q, want first H1", res.Title)
	}
}

func TestHeadingInsideCodeBlockIgnored(t *testing.T) {
	res := Parse([]byte("```\n# not a heading\n```\n"))
	if len(res.Headings) != 0 {
		t.Errorf("headings = %+v, want none", res.Headings)
	}
}

func TestWikilinks(t *testing.T) {
	res := Parse([]byte("Link to [[other-note]] and [[target|alias]] and [[other-note]] again."))
	if len(res.Links) != 2 {
		t.Fatalf("links = %v, want 2 unique", res.Links)
	}
	if res.Links[0] != "other-note" || res.Links[1] != "target" {
		t.Errorf("links = %v", res.Links)
	}
}

func TestInlineTags(t *testing.T) {
	res := Parse([]byte("Some text #golang and #test-tag here."))
	if len(res.Tags) != 2 {
		t.Errorf("tags = %v, want [golang test-tag]", res.Tags)
	}
}

func TestEmptyInput(t *testing.T) {
	res := Parse(nil)
	if res.Title != "" || len(res.Links) != 0 || len(res.Tags) != 0 || len(res.Headings) != 0 {
		t.Errorf("unexpected result for empty input: %+v", res)
	}
}
