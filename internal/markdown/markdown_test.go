package markdown

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/notas/internal/models"
)

func TestRenderParseRoundTrip(t *testing.T) {
	created := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)
	n := models.Note{
		ID:        "m5x1k2abc",
		Title:     "Shopping: weekly",
		Content:   "milk\neggs\n\n# not a title",
		CreatedAt: created,
		UpdatedAt: created.Add(90 * time.Second),
	}

	data, err := Render(n)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "---\nid: m5x1k2abc\n") {
		t.Fatalf("unexpected header:\n%s", data)
	}

	d, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	got := d.Note()
	if got.ID != n.ID || got.Title != n.Title || got.Content != n.Content {
		t.Fatalf("round trip = %+v", got)
	}
	if !got.CreatedAt.Equal(n.CreatedAt) || !got.UpdatedAt.Equal(n.UpdatedAt) {
		t.Fatalf("timestamps = %v, %v", got.CreatedAt, got.UpdatedAt)
	}
}

func TestRenderEmptyContent(t *testing.T) {
	data, err := Render(models.Note{ID: "a", Title: "Empty"})
	if err != nil {
		t.Fatal(err)
	}
	d, err := Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	if d.Body != "" || d.Frontmatter.Title != "Empty" {
		t.Fatalf("got %+v", d)
	}
}

func TestParseWithoutFrontmatter(t *testing.T) {
	d, err := Parse([]byte("intro line\n# Groceries\n- milk\n"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Frontmatter.Title != "Groceries" {
		t.Errorf("title = %q", d.Frontmatter.Title)
	}
	if d.Frontmatter.ID != "" {
		t.Errorf("id = %q", d.Frontmatter.ID)
	}
	in := d.Input()
	if in.Content != "intro line\n# Groceries\n- milk" {
		t.Errorf("content = %q", in.Content)
	}
}

func TestParseUnclosedHeaderIsBody(t *testing.T) {
	d, err := Parse([]byte("---\ntitle: x\nno closing"))
	if err != nil {
		t.Fatal(err)
	}
	if d.Frontmatter.Title != "" || !strings.Contains(d.Body, "no closing") {
		t.Fatalf("got %+v", d)
	}
}

func TestParseInvalidYAML(t *testing.T) {
	_, err := Parse([]byte("---\ntitle: [unclosed\n---\nbody"))
	if !errors.Is(err, ErrInvalidFrontmatter) {
		t.Fatalf("err = %v, want ErrInvalidFrontmatter", err)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName(models.Note{ID: "abc"}); got != "abc.md" {
		t.Errorf("FileName = %q", got)
	}
	if got := FileName(models.Note{ID: "a/b"}); got != "a%2Fb.md" {
		t.Errorf("FileName = %q", got)
	}
}
