// Package markdown converts notes to and from Markdown files with a YAML
// frontmatter header.
package markdown

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/notas/internal/models"
)

const (
	delim = "---"
	// Ext is the file extension used for exported notes.
	Ext = ".md"
)

// ErrInvalidFrontmatter is returned when the header is present but is not valid YAML.
var ErrInvalidFrontmatter = errors.New("markdown: invalid frontmatter")

// Frontmatter is the YAML header of an exported note.
type Frontmatter struct {
	ID        string    `yaml:"id,omitempty"`
	Title     string    `yaml:"title"`
	CreatedAt time.Time `yaml:"createdAt,omitempty"`
	UpdatedAt time.Time `yaml:"updatedAt,omitempty"`
}

// Doc is a parsed Markdown note.
type Doc struct {
	Frontmatter Frontmatter
	Body        string
}

// Note converts d to a note. Title falls back to the first H1 heading of the body.
func (d Doc) Note() models.Note {
	return models.Note{
		ID:        d.Frontmatter.ID,
		Title:     d.Frontmatter.Title,
		Content:   d.Body,
		CreatedAt: d.Frontmatter.CreatedAt,
		UpdatedAt: d.Frontmatter.UpdatedAt,
	}
}

// Input returns the fields needed to re-create the note elsewhere.
func (d Doc) Input() models.CreateNoteInput {
	return models.CreateNoteInput{Title: d.Frontmatter.Title, Content: d.Body}
}

// Render writes n as frontmatter followed by its content.
func Render(n models.Note) ([]byte, error) {
	fm, err := yaml.Marshal(Frontmatter{
		ID:        n.ID,
		Title:     n.Title,
		CreatedAt: n.CreatedAt.UTC(),
		UpdatedAt: n.UpdatedAt.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("markdown: render %s: %w", n.ID, err)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(fm)
	buf.WriteString(delim + "\n\n")
	buf.WriteString(n.Content)
	if n.Content != "" && !strings.HasSuffix(n.Content, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Parse splits data into frontmatter and body. Without a header the whole
// input is body. A missing title is taken from the first "# " heading.
func Parse(data []byte) (Doc, error) {
	var d Doc
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		d.Body = string(data)
	} else {
		rest := trimmed[len(delim):]
		idx := bytes.Index(rest, []byte("\n"+delim))
		if idx < 0 {
			d.Body = string(data)
		} else {
			if err := yaml.Unmarshal(rest[:idx], &d.Frontmatter); err != nil {
				return Doc{}, fmt.Errorf("%w: %v", ErrInvalidFrontmatter, err)
			}
			d.Body = strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
		}
	}

	d.Body = strings.TrimSuffix(d.Body, "\n")
	if strings.TrimSpace(d.Frontmatter.Title) == "" {
		d.Frontmatter.Title = headingTitle(d.Body)
	}
	return d, nil
}

func headingTitle(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}

// FileName is the export file name for n.
func FileName(n models.Note) string {
	return url.PathEscape(n.ID) + Ext
}
