package mcpserver

// NoteFormatContract describes note fields, validation and the Markdown
// rendering returned by read_note.
const NoteFormatContract = `# Note Format

A note is a short text record:

| Field | Type | Notes |
|---|---|---|
| ` + "`id`" + ` | string | assigned on create, never changes |
| ` + "`title`" + ` | string | required |
| ` + "`content`" + ` | string | may be empty |
| ` + "`createdAt`" + ` | RFC 3339 timestamp | set once |
| ` + "`updatedAt`" + ` | RFC 3339 timestamp | refreshed on every update |

## Rules

1. **Title is required.** A title that is empty after trimming whitespace is rejected ("title is required").
2. **Title length** is at most 100 characters after trimming ("title too long").
3. **Content** has no length limit.
4. **Updates are partial.** Pass only the fields to change to ` + "`update_note`" + `; omitted fields keep their value.
   Passing an empty title is an error, not a way to clear it.
5. **Search** is a case-insensitive substring match over title and content. A blank query returns every note.

## Markdown rendering

` + "`read_note`" + ` and the CLI export use YAML frontmatter followed by the content:

` + "```" + `markdown
---
id: m5x1k2q9v3a
title: Shopping
createdAt: 2025-01-15T09:00:00Z
updatedAt: 2025-01-15T09:30:00Z
---

milk, eggs
` + "```" + `

Imported files without frontmatter take their title from the first ` + "`# heading`" + `.
`
