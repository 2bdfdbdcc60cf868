// Package note models Markdown documents exchanged with the media store:
// an ordered frontmatter map plus a body that may contain a user-editable
// section and a machine-managed section.
package note

import "strings"

const delimiter = "---"

// Document is the parsed form of one Markdown file.
type Document struct {
	Frontmatter *Frontmatter
	Body        string
}

// Parse splits raw Markdown into frontmatter and body. The input only has
// frontmatter when its first line is exactly "---"; the block ends at the
// next such line. A missing closing delimiter or undecodable YAML degrades
// to an empty frontmatter with the whole input as body; parsing never
// fails, so a hand-mangled file is still mergeable.
func Parse(text string) *Document {
	doc := &Document{Frontmatter: NewFrontmatter(), Body: text}

	first, rest, found := strings.Cut(text, "\n")
	if !found || strings.TrimRight(first, "\r") != delimiter {
		return doc
	}

	block, after, ok := cutAtDelimiterLine(rest)
	if !ok {
		return doc
	}

	fm, ok := decodeFrontmatter([]byte(block))
	if !ok {
		return doc
	}

	doc.Frontmatter = fm
	doc.Body = strings.TrimLeft(after, "\n\r")
	return doc
}

// cutAtDelimiterLine splits text at the first line that is exactly "---",
// returning the content before it and after it.
func cutAtDelimiterLine(text string) (before, after string, ok bool) {
	offset := 0
	for {
		line, _, found := strings.Cut(text[offset:], "\n")
		lineEnd := offset + len(line)
		if strings.TrimRight(line, "\r") == delimiter {
			if found {
				return text[:offset], text[lineEnd+1:], true
			}
			return text[:offset], "", true
		}
		if !found {
			return "", "", false
		}
		offset = lineEnd + 1
	}
}

// Serialize renders the document back to text. Documents without
// frontmatter serialize to their body alone; otherwise the frontmatter
// block is emitted between "---" lines followed by a blank line and the
// body. Serialize is total and its output re-parses to an equal document.
func (d *Document) Serialize() string {
	if d.Frontmatter.Len() == 0 {
		return d.Body
	}
	var b strings.Builder
	b.WriteString(delimiter)
	b.WriteString("\n")
	b.Write(d.Frontmatter.encode())
	b.WriteString(delimiter)
	b.WriteString("\n\n")
	b.WriteString(d.Body)
	return b.String()
}
