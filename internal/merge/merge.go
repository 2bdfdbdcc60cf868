// Package merge fuses a machine-generated document with its locally edited
// counterpart so that re-fetching a record can never erase what a human
// wrote into it.
package merge

import (
	"strings"

	"github.com/halvard/vaultsync/internal/note"
)

// UserOwnedKeys lists the frontmatter fields a human edits locally. When
// the existing document carries a meaningful value for one of these, that
// value wins over whatever the store regenerated.
var UserOwnedKeys = []string{
	"status",
	"statuses",
	"rating",
	"notes",
	"tags",
	"scheduled_time",
	"product_link",
	"author_links",
	"platform_targets",
	"workflow_log",
	"post_url",
	"published_time",
}

// Merge fuses incoming (machine-generated) content with existing (possibly
// user-edited) content for the same record and returns the serialized
// result. Neither input needs valid frontmatter; malformed documents
// degrade per note.Parse instead of failing the merge.
//
// Frontmatter: start from incoming so template fields stay current, carry
// forward keys only the existing side knows, then let meaningful user-owned
// values from existing win. Body: incoming body with any embedded user
// section stripped, plus the existing document's user section re-appended
// in markers.
//
// Applying the same incoming content twice is idempotent; swapping the
// arguments is not.
func Merge(existingText, incomingText string) string {
	incoming := note.Parse(incomingText)
	existing := note.Parse(existingText)

	fm := incoming.Frontmatter.Clone()
	for _, k := range existing.Frontmatter.Keys() {
		if !fm.Has(k) {
			v, _ := existing.Frontmatter.Get(k)
			fm.Set(k, v)
		}
	}
	for _, k := range UserOwnedKeys {
		if v, ok := existing.Frontmatter.Get(k); ok && v.Meaningful() {
			fm.Set(k, v)
		}
	}

	body := note.RemoveUserSection(incoming.Body)

	userSection := ""
	if strings.TrimSpace(existingText) != "" {
		userSection = note.ExtractUserSection(existing.Body)
	}
	if userSection != "" {
		body = strings.TrimRight(body, "\n") + "\n\n" + note.WrapUserSection(userSection) + "\n"
	}

	merged := &note.Document{Frontmatter: fm, Body: body}
	return merged.Serialize()
}
