package note

import "strings"

// Marker pairs delimiting the two body regions. The managed block is owned
// by the store's template renderer and is replaced wholesale on every merge;
// the user block survives merges verbatim.
const (
	UserSectionStart = "<!-- user-notes:start -->"
	UserSectionEnd   = "<!-- user-notes:end -->"

	ManagedSectionStart = "<!-- managed:start -->"
	ManagedSectionEnd   = "<!-- managed:end -->"
)

// ExtractUserSection returns the human-authored region of body.
//
// Resolution order:
//  1. an explicit user-section block: text between the first start marker
//     and the first end marker after it (a missing end marker extends the
//     section to the end of the body rather than discarding it);
//  2. for documents that predate user markers, everything outside the
//     managed block;
//  3. otherwise the whole body.
//
// The fallbacks err on the side of keeping prose: text is only ever treated
// as machine-owned when markers say so.
func ExtractUserSection(body string) string {
	if start := strings.Index(body, UserSectionStart); start >= 0 {
		content := body[start+len(UserSectionStart):]
		if end := strings.Index(content, UserSectionEnd); end >= 0 {
			content = content[:end]
		}
		return strings.TrimSpace(content)
	}

	mStart := strings.Index(body, ManagedSectionStart)
	if mStart >= 0 {
		rest := body[mStart+len(ManagedSectionStart):]
		if mEnd := strings.Index(rest, ManagedSectionEnd); mEnd >= 0 {
			before := body[:mStart]
			after := rest[mEnd+len(ManagedSectionEnd):]
			return strings.TrimSpace(before + after)
		}
	}

	return strings.TrimSpace(body)
}

// RemoveUserSection strips a complete user-section block, markers included.
// Bodies without a complete pair are returned unchanged.
func RemoveUserSection(body string) string {
	start := strings.Index(body, UserSectionStart)
	if start < 0 {
		return body
	}
	rest := body[start+len(UserSectionStart):]
	end := strings.Index(rest, UserSectionEnd)
	if end < 0 {
		return body
	}
	return body[:start] + rest[end+len(UserSectionEnd):]
}

// WrapUserSection encloses content in the user-section markers.
func WrapUserSection(content string) string {
	return UserSectionStart + "\n" + content + "\n" + UserSectionEnd
}
