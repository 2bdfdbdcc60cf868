package merge

import (
	"strings"
	"testing"

	"github.com/halvard/vaultsync/internal/note"
)

const incomingDoc = "---\nid: \"42\"\ncaption: fresh template\nrating: null\ntemplate_version: v1.1\n---\n\nnew template\n"

func TestMerge_UserFieldsPreserved(t *testing.T) {
	existing := "---\nid: \"42\"\nrating: 4\nstatus: reviewed\ntags:\n  - keep-me\n---\n\nold template\n"
	out := Merge(existing, incomingDoc)
	d := note.Parse(out)

	v, _ := d.Frontmatter.Get("rating")
	if v.Kind() != note.KindInt || v.IntValue() != 4 {
		t.Errorf("rating = %#v, want existing value 4", v)
	}
	v, _ = d.Frontmatter.Get("status")
	if v.StringValue() != "reviewed" {
		t.Errorf("status = %#v, want reviewed", v)
	}
	v, _ = d.Frontmatter.Get("tags")
	if got := v.List(); len(got) != 1 || got[0] != "keep-me" {
		t.Errorf("tags = %v, want [keep-me]", got)
	}
	// Incoming still wins for non-owned fields.
	v, _ = d.Frontmatter.Get("caption")
	if v.StringValue() != "fresh template" {
		t.Errorf("caption = %#v, want incoming value", v)
	}
}

func TestMerge_EmptyExistingStringDoesNotOverride(t *testing.T) {
	existing := "---\nid: \"42\"\nnotes: \"\"\n---\nbody\n"
	incoming := "---\nid: \"42\"\nnotes: generated hint\n---\nbody\n"
	out := Merge(existing, incoming)
	v, _ := note.Parse(out).Frontmatter.Get("notes")
	if v.StringValue() != "generated hint" {
		t.Errorf("notes = %#v; an empty existing string must not override", v)
	}
}

func TestMerge_UnknownExistingKeysCarriedForward(t *testing.T) {
	existing := "---\nid: \"42\"\nlegacy_flag: true\n---\nbody\n"
	out := Merge(existing, incomingDoc)
	v, ok := note.Parse(out).Frontmatter.Get("legacy_flag")
	if !ok || v.Kind() != note.KindBool || !v.BoolValue() {
		t.Errorf("legacy_flag = %#v, want carried-forward true", v)
	}
}

func TestMerge_UserSectionRoundTrip(t *testing.T) {
	existing := "---\nid: \"42\"\n---\n\nbody text\n" +
		note.UserSectionStart + "\nMy notes\n" + note.UserSectionEnd + "\n"
	out := Merge(existing, incomingDoc)

	if !strings.Contains(out, "new template") {
		t.Errorf("incoming body lost: %q", out)
	}
	if !strings.Contains(out, "My notes") {
		t.Errorf("user section lost: %q", out)
	}
	if !strings.Contains(out, note.UserSectionStart) || !strings.Contains(out, note.UserSectionEnd) {
		t.Errorf("user markers missing: %q", out)
	}
}

func TestMerge_WholeBodyTreatedAsUserContentWithoutMarkers(t *testing.T) {
	existing := "---\nid: \"42\"\n---\n\nhandwritten prose only\n"
	out := Merge(existing, incomingDoc)
	if !strings.Contains(out, "handwritten prose only") {
		t.Errorf("unmarked prose discarded: %q", out)
	}
}

func TestMerge_EmptyExistingUsesIncoming(t *testing.T) {
	out := Merge("", incomingDoc)
	d := note.Parse(out)
	v, _ := d.Frontmatter.Get("caption")
	if v.StringValue() != "fresh template" {
		t.Errorf("caption = %#v", v)
	}
	if strings.Contains(out, note.UserSectionStart) {
		t.Errorf("no user section should be added for a fresh record: %q", out)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	existing := "---\nid: \"42\"\nrating: 5\nextra: legacy\n---\n\nold body\n" +
		note.UserSectionStart + "\nkeep these notes\n" + note.UserSectionEnd + "\n"

	first := Merge(existing, incomingDoc)
	second := Merge(first, incomingDoc)
	if first != second {
		t.Errorf("merge not idempotent:\nfirst:\n%s\nsecond:\n%s", first, second)
	}
}

func TestMerge_StripsDoubleWrappedIncoming(t *testing.T) {
	incoming := "---\nid: \"42\"\n---\n\ntemplate\n" +
		note.UserSectionStart + "\nstale echo\n" + note.UserSectionEnd + "\n"
	existing := "---\nid: \"42\"\n---\n\nbody\n" +
		note.UserSectionStart + "\nreal notes\n" + note.UserSectionEnd + "\n"
	out := Merge(existing, incoming)
	if strings.Contains(out, "stale echo") {
		t.Errorf("incoming user section should be stripped: %q", out)
	}
	if strings.Count(out, note.UserSectionStart) != 1 {
		t.Errorf("expected exactly one user section, got: %q", out)
	}
	if !strings.Contains(out, "real notes") {
		t.Errorf("existing user section lost: %q", out)
	}
}

func TestMerge_MalformedInputsDegrade(t *testing.T) {
	existing := "no frontmatter, just text\n"
	incoming := "---\nbroken: [yaml\n---\ntemplate body\n"
	out := Merge(existing, incoming)
	if !strings.Contains(out, "no frontmatter, just text") {
		t.Errorf("existing prose lost on malformed inputs: %q", out)
	}
	if !strings.Contains(out, "template body") {
		t.Errorf("incoming body lost on malformed inputs: %q", out)
	}
}
