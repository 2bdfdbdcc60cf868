package mcpserver

// NoteFormatContract describes the document layout and ownership rules for
// synced notes. LLM consumers should read it before editing note files so
// their edits survive the next pull.
const NoteFormatContract = `# Note Document Contract

Every synced note is a Markdown file with YAML frontmatter. The file is
shared between the remote store (which regenerates the template parts) and
you (who own your annotations). Edits that follow this contract survive
every pull; edits that do not may be overwritten.

## Structure

` + "```" + `markdown
---
id: "42"                    # store-owned, never edit
caption: Example            # store-owned, regenerated on pull
status: posted              # user-owned
rating: 4                   # user-owned
tags:                       # user-owned
  - demo
notes: short remark         # user-owned
---

Template body regenerated by the store on every pull.

<!-- user-notes:start -->
Anything here is yours. It is carried forward verbatim on every pull.
<!-- user-notes:end -->
` + "```" + `

## Ownership rules

- User-owned frontmatter fields: status, statuses, rating, notes, tags,
  scheduled_time, product_link, author_links, platform_targets,
  workflow_log, post_url, published_time. Meaningful local values of these
  fields always win over incoming values. An empty string, empty list, or
  null does not count as meaningful and will not override.
- Any other frontmatter field you add locally is carried forward as long
  as the incoming document does not define it.
- Body text outside the user-notes markers belongs to the store and is
  replaced on pull. Keep your prose between the markers.
- If the markers are missing, the entire local body is treated as yours
  and re-wrapped in markers on the next pull. Unterminated markers extend
  to the end of the file.

## Editing checklist

1. Put free-form notes between the user-notes markers.
2. Set workflow fields (status, rating, tags, ...) in the frontmatter.
3. Do not edit the id field or the template body.
4. Push with the push_notes tool, or let the watcher pick up the save.
`
