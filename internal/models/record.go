// Package models defines the domain types for vaultsync.
package models

import "time"

// Record is one logical entity in the remote store, identified by an
// opaque id. The markdown payload is the store's rendered document for it.
type Record struct {
	ID              string `json:"id"`
	Markdown        string `json:"markdown"`
	TemplateVersion string `json:"template_version,omitempty"`
	Bookmarked      bool   `json:"bookmarked,omitempty"`
	AuthorID        string `json:"author_id,omitempty"`
}

// LocalFile is a Markdown file found in the vault. The filename stem is the
// record id, so one record may be represented by several files across the
// configured folders; deduplication happens at push time, not in storage.
type LocalFile struct {
	Path     string
	Checksum string
	ModTime  time.Time
}
