// Package storage defines the vault file-system abstraction.
package storage

import "github.com/halvard/vaultsync/internal/models"

// Provider is the interface for vault file operations. Paths are relative
// to the vault root; writes are whole-file and atomic.
type Provider interface {
	// List returns every .md file under dir (relative to vault root),
	// with checksums and modification times.
	List(dir string) ([]models.LocalFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Write atomically writes content to path, creating parent dirs.
	Write(path string, content []byte) error
	// Delete removes the file at path.
	Delete(path string) error
	// Move renames oldPath to newPath.
	Move(oldPath, newPath string) error
}
