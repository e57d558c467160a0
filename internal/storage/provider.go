// Package storage provides read-only, traversal-safe access to the content root.
package storage

import "io/fs"

// Provider is the interface for content file access. Paths are relative to
// the content root and may use forward slashes on every platform.
type Provider interface {
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
	// Abs resolves path to an absolute location under the content root.
	Abs(path string) (string, error)
	// Root returns the absolute content root.
	Root() string
}
