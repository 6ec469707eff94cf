package content

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
)

//go:embed data.json
var embeddedDefault []byte

// DefaultSource supplies the document used when nothing is stored.
type DefaultSource interface {
	Default(ctx context.Context) ([]byte, error)
}

// EmbeddedDefault serves the sample document compiled into the binary.
type EmbeddedDefault struct{}

// Default implements DefaultSource.
func (EmbeddedDefault) Default(context.Context) ([]byte, error) {
	return embeddedDefault, nil
}

// FileDefault reads the default document from disk on every call.
type FileDefault struct {
	Path string
}

// Default implements DefaultSource.
func (f FileDefault) Default(context.Context) ([]byte, error) {
	raw, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("content: read default %s: %w", f.Path, err)
	}
	return raw, nil
}

// ErrNoDefault is returned by NoDefault.
var ErrNoDefault = errors.New("content: no default document")

// NoDefault never yields a document, leaving the empty document as the only fallback.
type NoDefault struct{}

// Default implements DefaultSource.
func (NoDefault) Default(context.Context) ([]byte, error) {
	return nil, ErrNoDefault
}

// NewDefaultSource returns FileDefault when path is set and EmbeddedDefault otherwise.
func NewDefaultSource(path string) DefaultSource {
	if path != "" {
		return FileDefault{Path: path}
	}
	return EmbeddedDefault{}
}
