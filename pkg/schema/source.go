package schema

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Source identifies where schema text comes from so callers (CLI, tests,
// presentation shells) can load files, embedded assets, or a persisted store
// without caring about the mechanics.
type Source interface {
	Kind() SourceKind
	Location() string
}

// SourceKind enumerates the loader modalities.
type SourceKind string

const (
	SourceKindFile   SourceKind = "file"
	SourceKindFS     SourceKind = "fs"
	SourceKindStore  SourceKind = "store"
	SourceKindInline SourceKind = "inline"
)

// TextStore is the get half of a schema store.
type TextStore interface {
	Get(ctx context.Context) (string, error)
}

type fileSource struct {
	path string
}

func (s fileSource) Location() string { return s.path }
func (s fileSource) Kind() SourceKind { return SourceKindFile }

// SourceFromFile returns a Source pointing to a file path.
func SourceFromFile(path string) Source {
	return fileSource{path: filepath.Clean(path)}
}

type fsSource struct {
	fsys fs.FS
	name string
}

func (s fsSource) Location() string { return s.name }
func (s fsSource) Kind() SourceKind { return SourceKindFS }

// SourceFromFS returns a Source identifying a file inside fsys.
func SourceFromFS(fsys fs.FS, name string) Source {
	return fsSource{fsys: fsys, name: name}
}

type storeSource struct {
	store TextStore
	label string
}

func (s storeSource) Location() string { return s.label }
func (s storeSource) Kind() SourceKind { return SourceKindStore }

// SourceFromStore reads the schema text persisted in store. label is only
// used for diagnostics.
func SourceFromStore(store TextStore, label string) Source {
	return storeSource{store: store, label: label}
}

type inlineSource struct {
	text string
}

func (s inlineSource) Location() string { return "inline" }
func (s inlineSource) Kind() SourceKind { return SourceKindInline }

// SourceFromString wraps schema text that is already in memory.
func SourceFromString(text string) Source {
	return inlineSource{text: text}
}

// Read returns the raw schema bytes behind src.
func Read(ctx context.Context, src Source) ([]byte, error) {
	if src == nil {
		return nil, errors.New("schema: source is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch s := src.(type) {
	case fileSource:
		data, err := os.ReadFile(s.path)
		if err != nil {
			return nil, fmt.Errorf("schema: read %s: %w", s.path, err)
		}
		return data, nil
	case fsSource:
		if s.fsys == nil {
			return nil, fmt.Errorf("schema: fs source %q has no filesystem", s.name)
		}
		data, err := fs.ReadFile(s.fsys, s.name)
		if err != nil {
			return nil, fmt.Errorf("schema: read %s: %w", s.name, err)
		}
		return data, nil
	case storeSource:
		if s.store == nil {
			return nil, fmt.Errorf("schema: store source %q has no store", s.label)
		}
		text, err := s.store.Get(ctx)
		if err != nil {
			return nil, fmt.Errorf("schema: load from %s: %w", s.label, err)
		}
		return []byte(text), nil
	case inlineSource:
		return []byte(s.text), nil
	default:
		return nil, fmt.Errorf("schema: unsupported source kind %q", src.Kind())
	}
}

// Load reads and parses the document behind src. Read failures are returned
// as plain errors; malformed content is returned as *ParseError.
func Load(ctx context.Context, src Source) (Document, error) {
	data, err := Read(ctx, src)
	if err != nil {
		return Document{}, err
	}
	return Parse(data)
}
