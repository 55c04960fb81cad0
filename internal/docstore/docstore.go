// Package docstore is a path-addressed document store: documents grouped in collections,
// per-document CRUD, atomic field increments, all-or-nothing batches and live collection
// subscriptions that re-deliver the full result set on every change.
//
// Document paths alternate collection and document ids ("users/u1/cart/p1"); collection
// paths have an odd number of segments ("users/u1/cart").
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	ErrInvalidPath   = errors.New("invalid path")
)

// Error wraps a backend failure with the operation and path that produced it.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("docstore %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrapError(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		return err
	}
	return &Error{Op: op, Path: path, Err: err}
}

// Fields is the field set of a document. Values may include Increment and ServerTimestamp
// sentinels on writes.
type Fields map[string]any

// Document is a snapshot of one stored document.
type Document struct {
	ID     string
	Path   string
	Fields Fields
}

// Unsubscribe stops a live subscription. Calling it more than once is a no-op.
type Unsubscribe func()

// SnapshotFunc receives the complete result set of a subscription. A non-nil error ends
// the subscription.
type SnapshotFunc func(docs []Document, err error)

// Store is implemented by the mongo, firestore and memory backends.
type Store interface {
	Get(ctx context.Context, path string) (Document, error)
	GetAll(ctx context.Context, collection string, q Query) ([]Document, error)
	Set(ctx context.Context, path string, fields Fields) error
	Create(ctx context.Context, path string, fields Fields) error
	Update(ctx context.Context, path string, fields Fields) error
	Delete(ctx context.Context, path string) error
	Subscribe(ctx context.Context, collection string, fn SnapshotFunc) (Unsubscribe, error)
	Commit(ctx context.Context, writes []Write) error
	Close(ctx context.Context) error
}

type WriteKind int

const (
	WriteSet WriteKind = iota
	WriteCreate
	WriteUpdate
	WriteDelete
)

func (k WriteKind) String() string {
	switch k {
	case WriteSet:
		return "set"
	case WriteCreate:
		return "create"
	case WriteUpdate:
		return "update"
	case WriteDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Write is one entry of a batch passed to Commit.
type Write struct {
	Kind   WriteKind
	Path   string
	Fields Fields
}

func SetWrite(path string, fields Fields) Write {
	return Write{Kind: WriteSet, Path: path, Fields: fields}
}

func CreateWrite(path string, fields Fields) Write {
	return Write{Kind: WriteCreate, Path: path, Fields: fields}
}

func UpdateWrite(path string, fields Fields) Write {
	return Write{Kind: WriteUpdate, Path: path, Fields: fields}
}

func DeleteWrite(path string) Write {
	return Write{Kind: WriteDelete, Path: path}
}

type increment struct {
	by int64
}

// Increment atomically adds n to a numeric field when written.
func Increment(n int64) any {
	return increment{by: n}
}

type serverTimestamp struct{}

// ServerTimestamp is replaced by the store's clock when written.
var ServerTimestamp any = serverTimestamp{}

// Join builds a path from its segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

func splitPath(path string) ([]string, bool) {
	if strings.TrimSpace(path) == "" {
		return nil, false
	}
	parts := strings.Split(path, "/")
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			return nil, false
		}
	}
	return parts, true
}

// SplitDocumentPath returns the parent collection path and the document id.
func SplitDocumentPath(path string) (string, string, error) {
	parts, ok := splitPath(path)
	if !ok || len(parts)%2 != 0 {
		return "", "", fmt.Errorf("%w: %q is not a document path", ErrInvalidPath, path)
	}
	return strings.Join(parts[:len(parts)-1], "/"), parts[len(parts)-1], nil
}

// ValidateCollectionPath rejects empty segments and document paths.
func ValidateCollectionPath(path string) error {
	parts, ok := splitPath(path)
	if !ok || len(parts)%2 != 1 {
		return fmt.Errorf("%w: %q is not a collection path", ErrInvalidPath, path)
	}
	return nil
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}
