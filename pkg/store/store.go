// Package store persists the page model served by the development backend.
//
// Records are JSON documents grouped by [Kind] and kept in a [Backend]:
// [MemoryBackend] for tests and demos, [RedisBackend] (one hash per kind)
// and [MongoBackend] (one collection per kind) for shared deployments. The
// [Repository] implements the page composer operations on top of any
// backend: page models, toolkits, component creation, reordering, removal,
// parameters and documents.
package store

import (
	"context"

	"github.com/matzehuels/pagecomposer/pkg/errors"
)

// Kind names a record collection.
type Kind string

// Record kinds.
const (
	KindPage       Kind = "pages"
	KindComponent  Kind = "components"
	KindToolkit    Kind = "toolkits"
	KindParameters Kind = "parameters"
	KindDocuments  Kind = "documents"
)

// Kinds lists every record kind.
var Kinds = []Kind{KindPage, KindComponent, KindToolkit, KindParameters, KindDocuments}

// Backend is a keyed document store.
type Backend interface {
	// Get returns the record, or a NOT_FOUND error.
	Get(ctx context.Context, kind Kind, id string) ([]byte, error)
	Put(ctx context.Context, kind Kind, id string, data []byte) error
	// Delete removes the record. Deleting a missing record is not an error.
	Delete(ctx context.Context, kind Kind, id string) error
	// List returns the ids of a kind in ascending order.
	List(ctx context.Context, kind Kind) ([]string, error)
	Close() error
}

func notFound(kind Kind, id string) error {
	return errors.New(errors.ErrCodeNotFound, "no %s record %q", kind, id)
}

// IsNotFound reports whether err is a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, errors.ErrCodeNotFound) || errors.Is(err, errors.ErrCodeComponentNotFound)
}
