// Package credstore is the client side of the external credential store that
// holds the authoritative secret values.
//
// Three backends implement Store: AWS SSM Parameter Store (production), a
// database table sealed with the data key, and an in-memory map for
// development and tests. Every backend reports a missing path as ErrNotFound.
package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/doodlesbykumbi/keyvault/pkg/metrics"
)

// ErrNotFound is returned when no parameter exists at the path.
var ErrNotFound = errors.New("credential not found")

// Store reads and writes secret values by path.
type Store interface {
	// Put creates or overwrites the value at path. When encrypted is set the
	// backend stores it encrypted at rest.
	Put(ctx context.Context, path, value string, encrypted bool) error

	// Get returns the decrypted value at path.
	Get(ctx context.Context, path string) (string, error)

	// Delete removes the value at path. Deleting a missing path returns
	// ErrNotFound.
	Delete(ctx context.Context, path string) error
}

// Backend names accepted by the credential_store setting.
const (
	BackendSSM      = "ssm"
	BackendDatabase = "database"
	BackendMemory   = "memory"
)

// instrumented counts every call against the wrapped backend.
type instrumented struct {
	backend string
	next    Store
}

// Instrument wraps s so each call is recorded in the credential store
// metrics under backend.
func Instrument(backend string, s Store) Store {
	return &instrumented{backend: backend, next: s}
}

func (i *instrumented) Put(ctx context.Context, path, value string, encrypted bool) error {
	start := time.Now()
	err := i.next.Put(ctx, path, value, encrypted)
	metrics.RecordCredentialOp(i.backend, "put", err, time.Since(start))
	return err
}

func (i *instrumented) Get(ctx context.Context, path string) (string, error) {
	start := time.Now()
	value, err := i.next.Get(ctx, path)
	metrics.RecordCredentialOp(i.backend, "get", err, time.Since(start))
	return value, err
}

func (i *instrumented) Delete(ctx context.Context, path string) error {
	start := time.Now()
	err := i.next.Delete(ctx, path)
	metrics.RecordCredentialOp(i.backend, "delete", err, time.Since(start))
	return err
}

func notFound(path string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, path)
}
