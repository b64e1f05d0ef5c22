// Package storage loads pantry and recipe snapshots and persists plans, on local disk or S3.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by MemorySource when it was built without data.
var ErrNotFound = errors.New("not found")

// Source loads a stored document.
type Source interface {
	Load(ctx context.Context) ([]byte, error)
}

// Sink persists a document, replacing any previous version.
type Sink interface {
	Save(ctx context.Context, data []byte) error
}

// MemorySource is an in-memory Source for tests and embedded fixtures.
type MemorySource struct {
	data []byte
	err  error
}

func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: data}
}

func NewMemorySourceWithError(err error) *MemorySource {
	if err == nil {
		err = ErrNotFound
	}
	return &MemorySource{err: err}
}

func (m *MemorySource) Load(ctx context.Context) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.data, nil
}

// MemorySink keeps the last saved document.
type MemorySink struct {
	Data  []byte
	Saves int
}

func (m *MemorySink) Save(ctx context.Context, data []byte) error {
	m.Data = append(m.Data[:0], data...)
	m.Saves++
	return nil
}
