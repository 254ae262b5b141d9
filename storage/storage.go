// Package storage provides the persistence backends the registry writes through.
package storage

import (
	"context"
	"errors"

	"go-url-registry/types"
)

// Common errors returned by storage operations.
var (
	ErrShortURLExists         = errors.New("short URL already exists")
	ErrShortURLNotFound       = errors.New("short URL not found")
	ErrStorageCapacityReached = errors.New("storage capacity reached")
)

// Storage is the durable record store behind the registry.
//
// Load returns every record in creation order with its full click log.
// RecordClick increments the click count and appends the event as one unit.
// Delete ignores codes that are not present.
type Storage interface {
	Load(ctx context.Context) ([]types.ShortLink, error)
	Create(ctx context.Context, link types.ShortLink) error
	RecordClick(ctx context.Context, shortCode string, click types.ClickEvent) error
	Delete(ctx context.Context, shortCodes ...string) error
	DeleteAll(ctx context.Context) error
	Close() error
}
