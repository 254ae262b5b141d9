package storage

import (
	"context"
	"sync"

	"go-url-registry/types"
	"go.uber.org/zap"
)

// InMemoryStorage implements the Storage interface using an in-memory map.
// Nothing survives a process restart; it backs tests and single-run deployments.
type InMemoryStorage struct {
	links    map[string]types.ShortLink // Map of short code to its record
	order    []string                   // Short codes in creation order
	mu       sync.RWMutex               // Guards links and order
	capacity int                        // Maximum number of links that can be stored
	logger   *zap.Logger
}

// NewInMemoryStorage creates and returns a new InMemoryStorage instance
func NewInMemoryStorage(capacity int, logger *zap.Logger) *InMemoryStorage {
	if capacity <= 0 {
		capacity = 1000 // Default capacity if an invalid value is provided
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryStorage{
		links:    make(map[string]types.ShortLink),
		capacity: capacity,
		logger:   logger,
	}
}

// Load returns copies of all stored links in creation order.
func (s *InMemoryStorage) Load(ctx context.Context) ([]types.ShortLink, error) {
	select {
	case <-ctx.Done():
		s.logger.Warn("Load operation cancelled")
		return nil, ctx.Err()
	default:
		s.mu.RLock()
		defer s.mu.RUnlock()

		links := make([]types.ShortLink, 0, len(s.order))
		for _, code := range s.order {
			links = append(links, s.links[code].Clone())
		}
		return links, nil
	}
}

// Create stores a new link.
func (s *InMemoryStorage) Create(ctx context.Context, link types.ShortLink) error {
	select {
	case <-ctx.Done():
		s.logger.Warn("Create operation cancelled", zap.String("shortCode", link.ShortCode))
		return ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		if len(s.links) >= s.capacity {
			s.logger.Error("Storage capacity reached. Cannot create short link", zap.String("shortCode", link.ShortCode))
			return ErrStorageCapacityReached
		}
		if _, exists := s.links[link.ShortCode]; exists {
			s.logger.Warn("Attempt to create duplicate short code", zap.String("shortCode", link.ShortCode))
			return ErrShortURLExists
		}

		s.links[link.ShortCode] = link.Clone()
		s.order = append(s.order, link.ShortCode)
		s.logger.Debug("Short link stored", zap.String("shortCode", link.ShortCode))
		return nil
	}
}

// RecordClick increments the click count of a link and appends the event.
func (s *InMemoryStorage) RecordClick(ctx context.Context, shortCode string, click types.ClickEvent) error {
	select {
	case <-ctx.Done():
		s.logger.Warn("RecordClick operation cancelled", zap.String("shortCode", shortCode))
		return ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		link, exists := s.links[shortCode]
		if !exists {
			s.logger.Warn("Attempt to record click on non-existent short code", zap.String("shortCode", shortCode))
			return ErrShortURLNotFound
		}

		link.ClickCount++
		link.Clicks = append(link.Clicks, click)
		s.links[shortCode] = link
		return nil
	}
}

// Delete removes the given short codes; unknown codes are ignored.
func (s *InMemoryStorage) Delete(ctx context.Context, shortCodes ...string) error {
	select {
	case <-ctx.Done():
		s.logger.Warn("Delete operation cancelled", zap.Strings("shortCodes", shortCodes))
		return ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		removed := make(map[string]struct{}, len(shortCodes))
		for _, code := range shortCodes {
			if _, exists := s.links[code]; exists {
				delete(s.links, code)
				removed[code] = struct{}{}
			}
		}
		if len(removed) == 0 {
			return nil
		}

		kept := s.order[:0]
		for _, code := range s.order {
			if _, gone := removed[code]; !gone {
				kept = append(kept, code)
			}
		}
		s.order = kept
		s.logger.Debug("Deleted short links", zap.Int("count", len(removed)))
		return nil
	}
}

// DeleteAll removes every stored link.
func (s *InMemoryStorage) DeleteAll(ctx context.Context) error {
	select {
	case <-ctx.Done():
		s.logger.Warn("DeleteAll operation cancelled")
		return ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		s.links = make(map[string]types.ShortLink)
		s.order = nil
		return nil
	}
}

// Close is a no-op for the in-memory backend.
func (s *InMemoryStorage) Close() error {
	return nil
}
