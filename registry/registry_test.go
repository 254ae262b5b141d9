package registry

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go-url-registry/storage"
	"go-url-registry/storage/mocks"
	"go-url-registry/types"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequence returns a generator yielding codes in order, repeating the last.
func sequence(codes ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i]
		if i < len(codes)-1 {
			i++
		}
		return code, nil
	}
}

func intPtr(v int) *int { return &v }

func newTestRegistry(t *testing.T, store storage.Storage, opts Options) *Registry {
	t.Helper()
	r, err := New(context.Background(), store, opts, zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestNew(t *testing.T) {
	t.Run("Nil storage", func(t *testing.T) {
		_, err := New(context.Background(), nil, Options{}, nil)
		assert.Error(t, err)
	})

	t.Run("Inconsistent options", func(t *testing.T) {
		store := storage.NewInMemoryStorage(10, nil)
		_, err := New(context.Background(), store, Options{MinValidity: 60, MaxValidity: 10}, nil)
		assert.Error(t, err)

		_, err = New(context.Background(), store, Options{MinCodeLength: 8, MaxCodeLength: 4}, nil)
		assert.Error(t, err)
	})

	t.Run("Load failure", func(t *testing.T) {
		store := new(mocks.MockStorage)
		store.On("Load", mock.Anything).Return(nil, errors.New("connection refused")).Once()

		_, err := New(context.Background(), store, Options{}, zap.NewNop())
		assert.ErrorContains(t, err, "connection refused")
		store.AssertExpectations(t)
	})

	t.Run("Defaults applied", func(t *testing.T) {
		r := newTestRegistry(t, storage.NewInMemoryStorage(10, nil), Options{})
		assert.Equal(t, DefaultOptions().MaxValidity, r.opts.MaxValidity)
		assert.Equal(t, 6, r.opts.CodeLength)
		assert.NotNil(t, r.opts.Generator)
	})
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	r := newTestRegistry(t, storage.NewInMemoryStorage(100, nil), Options{Now: clock.Now})

	t.Run("Generated code", func(t *testing.T) {
		link, err := r.Create(ctx, "https://example.com/some/long/path", "", nil)
		require.NoError(t, err)

		assert.Len(t, link.ShortCode, 6)
		assert.Regexp(t, `^[A-Za-z0-9]{6}$`, link.ShortCode)
		assert.False(t, link.IsCustomCode)
		_, err = uuid.Parse(link.ID)
		assert.NoError(t, err)
		assert.Equal(t, clock.Now(), link.CreatedAt)
		assert.Equal(t, clock.Now().Add(30*time.Minute), link.ExpiresAt)
		assert.Equal(t, int64(0), link.ClickCount)
		assert.Empty(t, link.Clicks)
	})

	t.Run("Custom code", func(t *testing.T) {
		link, err := r.Create(ctx, "https://example.com", "myLink1", intPtr(120))
		require.NoError(t, err)

		assert.Equal(t, "myLink1", link.ShortCode)
		assert.True(t, link.IsCustomCode)
		assert.Equal(t, link.CreatedAt.Add(2*time.Hour), link.ExpiresAt)

		_, err = r.Create(ctx, "https://other.example.com", "myLink1", nil)
		assert.Equal(t, ErrShortCodeTaken, err)
	})

	t.Run("Validation", func(t *testing.T) {
		tests := []struct {
			name        string
			url         string
			customCode  string
			validity    *int
			expectedErr error
		}{
			{"Empty URL", "", "", nil, ErrInvalidURL},
			{"Not a URL", "not a url", "", nil, ErrInvalidURL},
			{"Relative URL", "/just/a/path", "", nil, ErrInvalidURL},
			{"Validity zero", "https://example.com", "", intPtr(0), ErrInvalidValidity},
			{"Validity negative", "https://example.com", "", intPtr(-5), ErrInvalidValidity},
			{"Validity above max", "https://example.com", "", intPtr(10081), ErrInvalidValidity},
			{"Code too short", "https://example.com", "ab", nil, ErrInvalidShortCode},
			{"Code too long", "https://example.com", "abcdefghijk", nil, ErrInvalidShortCode},
			{"Code with dash", "https://example.com", "my-link", nil, ErrInvalidShortCode},
			{"Code with unicode", "https://example.com", "línk", nil, ErrInvalidShortCode},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				before, err := r.List(ctx)
				require.NoError(t, err)

				_, err = r.Create(ctx, tt.url, tt.customCode, tt.validity)
				assert.Equal(t, tt.expectedErr, err)

				after, err := r.List(ctx)
				require.NoError(t, err)
				assert.Len(t, after, len(before), "Rejected create must not add a record")
			})
		}
	})

	t.Run("Validity bounds inclusive", func(t *testing.T) {
		link, err := r.Create(ctx, "https://example.com/min", "", intPtr(1))
		require.NoError(t, err)
		assert.Equal(t, time.Minute, link.ExpiresAt.Sub(link.CreatedAt))

		link, err = r.Create(ctx, "https://example.com/max", "", intPtr(10080))
		require.NoError(t, err)
		assert.Equal(t, 7*24*time.Hour, link.ExpiresAt.Sub(link.CreatedAt))
	})

	t.Run("Code length bounds inclusive", func(t *testing.T) {
		_, err := r.Create(ctx, "https://example.com", "abc", nil)
		assert.NoError(t, err)
		_, err = r.Create(ctx, "https://example.com", "abcdefghij", nil)
		assert.NoError(t, err)
	})

	t.Run("Expired custom code stays reserved", func(t *testing.T) {
		_, err := r.Create(ctx, "https://example.com", "shortlived", intPtr(1))
		require.NoError(t, err)

		clock.Advance(2 * time.Minute)
		_, err = r.Resolve(ctx, "shortlived", types.ClickMeta{})
		require.Equal(t, ErrExpired, err)

		_, err = r.Create(ctx, "https://example.com", "shortlived", nil)
		assert.Equal(t, ErrShortCodeTaken, err)
	})

	t.Run("Cancelled context", func(t *testing.T) {
		cancelCtx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.Create(cancelCtx, "https://example.com", "", nil)
		assert.Equal(t, context.Canceled, err)
	})
}

func TestCreateCollisions(t *testing.T) {
	ctx := context.Background()

	t.Run("Regenerates on collision", func(t *testing.T) {
		r := newTestRegistry(t, storage.NewInMemoryStorage(10, nil), Options{
			Generator: sequence("aaaaaa", "aaaaaa", "bbbbbb"),
		})
		_, err := r.Create(ctx, "https://example.com", "aaaaaa", nil)
		require.NoError(t, err)

		link, err := r.Create(ctx, "https://example.com/2", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "bbbbbb", link.ShortCode)
	})

	t.Run("Regenerates on storage collision", func(t *testing.T) {
		store := new(mocks.MockStorage)
		store.On("Load", mock.Anything).Return([]types.ShortLink{}, nil).Once()
		store.On("Create", mock.Anything, mock.MatchedBy(func(l types.ShortLink) bool { return l.ShortCode == "taken1" })).
			Return(storage.ErrShortURLExists).Once()
		store.On("Create", mock.Anything, mock.MatchedBy(func(l types.ShortLink) bool { return l.ShortCode == "free01" })).
			Return(nil).Once()

		r := newTestRegistry(t, store, Options{Generator: sequence("taken1", "free01")})
		link, err := r.Create(ctx, "https://example.com", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "free01", link.ShortCode)
		store.AssertExpectations(t)
	})

	t.Run("Exhausted", func(t *testing.T) {
		r := newTestRegistry(t, storage.NewInMemoryStorage(10, nil), Options{
			Generator:           sequence("aaaaaa"),
			MaxGenerateAttempts: 5,
		})
		_, err := r.Create(ctx, "https://example.com", "", nil)
		require.NoError(t, err)

		_, err = r.Create(ctx, "https://example.com/2", "", nil)
		assert.Equal(t, ErrCodeSpaceExhausted, err)

		links, err := r.List(ctx)
		require.NoError(t, err)
		assert.Len(t, links, 1)
	})

	t.Run("Generator failure", func(t *testing.T) {
		r := newTestRegistry(t, storage.NewInMemoryStorage(10, nil), Options{
			Generator: func() (string, error) { return "", errors.New("entropy unavailable") },
		})
		_, err := r.Create(ctx, "https://example.com", "", nil)
		assert.ErrorContains(t, err, "entropy unavailable")
	})
}

func TestCreateStorageFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("Write failure leaves memory unchanged", func(t *testing.T) {
		store := new(mocks.MockStorage)
		store.On("Load", mock.Anything).Return([]types.ShortLink{}, nil).Once()
		store.On("Create", mock.Anything, mock.AnythingOfType("types.ShortLink")).Return(errors.New("disk I/O error")).Once()

		r := newTestRegistry(t, store, Options{})
		_, err := r.Create(ctx, "https://example.com", "custom1", nil)
		assert.ErrorContains(t, err, "disk I/O error")

		links, err := r.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, links)
		_, err = r.Get(ctx, "custom1")
		assert.Equal(t, ErrNotFound, err)
		store.AssertExpectations(t)
	})

	t.Run("Capacity reached", func(t *testing.T) {
		r := newTestRegistry(t, storage.NewInMemoryStorage(1, nil), Options{})
		_, err := r.Create(ctx, "https://example.com", "", nil)
		require.NoError(t, err)

		_, err = r.Create(ctx, "https://example.com", "", nil)
		assert.Equal(t, ErrStorageFull, err)
	})
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	r := newTestRegistry(t, storage.NewInMemoryStorage(100, nil), Options{Now: clock.Now})

	created, err := r.Create(ctx, "https://example.com/target", "target", intPtr(10))
	require.NoError(t, err)

	t.Run("Records click", func(t *testing.T) {
		clock.Advance(time.Minute)
		meta := types.ClickMeta{Source: "https://news.example.org", Location: "Paris, France"}

		link, err := r.Resolve(ctx, "target", meta)
		require.NoError(t, err)

		assert.Equal(t, "https://example.com/target", link.OriginalURL)
		assert.Equal(t, int64(1), link.ClickCount)
		require.Len(t, link.Clicks, 1)
		assert.Equal(t, clock.Now(), link.Clicks[0].Timestamp)
		assert.Equal(t, "https://news.example.org", link.Clicks[0].Source)
		assert.Equal(t, "Paris, France", link.Clicks[0].Location)
	})

	t.Run("Not found", func(t *testing.T) {
		_, err := r.Resolve(ctx, "missing", types.ClickMeta{})
		assert.Equal(t, ErrNotFound, err)
	})

	t.Run("Expiry boundary", func(t *testing.T) {
		clock.mu.Lock()
		clock.now = created.ExpiresAt
		clock.mu.Unlock()

		_, err := r.Resolve(ctx, "target", types.ClickMeta{})
		assert.NoError(t, err, "A link still resolves at exactly its expiry instant")

		clock.Advance(time.Nanosecond)
		_, err = r.Resolve(ctx, "target", types.ClickMeta{})
		assert.Equal(t, ErrExpired, err)

		link, err := r.Get(ctx, "target")
		require.NoError(t, err, "Expired links are kept until purged")
		assert.Equal(t, int64(2), link.ClickCount, "Expired resolve must not count")
		assert.Len(t, link.Clicks, 2)
	})

	t.Run("Click write failure", func(t *testing.T) {
		store := new(mocks.MockStorage)
		store.On("Load", mock.Anything).Return([]types.ShortLink{}, nil).Once()
		store.On("Create", mock.Anything, mock.AnythingOfType("types.ShortLink")).Return(nil).Once()
		store.On("RecordClick", mock.Anything, "flaky", mock.AnythingOfType("types.ClickEvent")).Return(errors.New("timeout")).Once()

		r := newTestRegistry(t, store, Options{})
		_, err := r.Create(ctx, "https://example.com", "flaky", nil)
		require.NoError(t, err)

		_, err = r.Resolve(ctx, "flaky", types.ClickMeta{})
		assert.Error(t, err)

		link, err := r.Get(ctx, "flaky")
		require.NoError(t, err)
		assert.Equal(t, int64(0), link.ClickCount)
		assert.Empty(t, link.Clicks)
		store.AssertExpectations(t)
	})
}

func TestConcurrency(t *testing.T) {
	ctx := context.Background()

	t.Run("Concurrent creates yield unique codes", func(t *testing.T) {
		r := newTestRegistry(t, storage.NewInMemoryStorage(10000, nil), Options{})
		const n = 500

		codes := make(chan string, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				link, err := r.Create(ctx, fmt.Sprintf("https://example.com/%d", i), "", nil)
				if assert.NoError(t, err) {
					codes <- link.ShortCode
				}
			}(i)
		}
		wg.Wait()
		close(codes)

		seen := make(map[string]bool, n)
		for code := range codes {
			assert.False(t, seen[code], "Duplicate short code %s", code)
			seen[code] = true
		}
		assert.Len(t, seen, n)
	})

	t.Run("Concurrent custom code claims", func(t *testing.T) {
		r := newTestRegistry(t, storage.NewInMemoryStorage(100, nil), Options{})
		const n = 50

		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			success int
		)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := r.Create(ctx, "https://example.com", "contested", nil)
				if err == nil {
					mu.Lock()
					success++
					mu.Unlock()
					return
				}
				assert.Equal(t, ErrShortCodeTaken, err)
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, success)
	})

	t.Run("Concurrent resolves count every click", func(t *testing.T) {
		r := newTestRegistry(t, storage.NewInMemoryStorage(100, nil), Options{})
		_, err := r.Create(ctx, "https://example.com", "hot", nil)
		require.NoError(t, err)
		_, err = r.Create(ctx, "https://example.com", "cold", nil)
		require.NoError(t, err)

		const k = 200
		var wg sync.WaitGroup
		for i := 0; i < k; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := r.Resolve(ctx, "hot", types.ClickMeta{Source: "Direct"})
				assert.NoError(t, err)
			}()
			go func() {
				defer wg.Done()
				_, err := r.List(ctx)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		link, err := r.Get(ctx, "hot")
		require.NoError(t, err)
		assert.Equal(t, int64(k), link.ClickCount)
		assert.Len(t, link.Clicks, k)

		cold, err := r.Get(ctx, "cold")
		require.NoError(t, err)
		assert.Equal(t, int64(0), cold.ClickCount)
	})
}

func TestListAndGet(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	r := newTestRegistry(t, storage.NewInMemoryStorage(100, nil), Options{Now: clock.Now})

	for _, code := range []string{"first", "second", "third"} {
		_, err := r.Create(ctx, "https://example.com/"+code, code, intPtr(5))
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	t.Run("Creation order", func(t *testing.T) {
		links, err := r.List(ctx)
		require.NoError(t, err)
		require.Len(t, links, 3)
		assert.Equal(t, "first", links[0].ShortCode)
		assert.Equal(t, "second", links[1].ShortCode)
		assert.Equal(t, "third", links[2].ShortCode)
	})

	t.Run("Includes expired", func(t *testing.T) {
		clock.Advance(time.Hour)
		links, err := r.List(ctx)
		require.NoError(t, err)
		assert.Len(t, links, 3)
	})

	t.Run("Snapshots are isolated", func(t *testing.T) {
		links, err := r.List(ctx)
		require.NoError(t, err)
		links[0].ClickCount = 99
		links[0].Clicks = append(links[0].Clicks, types.ClickEvent{Source: "tampered"})

		link, err := r.Get(ctx, "first")
		require.NoError(t, err)
		assert.Equal(t, int64(0), link.ClickCount)
		assert.Empty(t, link.Clicks)
	})

	t.Run("Get does not record a click", func(t *testing.T) {
		_, err := r.Get(ctx, "second")
		require.NoError(t, err)
		link, err := r.Get(ctx, "second")
		require.NoError(t, err)
		assert.Equal(t, int64(0), link.ClickCount)

		_, err = r.Get(ctx, "missing")
		assert.Equal(t, ErrNotFound, err)
	})
}

func TestPurge(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	r := newTestRegistry(t, storage.NewInMemoryStorage(100, nil), Options{Now: clock.Now})

	_, err := r.Create(ctx, "https://example.com/a", "short1", intPtr(1))
	require.NoError(t, err)
	_, err = r.Create(ctx, "https://example.com/b", "short2", intPtr(1))
	require.NoError(t, err)
	_, err = r.Create(ctx, "https://example.com/c", "long1", intPtr(60))
	require.NoError(t, err)

	t.Run("PurgeExpired with nothing expired", func(t *testing.T) {
		removed, err := r.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, removed)
	})

	t.Run("PurgeExpired is idempotent", func(t *testing.T) {
		clock.Advance(2 * time.Minute)

		removed, err := r.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, removed)

		removed, err = r.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, removed)

		links, err := r.List(ctx)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, "long1", links[0].ShortCode)

		// Purged custom codes become available again
		_, err = r.Create(ctx, "https://example.com/new", "short1", nil)
		assert.NoError(t, err)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, r.Delete(ctx, "short1"))
		assert.Equal(t, ErrNotFound, r.Delete(ctx, "short1"))

		_, err := r.Resolve(ctx, "short1", types.ClickMeta{})
		assert.Equal(t, ErrNotFound, err)
	})

	t.Run("PurgeAll", func(t *testing.T) {
		removed, err := r.PurgeAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		links, err := r.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, links)

		removed, err = r.PurgeAll(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, removed)
	})

	t.Run("Storage failure keeps records", func(t *testing.T) {
		store := new(mocks.MockStorage)
		store.On("Load", mock.Anything).Return([]types.ShortLink{}, nil).Once()
		store.On("Create", mock.Anything, mock.AnythingOfType("types.ShortLink")).Return(nil).Once()
		store.On("Delete", mock.Anything, []string{"keepme"}).Return(errors.New("read-only")).Once()
		store.On("DeleteAll", mock.Anything).Return(errors.New("read-only")).Once()

		r := newTestRegistry(t, store, Options{})
		_, err := r.Create(ctx, "https://example.com", "keepme", nil)
		require.NoError(t, err)

		assert.Error(t, r.Delete(ctx, "keepme"))
		_, err = r.PurgeAll(ctx)
		assert.Error(t, err)

		_, err = r.Get(ctx, "keepme")
		assert.NoError(t, err)
		store.AssertExpectations(t)
	})
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := storage.NewInMemoryStorage(100, nil)
	r := newTestRegistry(t, store, Options{Now: clock.Now})

	_, err := r.Create(ctx, "https://example.com/a", "", nil)
	require.NoError(t, err)
	clock.Advance(time.Second)
	_, err = r.Create(ctx, "https://example.com/b", "custom", intPtr(1))
	require.NoError(t, err)
	_, err = r.Resolve(ctx, "custom", types.ClickMeta{Source: "Direct", Location: "Unknown"})
	require.NoError(t, err)
	clock.Advance(time.Hour)

	before, err := r.List(ctx)
	require.NoError(t, err)

	reloaded := newTestRegistry(t, store, Options{Now: clock.Now})
	after, err := reloaded.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	// Expiry is re-evaluated against the clock, not stored
	_, err = reloaded.Resolve(ctx, "custom", types.ClickMeta{})
	assert.Equal(t, ErrExpired, err)
}

func TestReloadKeepsCreationOrder(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store, err := storage.NewSQLStorage(ctx, filepath.Join(t.TempDir(), "links.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	r := newTestRegistry(t, store, Options{Now: clock.Now})
	// Same instant for every record; descending names so no tiebreak on
	// code or id can pass by accident.
	for i := 7; i >= 0; i-- {
		_, err := r.Create(ctx, "https://example.com", fmt.Sprintf("code%d", i), nil)
		require.NoError(t, err)
	}

	before, err := r.List(ctx)
	require.NoError(t, err)

	reloaded := newTestRegistry(t, store, Options{Now: clock.Now})
	after, err := reloaded.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	codes := make([]string, 0, len(after))
	for _, link := range after {
		codes = append(codes, link.ShortCode)
	}
	assert.Equal(t, []string{"code7", "code6", "code5", "code4", "code3", "code2", "code1", "code0"}, codes)
}

func TestReservedCodes(t *testing.T) {
	ctx := context.Background()
	reserved := []string{"shorten", "stats", "qr", "links", "maintenance", "health", "metrics"}

	t.Run("Custom code", func(t *testing.T) {
		r := newTestRegistry(t, storage.NewInMemoryStorage(100, nil), Options{ReservedCodes: reserved})
		for _, code := range reserved {
			t.Run(code, func(t *testing.T) {
				_, err := r.Create(ctx, "https://example.com", code, nil)
				assert.Equal(t, ErrInvalidShortCode, err)
			})
		}

		links, err := r.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, links)
	})

	t.Run("Matching is exact", func(t *testing.T) {
		r := newTestRegistry(t, storage.NewInMemoryStorage(100, nil), Options{ReservedCodes: reserved})
		link, err := r.Create(ctx, "https://example.com", "Stats", nil)
		require.NoError(t, err)
		assert.Equal(t, "Stats", link.ShortCode)
	})

	t.Run("Generated code skips reserved words", func(t *testing.T) {
		r := newTestRegistry(t, storage.NewInMemoryStorage(100, nil), Options{
			ReservedCodes: reserved,
			Generator:     sequence("health", "stats", "abc123"),
		})
		link, err := r.Create(ctx, "https://example.com", "", nil)
		require.NoError(t, err)
		assert.Equal(t, "abc123", link.ShortCode)
	})
}

func TestResolveRejectsInvalidStoredURL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	store := storage.NewInMemoryStorage(10, nil)
	require.NoError(t, store.Create(ctx, types.ShortLink{
		ID:          uuid.NewString(),
		OriginalURL: "not-a-valid-url",
		ShortCode:   "broken",
		CreatedAt:   clock.Now(),
		ExpiresAt:   clock.Now().Add(time.Hour),
		Clicks:      []types.ClickEvent{},
	}))

	r := newTestRegistry(t, store, Options{Now: clock.Now})
	_, err := r.Resolve(ctx, "broken", types.ClickMeta{Source: "Direct", Location: "Unknown"})
	assert.Equal(t, ErrInvalidURL, err)

	link, err := r.Get(ctx, "broken")
	require.NoError(t, err)
	assert.Equal(t, int64(0), link.ClickCount)
	assert.Empty(t, link.Clicks)

	stored, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, int64(0), stored[0].ClickCount)
}

func TestSummarize(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	links := []types.ShortLink{
		{ExpiresAt: now.Add(time.Minute), ClickCount: 3},
		{ExpiresAt: now, ClickCount: 1},
		{ExpiresAt: now.Add(-time.Minute), ClickCount: 5},
	}

	s := Summarize(links, now)
	assert.Equal(t, Summary{TotalLinks: 3, ActiveLinks: 2, ExpiredLinks: 1, TotalClicks: 9}, s)
	assert.Equal(t, Summary{}, Summarize(nil, now))
}
