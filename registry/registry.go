// Package registry owns the mapping from short codes to link records. It
// allocates codes, evaluates expiry and records clicks, writing every change
// through to a storage backend before committing it in memory.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go-url-registry/storage"
	"go-url-registry/types"
	"go-url-registry/urlgen"
	"go.uber.org/zap"
)

var (
	ErrInvalidURL         = errors.New("invalid URL")
	ErrInvalidValidity    = errors.New("invalid validity period")
	ErrInvalidShortCode   = errors.New("invalid short code")
	ErrShortCodeTaken     = errors.New("short code already in use")
	ErrNotFound           = errors.New("short code not found")
	ErrExpired            = errors.New("short code has expired")
	ErrCodeSpaceExhausted = errors.New("could not allocate a unique short code")
	ErrStorageFull        = errors.New("storage capacity reached")
)

// Service is the set of operations the HTTP layer depends on.
type Service interface {
	Create(ctx context.Context, originalURL, customCode string, validityMinutes *int) (types.ShortLink, error)
	Resolve(ctx context.Context, shortCode string, meta types.ClickMeta) (types.ShortLink, error)
	Get(ctx context.Context, shortCode string) (types.ShortLink, error)
	List(ctx context.Context) ([]types.ShortLink, error)
	Delete(ctx context.Context, shortCode string) error
	PurgeExpired(ctx context.Context) (int, error)
	PurgeAll(ctx context.Context) (int, error)
}

// Options tunes validation bounds and code generation. Validity values are
// in minutes. Zero fields take their defaults.
type Options struct {
	MinValidity         int
	MaxValidity         int
	DefaultValidity     int
	CodeLength          int
	MinCodeLength       int
	MaxCodeLength       int
	MaxGenerateAttempts int
	Now                 func() time.Time
	Generator           urlgen.Generator
	// ReservedCodes can never be assigned, custom or generated. The HTTP
	// gateway reserves its static path segments here.
	ReservedCodes []string
}

// DefaultOptions returns the stock bounds: 1 minute to 7 days, 30 minutes by
// default, 6-character generated codes, 3 to 10 character custom codes.
func DefaultOptions() Options {
	return Options{
		MinValidity:         1,
		MaxValidity:         10080,
		DefaultValidity:     30,
		CodeLength:          urlgen.DefaultLength,
		MinCodeLength:       3,
		MaxCodeLength:       10,
		MaxGenerateAttempts: 100,
		Now:                 time.Now,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinValidity <= 0 {
		o.MinValidity = d.MinValidity
	}
	if o.MaxValidity <= 0 {
		o.MaxValidity = d.MaxValidity
	}
	if o.DefaultValidity <= 0 {
		o.DefaultValidity = d.DefaultValidity
	}
	if o.CodeLength <= 0 {
		o.CodeLength = d.CodeLength
	}
	if o.MinCodeLength <= 0 {
		o.MinCodeLength = d.MinCodeLength
	}
	if o.MaxCodeLength <= 0 {
		o.MaxCodeLength = d.MaxCodeLength
	}
	if o.MaxGenerateAttempts <= 0 {
		o.MaxGenerateAttempts = d.MaxGenerateAttempts
	}
	if o.Now == nil {
		o.Now = d.Now
	}
	if o.Generator == nil {
		o.Generator = urlgen.NewGenerator(o.CodeLength)
	}
	return o
}

// Validate reports whether the bounds are consistent.
func (o Options) Validate() error {
	o = o.withDefaults()
	if o.MinValidity > o.MaxValidity {
		return fmt.Errorf("min validity %d exceeds max validity %d", o.MinValidity, o.MaxValidity)
	}
	if o.DefaultValidity < o.MinValidity || o.DefaultValidity > o.MaxValidity {
		return fmt.Errorf("default validity %d outside [%d, %d]", o.DefaultValidity, o.MinValidity, o.MaxValidity)
	}
	if o.MinCodeLength > o.MaxCodeLength {
		return fmt.Errorf("min code length %d exceeds max code length %d", o.MinCodeLength, o.MaxCodeLength)
	}
	return nil
}

// entry guards the click accounting of a single link.
type entry struct {
	mu   sync.Mutex
	link types.ShortLink
	seq  uint64
}

// Registry is the in-memory authority over short codes, backed by a
// storage.Storage. It is safe for concurrent use.
//
// Create, Delete and the purges hold the write lock for the whole
// check-write-insert sequence. Resolve holds the read lock plus the entry
// lock, so clicks on different codes proceed in parallel.
type Registry struct {
	store    storage.Storage
	opts     Options
	logger   *zap.Logger
	validate *validator.Validate
	codeTag  string
	reserved map[string]struct{}

	mu      sync.RWMutex
	entries map[string]*entry
	nextSeq uint64
}

// New builds a Registry and loads every record the store holds.
func New(ctx context.Context, store storage.Storage, opts Options, logger *zap.Logger) (*Registry, error) {
	if store == nil {
		return nil, errors.New("registry: nil storage")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("registry options: %w", err)
	}
	opts = opts.withDefaults()

	r := &Registry{
		store:    store,
		opts:     opts,
		logger:   logger,
		validate: validator.New(),
		codeTag:  fmt.Sprintf("alphanum,min=%d,max=%d", opts.MinCodeLength, opts.MaxCodeLength),
		reserved: make(map[string]struct{}, len(opts.ReservedCodes)),
		entries:  make(map[string]*entry),
	}
	for _, code := range opts.ReservedCodes {
		r.reserved[code] = struct{}{}
	}

	links, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load links: %w", err)
	}
	for _, link := range links {
		if _, dup := r.entries[link.ShortCode]; dup {
			logger.Warn("Duplicate short code in storage, keeping first", zap.String("shortCode", link.ShortCode))
			continue
		}
		if link.Clicks == nil {
			link.Clicks = []types.ClickEvent{}
		}
		r.insert(link)
	}

	logger.Info("Registry loaded", zap.Int("links", len(r.entries)))
	return r, nil
}

// Now returns the registry clock reading in UTC.
func (r *Registry) Now() time.Time {
	return r.opts.Now().UTC()
}

func (r *Registry) insert(link types.ShortLink) {
	r.nextSeq++
	r.entries[link.ShortCode] = &entry{link: link, seq: r.nextSeq}
}

func (r *Registry) validateURL(raw string) error {
	if err := r.validate.Var(raw, "required,url"); err != nil {
		return ErrInvalidURL
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return ErrInvalidURL
	}
	return nil
}

func (r *Registry) validity(minutes *int) (time.Duration, error) {
	if minutes == nil {
		return time.Duration(r.opts.DefaultValidity) * time.Minute, nil
	}
	if *minutes < r.opts.MinValidity || *minutes > r.opts.MaxValidity {
		return 0, ErrInvalidValidity
	}
	return time.Duration(*minutes) * time.Minute, nil
}

// Create registers a new link. An empty customCode asks for a generated one.
func (r *Registry) Create(ctx context.Context, originalURL, customCode string, validityMinutes *int) (types.ShortLink, error) {
	if err := ctx.Err(); err != nil {
		return types.ShortLink{}, err
	}

	if err := r.validateURL(originalURL); err != nil {
		return types.ShortLink{}, err
	}
	validity, err := r.validity(validityMinutes)
	if err != nil {
		return types.ShortLink{}, err
	}
	custom := customCode != ""
	if custom {
		if err := r.validate.Var(customCode, r.codeTag); err != nil {
			return types.ShortLink{}, ErrInvalidShortCode
		}
		if r.isReserved(customCode) {
			r.logger.Warn("Custom short code is reserved", zap.String("shortCode", customCode))
			return types.ShortLink{}, ErrInvalidShortCode
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.Now()
	link := types.ShortLink{
		ID:           uuid.NewString(),
		OriginalURL:  originalURL,
		IsCustomCode: custom,
		CreatedAt:    now,
		ExpiresAt:    now.Add(validity),
		Clicks:       []types.ClickEvent{},
	}

	if custom {
		if _, taken := r.entries[customCode]; taken {
			r.logger.Warn("Custom short code already in use", zap.String("shortCode", customCode))
			return types.ShortLink{}, ErrShortCodeTaken
		}
		link.ShortCode = customCode
		if err := r.store.Create(ctx, link); err != nil {
			return types.ShortLink{}, r.storageError("create", customCode, err)
		}
	} else {
		if err := r.createGenerated(ctx, &link); err != nil {
			return types.ShortLink{}, err
		}
	}

	r.insert(link)
	r.logger.Info("Short link created",
		zap.String("shortCode", link.ShortCode),
		zap.Bool("custom", custom),
		zap.Time("expiresAt", link.ExpiresAt),
	)
	return link.Clone(), nil
}

// createGenerated draws codes until one is free both here and in the store.
// Caller holds the write lock.
func (r *Registry) createGenerated(ctx context.Context, link *types.ShortLink) error {
	for attempt := 0; attempt < r.opts.MaxGenerateAttempts; attempt++ {
		code, err := r.opts.Generator()
		if err != nil {
			return fmt.Errorf("generate short code: %w", err)
		}
		if r.isReserved(code) {
			r.logger.Debug("Generated short code is reserved", zap.String("shortCode", code))
			continue
		}
		if _, taken := r.entries[code]; taken {
			r.logger.Debug("Generated short code collided", zap.String("shortCode", code), zap.Int("attempt", attempt+1))
			continue
		}

		link.ShortCode = code
		err = r.store.Create(ctx, *link)
		if errors.Is(err, storage.ErrShortURLExists) {
			r.logger.Debug("Generated short code exists in storage", zap.String("shortCode", code))
			continue
		}
		if err != nil {
			return r.storageError("create", code, err)
		}
		return nil
	}

	r.logger.Error("Short code space exhausted", zap.Int("attempts", r.opts.MaxGenerateAttempts))
	return ErrCodeSpaceExhausted
}

func (r *Registry) isReserved(code string) bool {
	_, ok := r.reserved[code]
	return ok
}

// Resolve records a click on an active link and returns the updated record.
// A record whose URL no longer validates fails with ErrInvalidURL and no
// click is recorded.
func (r *Registry) Resolve(ctx context.Context, shortCode string, meta types.ClickMeta) (types.ShortLink, error) {
	if err := ctx.Err(); err != nil {
		return types.ShortLink{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[shortCode]
	if !ok {
		return types.ShortLink{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := r.Now()
	if e.link.IsExpired(now) {
		r.logger.Info("Resolve on expired short code", zap.String("shortCode", shortCode))
		return types.ShortLink{}, ErrExpired
	}
	if err := r.validateURL(e.link.OriginalURL); err != nil {
		r.logger.Warn("Stored URL is invalid, refusing redirect",
			zap.String("shortCode", shortCode),
			zap.String("originalUrl", e.link.OriginalURL))
		return types.ShortLink{}, err
	}

	click := types.ClickEvent{
		Timestamp: now,
		Source:    meta.Source,
		Location:  meta.Location,
	}
	if err := r.store.RecordClick(ctx, shortCode, click); err != nil {
		return types.ShortLink{}, r.storageError("record click", shortCode, err)
	}

	e.link.ClickCount++
	e.link.Clicks = append(e.link.Clicks, click)
	return e.link.Clone(), nil
}

// Get returns a copy of a record without recording a click. Expired records
// are returned as well.
func (r *Registry) Get(ctx context.Context, shortCode string) (types.ShortLink, error) {
	if err := ctx.Err(); err != nil {
		return types.ShortLink{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[shortCode]
	if !ok {
		return types.ShortLink{}, ErrNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.link.Clone(), nil
}

// List returns a snapshot of every record, expired ones included, in
// creation order.
func (r *Registry) List(ctx context.Context) ([]types.ShortLink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ordered := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		ordered = append(ordered, e)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].seq < ordered[j].seq })

	links := make([]types.ShortLink, 0, len(ordered))
	for _, e := range ordered {
		e.mu.Lock()
		links = append(links, e.link.Clone())
		e.mu.Unlock()
	}
	return links, nil
}

// Delete purges a single record regardless of its expiry.
func (r *Registry) Delete(ctx context.Context, shortCode string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[shortCode]; !ok {
		return ErrNotFound
	}
	if err := r.store.Delete(ctx, shortCode); err != nil {
		return r.storageError("delete", shortCode, err)
	}
	delete(r.entries, shortCode)

	r.logger.Info("Short link deleted", zap.String("shortCode", shortCode))
	return nil
}

// PurgeExpired removes every expired record and returns how many went.
func (r *Registry) PurgeExpired(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.Now()
	var expired []string
	for code, e := range r.entries {
		if e.link.IsExpired(now) {
			expired = append(expired, code)
		}
	}
	if len(expired) == 0 {
		return 0, nil
	}

	if err := r.store.Delete(ctx, expired...); err != nil {
		return 0, r.storageError("purge expired", "", err)
	}
	for _, code := range expired {
		delete(r.entries, code)
	}

	r.logger.Info("Purged expired short links", zap.Int("removed", len(expired)))
	return len(expired), nil
}

// PurgeAll removes every record and returns how many there were.
func (r *Registry) PurgeAll(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.DeleteAll(ctx); err != nil {
		return 0, r.storageError("purge all", "", err)
	}
	removed := len(r.entries)
	r.entries = make(map[string]*entry)

	r.logger.Warn("Purged all short links", zap.Int("removed", removed))
	return removed, nil
}

// storageError maps backend errors onto registry errors.
func (r *Registry) storageError(op, shortCode string, err error) error {
	switch {
	case errors.Is(err, storage.ErrShortURLExists):
		return ErrShortCodeTaken
	case errors.Is(err, storage.ErrStorageCapacityReached):
		return ErrStorageFull
	case errors.Is(err, storage.ErrShortURLNotFound):
		return ErrNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		r.logger.Error("Storage operation failed",
			zap.String("op", op),
			zap.String("shortCode", shortCode),
			zap.Error(err),
		)
		return fmt.Errorf("%s: %w", op, err)
	}
}

// Summary aggregates a set of links at a given instant.
type Summary struct {
	TotalLinks   int
	ActiveLinks  int
	ExpiredLinks int
	TotalClicks  int64
}

// Summarize counts active and expired links and sums their clicks.
func Summarize(links []types.ShortLink, now time.Time) Summary {
	s := Summary{TotalLinks: len(links)}
	for _, link := range links {
		if link.IsExpired(now) {
			s.ExpiredLinks++
		} else {
			s.ActiveLinks++
		}
		s.TotalClicks += link.ClickCount
	}
	return s
}
