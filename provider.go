package catacombs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Default remote documents.
const (
	PatternDocumentURL = "https://raw.githubusercontent.com/DocilElm/Doc-Data/refs/heads/main/api/tska.json"
	RoomDatabaseURL    = "https://raw.githubusercontent.com/DocilElm/Doc-Data/refs/heads/main/dungeons/rooms.json"
	ElectionURL        = "https://api.hypixel.net/resources/skyblock/election"
)

// Provider fetches a remote document and keeps it up to date.
// Providers bridge the tracker with external data sources (HTTP, files).
type Provider[T any] interface {
	// Name returns a unique identifier for this provider (for logging/debugging).
	Name() string

	// Fetch returns the current document.
	Fetch(ctx context.Context) (T, error)

	// Subscribe starts receiving newer documents. Updates are sent to the
	// channel until the subscription is closed or ctx is done.
	Subscribe(ctx context.Context, updates chan<- T) (Subscription, error)
}

// Versioned documents report a version. URLProvider only pushes a document
// whose version differs from the last one it returned.
type Versioned interface {
	DocumentVersion() int
}

// Subscription represents an active subscription to updates.
// Call Close() to stop receiving updates and release resources.
type Subscription interface {
	Close() error
}

// ProviderOptions configures provider behavior.
type ProviderOptions struct {
	// FetchTimeout is the maximum time to wait for a remote fetch, in
	// milliseconds.
	// Default: 5 seconds.
	FetchTimeout int64

	// CacheLimit is how long a cached copy is used without fetching, in
	// milliseconds.
	// Default: 30 minutes.
	CacheLimit int64

	// RefreshInterval is how often subscriptions poll the remote, in
	// milliseconds. Zero disables polling.
	// Default: 30 minutes.
	RefreshInterval int64

	// Required indicates the service must fail to start when the first
	// fetch fails. Otherwise the failure is logged and built-in data is used.
	// Default: false.
	Required bool

	// Logger receives fetch failures.
	Logger logrus.FieldLogger
}

// defaultProviderOptions returns sensible defaults.
func defaultProviderOptions() ProviderOptions {
	return ProviderOptions{
		FetchTimeout:    5_000,       // 5 seconds
		CacheLimit:      30 * 60_000, // 30 minutes
		RefreshInterval: 30 * 60_000, // 30 minutes
		Logger:          logrus.StandardLogger(),
	}
}

// ProviderOption configures a provider.
type ProviderOption func(*ProviderOptions)

// WithFetchTimeout sets the fetch timeout in milliseconds.
func WithFetchTimeout(ms int64) ProviderOption {
	return func(o *ProviderOptions) {
		o.FetchTimeout = ms
	}
}

// WithCacheLimit sets how long the file cache is trusted, in milliseconds.
func WithCacheLimit(ms int64) ProviderOption {
	return func(o *ProviderOptions) {
		o.CacheLimit = ms
	}
}

// WithRefreshInterval sets the subscription poll interval in milliseconds.
func WithRefreshInterval(ms int64) ProviderOption {
	return func(o *ProviderOptions) {
		o.RefreshInterval = ms
	}
}

// WithRequired marks the provider as required for the service to start.
func WithRequired(required bool) ProviderOption {
	return func(o *ProviderOptions) {
		o.Required = required
	}
}

// WithProviderLogger sets the provider's logger.
func WithProviderLogger(l logrus.FieldLogger) ProviderOption {
	return func(o *ProviderOptions) {
		o.Logger = l
	}
}

// URLProvider fetches a JSON document over HTTP and caches it on disk.
type URLProvider[T any] struct {
	name   string
	url    string
	cache  *fileCache
	client *http.Client
	opts   ProviderOptions

	mu          sync.Mutex
	lastRaw     []byte
	lastVersion int
	hasLast     bool
}

// NewURLProvider creates a provider for url. cachePath may be empty to
// disable the file cache.
func NewURLProvider[T any](name, url, cachePath string, opts ...ProviderOption) *URLProvider[T] {
	o := defaultProviderOptions()
	for _, opt := range opts {
		opt(&o)
	}
	p := &URLProvider[T]{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: time.Duration(o.FetchTimeout) * time.Millisecond},
		opts:   o,
	}
	if cachePath != "" {
		p.cache = &fileCache{path: cachePath}
	}
	return p
}

// Name implements Provider.
func (p *URLProvider[T]) Name() string { return p.name }

// Options returns the provider options.
func (p *URLProvider[T]) Options() ProviderOptions { return p.opts }

// Fetch returns the cached document while it is younger than the cache
// limit, otherwise the remote one. When the remote fails a stale cached copy
// is used.
func (p *URLProvider[T]) Fetch(ctx context.Context) (T, error) {
	var zero T

	var cached []byte
	if p.cache != nil {
		raw, savedAt, err := p.cache.load()
		switch {
		case err != nil:
			p.opts.Logger.WithError(err).WithField("provider", p.name).Warn("catacombs: ignoring unreadable cache")
		case raw != nil:
			cached = raw
			if time.Since(savedAt) < time.Duration(p.opts.CacheLimit)*time.Millisecond {
				return p.accept(raw)
			}
		}
	}

	raw, err := p.get(ctx)
	if err != nil {
		if cached != nil {
			p.opts.Logger.WithError(err).WithField("provider", p.name).Warn("catacombs: using stale cache")
			return p.accept(cached)
		}
		return zero, err
	}
	v, err := p.accept(raw)
	if err != nil {
		return zero, err
	}
	if p.cache != nil {
		if err := p.cache.save(raw, time.Now()); err != nil {
			p.opts.Logger.WithError(err).WithField("provider", p.name).Warn("catacombs: failed to write cache")
		}
	}
	return v, nil
}

// Subscribe polls the remote every refresh interval and sends documents
// that differ from the last one returned.
func (p *URLProvider[T]) Subscribe(ctx context.Context, updates chan<- T) (Subscription, error) {
	if p.opts.RefreshInterval <= 0 {
		return nopSubscription{}, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	sub := &pollSubscription{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(sub.done)
		ticker := time.NewTicker(time.Duration(p.opts.RefreshInterval) * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			v, changed, err := p.refresh(ctx)
			if err != nil {
				p.opts.Logger.WithError(err).WithField("provider", p.name).Debug("catacombs: refresh failed")
				continue
			}
			if !changed {
				continue
			}
			select {
			case updates <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return sub, nil
}

// refresh fetches the remote document and reports whether it differs from
// the last accepted one.
func (p *URLProvider[T]) refresh(ctx context.Context) (T, bool, error) {
	var zero T
	raw, err := p.get(ctx)
	if err != nil {
		return zero, false, err
	}
	v, err := decodeDocument[T](raw)
	if err != nil {
		return zero, false, err
	}

	p.mu.Lock()
	changed := !p.hasLast
	if ver, ok := any(v).(Versioned); ok {
		changed = changed || ver.DocumentVersion() != p.lastVersion
	} else {
		changed = changed || !bytes.Equal(raw, p.lastRaw)
	}
	p.mu.Unlock()

	if !changed {
		return zero, false, nil
	}
	p.remember(v, raw)
	if p.cache != nil {
		if err := p.cache.save(raw, time.Now()); err != nil {
			p.opts.Logger.WithError(err).WithField("provider", p.name).Warn("catacombs: failed to write cache")
		}
	}
	return v, true, nil
}

func (p *URLProvider[T]) accept(raw []byte) (T, error) {
	v, err := decodeDocument[T](raw)
	if err != nil {
		return v, err
	}
	p.remember(v, raw)
	return v, nil
}

func (p *URLProvider[T]) remember(v T, raw []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastRaw = raw
	p.hasLast = true
	if ver, ok := any(v).(Versioned); ok {
		p.lastVersion = ver.DocumentVersion()
	}
}

func (p *URLProvider[T]) get(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(p.opts.FetchTimeout)*time.Millisecond)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return nil, fmt.Errorf("catacombs: %s: %w", p.name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catacombs: %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catacombs: %s: unexpected status %s", p.name, resp.Status)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("catacombs: %s: read body: %w", p.name, err)
	}
	return raw, nil
}

func decodeDocument[T any](raw []byte) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, fmt.Errorf("catacombs: decode document: %w", err)
	}
	return v, nil
}

type pollSubscription struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *pollSubscription) Close() error {
	s.cancel()
	<-s.done
	return nil
}

type nopSubscription struct{}

func (nopSubscription) Close() error { return nil }

// StaticProvider serves a fixed document. Set pushes a new one to every
// subscriber. It is used by tests and offline runs.
type StaticProvider[T any] struct {
	name string

	mu    sync.Mutex
	value T
	err   error
	subs  map[*staticSubscription[T]]struct{}
}

// NewStaticProvider returns a provider serving value.
func NewStaticProvider[T any](name string, value T) *StaticProvider[T] {
	return &StaticProvider[T]{
		name:  name,
		value: value,
		subs:  make(map[*staticSubscription[T]]struct{}),
	}
}

// Name implements Provider.
func (p *StaticProvider[T]) Name() string { return p.name }

// Fetch implements Provider.
func (p *StaticProvider[T]) Fetch(context.Context) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}

// FailWith makes Fetch return err until cleared with nil.
func (p *StaticProvider[T]) FailWith(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

// Subscribe implements Provider.
func (p *StaticProvider[T]) Subscribe(ctx context.Context, updates chan<- T) (Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := &staticSubscription[T]{ctx: ctx, cancel: cancel, updates: updates, owner: p}
	p.mu.Lock()
	p.subs[sub] = struct{}{}
	p.mu.Unlock()
	return sub, nil
}

// Set replaces the document and sends it to every open subscription. It
// blocks until each subscriber received it or closed.
func (p *StaticProvider[T]) Set(v T) {
	p.mu.Lock()
	p.value = v
	subs := make([]*staticSubscription[T], 0, len(p.subs))
	for s := range p.subs {
		subs = append(subs, s)
	}
	p.mu.Unlock()

	for _, s := range subs {
		select {
		case s.updates <- v:
		case <-s.ctx.Done():
		}
	}
}

type staticSubscription[T any] struct {
	ctx     context.Context
	cancel  context.CancelFunc
	updates chan<- T
	owner   *StaticProvider[T]
}

func (s *staticSubscription[T]) Close() error {
	s.cancel()
	s.owner.mu.Lock()
	delete(s.owner.subs, s)
	s.owner.mu.Unlock()
	return nil
}

// MayorDocument is the subset of the SkyBlock election resource the score
// needs.
type MayorDocument struct {
	Mayor Mayor `json:"mayor"`
}

// Mayor is the elected mayor of the election resource.
type Mayor struct {
	Name  string      `json:"name"`
	Perks []MayorPerk `json:"perks"`
}

type MayorPerk struct {
	Name string `json:"name"`
}

// HasPaul reports whether Paul is mayor with the EZPZ perk, which adds ten
// bonus score.
func (d MayorDocument) HasPaul() bool {
	if !strings.EqualFold(d.Mayor.Name, "paul") {
		return false
	}
	for _, perk := range d.Mayor.Perks {
		if strings.EqualFold(perk.Name, "ezpz") {
			return true
		}
	}
	return false
}
