package tradeapi

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trade-viewer/internal/cache"
	"trade-viewer/internal/logger"
	"trade-viewer/internal/models"
)

const (
	CacheKey = "trade"
	CacheTag = "trade"

	defaultFetchTimeout = 30 * time.Second
)

// Fetcher is the upstream source of the raw trade document.
type Fetcher interface {
	FetchRaw(ctx context.Context) ([]byte, error)
}

// Archiver stores freshly fetched snapshots. Implementations must not retain
// raw after returning.
type Archiver interface {
	Archive(ctx context.Context, snapshot *models.TradeSnapshot, raw []byte) error
}

// Service serves trade snapshots through the cache, fetching upstream at most
// once per TTL no matter how many requests arrive concurrently.
type Service struct {
	upstream   Fetcher
	cache      cache.Cache
	ttl        time.Duration
	exclusions Exclusions
	archiver   Archiver
	group      singleflight.Group
	now        func() time.Time
	log        *logger.Entry

	fetchTimeout time.Duration
	// generation changes on every Revalidate; a fetch that started under an
	// older generation is returned to its waiters but never cached. genMu
	// also orders that cache write against the invalidation.
	genMu      sync.Mutex
	generation uint64
}

type Option func(*Service)

func WithArchiver(a Archiver) Option {
	return func(s *Service) { s.archiver = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithFetchTimeout bounds a shared upstream fetch. The fetch is detached from
// the request that started it, so this is its only deadline.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.fetchTimeout = d
		}
	}
}

func NewService(upstream Fetcher, c cache.Cache, ttl time.Duration, ex Exclusions, log *logger.Log, opts ...Option) *Service {
	s := &Service{
		upstream:   upstream,
		cache:      c,
		ttl:        ttl,
		exclusions: ex,
		now:        time.Now,
		log:        log.WithComponent("tradeapi"),

		fetchTimeout: defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current trade snapshot with exclusions applied.
// FetchTime is the time the cached upstream document was fetched.
func (s *Service) Snapshot(ctx context.Context) (*models.TradeSnapshot, error) {
	entry, err := s.entry(ctx)
	if err != nil {
		return nil, err
	}
	stations, err := Flatten(entry.Body, s.exclusions)
	if err != nil {
		return nil, err
	}
	return &models.TradeSnapshot{Stations: stations, FetchTime: entry.FetchedAt}, nil
}

// Revalidate drops the cached upstream document so the next Snapshot fetches.
func (s *Service) Revalidate(ctx context.Context) error {
	s.genMu.Lock()
	s.generation++
	s.group.Forget(CacheKey)
	err := s.cache.InvalidateTag(ctx, CacheTag)
	s.genMu.Unlock()
	if err != nil {
		return err
	}
	s.log.Info("trade cache revalidated")
	return nil
}

func (s *Service) entry(ctx context.Context) (*cache.Entry, error) {
	entry, err := s.cache.Get(ctx, CacheKey)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.WithError(err).Warn("cache read failed, fetching upstream")
	}

	ch := s.group.DoChan(CacheKey, func() (interface{}, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.refresh(fctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*cache.Entry), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) refresh(ctx context.Context) (*cache.Entry, error) {
	s.genMu.Lock()
	gen := s.generation
	s.genMu.Unlock()

	body, err := s.upstream.FetchRaw(ctx)
	if err != nil {
		s.log.WithError(err).Warn("upstream trade fetch failed")
		return nil, err
	}
	// Reject documents that cannot be served before they reach the cache.
	stations, err := Flatten(body, Exclusions{})
	if err != nil {
		s.log.WithError(err).Warn("upstream trade payload rejected")
		return nil, err
	}

	entry := &cache.Entry{Body: body, FetchedAt: s.now().UTC()}
	s.genMu.Lock()
	if s.generation != gen {
		s.log.Debug("revalidated during fetch, result not cached")
	} else if err := s.cache.Set(ctx, CacheKey, entry, s.ttl, CacheTag); err != nil {
		s.log.WithError(err).Warn("cache write failed")
	}
	s.genMu.Unlock()

	s.log.WithFields(logger.Fields{
		"stations": len(stations),
		"bytes":    len(body),
	}).Info("fetched upstream trade data")

	if s.archiver != nil {
		snap := &models.TradeSnapshot{Stations: stations, FetchTime: entry.FetchedAt}
		if err := s.archiver.Archive(ctx, snap, body); err != nil {
			s.log.WithError(err).Warn("snapshot archive failed")
		}
	}
	return entry, nil
}
