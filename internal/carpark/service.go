package carpark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/randytsao24/parkedup/internal/cache"
	"github.com/randytsao24/parkedup/internal/geo"
	"github.com/randytsao24/parkedup/internal/models"
	"github.com/randytsao24/parkedup/internal/spatial"
)

const (
	snapshotKey = "carparks"

	defaultLoadTimeout    = 10 * time.Second
	defaultRefreshTimeout = time.Minute
	defaultFailureBackoff = 30 * time.Second
)

var (
	// ErrNotFound is returned when a carpark number is not in the current snapshot
	ErrNotFound = errors.New("carpark not found")
	// ErrNoSnapshot is returned when carpark data could not be loaded and no earlier copy exists
	ErrNoSnapshot = errors.New("carpark data unavailable")
)

// CatalogueSource provides the static facility catalogue
type CatalogueSource interface {
	Facilities(ctx context.Context) ([]models.Facility, error)
}

// AvailabilitySource provides live lot counts keyed by carpark number
type AvailabilitySource interface {
	Availability(ctx context.Context) (models.Availability, error)
}

// Snapshot is one immutable merge of catalogue and availability
type Snapshot struct {
	Carparks  []models.Carpark
	FetchedAt time.Time
	Stats     MergeStats

	byNumber map[string]int
	index    *spatial.Index
}

func newSnapshot(carparks []models.Carpark, stats MergeStats, fetchedAt time.Time) *Snapshot {
	byNumber := make(map[string]int, len(carparks))
	for i, cp := range carparks {
		byNumber[cp.Number] = i
	}

	return &Snapshot{
		Carparks:  carparks,
		FetchedAt: fetchedAt,
		Stats:     stats,
		byNumber:  byNumber,
		index:     spatial.Build(carparks),
	}
}

// Get returns the carpark with the given number
func (s *Snapshot) Get(number string) (models.Carpark, bool) {
	i, ok := s.byNumber[number]
	if !ok {
		return models.Carpark{}, false
	}
	return s.Carparks[i], true
}

// Len returns the number of carparks in the snapshot
func (s *Snapshot) Len() int {
	return len(s.Carparks)
}

// Status describes the last good snapshot and the most recent refresh failure
type Status struct {
	Carparks    int
	FetchedAt   time.Time
	Age         time.Duration
	TTL         time.Duration
	Fresh       bool
	Stats       MergeStats
	LastError   string
	LastFailure time.Time
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithLoadTimeout bounds the blocking first load a request may wait for
func WithLoadTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

// WithRefreshTimeout bounds a background refresh of an expired snapshot
func WithRefreshTimeout(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.refreshTimeout = d
		}
	}
}

// WithFailureBackoff sets how long after a failed refresh no new upstream attempt is made
func WithFailureBackoff(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d >= 0 {
			s.failureBackoff = d
		}
	}
}

// Service keeps a cached snapshot of merged carpark data and answers queries against it.
// An expired snapshot keeps being served while a single background refresh replaces it.
type Service struct {
	catalogue    CatalogueSource
	availability AvailabilitySource
	snapshots    *cache.Cache[*Snapshot]
	lastGood     atomic.Pointer[Snapshot]
	logger       *slog.Logger

	loadTimeout    time.Duration
	refreshTimeout time.Duration
	failureBackoff time.Duration

	// loadMu serialises blocking loads while no snapshot exists
	loadMu     sync.Mutex
	refreshing atomic.Bool

	failMu      sync.Mutex
	lastErr     error
	lastFailure time.Time

	bgMu   sync.Mutex
	bg     sync.WaitGroup
	closed bool
	stop   chan struct{}
}

// NewService creates a service that refreshes its snapshot once ttl has passed
func NewService(catalogue CatalogueSource, availability AvailabilitySource, ttl time.Duration, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		catalogue:      catalogue,
		availability:   availability,
		snapshots:      cache.New[*Snapshot](ttl),
		logger:         logger,
		loadTimeout:    defaultLoadTimeout,
		refreshTimeout: defaultRefreshTimeout,
		failureBackoff: defaultFailureBackoff,
		stop:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh fetches the catalogue and availability concurrently, merges them
// and replaces the cached snapshot. Both fetches must succeed.
func (s *Service) Refresh(ctx context.Context) (*Snapshot, error) {
	snap, err := s.refresh(ctx)
	s.recordResult(err)
	return snap, err
}

func (s *Service) refresh(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	var (
		facilities   []models.Facility
		availability models.Availability
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		facilities, err = s.catalogue.Facilities(gctx)
		if err != nil {
			return fmt.Errorf("loading catalogue: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		availability, err = s.availability.Availability(gctx)
		if err != nil {
			return fmt.Errorf("fetching availability: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	carparks, stats, err := MergeWithStats(facilities, availability)
	if err != nil {
		return nil, fmt.Errorf("merging carpark data: %w", err)
	}

	snap := newSnapshot(carparks, stats, time.Now())
	s.snapshots.Set(snapshotKey, snap)
	s.lastGood.Store(snap)

	s.logger.Info("carpark snapshot refreshed",
		"carparks", snap.Len(),
		"skipped", stats.Skipped(),
		"blank_numbers", stats.BlankNumbers,
		"duplicates", stats.Duplicates,
		"bad_coordinates", stats.BadCoordinates,
		"availability_entries", len(availability),
		"duration", time.Since(start).String(),
	)

	return snap, nil
}

func (s *Service) recordResult(err error) {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if err != nil {
		s.lastErr = err
		s.lastFailure = time.Now()
		return
	}
	s.lastErr = nil
	s.lastFailure = time.Time{}
}

// recentFailure returns the last refresh error if it happened within the backoff window
func (s *Service) recentFailure() error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	if s.lastErr == nil || time.Since(s.lastFailure) >= s.failureBackoff {
		return nil
	}
	return s.lastErr
}

// Current returns the cached snapshot. An expired snapshot is returned as is
// while a background refresh runs; only the very first load blocks the caller.
func (s *Service) Current(ctx context.Context) (*Snapshot, error) {
	if snap, ok := s.snapshots.Get(snapshotKey); ok {
		return snap, nil
	}

	if stale := s.lastGood.Load(); stale != nil {
		s.refreshInBackground(ctx)
		return stale, nil
	}

	return s.load(ctx)
}

func (s *Service) load(ctx context.Context) (*Snapshot, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	// another caller may have loaded while we waited
	if snap := s.lastGood.Load(); snap != nil {
		return snap, nil
	}
	if err := s.recentFailure(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSnapshot, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	defer cancel()

	snap, err := s.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoSnapshot, err)
	}
	return snap, nil
}

// refreshInBackground starts at most one refresh detached from the caller's
// cancellation. It does nothing while a recent failure is backing off.
func (s *Service) refreshInBackground(parent context.Context) {
	if err := s.recentFailure(); err != nil {
		s.logger.Debug("serving stale carpark snapshot", "error", err)
		return
	}
	if !s.refreshing.CompareAndSwap(false, true) {
		return
	}

	s.bgMu.Lock()
	if s.closed {
		s.bgMu.Unlock()
		s.refreshing.Store(false)
		return
	}
	s.bg.Add(1)
	s.bgMu.Unlock()

	go func() {
		defer s.bg.Done()
		defer s.refreshing.Store(false)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), s.refreshTimeout)
		defer cancel()
		go func() {
			select {
			case <-s.stop:
				cancel()
			case <-ctx.Done():
			}
		}()

		if _, err := s.Refresh(ctx); err != nil {
			s.logger.Warn("background carpark refresh failed, serving stale snapshot",
				"error", err,
				"retry_after", s.failureBackoff.String(),
			)
		}
	}()
}

// Search applies c to the current snapshot
func (s *Service) Search(ctx context.Context, c Criteria) ([]models.RankedCarpark, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return Apply(snap.Carparks, c), nil
}

// Get returns one carpark by number
func (s *Service) Get(ctx context.Context, number string) (models.Carpark, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return models.Carpark{}, err
	}

	cp, ok := snap.Get(number)
	if !ok {
		return models.Carpark{}, fmt.Errorf("%s: %w", number, ErrNotFound)
	}
	return cp, nil
}

// Closest returns the limit carparks nearest to p
func (s *Service) Closest(ctx context.Context, p geo.Point, limit int) ([]models.RankedCarpark, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.index.Nearest(p, limit), nil
}

// Within returns the carparks inside box, for map viewport queries
func (s *Service) Within(ctx context.Context, box geo.BoundingBox) ([]models.Carpark, error) {
	snap, err := s.Current(ctx)
	if err != nil {
		return nil, err
	}
	return snap.index.SearchBox(box)
}

// Status reports the last good snapshot and refresh health without triggering a refresh
func (s *Service) Status() (Status, bool) {
	var st Status

	s.failMu.Lock()
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
		st.LastFailure = s.lastFailure
	}
	s.failMu.Unlock()

	snap := s.lastGood.Load()
	if snap == nil {
		return st, false
	}

	st.Carparks = snap.Len()
	st.FetchedAt = snap.FetchedAt
	st.Stats = snap.Stats
	st.TTL = s.snapshots.TTL()
	if age, ok := s.snapshots.Age(snapshotKey); ok {
		st.Age, st.Fresh = age, true
	} else {
		st.Age = time.Since(snap.FetchedAt)
	}
	return st, true
}

// Close stops any background refresh, waits for it and releases the snapshot cache
func (s *Service) Close() {
	s.bgMu.Lock()
	if s.closed {
		s.bgMu.Unlock()
		return
	}
	s.closed = true
	close(s.stop)
	s.bgMu.Unlock()

	s.bg.Wait()
	s.snapshots.Close()
}
