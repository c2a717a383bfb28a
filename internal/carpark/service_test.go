package carpark

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/randytsao24/parkedup/internal/geo"
	"github.com/randytsao24/parkedup/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalogue struct {
	facilities []models.Facility
	err        error
	calls      atomic.Int32
}

func (f *fakeCatalogue) Facilities(ctx context.Context) ([]models.Facility, error) {
	f.calls.Add(1)
	return f.facilities, f.err
}

type fakeAvailability struct {
	mu      sync.Mutex
	lots    models.Availability
	err     error
	hanging bool
	calls   atomic.Int32
}

func (f *fakeAvailability) Availability(ctx context.Context) (models.Availability, error) {
	f.calls.Add(1)
	f.mu.Lock()
	hanging := f.hanging
	lots, err := f.lots, f.err
	f.mu.Unlock()

	if hanging {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return lots, err
}

func (f *fakeAvailability) hang() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hanging = true
}

func (f *fakeAvailability) set(lots models.Availability) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lots = lots
}

func (f *fakeAvailability) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

var testFacilities = []models.Facility{
	{Number: "ACB", Address: "BLK 270/271 ALBERT CENTRE BASEMENT CAR PARK", Type: "BASEMENT CAR PARK", GantryHeight: "1.80", X: "30314.7936", Y: "31490.4942"},
	{Number: "BJ1", Address: "BLK 101-117 BUKIT BATOK WEST AVENUE 6", Type: "SURFACE CAR PARK", GantryHeight: "0.00", X: "16905.6042", Y: "38000.5227"},
	{Number: "BAD", Address: "NOWHERE", Type: "SURFACE CAR PARK", X: "abc", Y: "1"},
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, ttl time.Duration, opts ...ServiceOption) (*Service, *fakeCatalogue, *fakeAvailability) {
	t.Helper()
	cat := &fakeCatalogue{facilities: testFacilities}
	avail := &fakeAvailability{lots: models.Availability{"ACB": 14, "BJ1": 3}}
	svc := NewService(cat, avail, ttl, quietLogger(), opts...)
	t.Cleanup(svc.Close)
	return svc, cat, avail
}

func TestServiceRefresh(t *testing.T) {
	svc, _, _ := newTestService(t, time.Minute)

	snap, err := svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, MergeStats{Facilities: 3, Merged: 2, BadCoordinates: 1}, snap.Stats)

	cp, ok := snap.Get("ACB")
	require.True(t, ok)
	assert.Equal(t, 14, cp.AvailableLots)
	assert.Equal(t, models.Basement, cp.Type)

	_, ok = snap.Get("BAD")
	assert.False(t, ok)
}

func TestServiceCachesSnapshot(t *testing.T) {
	svc, cat, avail := newTestService(t, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Current(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), cat.calls.Load())
	assert.Equal(t, int32(1), avail.calls.Load())
}

func TestServiceConcurrentCurrentRefreshesOnce(t *testing.T) {
	svc, cat, _ := newTestService(t, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Current(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), cat.calls.Load())
}

func TestServiceServesStaleSnapshot(t *testing.T) {
	svc, _, avail := newTestService(t, time.Millisecond)
	ctx := context.Background()

	first, err := svc.Current(ctx)
	require.NoError(t, err)

	avail.fail(errors.New("upstream down"))
	time.Sleep(5 * time.Millisecond)

	snap, err := svc.Current(ctx)
	require.NoError(t, err)
	assert.Same(t, first, snap)
}

func TestServiceStaleSnapshotDoesNotWaitForUpstream(t *testing.T) {
	svc, _, avail := newTestService(t, 20*time.Millisecond, WithRefreshTimeout(time.Hour))

	first, err := svc.Current(context.Background())
	require.NoError(t, err)

	avail.hang()
	time.Sleep(40 * time.Millisecond)

	// a short request deadline must not matter for a stale read
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	for i := 0; i < 5; i++ {
		snap, err := svc.Current(ctx)
		require.NoError(t, err)
		assert.Same(t, first, snap)
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)

	// one background refresh is in flight, however many callers saw the stale copy
	require.Eventually(t, func() bool { return avail.calls.Load() == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), avail.calls.Load())
}

func TestServiceBackgroundRefreshReplacesStaleSnapshot(t *testing.T) {
	svc, _, avail := newTestService(t, 20*time.Millisecond)
	ctx := context.Background()

	_, err := svc.Current(ctx)
	require.NoError(t, err)

	avail.set(models.Availability{"ACB": 50, "BJ1": 3})
	time.Sleep(40 * time.Millisecond)

	cp, err := svc.Get(ctx, "ACB")
	require.NoError(t, err)
	assert.Equal(t, 14, cp.AvailableLots)

	require.Eventually(t, func() bool {
		cp, err := svc.Get(ctx, "ACB")
		return err == nil && cp.AvailableLots == 50
	}, time.Second, 5*time.Millisecond)
}

func TestServiceBackgroundFailureBacksOff(t *testing.T) {
	svc, _, avail := newTestService(t, 10*time.Millisecond, WithFailureBackoff(time.Hour))
	ctx := context.Background()

	_, err := svc.Current(ctx)
	require.NoError(t, err)

	avail.fail(errors.New("upstream down"))
	time.Sleep(20 * time.Millisecond)

	_, err = svc.Current(ctx)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		st, _ := svc.Status()
		return st.LastError != ""
	}, time.Second, 5*time.Millisecond)

	calls := avail.calls.Load()
	for i := 0; i < 5; i++ {
		_, err := svc.Current(ctx)
		require.NoError(t, err)
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, calls, avail.calls.Load())

	st, ok := svc.Status()
	require.True(t, ok)
	assert.False(t, st.Fresh)
	assert.Contains(t, st.LastError, "upstream down")
	assert.False(t, st.LastFailure.IsZero())
}

func TestServiceNoSnapshot(t *testing.T) {
	svc, _, avail := newTestService(t, time.Minute)
	avail.fail(errors.New("upstream down"))

	_, err := svc.Current(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)

	// within the failure backoff the error is answered without calling upstream
	_, err = svc.Current(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.ErrorContains(t, err, "upstream down")
	assert.Equal(t, int32(1), avail.calls.Load())

	st, ok := svc.Status()
	assert.False(t, ok)
	assert.Contains(t, st.LastError, "upstream down")
}

func TestServiceNoSnapshotRetriesAfterBackoff(t *testing.T) {
	svc, _, avail := newTestService(t, time.Minute, WithFailureBackoff(0))
	avail.fail(errors.New("upstream down"))

	_, err := svc.Current(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)

	avail.fail(nil)
	snap, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Len())

	st, ok := svc.Status()
	assert.True(t, ok)
	assert.Empty(t, st.LastError)
}

func TestServiceFirstLoadTimeout(t *testing.T) {
	svc, _, avail := newTestService(t, time.Minute, WithLoadTimeout(50*time.Millisecond))
	avail.hang()

	start := time.Now()
	_, err := svc.Current(context.Background())
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestServiceCatalogueFailure(t *testing.T) {
	cat := &fakeCatalogue{err: errors.New("missing file")}
	avail := &fakeAvailability{lots: models.Availability{}}
	svc := NewService(cat, avail, time.Minute, quietLogger())
	defer svc.Close()

	_, err := svc.Refresh(context.Background())
	assert.ErrorContains(t, err, "loading catalogue")
}

func TestServiceSearchAndGet(t *testing.T) {
	svc, _, _ := newTestService(t, time.Minute)
	ctx := context.Background()

	results, err := svc.Search(ctx, Criteria{MinAvailableLots: ptr(10)})
	require.NoError(t, err)
	assert.Equal(t, []string{"ACB"}, numbers(results))

	cp, err := svc.Get(ctx, "BJ1")
	require.NoError(t, err)
	assert.Equal(t, 3, cp.AvailableLots)

	_, err = svc.Get(ctx, "NOPE")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceClosestAndWithin(t *testing.T) {
	svc, _, _ := newTestService(t, time.Minute)
	ctx := context.Background()

	closest, err := svc.Closest(ctx, geo.Point{Lat: 1.30, Lng: 103.85}, 1)
	require.NoError(t, err)
	require.Len(t, closest, 1)
	assert.Equal(t, "ACB", closest[0].Number)

	within, err := svc.Within(ctx, geo.BoundingBox{
		SouthWest: geo.Point{Lat: 1.25, Lng: 103.70},
		NorthEast: geo.Point{Lat: 1.45, Lng: 103.80},
	})
	require.NoError(t, err)
	require.Len(t, within, 1)
	assert.Equal(t, "BJ1", within[0].Number)

	st, ok := svc.Status()
	assert.True(t, ok)
	assert.Equal(t, 2, st.Carparks)
	assert.False(t, st.FetchedAt.IsZero())
	assert.True(t, st.Fresh)
	assert.Equal(t, time.Minute, st.TTL)
	assert.Less(t, st.Age, time.Minute)
	assert.Equal(t, 1, st.Stats.BadCoordinates)
}
