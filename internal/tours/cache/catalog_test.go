package cache

import (
	"context"
	"sync"
	"testing"
	"time"
	tourserrors "tourbook/internal/tours/errors"
	"tourbook/pkg/cache"
	"tourbook/pkg/logger"
	"tourbook/pkg/metrics"
	"tourbook/pkg/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	tours   map[string]*model.Tour
	byID    int
	all     int
	findErr error

	// When gate is set, FindByID takes its snapshot, signals entered, then
	// waits for gate to close or ctx to end.
	gate    chan struct{}
	entered chan struct{}
}

func newFakeSource(tours ...*model.Tour) *fakeSource {
	s := &fakeSource{tours: make(map[string]*model.Tour)}
	for _, t := range tours {
		s.tours[t.ID] = t
	}
	return s
}

func (s *fakeSource) FindByID(ctx context.Context, id string) (*model.Tour, error) {
	s.mu.Lock()
	s.byID++
	findErr := s.findErr
	var snapshot *model.Tour
	if t, ok := s.tours[id]; ok {
		cp := *t
		snapshot = &cp
	}
	gate, entered := s.gate, s.entered
	s.mu.Unlock()

	if gate != nil {
		entered <- struct{}{}
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if findErr != nil {
		return nil, findErr
	}
	if snapshot == nil {
		return nil, tourserrors.ErrNotFound
	}
	return snapshot, nil
}

func (s *fakeSource) hold() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
	s.entered = make(chan struct{}, 8)
}

func (s *fakeSource) waitEntered(t *testing.T) {
	t.Helper()
	select {
	case <-s.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("repository read did not start")
	}
}

func (s *fakeSource) FindAll(_ context.Context) ([]*model.Tour, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.all++
	out := make([]*model.Tour, 0, len(s.tours))
	for _, t := range s.tours {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func (s *fakeSource) set(t *model.Tour) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tours[t.ID] = t
}

func (s *fakeSource) calls() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byID, s.all
}

const ttl = 300 * time.Second

func newTestCatalog(t *testing.T, src Source) (*Catalog, *miniredis.Miniredis, *metrics.Metrics) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	m := metrics.NewNop()
	return NewCatalog(cache.NewStore(rdb), src, ttl, logger.Discard(), m), mr, m
}

func tour(id, name string) *model.Tour {
	return &model.Tour{ID: id, Name: name, Price: 100, Destination: "Alps", DurationDays: 2, AvailableSlots: 5}
}

func TestCatalog_ReadThrough(t *testing.T) {
	src := newFakeSource(tour("t1", "Glacier Walk"))
	c, mr, m := newTestCatalog(t, src)
	ctx := context.Background()

	first, err := c.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Glacier Walk", first.Name)
	assert.True(t, mr.Exists("tour:t1"))
	assert.Equal(t, ttl, mr.TTL("tour:t1"))

	second, err := c.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	byID, _ := src.calls()
	assert.Equal(t, 1, byID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues(metrics.ResultHit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues(metrics.ResultMiss)))
}

func TestCatalog_GetAfterInvalidateRereads(t *testing.T) {
	src := newFakeSource(tour("t1", "Old Name"))
	c, _, _ := newTestCatalog(t, src)
	ctx := context.Background()

	_, err := c.Get(ctx, "t1")
	require.NoError(t, err)

	src.set(tour("t1", "New Name"))
	require.NoError(t, c.Invalidate(ctx, "t1"))

	got, err := c.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.Name)

	byID, _ := src.calls()
	assert.Equal(t, 2, byID)
}

func TestCatalog_EntryNotServedPastTTL(t *testing.T) {
	src := newFakeSource(tour("t1", "v1"))
	c, mr, _ := newTestCatalog(t, src)
	ctx := context.Background()

	_, err := c.Get(ctx, "t1")
	require.NoError(t, err)

	src.set(tour("t1", "v2"))

	mr.FastForward(ttl - time.Second)
	got, err := c.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Name, "entry is still fresh just before its TTL")

	mr.FastForward(time.Second + time.Millisecond)
	got, err = c.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Name)
}

func TestCatalog_NotFoundIsNotCached(t *testing.T) {
	src := newFakeSource()
	c, mr, _ := newTestCatalog(t, src)
	ctx := context.Background()

	for range 2 {
		_, err := c.Get(ctx, "missing")
		assert.ErrorIs(t, err, tourserrors.ErrNotFound)
	}
	assert.False(t, mr.Exists("tour:missing"))

	byID, _ := src.calls()
	assert.Equal(t, 2, byID)
}

func TestCatalog_GetAllAndInvalidateAll(t *testing.T) {
	src := newFakeSource(tour("t1", "A"))
	c, mr, _ := newTestCatalog(t, src)
	ctx := context.Background()

	all, err := c.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	assert.True(t, mr.Exists(AllToursKey))

	src.set(tour("t2", "B"))
	all, err = c.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "served from cache until invalidated")

	require.NoError(t, c.InvalidateAll(ctx))
	all, err = c.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, allCalls := src.calls()
	assert.Equal(t, 2, allCalls)
}

func TestCatalog_CacheDownFallsBackToRepository(t *testing.T) {
	src := newFakeSource(tour("t1", "A"))
	c, mr, m := newTestCatalog(t, src)
	mr.Close()
	ctx := context.Background()

	got, err := c.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "A", got.Name)

	assert.Error(t, c.Invalidate(ctx, "t1"), "invalidation failures are reported to the writer")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheRequests.WithLabelValues(metrics.ResultError)))
}

func TestCatalog_ResultIsACopy(t *testing.T) {
	src := newFakeSource(tour("t1", "A"))
	c, _, _ := newTestCatalog(t, src)
	ctx := context.Background()

	got, err := c.Get(ctx, "t1")
	require.NoError(t, err)
	got.Name = "mutated"

	again, err := c.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "A", again.Name)
}

type getResult struct {
	tour *model.Tour
	err  error
}

func getAsync(ctx context.Context, c *Catalog, id string) <-chan getResult {
	out := make(chan getResult, 1)
	go func() {
		tour, err := c.Get(ctx, id)
		out <- getResult{tour: tour, err: err}
	}()
	return out
}

func await(t *testing.T, ch <-chan getResult) getResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("Get did not return")
		return getResult{}
	}
}

func TestCatalog_SharedLoadSurvivesFirstCallerCancel(t *testing.T) {
	src := newFakeSource(tour("t1", "Glacier Walk"))
	src.hold()
	c, mr, _ := newTestCatalog(t, src)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	first := getAsync(firstCtx, c, "t1")
	src.waitEntered(t)

	second := getAsync(context.Background(), c, "t1")

	cancelFirst()
	r := await(t, first)
	assert.ErrorIs(t, r.err, context.Canceled)

	close(src.gate)
	r = await(t, second)
	require.NoError(t, r.err)
	assert.Equal(t, "Glacier Walk", r.tour.Name)
	assert.True(t, mr.Exists("tour:t1"), "the shared read still fills the cache")
}

func TestCatalog_InvalidateDuringLoadSkipsStaleFill(t *testing.T) {
	src := newFakeSource(tour("t1", "Old"))
	src.hold()
	c, mr, _ := newTestCatalog(t, src)
	ctx := context.Background()

	inflight := getAsync(ctx, c, "t1")
	src.waitEntered(t)

	src.set(tour("t1", "New"))
	require.NoError(t, c.Invalidate(ctx, "t1"))
	close(src.gate)

	r := await(t, inflight)
	require.NoError(t, r.err)
	assert.Equal(t, "Old", r.tour.Name, "a read already in flight may return what it read")
	assert.False(t, mr.Exists("tour:t1"), "a read that began before the invalidation must not fill the cache")

	got, err := c.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "New", got.Name)
	assert.True(t, mr.Exists("tour:t1"))
}
