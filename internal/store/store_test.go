package store

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appLog "classgrid/internal/log"
	"classgrid/internal/model"
	"classgrid/internal/schedule"
	"classgrid/internal/source"
)

func TestMain(m *testing.M) {
	appLog.Use(zap.NewNop())
	os.Exit(m.Run())
}

type staticLoader struct {
	ds  source.Dataset
	err error
}

func (l *staticLoader) Load(ctx context.Context) (source.Dataset, error) {
	return l.ds, l.err
}

// gatedLoader blocks each call until released and returns the dataset
// queued for that call.
type gatedLoader struct {
	mu      sync.Mutex
	calls   int
	started chan int
	release []chan struct{}
	results []source.Dataset
}

func newGatedLoader(results ...source.Dataset) *gatedLoader {
	g := &gatedLoader{started: make(chan int, len(results)), results: results}
	for range results {
		g.release = append(g.release, make(chan struct{}))
	}
	return g
}

func (g *gatedLoader) Load(ctx context.Context) (source.Dataset, error) {
	g.mu.Lock()
	i := g.calls
	g.calls++
	g.mu.Unlock()

	g.started <- i
	<-g.release[i]
	return g.results[i], nil
}

func rows(locations ...string) source.Dataset {
	out := source.Dataset{LastUpdated: "today", SourceID: "test"}
	for i, loc := range locations {
		out.Rows = append(out.Rows, model.RawRow{
			"Class":         "Class " + loc,
			"Discipline(s)": "Adult Brazilian Jiu Jitsu",
			"Day":           string(model.Days[i%7]),
			"Time":          "6:00 PM",
			"Location":      loc,
		})
	}
	return out
}

func newStore(l Loader) *Store {
	return New(l, Options{PreferredLocation: "Strip District", WeekStart: "monday"})
}

func TestStoreBeforeLoad(t *testing.T) {
	s := newStore(&staticLoader{})
	snap, week := s.Current()

	assert.False(t, snap.Loaded)
	assert.Empty(t, snap.Sessions)
	assert.Equal(t, source.UnknownUpdated, snap.LastUpdated)
	require.Len(t, week.Days, 7)
	assert.Zero(t, week.Total)

	_, err := s.Apply(schedule.Event{Kind: schedule.EventToggleLocation, Value: "Strip District"})
	assert.ErrorIs(t, err, ErrUnknownLocation)
}

func TestStoreReload(t *testing.T) {
	s := newStore(&staticLoader{ds: rows("Lawrenceville", "Strip District", "Lawrenceville")})
	require.NoError(t, s.Reload(context.Background()))

	snap, week := s.Current()
	assert.True(t, snap.Loaded)
	assert.Equal(t, []string{"Lawrenceville", "Strip District"}, snap.Locations)
	assert.Equal(t, []string{"Strip District"}, snap.Filters.SelectedLocations())
	assert.Equal(t, "today", snap.LastUpdated)
	assert.Equal(t, 3, week.Total)
	assert.Equal(t, 1, week.Visible)
	assert.False(t, snap.LoadedAt.IsZero())
}

func TestStoreReloadFailureKeepsData(t *testing.T) {
	l := &staticLoader{ds: rows("Strip District")}
	s := newStore(l)
	require.NoError(t, s.Reload(context.Background()))

	l.err = source.ErrUnavailable
	err := s.Reload(context.Background())
	assert.ErrorIs(t, err, source.ErrUnavailable)

	snap := s.Snapshot()
	assert.Len(t, snap.Sessions, 1)
	assert.Equal(t, []string{"Strip District"}, snap.Locations)
	assert.Equal(t, source.ErrUnavailable.Error(), snap.LoadError)

	l.err = nil
	require.NoError(t, s.Reload(context.Background()))
	assert.Empty(t, s.Snapshot().LoadError)
}

func TestStoreLoadErrorIsOneLine(t *testing.T) {
	joined := errors.Join(source.ErrUnavailable, errors.New("a.xlsx: missing"), errors.New("b.json: 404"))
	s := newStore(&staticLoader{err: joined})
	require.Error(t, s.Reload(context.Background()))

	snap := s.Snapshot()
	assert.False(t, snap.Loaded)
	assert.NotContains(t, snap.LoadError, "\n")
	assert.Contains(t, snap.LoadError, "a.xlsx: missing; b.json: 404")
}

func TestStoreApply(t *testing.T) {
	s := newStore(&staticLoader{ds: rows("Strip District", "Lawrenceville")})
	require.NoError(t, s.Reload(context.Background()))

	view, err := s.Apply(schedule.Event{Kind: schedule.EventToggleLocation, Value: "Lawrenceville"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Strip District", "Lawrenceville"}, view.Locations)

	_, err = s.Apply(schedule.Event{Kind: schedule.EventToggleLocation, Value: "Mars"})
	assert.ErrorIs(t, err, ErrUnknownLocation)

	_, err = s.Apply(schedule.Event{Kind: schedule.EventToggleProgram, Value: "Underwater Basket Weaving"})
	assert.ErrorIs(t, err, ErrUnknownProgram)

	view, err = s.Apply(schedule.Event{Kind: schedule.EventToggleProgram, Value: "Adult BJJ"})
	require.NoError(t, err)
	assert.Equal(t, []model.ProgramCategory{"Adult BJJ"}, view.Programs)

	_, err = s.Apply(schedule.Event{Kind: schedule.EventSetTimeRange, Start: 10, End: 5})
	assert.ErrorIs(t, err, schedule.ErrInvalidTimeRange)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := newStore(&staticLoader{ds: rows("Strip District", "Lawrenceville")})
	require.NoError(t, s.Reload(context.Background()))

	snap := s.Snapshot()
	snap.Sessions[0].ClassName = "mutated"
	snap.Filters.ToggleLocation("Lawrenceville")

	fresh := s.Snapshot()
	assert.NotEqual(t, "mutated", fresh.Sessions[0].ClassName)
	assert.Equal(t, []string{"Strip District"}, fresh.Filters.SelectedLocations())
}

func TestReloadLastStartedWins(t *testing.T) {
	g := newGatedLoader(rows("Old Location"), rows("Strip District"))
	s := newStore(g)

	var (
		wg        sync.WaitGroup
		firstErr  error
		secondErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		firstErr = s.Reload(context.Background())
	}()
	require.Equal(t, 0, <-g.started)

	wg.Add(1)
	go func() {
		defer wg.Done()
		secondErr = s.Reload(context.Background())
	}()
	require.Equal(t, 1, <-g.started)

	// Newer load completes first, then the stale one.
	close(g.release[1])
	require.Eventually(t, func() bool { return s.Snapshot().Loaded }, time.Second, 5*time.Millisecond)
	close(g.release[0])
	wg.Wait()

	require.NoError(t, secondErr)
	assert.True(t, errors.Is(firstErr, ErrSuperseded))
	assert.Equal(t, []string{"Strip District"}, s.Snapshot().Locations)
}

func TestRefresherRejectsBadSpec(t *testing.T) {
	_, err := NewRefresher(newStore(&staticLoader{}), "not a cron spec")
	assert.Error(t, err)

	r, err := NewRefresher(newStore(&staticLoader{}), "*/30 * * * *")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = r.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("refresher did not stop")
	}
}
