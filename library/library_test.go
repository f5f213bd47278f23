package library

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/OdyseeTeam/gondola/catalog"
	"github.com/OdyseeTeam/gondola/pkg/logging"

	"github.com/Pallinder/go-randomdata"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		// ants' purge loop only notices a released pool on its next tick.
		goleak.IgnoreTopFunction("github.com/panjf2000/ants/v2.(*Pool).purgePeriodically"),
	)
}

type recordingRebuilder struct {
	mu    sync.Mutex
	count int
	last  *catalog.Snapshot
}

func (r *recordingRebuilder) Rebuild(s *catalog.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	r.last = s
	return nil
}

func (r *recordingRebuilder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *recordingRebuilder) Last() *catalog.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

type librarySuite struct {
	suite.Suite
	LibraryTestHelper
	catalog *catalog.Catalog
	listing *recordingRebuilder
	lib     *Library
}

func TestLibrarySuite(t *testing.T) {
	suite.Run(t, new(librarySuite))
}

func (s *librarySuite) SetupTest() {
	s.Require().NoError(s.SetupLibraryDirs())
	s.catalog = catalog.New()
	s.listing = &recordingRebuilder{}
	s.lib = s.newLibrary(s.catalog)
}

func (s *librarySuite) TearDownTest() {
	s.lib.Close()
	s.Require().NoError(s.TearDownLibraryDirs())
}

func (s *librarySuite) newLibrary(c *catalog.Catalog) *Library {
	lib, err := New(Config{
		Paths:   s.Paths,
		Catalog: c,
		Listing: s.listing,
		Log:     logging.NoopKVLogger{},
		Workers: 4,
	})
	s.Require().NoError(err)
	return lib
}

func (s *librarySuite) ids(snap *catalog.Snapshot) []string {
	ids := []string{}
	for _, v := range snap.Videos() {
		ids = append(ids, v.ID)
	}
	return ids
}

func (s *librarySuite) TestBootstrapPlainVideos() {
	now := time.Now()
	for i, id := range []string{"c.webm", "a.webm", "b.webm"} {
		s.Require().NoError(s.AddVideo(id, now.Add(-time.Duration(i)*time.Hour)))
	}

	s.lib.Bootstrap()

	snap := s.catalog.Snapshot()
	s.Equal([]string{"a.webm", "b.webm", "c.webm"}, s.ids(snap))
	for _, v := range snap.Videos() {
		s.EqualValues(0, v.Views)
		s.False(v.HasSource)
		s.Empty(v.Source)
	}
	a, _ := snap.Get("a.webm")
	s.WithinDuration(now.Add(-time.Hour), a.Added, time.Second)
	s.Equal(1, s.listing.Count())
	s.Equal(3, s.listing.Last().Len())
}

func (s *librarySuite) TestBootstrapSidecars() {
	s.Require().NoError(s.AddVideo("a.webm", time.Now()))
	s.Require().NoError(s.AddVideo("b.webm", time.Now()))
	s.Require().NoError(s.AddVideo("c.webm", time.Now()))
	s.Require().NoError(s.AddVideo(".hidden.webm", time.Now()))
	s.Require().NoError(os.Mkdir(filepath.Join(s.Paths.Videos, "subdir"), 0o755))

	s.Require().NoError(s.AddSource("a.webm", "Some Show S01E02\n"))
	s.Require().NoError(s.AddStatistic("a.webm", 42))
	s.Require().NoError(os.WriteFile(s.Paths.Statistic("b.webm"), []byte("lots"), 0o644))

	s.lib.Bootstrap()

	snap := s.catalog.Snapshot()
	s.Equal([]string{"a.webm", "b.webm", "c.webm"}, s.ids(snap))

	a, _ := snap.Get("a.webm")
	s.True(a.HasSource)
	s.Equal("Some Show S01E02", a.Source)
	s.EqualValues(42, a.Views)

	b, _ := snap.Get("b.webm")
	s.EqualValues(0, b.Views, "malformed statistics fall back to zero")
}

func (s *librarySuite) TestStatisticsRoundTrip() {
	s.Require().NoError(s.AddVideo("a.webm", time.Now()))
	s.Require().NoError(s.AddVideo("b.webm", time.Now()))
	s.lib.Bootstrap()

	for i := 0; i < 7; i++ {
		s.catalog.IncrementViews("a.webm")
	}
	s.lib.Reconcile()

	raw, err := s.ReadStatistic("a.webm")
	s.Require().NoError(err)
	s.Equal("7", raw)
	raw, err = s.ReadStatistic("b.webm")
	s.Require().NoError(err)
	s.Equal("0", raw)

	restarted := catalog.New()
	lib := s.newLibrary(restarted)
	defer lib.Close()
	lib.Bootstrap()

	a, ok := restarted.Get("a.webm")
	s.Require().True(ok)
	s.EqualValues(7, a.Views)
}

func (s *librarySuite) TestReconcileKeepsViewsAndAppends() {
	s.Require().NoError(s.AddVideo("b.webm", time.Now()))
	s.Require().NoError(s.AddVideo("c.webm", time.Now()))
	s.lib.Bootstrap()
	s.catalog.IncrementViews("c.webm")
	s.catalog.IncrementViews("c.webm")

	s.Require().NoError(s.AddVideo("a.webm", time.Now()))
	s.Require().NoError(s.AddSource("c.webm", "found it"))
	s.lib.Reconcile()
	s.lib.Reconcile()

	snap := s.catalog.Snapshot()
	s.Equal([]string{"b.webm", "c.webm", "a.webm"}, s.ids(snap), "later additions are appended")

	c, _ := snap.Get("c.webm")
	s.EqualValues(2, c.Views)
	s.Equal("found it", c.Source)
	s.Equal(3, s.listing.Count())
	s.Equal(3, s.listing.Last().Len())
}

func (s *librarySuite) TestReconcileDoesNotReseedViews() {
	s.Require().NoError(s.AddVideo("a.webm", time.Now()))
	s.lib.Bootstrap()
	s.catalog.IncrementViews("a.webm")

	// A stale sidecar left on disk must not override the live counter.
	s.Require().NoError(s.AddStatistic("a.webm", 500))
	s.lib.Reconcile()

	a, _ := s.catalog.Get("a.webm")
	s.EqualValues(1, a.Views)
	raw, err := s.ReadStatistic("a.webm")
	s.Require().NoError(err)
	s.Equal("1", raw)
}

func (s *librarySuite) TestRemoval() {
	for _, id := range []string{"a.webm", "b.webm", "c.webm"} {
		s.Require().NoError(s.AddVideo(id, time.Now()))
	}
	s.Require().NoError(s.AddSource("b.webm", "to be removed"))
	s.lib.Bootstrap()
	s.lib.Reconcile()
	_, err := s.ReadStatistic("b.webm")
	s.Require().NoError(err)

	s.Require().NoError(s.RequestRemoval("b.webm"))
	s.Require().NoError(s.RequestRemoval(".ignored"))
	s.lib.Reconcile()

	_, ok := s.catalog.Get("b.webm")
	s.False(ok)
	s.Equal([]string{"a.webm", "c.webm"}, s.ids(s.catalog.Snapshot()))
	s.NoFileExists(s.Paths.Removal("b.webm"))
	s.NoFileExists(s.Paths.Video("b.webm"))
	s.NoFileExists(s.Paths.Source("b.webm"))
	s.NoFileExists(s.Paths.Statistic("b.webm"))
	s.FileExists(s.Paths.Removal(".ignored"))

	s.lib.Reconcile()
	s.NoFileExists(s.Paths.Statistic("b.webm"))
	_, ok = s.catalog.Get("b.webm")
	s.False(ok)
}

func (s *librarySuite) TestRemovalOfUnknownVideo() {
	s.Require().NoError(s.AddVideo("a.webm", time.Now()))
	s.lib.Bootstrap()
	s.Require().NoError(s.RequestRemoval("nope.webm"))

	s.lib.Reconcile()

	s.NoFileExists(s.Paths.Removal("nope.webm"))
	s.Equal(1, s.catalog.Len())
}

func (s *librarySuite) TestMissingDirectories() {
	s.Require().NoError(s.AddVideo("a.webm", time.Now()))
	s.Require().NoError(os.RemoveAll(s.Paths.Removals))
	s.lib.Bootstrap()
	s.catalog.IncrementViews("a.webm")

	s.lib.Reconcile()

	raw, err := s.ReadStatistic("a.webm")
	s.Require().NoError(err)
	s.Equal("1", raw, "statistics are persisted even when removal scan fails")
	s.Equal(2, s.listing.Count())

	s.Require().NoError(os.RemoveAll(s.Paths.Videos))
	s.Require().NoError(os.RemoveAll(s.Paths.Statistics))
	s.lib.Reconcile()
	s.Equal(1, s.catalog.Len(), "catalog is left as is when the video directory is gone")
	s.Equal(3, s.listing.Count())
}

func (s *librarySuite) TestBootstrapWithoutVideoDirectory() {
	s.Require().NoError(os.RemoveAll(s.Paths.Videos))
	s.lib.Bootstrap()
	s.Equal(0, s.catalog.Len())
	s.Equal(1, s.listing.Count())
}

func (s *librarySuite) TestManyVideos() {
	ids := map[string]bool{}
	for i := 0; i < 150; i++ {
		id := randomdata.Alphanumeric(12) + ".webm"
		ids[id] = true
		s.Require().NoError(s.AddVideo(id, time.Now()))
	}
	s.lib.Bootstrap()
	s.lib.Reconcile()

	s.Equal(len(ids), s.catalog.Len())
	for id := range ids {
		raw, err := s.ReadStatistic(id)
		s.Require().NoError(err)
		s.Equal("0", raw)
	}
}

func (s *librarySuite) TestSpawnReconciliation() {
	s.Require().NoError(s.AddVideo("a.webm", time.Now()))
	s.lib.Bootstrap()

	stop, done := SpawnReconciliation(s.lib, 20*time.Millisecond)
	s.Eventually(func() bool { return s.listing.Count() >= 3 }, 2*time.Second, 10*time.Millisecond)

	close(stop)
	<-done
	s.FileExists(s.Paths.Statistic("a.webm"))
}

func (s *librarySuite) TestTriggeredReconciliation() {
	s.lib.Bootstrap()
	stop, done := SpawnReconciliation(s.lib, time.Hour)
	defer func() {
		close(stop)
		<-done
	}()

	s.Require().NoError(s.AddVideo("late.webm", time.Now()))
	s.lib.Trigger()
	s.Eventually(func() bool {
		_, ok := s.catalog.Get("late.webm")
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func (s *librarySuite) TestWatchRemovals() {
	s.Require().NoError(s.AddVideo("a.webm", time.Now()))
	s.lib.Bootstrap()

	stopWatch, err := s.lib.WatchRemovals()
	s.Require().NoError(err)
	stop, done := SpawnReconciliation(s.lib, time.Hour)
	defer func() {
		close(stop)
		<-done
	}()

	s.Require().NoError(s.RequestRemoval("a.webm"))
	s.Eventually(func() bool {
		_, ok := s.catalog.Get("a.webm")
		return !ok
	}, 3*time.Second, 10*time.Millisecond)
	s.Require().NoError(stopWatch())
}
