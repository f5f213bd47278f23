package library

import (
	"os"
	"sync"
	"sync/atomic"

	"github.com/OdyseeTeam/gondola/catalog"
	"github.com/OdyseeTeam/gondola/internal/metrics"
	"github.com/OdyseeTeam/gondola/pkg/timer"

	"github.com/c2h5oh/datasize"
	"github.com/karrick/godirwalk"
	"github.com/pkg/errors"
)

type scanResult struct {
	seen  int
	added int
	bytes uint64
}

// Bootstrap performs the initial load: it reads every video with its sidecars,
// including persisted view counts, sorts the catalog by id and renders the listing.
func (lib *Library) Bootstrap() {
	lib.passMu.Lock()
	defer lib.passMu.Unlock()

	t := timer.Start()
	res, err := lib.scanVideos(true)
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(metrics.StepScan).Inc()
		lib.log.Error("unable to read video directory", "dir", lib.paths.Videos, "err", err)
	}
	lib.catalog.SortByID()
	metrics.ReconcileSeconds.WithLabelValues(metrics.PassBootstrap, metrics.StepScan).Observe(t.Stop())

	lib.rebuildListing(metrics.PassBootstrap, lib.catalog.Snapshot())
	lib.log.Info("catalog loaded",
		"videos", res.added,
		"size", datasize.ByteSize(res.bytes).HR(),
		"duration", t.String(),
	)
}

// Reconcile runs one periodic pass: folds new and changed videos into the catalog,
// processes removal requests, persists view counts and rebuilds the listing page.
// Steps run in that order; no step error aborts the pass.
func (lib *Library) Reconcile() {
	lib.passMu.Lock()
	defer lib.passMu.Unlock()

	all := timer.Start()

	t := timer.Start()
	res, err := lib.scanVideos(false)
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(metrics.StepScan).Inc()
		lib.log.Error("unable to read video directory", "dir", lib.paths.Videos, "err", err)
	} else {
		lib.log.Info("video files loaded", "seen", res.seen, "new", res.added,
			"size", datasize.ByteSize(res.bytes).HR(), "duration", t.String())
	}
	metrics.ReconcileSeconds.WithLabelValues(metrics.PassPeriodic, metrics.StepScan).Observe(t.Stop())

	t = timer.Start()
	removed, err := lib.processRemovals()
	if err != nil {
		metrics.ReconcileErrors.WithLabelValues(metrics.StepRemove).Inc()
		lib.log.Error("unable to read removal directory", "dir", lib.paths.Removals, "err", err)
	} else if removed > 0 {
		lib.log.Info("removal requests processed", "removed", removed, "duration", t.String())
	}
	metrics.ReconcileSeconds.WithLabelValues(metrics.PassPeriodic, metrics.StepRemove).Observe(t.Stop())

	snap := lib.catalog.Snapshot()

	t = timer.Start()
	failed := lib.persistStatistics(snap)
	lib.log.Info("statistics written", "videos", snap.Len(), "failed", failed, "duration", t.String())
	metrics.ReconcileSeconds.WithLabelValues(metrics.PassPeriodic, metrics.StepStatistics).Observe(t.Stop())

	lib.rebuildListing(metrics.PassPeriodic, snap)
	lib.log.Debug("reconciliation pass done", "duration", all.String())
}

// scanVideos lists the video directory and upserts every visible entry.
// With seed set, persisted view counts are loaded as well.
func (lib *Library) scanVideos(seed bool) (scanResult, error) {
	var res scanResult
	dirents, err := godirwalk.ReadDirents(lib.paths.Videos, nil)
	if err != nil {
		return res, errors.Wrap(err, "cannot list videos")
	}

	for _, de := range dirents {
		id := de.Name()
		if isHidden(id) || de.IsDir() {
			continue
		}

		added := epoch
		fi, err := os.Stat(lib.paths.Video(id))
		switch {
		case err == nil:
			added = fi.ModTime()
			res.bytes += uint64(fi.Size())
		case os.IsNotExist(err):
			lib.log.Debug("video vanished before it could be read", "id", id)
			continue
		default:
			lib.log.Warn("cannot stat video, using epoch as added time", "id", id, "err", err)
		}
		res.seen++

		source, hasSource := lib.readSource(id)
		var isNew bool
		if seed {
			isNew = lib.catalog.Seed(catalog.Video{
				ID:        id,
				Added:     added,
				Source:    source,
				HasSource: hasSource,
				Views:     lib.readViews(id),
			})
		} else {
			isNew = lib.catalog.InsertOrUpdate(id, added, source, hasSource)
		}
		if isNew {
			res.added++
			lib.log.Debug("inserted video into catalog", "id", id, "added", added)
		}
	}

	metrics.CatalogVideos.Set(float64(lib.catalog.Len()))
	metrics.LibraryBytes.Set(float64(res.bytes))
	return res, nil
}

// processRemovals consumes removal markers. For each marker the video is dropped
// from the catalog, its files are deleted and then the marker itself is deleted.
func (lib *Library) processRemovals() (int, error) {
	dirents, err := godirwalk.ReadDirents(lib.paths.Removals, nil)
	if err != nil {
		return 0, errors.Wrap(err, "cannot list removal requests")
	}

	var removed int
	for _, de := range dirents {
		id := de.Name()
		if isHidden(id) || de.IsDir() {
			continue
		}
		ll := lib.log.With("id", id)

		if lib.catalog.Remove(id) {
			removed++
			metrics.VideosRemoved.Inc()
		}
		for _, p := range []string{lib.paths.Video(id), lib.paths.Source(id), lib.paths.Statistic(id)} {
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				metrics.ReconcileErrors.WithLabelValues(metrics.StepRemove).Inc()
				ll.Warn("cannot delete video file", "path", p, "err", err)
			}
		}
		if err := os.Remove(lib.paths.Removal(id)); err != nil {
			metrics.ReconcileErrors.WithLabelValues(metrics.StepRemove).Inc()
			ll.Error("cannot delete removal request", "err", err)
			continue
		}
		ll.Info("video removed")
	}

	metrics.CatalogVideos.Set(float64(lib.catalog.Len()))
	return removed, nil
}

// persistStatistics writes the view count of every video in s and waits for all
// writes to finish. It returns the number of failed writes.
func (lib *Library) persistStatistics(s *catalog.Snapshot) int64 {
	var failed atomic.Int64
	wg := sync.WaitGroup{}

	write := func(v catalog.Video) {
		if err := lib.writeViews(v.ID, v.Views); err != nil {
			failed.Add(1)
			metrics.ReconcileErrors.WithLabelValues(metrics.StepStatistics).Inc()
			lib.log.Error("unable to write statistics file", "id", v.ID, "err", err)
		}
	}

	for _, v := range s.Videos() {
		wg.Add(1)
		err := lib.pool.Submit(func() {
			defer wg.Done()
			write(v)
		})
		if err != nil {
			lib.log.Debug("statistics pool unavailable, writing inline", "err", err)
			write(v)
			wg.Done()
		}
	}
	wg.Wait()
	return failed.Load()
}

func (lib *Library) rebuildListing(pass string, s *catalog.Snapshot) {
	if lib.listing == nil {
		return
	}
	t := timer.Start()
	if err := lib.listing.Rebuild(s); err != nil {
		metrics.ReconcileErrors.WithLabelValues(metrics.StepListing).Inc()
		lib.log.Error("unable to render listing page", "err", err)
		return
	}
	metrics.ReconcileSeconds.WithLabelValues(pass, metrics.StepListing).Observe(t.Stop())
	lib.log.Debug("listing page rebuilt", "videos", s.Len(), "duration", t.String())
}
