// Package library keeps the catalog in sync with the files on disk.
package library

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OdyseeTeam/gondola/catalog"
	"github.com/OdyseeTeam/gondola/pkg/logging"

	"github.com/google/renameio/v2"
	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
)

const defaultWorkers = 8

// epoch is the added time of videos whose modification time can't be read.
var epoch = time.Unix(0, 0).UTC()

// Paths locates the directories the library works with.
// Sidecar files share the video file name.
type Paths struct {
	Videos     string
	Sources    string
	Statistics string
	Removals   string
}

func (p Paths) Video(id string) string { return filepath.Join(p.Videos, id) }
func (p Paths) Source(id string) string { return filepath.Join(p.Sources, id) }
func (p Paths) Statistic(id string) string { return filepath.Join(p.Statistics, id) }
func (p Paths) Removal(name string) string { return filepath.Join(p.Removals, name) }

type Rebuilder interface {
	Rebuild(s *catalog.Snapshot) error
}

type Library struct {
	paths   Paths
	catalog *catalog.Catalog
	listing Rebuilder
	log     logging.KVLogger
	pool    *ants.Pool
	trigger chan struct{}
	passMu  sync.Mutex
}

type Config struct {
	Paths   Paths
	Catalog *catalog.Catalog
	Listing Rebuilder
	Log     logging.KVLogger
	// Workers bounds concurrent statistics writes.
	Workers int
}

func New(config Config) (*Library, error) {
	if config.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if config.Log == nil {
		config.Log = logging.NoopKVLogger{}
	}
	if config.Workers <= 0 {
		config.Workers = defaultWorkers
	}
	pool, err := ants.NewPool(config.Workers)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create statistics pool")
	}
	return &Library{
		paths:   config.Paths,
		catalog: config.Catalog,
		listing: config.Listing,
		log:     config.Log,
		pool:    pool,
		trigger: make(chan struct{}, 1),
	}, nil
}

// Close releases the statistics worker pool.
func (lib *Library) Close() {
	lib.pool.Release()
}

func (lib *Library) Paths() Paths {
	return lib.paths
}

// Trigger requests an early reconciliation pass from a running maintenance loop.
func (lib *Library) Trigger() {
	select {
	case lib.trigger <- struct{}{}:
	default:
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// readSource returns the provenance sidecar of id, if any.
func (lib *Library) readSource(id string) (string, bool) {
	data, err := os.ReadFile(lib.paths.Source(id))
	if err != nil {
		if !os.IsNotExist(err) {
			lib.log.Warn("cannot read source file", "id", id, "err", err)
		}
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// readViews returns the persisted view count of id, or 0 when missing or malformed.
func (lib *Library) readViews(id string) uint64 {
	data, err := os.ReadFile(lib.paths.Statistic(id))
	if err != nil {
		if !os.IsNotExist(err) {
			lib.log.Error("cannot read statistics file", "id", id, "err", err)
		}
		return 0
	}
	views, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		lib.log.Error("statistics file contains a non-number value", "id", id, "content", string(data))
		return 0
	}
	return views
}

// writeViews atomically replaces the statistics sidecar of id.
func (lib *Library) writeViews(id string, views uint64) error {
	err := renameio.WriteFile(lib.paths.Statistic(id), []byte(strconv.FormatUint(views, 10)), 0o644)
	return errors.Wrapf(err, "cannot write statistics for %v", id)
}
