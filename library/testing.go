package library

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LibraryTestHelper lays out a throwaway files/ tree for tests.
type LibraryTestHelper struct {
	Root  string
	Paths Paths
}

func (h *LibraryTestHelper) SetupLibraryDirs() error {
	root, err := os.MkdirTemp("", "gondola-library-*")
	if err != nil {
		return err
	}
	h.Root = root
	h.Paths = Paths{
		Videos:     filepath.Join(root, "files", "video"),
		Sources:    filepath.Join(root, "files", "sources"),
		Statistics: filepath.Join(root, "files", "statistics"),
		Removals:   filepath.Join(root, "files", "remove"),
	}
	for _, d := range []string{h.Paths.Videos, h.Paths.Sources, h.Paths.Statistics, h.Paths.Removals} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

func (h *LibraryTestHelper) TearDownLibraryDirs() error {
	if h.Root == "" {
		return nil
	}
	return os.RemoveAll(h.Root)
}

// AddVideo writes a dummy video file with the given modification time.
func (h *LibraryTestHelper) AddVideo(id string, modified time.Time) error {
	p := h.Paths.Video(id)
	if err := os.WriteFile(p, []byte("webm:"+id), 0o644); err != nil {
		return err
	}
	return os.Chtimes(p, modified, modified)
}

func (h *LibraryTestHelper) AddSource(id, source string) error {
	return os.WriteFile(h.Paths.Source(id), []byte(source), 0o644)
}

func (h *LibraryTestHelper) AddStatistic(id string, views uint64) error {
	return os.WriteFile(h.Paths.Statistic(id), []byte(strconv.FormatUint(views, 10)), 0o644)
}

func (h *LibraryTestHelper) RequestRemoval(id string) error {
	return os.WriteFile(h.Paths.Removal(id), nil, 0o644)
}

// ReadStatistic returns the raw content of the statistics sidecar of id.
func (h *LibraryTestHelper) ReadStatistic(id string) (string, error) {
	data, err := os.ReadFile(h.Paths.Statistic(id))
	return string(data), err
}
