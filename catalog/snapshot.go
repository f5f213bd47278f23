package catalog

import "sort"

// Snapshot is an immutable point-in-time copy of a Catalog.
// All its methods are safe to call without locking.
type Snapshot struct {
	entries []Video
	index   map[string]int
}

// NewSnapshot builds a snapshot from videos in the given order.
func NewSnapshot(videos ...Video) *Snapshot {
	s := &Snapshot{
		entries: make([]Video, len(videos)),
		index:   make(map[string]int, len(videos)),
	}
	copy(s.entries, videos)
	for i, v := range s.entries {
		s.index[v.ID] = i
	}
	return s
}

func (s *Snapshot) Len() int {
	return len(s.entries)
}

func (s *Snapshot) At(i int) (Video, bool) {
	if i < 0 || i >= len(s.entries) {
		return Video{}, false
	}
	return s.entries[i], true
}

func (s *Snapshot) IndexOf(id string) (int, bool) {
	i, ok := s.index[id]
	return i, ok
}

func (s *Snapshot) Get(id string) (Video, bool) {
	i, ok := s.index[id]
	if !ok {
		return Video{}, false
	}
	return s.entries[i], true
}

// Videos returns the records in catalog order.
func (s *Snapshot) Videos() []Video {
	out := make([]Video, len(s.entries))
	copy(out, s.entries)
	return out
}

// ByRecency returns the records newest first. Ties keep catalog order.
func (s *Snapshot) ByRecency() []Video {
	out := s.Videos()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Added.After(out[j].Added) })
	return out
}

// SourceCoverage is the percentage of records that have a source, 0 when empty.
func (s *Snapshot) SourceCoverage() float64 {
	if len(s.entries) == 0 {
		return 0
	}
	var n int
	for _, v := range s.entries {
		if v.HasSource {
			n++
		}
	}
	return float64(n*100) / float64(len(s.entries))
}
