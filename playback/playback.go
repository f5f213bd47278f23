// Package playback resolves navigation targets (next and random videos)
// against catalog snapshots.
package playback

import (
	"errors"
	"math/rand/v2"
	"sync"
	"sync/atomic"

	"github.com/OdyseeTeam/gondola/catalog"
)

const (
	CookieName   = "autoplay"
	CookieRandom = "random"
	CookieNext   = "next"
)

var ErrEmptyCatalog = errors.New("catalog is empty")

type Mode int

const (
	Random Mode = iota
	Sequential
)

// ModeFromCookie maps a play mode cookie value to a Mode, defaulting to Random.
func ModeFromCookie(value []byte) Mode {
	if string(value) == CookieNext {
		return Sequential
	}
	return Random
}

func (m Mode) CookieValue() string {
	if m == Sequential {
		return CookieNext
	}
	return CookieRandom
}

func (m Mode) String() string {
	return m.CookieValue()
}

// Next returns the id following id in s, wrapping around to the first one.
// It returns false when id is not in s.
func Next(s *catalog.Snapshot, id string) (string, bool) {
	i, ok := s.IndexOf(id)
	if !ok {
		return "", false
	}
	if v, ok := s.At(i + 1); ok {
		return v.ID, true
	}
	v, ok := s.At(0)
	return v.ID, ok
}

// Picker draws uniformly random videos. Each generator it hands out is seeded
// once from a shared counter, so concurrent workers get distinct sequences.
type Picker struct {
	seeds atomic.Uint64
	pool  sync.Pool
}

func NewPicker() *Picker {
	p := &Picker{}
	p.pool.New = func() any { return p.newRand() }
	return p
}

func (p *Picker) newRand() *rand.Rand {
	n := p.seeds.Add(1) - 1
	return rand.New(rand.NewPCG(mixSeed(n), n))
}

func mixSeed(n uint64) uint64 {
	return 1103515245*n + 12345
}

// Pick returns the id of a uniformly chosen video from s.
func (p *Picker) Pick(s *catalog.Snapshot) (string, error) {
	if s.Len() == 0 {
		return "", ErrEmptyCatalog
	}
	r := p.pool.Get().(*rand.Rand)
	i := r.IntN(s.Len())
	p.pool.Put(r)

	v, ok := s.At(i)
	if !ok {
		return "", ErrEmptyCatalog
	}
	return v.ID, nil
}

// Generators reports how many generators have been created so far.
func (p *Picker) Generators() uint64 {
	return p.seeds.Load()
}
