// Package fuzz provides some common utilities useful for fuzzing and for
// generating fuzzing corpora.
package fuzz

import (
	"encoding/binary"
	"math/rand"

	gofuzz "github.com/google/gofuzz"
)

var _ rand.Source64 = (*Source)(nil)

// Source is a randomness source for the standard random generator that
// replays a byte slice. Once the bytes are exhausted it either draws from
// a fallback generator, recording what it drew, or returns zeros.
type Source struct {
	Backing   []byte
	Exhausted int

	pos      int
	fallback *rand.Rand

	traceback []byte
}

func (s *Source) Int63() int64 {
	return int64(s.Uint64() & ((1 << 63) - 1))
}

func (s *Source) Seed(_ int64) {
	// Nothing to do here.
}

func (s *Source) Uint64() uint64 {
	if s.pos+8 > len(s.Backing) {
		s.Exhausted += 8
		if s.fallback == nil {
			return 0
		}
		r := s.fallback.Uint64()
		var chunk [8]byte
		binary.BigEndian.PutUint64(chunk[:], r)
		s.traceback = append(s.traceback, chunk[:]...)
		return r
	}

	s.pos += 8
	return binary.BigEndian.Uint64(s.Backing[s.pos-8 : s.pos])
}

// GetTraceback returns the bytes drawn from the fallback generator so far.
func (s *Source) GetTraceback() []byte {
	return s.traceback
}

// NewRandSource returns a new random source with the given backing array.
func NewRandSource(backing []byte) *Source {
	return &Source{
		Backing: backing,
	}
}

// NewTrackingRandSource returns a new random source that draws from a
// generator seeded with seed and keeps track of the bytes returned.
func NewTrackingRandSource(seed int64) *Source {
	return &Source{
		Backing:  []byte{},
		fallback: rand.New(rand.NewSource(seed)), // nolint: gosec
	}
}

func newFuzzer(source *Source) *gofuzz.Fuzzer {
	return gofuzz.New().NilChance(0).NumElements(1, 4).RandSource(source)
}

// Filler fills values from a random source.
type Filler struct {
	source *Source
	fuzzer *gofuzz.Fuzzer
}

// Fill fills obj, which must be a pointer.
func (f *Filler) Fill(obj interface{}) {
	f.fuzzer.Fuzz(obj)
}

// Blob returns the bytes that make Fill, called with the same sequence of
// objects, reproduce every value filled so far.
func (f *Filler) Blob() []byte {
	return f.source.GetTraceback()
}

// Exhausted returns true iff the filler ran out of backing bytes.
func (f *Filler) Exhausted() bool {
	return f.source.Exhausted > 0
}

func newFiller(source *Source) *Filler {
	return &Filler{
		source: source,
		fuzzer: newFuzzer(source),
	}
}

// NewFiller creates a new filler drawing from a generator seeded with seed.
func NewFiller(seed int64) *Filler {
	return newFiller(NewTrackingRandSource(seed))
}

// NewBlobFiller creates a new filler that replays blob. Values filled after
// the blob is exhausted are zero.
func NewBlobFiller(blob []byte) *Filler {
	return newFiller(NewRandSource(blob))
}
