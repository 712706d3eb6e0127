package random

import (
	"hash/fnv"

	"golang.org/x/exp/rand"
)

// Streams derives independent, reproducibly seeded substreams from a single
// master seed, one per concern (per-origin arrivals, route sampling, speed
// sampling). Two runs with the same master seed draw identical sequences
// from every substream.
type Streams struct {
	master uint64
}

func NewStreams(seed uint64) *Streams {
	return &Streams{master: seed}
}

// Source returns a fresh seeded source for the concern named by the labels.
func (s *Streams) Source(labels ...string) rand.Source {
	h := fnv.New64a()
	for _, l := range labels {
		h.Write([]byte(l))
		h.Write([]byte{0})
	}
	return rand.NewSource(splitmix64(s.master ^ h.Sum64()))
}

// Rand returns a fresh seeded generator for the concern named by the labels.
func (s *Streams) Rand(labels ...string) *rand.Rand {
	return rand.New(s.Source(labels...))
}

// splitmix64 finalizer, decorrelates the label hash from the master seed.
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
