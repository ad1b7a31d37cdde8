// Package engine implements the race build and standings core: deterministic
// lane draws, multi-round heat partitioning, final gate assignment and the
// qualifying standings calculation.  The package is pure computation — it
// performs no I/O and holds no state beyond a single call, so every function
// here may be invoked concurrently.
package engine

// Source is a deterministic pseudo-random number generator derived from a
// string seed.  Two Sources built from the same seed always produce the same
// sequence; Sources built from different seeds are fully independent.  A
// Source is constructed fresh for every draw and never survives past one
// build, so reproducibility depends only on the seed strings passed in.
type Source struct {
	state uint64 // splitmix64 state, advanced on every draw
}

// NewSource hashes the seed string (FNV-1a, 64 bit) into the initial
// generator state.  An empty seed is valid and yields its own fixed stream.
func NewSource(seed string) *Source {
	const (
		offset64 = 14695981039346656037
		prime64  = 1099511628211
	)
	h := uint64(offset64)
	for i := 0; i < len(seed); i++ {
		h ^= uint64(seed[i])
		h *= prime64
	}
	return &Source{state: h}
}

// next64 advances the state and returns the next 64-bit value (splitmix64).
func (s *Source) next64() uint64 {
	s.state += 0x9e3779b97f4a7c15
	z := s.state
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Float64 returns the next value in [0,1).  The top 53 bits of the raw draw
// are used so the result is uniform over the representable doubles.
func (s *Source) Float64() float64 {
	return float64(s.next64()>>11) / (1 << 53)
}
