package engine

// MaxGates is the number of starting lanes on the track.  No heat may hold
// more riders than lanes.
const MaxGates = 8

// GateSequence returns a permutation of the lane numbers 1..min(8, riderCount)
// for the given sub-seed.  The shuffle is Fisher–Yates iterating from the last
// index down to index 1 — index 0 is never the swap source in the final step.
// That exact boundary is load-bearing: changing it changes the draw for every
// seed that has ever been used, so it must stay as written.
func GateSequence(riderCount int, subSeed string) []int {
	rng := NewSource(subSeed)
	n := riderCount
	if n > MaxGates {
		n = MaxGates
	}
	if n <= 0 {
		return nil
	}
	gates := make([]int, n)
	for i := range gates {
		gates[i] = i + 1
	}
	for i := len(gates) - 1; i > 0; i-- {
		j := int(rng.Float64() * float64(i+1))
		gates[i], gates[j] = gates[j], gates[i]
	}
	return gates
}
