package oracle

import "multivator/internal/types"

// Fixed always returns the same (boarding, alighting) pair, regardless of car
// state. Used by tests that want a deterministic, typically (0,0), door-open
// outcome.
type Fixed struct {
	Boarding, Alighting int
}

func (f Fixed) Decide(types.CarView) (boarding, alighting int) {
	return f.Boarding, f.Alighting
}

var _ PassengerOracle = Fixed{}

// Sequence returns a pre-scripted list of (boarding, alighting) pairs, one
// per call, holding the last entry once exhausted. Used by tests that need
// to script an overload followed by a normal stop, for instance.
type Sequence struct {
	Outcomes [][2]int
	calls    int
}

func (s *Sequence) Decide(types.CarView) (boarding, alighting int) {
	idx := s.calls
	if idx >= len(s.Outcomes) {
		idx = len(s.Outcomes) - 1
	}
	s.calls++
	if idx < 0 {
		return 0, 0
	}
	pair := s.Outcomes[idx]
	return pair[0], pair[1]
}

var _ PassengerOracle = (*Sequence)(nil)
