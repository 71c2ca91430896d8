// Package commands implements the task and deal command services that
// materialize approved recommendations.
package commands

import "sync/atomic"

// DefaultSequenceStart is where in-memory ids begin.
const DefaultSequenceStart = 1000

// Sequence hands out increasing ids. It is safe for concurrent use.
type Sequence struct {
	last atomic.Int64
}

// NewSequence returns a Sequence whose first Next() is start.
func NewSequence(start int64) *Sequence {
	s := &Sequence{}
	s.last.Store(start - 1)
	return s
}

// Next returns the next id.
func (s *Sequence) Next() int64 {
	return s.last.Add(1)
}
