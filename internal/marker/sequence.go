package marker

import "sync/atomic"

// Sequence hands out process-unique, monotonically increasing numbers.
// One Sequence is used for marker ids and another for z-order.
type Sequence struct {
	n atomic.Int64
}

// Next returns the next number, starting at 0.
func (s *Sequence) Next() int64 {
	return s.n.Add(1) - 1
}
