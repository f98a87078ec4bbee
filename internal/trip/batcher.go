package trip

import "github.com/ukydev/fleet-trip-simulator/internal/models"

// Batcher hands out contiguous chunks of a position sequence, front to back.
// Every chunk has the configured size except possibly the last.
type Batcher struct {
	points []models.Position
	size   int
	next   int
}

// NewBatcher panics if size is not positive.
func NewBatcher(points []models.Position, size int) *Batcher {
	if size <= 0 {
		panic("trip: batch size must be positive")
	}
	return &Batcher{points: points, size: size}
}

// Next returns the next chunk, or false once the sequence is exhausted.
// Chunks share the underlying array with the input.
func (b *Batcher) Next() ([]models.Position, bool) {
	if b.next >= len(b.points) {
		return nil, false
	}
	end := min(b.next+b.size, len(b.points))
	chunk := b.points[b.next:end:end]
	b.next = end
	return chunk, true
}

// Remaining is the number of chunks Next has yet to return.
func (b *Batcher) Remaining() int {
	return BatchCount(len(b.points)-b.next, b.size)
}

// BatchCount is ceil(n/size).
func BatchCount(n, size int) int {
	if n <= 0 || size <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
