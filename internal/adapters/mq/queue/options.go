package queue

// Option applies a configuration option to the MemoryQueue.
type Option func(*MemoryQueue)

// WithCapacity bounds the number of queued mirror jobs. Values below 1 are
// ignored and the default applies.
func WithCapacity(n int) Option {
	return func(q *MemoryQueue) {
		if n > 0 {
			q.capacity = n
		}
	}
}
