package dedupe

// Option applies a configuration option to the memory deduper.
type Option func(*memoryDeduper)

// WithMaxSize bounds the number of tracked request ids. Values below 1 are
// ignored and the default applies.
func WithMaxSize(maxSize int) Option {
	return func(d *memoryDeduper) {
		if maxSize > 0 {
			d.maxSize = maxSize
		}
	}
}
