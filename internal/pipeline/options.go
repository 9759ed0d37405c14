package pipeline

// Options carries the fixed tuning constants for an ingestion run. They are
// set at construction time, not read from the environment.
type Options struct {
	// BatchSize bounds rows per insert statement, keeping bind-parameter
	// counts under the driver's limit.
	BatchSize int
	// Concurrency bounds in-flight feed fetches during per-group fan-out.
	Concurrency int
}

// DefaultOptions returns the tuning used by the nightly ingestion job.
func DefaultOptions() Options {
	return Options{
		BatchSize:   500,
		Concurrency: 8,
	}
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 8
	}
	return o
}
