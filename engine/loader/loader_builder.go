package loader

// LoaderBuilderOption is a functional option for configuring a Loader via NewLoader.
type LoaderBuilderOption func(*loader)

// WithWorkers is an option builder that sets how many goroutines decode textures in parallel.
//
// Parameters:
//   - n: the maximum number of decode workers, values below 1 are raised to 1
//
// Returns:
//   - LoaderBuilderOption: a function that applies the workers option to a loader
func WithWorkers(n int) LoaderBuilderOption {
	return func(l *loader) {
		l.workers = n
	}
}

// WithProgressBar is an option builder that shows a terminal progress bar while primitives upload.
//
// Parameters:
//   - enabled: true to draw the progress bar
//
// Returns:
//   - LoaderBuilderOption: a function that applies the progress bar option to a loader
func WithProgressBar(enabled bool) LoaderBuilderOption {
	return func(l *loader) {
		l.progressBar = enabled
	}
}
