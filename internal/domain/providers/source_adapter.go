package providers

import "context"

// SourceAdapter is the type-erased view of one upstream source that the
// reload coordinator drives.
type SourceAdapter interface {
	// Name identifies the source in logs and metrics
	Name() string

	// Critical reports whether a failed reload aborts the whole refresh
	Critical() bool

	// Reload refetches the full data set and replaces the cached copy
	Reload(ctx context.Context) error

	// Len is the number of facility ids currently cached
	Len() int
}
