// Package sysmem detects total physical memory, which sizes the default
// decode memory budget.
package sysmem

// DefaultMemoryBytes is reported when the platform cannot be queried.
const DefaultMemoryBytes uint64 = 4 * 1024 * 1024 * 1024

// Result holds the result of memory detection.
type Result struct {
	TotalBytes uint64
	// Reliable is false when TotalBytes is DefaultMemoryBytes rather than
	// a value read from the OS.
	Reliable bool
}

// Total returns the total system memory.
func Total() Result {
	bytes, ok := totalSystemMemory()
	if !ok || bytes == 0 {
		return Result{TotalBytes: DefaultMemoryBytes}
	}
	return Result{TotalBytes: bytes, Reliable: true}
}
