package benchutil

// Shared constants for benchmarks across packages.

// BenchmarkSeed is the default seed for reproducible benchmark data generation.
const BenchmarkSeed = 42

// GridSides are square grid edge lengths for quick runs.
var GridSides = []int{16, 128, 512}

// ScalingSides are larger edges for scaling runs.
// Used with BPDECODE_LONG_BENCH=1 environment variable.
var ScalingSides = []int{1024, 2048, 4096}
