// Package humanfmt formats sizes, durations, counts and ratios for the
// bpdecode command output.
package humanfmt

import (
	"fmt"
	"strconv"
	"time"
)

// Binary (IEC) units for bytes.
const (
	KiB = 1024
	MiB = 1024 * KiB
	GiB = 1024 * MiB
	TiB = 1024 * GiB
)

var byteUnits = []struct {
	size float64
	name string
}{
	{TiB, "TiB"},
	{GiB, "GiB"},
	{MiB, "MiB"},
	{KiB, "KiB"},
}

// scaled renders v with the largest IEC unit not above it, or as whole
// bytes below 1 KiB.
func scaled(v float64, suffix string) string {
	for _, u := range byteUnits {
		if v >= u.size {
			return fmt.Sprintf("%.2f %s%s", v/u.size, u.name, suffix)
		}
	}
	return fmt.Sprintf("%.0f B%s", v, suffix)
}

// Bytes formats a byte count using IEC binary units, e.g. "1.23 GiB".
func Bytes(b uint64) string {
	return scaled(float64(b), "")
}

// Duration formats d compactly: "1.23s", "45.6ms", "789µs", "1m30s", "2h15m".
func Duration(d time.Duration) string {
	if d < 0 {
		return d.String()
	}

	switch {
	case d >= time.Hour:
		return wholeUnits(d/time.Hour, "h", (d%time.Hour)/time.Minute, "m")
	case d >= time.Minute:
		return wholeUnits(d/time.Minute, "m", (d%time.Minute)/time.Second, "s")
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	case d >= time.Microsecond:
		return fmt.Sprintf("%.1fµs", float64(d)/float64(time.Microsecond))
	default:
		return fmt.Sprintf("%dns", d.Nanoseconds())
	}
}

func wholeUnits(major time.Duration, majorUnit string, minor time.Duration, minorUnit string) string {
	if minor == 0 {
		return fmt.Sprintf("%d%s", major, majorUnit)
	}
	return fmt.Sprintf("%d%s%d%s", major, majorUnit, minor, minorUnit)
}

// Throughput formats bytes per duration as a rate like "123.40 MiB/s".
func Throughput(bytes uint64, d time.Duration) string {
	if d <= 0 {
		return "∞"
	}
	return scaled(float64(bytes)/d.Seconds(), "/s")
}

// Count formats a count with decimal suffixes: "1.23M", "456.00K", "789".
func Count(n uint64) string {
	const (
		thousand = 1000
		million  = 1000 * thousand
		billion  = 1000 * million
	)

	switch {
	case n >= billion:
		return fmt.Sprintf("%.2fB", float64(n)/billion)
	case n >= million:
		return fmt.Sprintf("%.2fM", float64(n)/million)
	case n >= thousand:
		return fmt.Sprintf("%.2fK", float64(n)/thousand)
	default:
		return strconv.FormatUint(n, 10)
	}
}

// Ratio formats raw/compressed as a compression ratio like "4.20x".
// A zero compressed size yields "-".
func Ratio(raw, compressed uint64) string {
	if compressed == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2fx", float64(raw)/float64(compressed))
}

// Dims formats grid dimensions as "width×height".
func Dims(width, height uint32) string {
	return fmt.Sprintf("%d×%d", width, height)
}
