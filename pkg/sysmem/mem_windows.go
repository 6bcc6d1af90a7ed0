//go:build windows

package sysmem

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// totalSystemMemory returns total system RAM on Windows using GlobalMemoryStatusEx.
func totalSystemMemory() (uint64, bool) {
	var status windows.MemoryStatusEx
	status.Length = uint32(unsafe.Sizeof(status))
	if err := windows.GlobalMemoryStatusEx(&status); err != nil {
		return 0, false
	}
	return status.TotalPhys, true
}
