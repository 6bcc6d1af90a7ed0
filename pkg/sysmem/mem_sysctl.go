//go:build darwin || freebsd || openbsd || netbsd || dragonfly

package sysmem

import "golang.org/x/sys/unix"

// memSysctls lists the sysctl names holding physical memory in bytes, in
// lookup order: hw.memsize on macOS, hw.physmem on the BSDs, and FreeBSD's
// hw.realmem.
var memSysctls = []string{"hw.memsize", "hw.physmem", "hw.realmem"}

func totalSystemMemory() (uint64, bool) {
	for _, name := range memSysctls {
		if mem, err := unix.SysctlUint64(name); err == nil && mem > 0 {
			return mem, true
		}
	}
	return 0, false
}
