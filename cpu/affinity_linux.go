//go:build linux

package cpu

import (
	"golang.org/x/sys/unix"
)

func pinThread(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	// pid 0 is the calling thread
	return unix.SchedSetaffinity(0, &set)
}
