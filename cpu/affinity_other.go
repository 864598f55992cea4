//go:build !linux

package cpu

import (
	"errors"
)

var errAffinityUnsupported = errors.New("cpu affinity is not supported on this platform")

func pinThread(int) error {
	return errAffinityUnsupported
}
