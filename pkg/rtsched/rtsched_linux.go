// Package rtsched prepares the process for the 1kHz control loops: memory is locked so a page
// fault can't stall a tick, and the process gets the highest nice priority it is allowed.
package rtsched

import (
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Prepare locks memory and raises priority.  Failing to raise the priority (not running as
// root) is logged, not returned.
func Prepare() error {
	if err := unix.Mlockall(unix.MCL_CURRENT | unix.MCL_FUTURE); err != nil {
		return errors.Wrap(err, "mlockall")
	}
	if err := unix.Setpriority(unix.PRIO_PROCESS, 0, -20); err != nil {
		fmt.Println("rtsched: could not raise priority:", err)
	}
	return nil
}

// Release undoes the memory lock.
func Release() error {
	return errors.Wrap(unix.Munlockall(), "munlockall")
}
