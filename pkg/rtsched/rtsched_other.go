//go:build !linux

package rtsched

// Prepare is a no-op off Linux.
func Prepare() error {
	return nil
}

func Release() error {
	return nil
}
