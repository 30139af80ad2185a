//go:build !linux

package jobsys

// PinToCPU is a no-op outside Linux.
func PinToCPU(cpu int) error { return nil }
