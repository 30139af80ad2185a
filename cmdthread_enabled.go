//go:build !nocmdthread

package jobsys

const commandThreadEnabled = true
