//go:build nocmdthread

package jobsys

// Built without a command thread: CommandThread.Submit runs inline.
const commandThreadEnabled = false
