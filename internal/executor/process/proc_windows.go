//go:build windows

package process

import (
	"errors"
	"os"
	"syscall"
)

// sysProcAttr creates the child in a new process group.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// terminateGroup has no graceful equivalent here; the instance is killed
// outright and killGroup is a second attempt at the same thing.
func terminateGroup(pid int) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Kill()
}

func killGroup(pid int) error {
	return terminateGroup(pid)
}

// processGone reports whether err means the instance already exited.
func processGone(err error) bool {
	return errors.Is(err, os.ErrProcessDone)
}
