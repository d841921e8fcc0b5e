// Package autostart registers the inbox watcher to start at login.
package autostart

import "runtime"

// watchCommand is the clubctl subcommand every autostart entry runs.
const watchCommand = "watch"

type AutoStarter interface {
	Install(execPath string) error
	Uninstall() error
	IsInstalled() (bool, error)
	// Location names the unit file or task the entry lives in.
	Location() string
}

// New picks the registration mechanism for the running OS.
func New() AutoStarter {
	switch runtime.GOOS {
	case "linux":
		return &LinuxAutoStarter{}
	case "windows":
		return &WindowsAutoStarter{}
	}

	return unsupported{}
}

type unsupported struct{}

func (unsupported) Install(string) error       { return ErrUnsupported }
func (unsupported) Uninstall() error           { return ErrUnsupported }
func (unsupported) IsInstalled() (bool, error) { return false, ErrUnsupported }
func (unsupported) Location() string           { return runtime.GOOS }
