package autostart

import (
	"fmt"
	"os/exec"
)

const taskName = "clubctl-inbox"

type WindowsAutoStarter struct{}

func taskArgs(execPath string) []string {
	return []string{"/create",
		"/TN", taskName,
		"/TR", fmt.Sprintf(`"%s" %s`, execPath, watchCommand),
		"/SC", "ONLOGON",
		"/F"}
}

func (w *WindowsAutoStarter) Install(execPath string) error {
	out, err := exec.Command("schtasks", taskArgs(execPath)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to register task: %w\n%s", err, out)
	}

	return nil
}

func (w *WindowsAutoStarter) Uninstall() error {
	out, err := exec.Command("schtasks", "/DELETE", "/TN", taskName, "/F").CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to remove task: %w\n%s", err, out)
	}

	return nil
}

func (w *WindowsAutoStarter) IsInstalled() (bool, error) {
	if err := exec.Command("schtasks", "/Query", "/TN", taskName).Run(); err != nil {
		return false, nil
	}

	return true, nil
}

func (w *WindowsAutoStarter) Location() string {
	return `Task Scheduler\` + taskName
}
