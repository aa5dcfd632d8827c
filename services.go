package main

import (
	"fmt"
	"os"
	"path/filepath"
)

const tunnelServiceName = "veil-xray"

// serviceDescriptor is what gets rendered into the systemd unit: the managed
// binary, its config, and a restart-on-failure policy with a short backoff.
type serviceDescriptor struct {
	Name        string
	Description string
	ExecPath    string
	ConfigPath  string
}

type serviceManager struct {
	run     runner
	unitDir string
}

func newServiceManager(r runner) *serviceManager {
	return &serviceManager{run: r, unitDir: "/etc/systemd/system"}
}

// registerService writes the unit file (idempotent overwrite) and reloads
// the manager's unit definitions. Returns the unit path.
func (m *serviceManager) registerService(d serviceDescriptor) (string, error) {
	unit, err := renderTemplateFile("templates/xray.service", d)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(m.unitDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(m.unitDir, d.Name+".service")
	if err := atomicWriteFile(path, []byte(unit), 0o644); err != nil {
		return "", fmt.Errorf("write unit %s: %w", path, err)
	}
	_, _ = m.run.run("systemctl", "daemon-reload")
	return path, nil
}

func (m *serviceManager) enable(name string) error  { return m.ctl("enable", name) }
func (m *serviceManager) restart(name string) error { return m.ctl("restart", name) }

// ctl runs one systemctl verb with a single retry after a daemon-reload.
// Persistent failure is reported with the tail of the service's journal so
// the summary carries something actionable.
func (m *serviceManager) ctl(verb, name string) error {
	if _, err := m.run.run("systemctl", verb, name); err == nil {
		return nil
	}
	_, _ = m.run.run("systemctl", "daemon-reload")
	if _, err := m.run.run("systemctl", verb, name); err != nil {
		journal, _ := m.run.run("journalctl", "-u", name, "--no-pager", "-n", "40")
		if journal != "" {
			return fmt.Errorf("systemctl %s %s: %w; recent journal:\n%s", verb, name, err, journal)
		}
		return fmt.Errorf("systemctl %s %s: %w", verb, name, err)
	}
	return nil
}
