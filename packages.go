package main

import (
	"fmt"
	"strings"
)

// aptManager wraps the host package manager with the session's
// update-once-then-retry-with-repair semantics. Install failures are
// reported, never fatal; callers degrade the affected capability.
type aptManager struct {
	run     runner
	updated bool
}

func newAptManager(r runner) *aptManager {
	return &aptManager{run: r}
}

// ensureUpdated refreshes the package index at most once per session. A
// failed refresh is tolerated: we proceed on the stale index and return a
// warning for the summary.
func (m *aptManager) ensureUpdated() string {
	if m.updated {
		return ""
	}
	m.updated = true
	if _, err := m.run.run("apt-get", "update"); err != nil {
		return fmt.Sprintf("package index refresh failed, continuing with stale index: %v", err)
	}
	return ""
}

// install returns the stale-index warning alongside the error so a refresh
// triggered mid-install still reaches the summary.
func (m *aptManager) install(pkgs ...string) (string, error) {
	if len(pkgs) == 0 {
		return "", nil
	}
	warning := m.ensureUpdated()

	args := append([]string{"install", "-y"}, pkgs...)
	if _, err := m.run.run("apt-get", args...); err == nil {
		return warning, nil
	}
	// One repair pass for broken dependency state, then one retry.
	_, _ = m.run.run("apt-get", "-f", "install", "-y")
	if _, err := m.run.run("apt-get", args...); err != nil {
		return warning, fmt.Errorf("install %s: %w", strings.Join(pkgs, " "), err)
	}
	return warning, nil
}
