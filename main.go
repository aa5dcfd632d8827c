package main

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	if err := ensureRoot(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	p := tea.NewProgram(newModel(loadPromptDefaults()), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	// The alt screen is gone once Run returns; repeat the outcome on the
	// plain terminal so the operator can copy paths and the URI.
	m, ok := final.(model)
	if !ok {
		return
	}
	if m.fatal != "" {
		fmt.Fprintln(os.Stderr, "fatal:", m.fatal)
		os.Exit(1)
	}
	if m.summary != "" {
		fmt.Print(m.summary)
	}
}

// ensureRoot re-executes the process under sudo when possible; without an
// elevation path a non-root run is fatal before anything is touched.
func ensureRoot() error {
	if os.Geteuid() == 0 {
		return nil
	}
	sudo, err := exec.LookPath("sudo")
	if err != nil {
		return fmt.Errorf("must run as root (and sudo is not available)")
	}
	argv := append([]string{"sudo"}, os.Args...)
	if err := syscall.Exec(sudo, argv, os.Environ()); err != nil {
		return fmt.Errorf("re-exec under sudo: %w", err)
	}
	return nil
}
