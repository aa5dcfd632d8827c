package main

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// runner is the single seam between the pipeline and external tools. The
// orchestration code only ever observes success/failure plus combined output,
// never a specific tool's exit semantics.
type runner interface {
	run(name string, args ...string) (string, error)
	lookPath(name string) (string, error)
}

type execRunner struct{}

func (execRunner) run(name string, args ...string) (string, error) {
	cmd := exec.Command(name, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	out := strings.TrimSpace(buf.String())
	if err != nil {
		if out == "" {
			return "", err
		}
		return out, fmt.Errorf("%w (%s)", err, out)
	}
	return out, nil
}

func (execRunner) lookPath(name string) (string, error) {
	return exec.LookPath(name)
}
