package main

import (
	"fmt"
	"strings"
)

// fakeRunner records every external command and fails the ones matching the
// configured prefixes, so orchestration logic can be exercised without
// touching the host.
type fakeRunner struct {
	calls   []string
	outputs map[string]string
	failPat []string
	failN   map[string]int
	missing map[string]bool
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		outputs: map[string]string{},
		failN:   map[string]int{},
		missing: map[string]bool{},
	}
}

func (f *fakeRunner) run(name string, args ...string) (string, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, cmd)
	out := f.outputs[cmd]
	for p, n := range f.failN {
		if n > 0 && strings.HasPrefix(cmd, p) {
			f.failN[p] = n - 1
			return out, fmt.Errorf("fake failure: %s", cmd)
		}
	}
	for _, p := range f.failPat {
		if strings.HasPrefix(cmd, p) {
			return out, fmt.Errorf("fake failure: %s", cmd)
		}
	}
	return out, nil
}

func (f *fakeRunner) lookPath(name string) (string, error) {
	if f.missing[name] {
		return "", fmt.Errorf("fake: %s not found", name)
	}
	return "/usr/bin/" + name, nil
}

func (f *fakeRunner) called(prefix string) bool {
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (f *fakeRunner) countCalls(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}
