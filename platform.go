package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func parseOSRelease(raw string) map[string]string {
	out := map[string]string{}
	for _, ln := range strings.Split(raw, "\n") {
		ln = strings.TrimSpace(ln)
		if ln == "" || strings.HasPrefix(ln, "#") {
			continue
		}
		k, v, ok := strings.Cut(ln, "=")
		if !ok {
			continue
		}
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		v = strings.Trim(v, `"`)
		if k != "" {
			out[k] = v
		}
	}
	return out
}

func localOSRelease() (map[string]string, error) {
	b, err := os.ReadFile("/etc/os-release")
	if err != nil {
		return nil, err
	}
	return parseOSRelease(string(b)), nil
}

// checkRequiredTools verifies the hard host prerequisites. A missing package
// manager or service manager is fatal; everything else is checked later and
// only degrades.
func checkRequiredTools(r runner) error {
	for _, tool := range []string{"apt-get", "systemctl"} {
		if _, err := r.lookPath(tool); err != nil {
			return fmt.Errorf("required tool %q not found on PATH", tool)
		}
	}
	return nil
}

// osBaselineWarning compares the host identity against the supported
// baseline (Ubuntu 20.04+, Debian 10+). Anything else is a warning only;
// the pipeline proceeds regardless.
func osBaselineWarning(osr map[string]string) string {
	id := strings.TrimSpace(osr["ID"])
	verRaw := strings.TrimSpace(osr["VERSION_ID"])
	major := 0
	if verRaw != "" {
		if n, err := strconv.Atoi(strings.SplitN(verRaw, ".", 2)[0]); err == nil {
			major = n
		}
	}
	switch id {
	case "ubuntu":
		if major > 0 && major < 20 {
			return fmt.Sprintf("Ubuntu %s is older than the supported baseline (20.04+)", verRaw)
		}
	case "debian":
		if major > 0 && major < 10 {
			return fmt.Sprintf("Debian %s is older than the supported baseline (10+)", verRaw)
		}
	default:
		return fmt.Sprintf("untested OS ID=%q (supported: ubuntu, debian); proceeding anyway", id)
	}
	return ""
}
