package main

import (
	"fmt"
	"strings"
)

// configureFirewall opens the ports the endpoint needs (SSH stays open so
// the operator is not locked out) and enables ufw if it is inactive.
// Everything degrades to warnings; a host without ufw just skips.
func configureFirewall(r runner, warn func(string)) bool {
	if _, err := r.lookPath("ufw"); err != nil {
		warn("ufw not installed; firewall left unchanged")
		return false
	}
	ok := true
	for _, rule := range []string{"22/tcp", "80/tcp", "443/tcp"} {
		if _, err := r.run("ufw", "allow", rule); err != nil {
			warn(fmt.Sprintf("ufw allow %s failed: %v", rule, err))
			ok = false
		}
	}
	out, err := r.run("ufw", "status")
	if err == nil && !strings.Contains(out, "Status: active") {
		if _, err := r.run("ufw", "--force", "enable"); err != nil {
			warn(fmt.Sprintf("ufw enable failed: %v", err))
			ok = false
		}
	}
	return ok
}
