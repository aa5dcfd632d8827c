package main

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// buildSummary renders the deterministic final report: connection details,
// every file the run produced, and each capability that ended up degraded.
func buildSummary(st provisionState) string {
	var b strings.Builder
	sess := st.Session

	b.WriteString("Provisioning complete: " + sess.Domain + "\n\n")

	uri := sess.clientURI()
	b.WriteString("Client connection URI:\n  " + uri + "\n")
	if qr, err := qrcode.New(uri, qrcode.Low); err == nil {
		b.WriteString("\n" + qr.ToSmallString(false))
	}
	b.WriteString("\n")

	line := func(label, value string) {
		if value == "" {
			value = "(not written)"
		}
		fmt.Fprintf(&b, "  %-22s %s\n", label+":", value)
	}
	b.WriteString("Files:\n")
	line("tunnel config", st.ConfigPath)
	line("systemd unit", st.UnitPath)
	line("certificate", st.Cert.CertPath)
	line("private key", st.Cert.KeyPath)
	line("nginx site", st.SitePath)
	line("cover page", st.CoverPath)
	if st.ResolvConfBackup != "" {
		line("resolv.conf backup", st.ResolvConfBackup)
	}

	b.WriteString("\nState:\n")
	status := func(label string, ok bool, bad string) {
		v := "ok"
		if !ok {
			v = bad
		}
		fmt.Fprintf(&b, "  %-22s %s\n", label+":", v)
	}
	fmt.Fprintf(&b, "  %-22s %s\n", "certificate strategy:", st.Cert.Strategy.String())
	if st.Cert.Strategy == certSelfSigned {
		b.WriteString("  certificate is self-signed and untrusted; clients must pin it\n")
	}
	status("tunnel service", st.ServiceRunning, "not running")
	if st.NginxAvailable {
		status("reverse proxy", st.SiteCommitted, "not configured")
	} else {
		fmt.Fprintf(&b, "  %-22s %s\n", "reverse proxy:", "Nginx not installed")
	}
	if sess.CoverSite {
		status("cover site", st.CoverDeployed, "not deployed")
	}
	if sess.EnableFirewall {
		status("firewall", st.FirewallEnabled, "not fully configured")
	}

	if len(st.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range st.Warnings {
			b.WriteString("  - " + w + "\n")
		}
	}
	return b.String()
}
