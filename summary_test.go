package main

import (
	"strings"
	"testing"
)

func summaryState(t *testing.T) provisionState {
	t.Helper()
	sess, err := newSession("example.com", "/ws", "b831381d-6324-4d53-ad4f-8cda48b30811", false, true, true, false)
	if err != nil {
		t.Fatal(err)
	}
	return provisionState{
		Session: sess,
		Cert: certResult{
			Strategy: certPrimary,
			CertPath: "/etc/veil/certs/example.com/fullchain.pem",
			KeyPath:  "/etc/veil/certs/example.com/privkey.pem",
			Trusted:  true,
		},
		Artifact:        installedArtifact{Path: "/usr/local/bin/xray", Arch: "amd64"},
		ConfigPath:      "/usr/local/etc/xray/config.json",
		UnitPath:        "/etc/systemd/system/veil-xray.service",
		SitePath:        "/etc/nginx/sites-available/example.com.conf",
		CoverPath:       "/var/www/example.com/index.html",
		NginxAvailable:  true,
		TLSAvailable:    true,
		ServiceRunning:  true,
		SiteCommitted:   true,
		CoverDeployed:   true,
		FirewallEnabled: true,
	}
}

func TestBuildSummary_HappyPath(t *testing.T) {
	s := buildSummary(summaryState(t))

	if !strings.Contains(s, "vless://b831381d-6324-4d53-ad4f-8cda48b30811@example.com:443") {
		t.Fatalf("summary missing connection URI:\n%s", s)
	}
	for _, want := range []string{
		"/usr/local/etc/xray/config.json",
		"/etc/systemd/system/veil-xray.service",
		"/etc/nginx/sites-available/example.com.conf",
		"certificate strategy:  certbot",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, "Warnings:") {
		t.Fatalf("clean run must not print a warnings section:\n%s", s)
	}
	if strings.Contains(s, "self-signed and untrusted") {
		t.Fatalf("trusted cert must not carry the pin note:\n%s", s)
	}
	// The QR code block uses half-height glyphs.
	if !strings.Contains(s, "█") && !strings.Contains(s, "▄") {
		t.Fatalf("summary missing QR code:\n%s", s)
	}
}

func TestBuildSummary_DegradedRun(t *testing.T) {
	st := summaryState(t)
	st.Cert = certResult{Strategy: certSelfSigned, CertPath: "/x/cert.pem", KeyPath: "/x/key.pem"}
	st.NginxAvailable = false
	st.SiteCommitted = false
	st.ServiceRunning = false
	st.ConfigPath = ""
	st.ResolvConfBackup = "/etc/resolv.conf.bak.20260506-070809"
	st.Warnings = []string{"nginx install failed, reverse proxy and cover site disabled: exit 100"}

	s := buildSummary(st)
	for _, want := range []string{
		"Nginx not installed",
		"self-signed and untrusted",
		"not running",
		"(not written)",
		"/etc/resolv.conf.bak.20260506-070809",
		"Warnings:",
		"nginx install failed",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
}
