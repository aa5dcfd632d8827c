package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type certStrategy int

const (
	certNone certStrategy = iota
	certPrimary
	certFallback
	certSelfSigned
)

func (s certStrategy) String() string {
	switch s {
	case certPrimary:
		return "certbot"
	case certFallback:
		return "acme.sh"
	case certSelfSigned:
		return "self-signed"
	default:
		return "none"
	}
}

// certResult is the outcome of certificate acquisition. When Strategy is
// anything but certNone, both paths exist and are non-empty. Self-signed
// results are marked untrusted.
type certResult struct {
	Strategy certStrategy
	CertPath string
	KeyPath  string
	Trusted  bool
}

// errCertDirUnavailable marks the one truly fatal acquisition failure: the
// certificate directory itself cannot be created.
var errCertDirUnavailable = errors.New("certificate directory unavailable")

// errNoCertificate means every tier failed, including local self-signing.
// The TLS-dependent path is disabled but the pipeline continues.
var errNoCertificate = errors.New("no certificate could be produced")

// certAcquirer runs the tiered issuance strategy: certbot standalone, then
// acme.sh standalone, then a locally generated self-signed pair. First
// success wins; later tiers are never touched after a success.
type certAcquirer struct {
	run      runner
	apt      *aptManager
	certRoot string
	leLive   string
	acmeHome string
	selfSign func(domain, certPath, keyPath string) error
}

func newCertAcquirer(r runner, apt *aptManager) *certAcquirer {
	home, _ := os.UserHomeDir()
	return &certAcquirer{
		run:      r,
		apt:      apt,
		certRoot: "/etc/veil/certs",
		leLive:   "/etc/letsencrypt/live",
		acmeHome: filepath.Join(home, ".acme.sh"),
		selfSign: writeSelfSignedCertificate,
	}
}

func (a *certAcquirer) acquire(domain string, fresh bool, warn func(string)) (certResult, error) {
	dir := filepath.Join(a.certRoot, domain)
	if fresh {
		_ = os.RemoveAll(dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return certResult{}, fmt.Errorf("%w: %v", errCertDirUnavailable, err)
	}
	certPath := filepath.Join(dir, "fullchain.pem")
	keyPath := filepath.Join(dir, "privkey.pem")

	a.stopPortBinders(warn)

	if res, ok := a.tryCertbot(domain, certPath, keyPath, warn); ok {
		return res, nil
	}
	if res, ok := a.tryAcmeSh(domain, certPath, keyPath, warn); ok {
		return res, nil
	}

	warn("both ACME clients failed; generating a self-signed certificate (clients must disable verification or pin it)")
	if err := a.selfSign(domain, certPath, keyPath); err != nil {
		return certResult{Strategy: certNone}, fmt.Errorf("%w: self-signed generation failed: %v", errNoCertificate, err)
	}
	return certResult{Strategy: certSelfSigned, CertPath: certPath, KeyPath: keyPath, Trusted: false}, nil
}

// stopPortBinders frees ports 80/443 for the standalone HTTP challenge.
// Everything here is best effort; a busy listener only earns a warning and
// issuance is attempted anyway.
func (a *certAcquirer) stopPortBinders(warn func(string)) {
	for _, unit := range []string{"nginx", "apache2", "caddy"} {
		if _, err := a.run.run("systemctl", "is-active", "--quiet", unit); err == nil {
			_, _ = a.run.run("systemctl", "stop", unit)
		}
	}
	out, err := a.run.run("ss", "-ltnp")
	if err != nil {
		return
	}
	for _, ln := range strings.Split(out, "\n") {
		if strings.Contains(ln, ":80 ") || strings.Contains(ln, ":443 ") {
			warn("listener still bound on a challenge port: " + strings.Join(strings.Fields(ln), " "))
		}
	}
}

func (a *certAcquirer) tryCertbot(domain, certPath, keyPath string, warn func(string)) (certResult, bool) {
	if _, err := a.run.lookPath("certbot"); err != nil {
		w, err := a.apt.install("certbot")
		if w != "" {
			warn(w)
		}
		if err != nil {
			warn(fmt.Sprintf("certbot unavailable: %v", err))
			return certResult{}, false
		}
	}
	_, err := a.run.run("certbot", "certonly", "--standalone",
		"-d", domain,
		"--non-interactive", "--agree-tos", "--register-unsafely-without-email")
	if err != nil {
		warn(fmt.Sprintf("certbot issuance failed: %v", err))
		return certResult{}, false
	}
	live := filepath.Join(a.leLive, domain)
	if err := copyFileContents(filepath.Join(live, "fullchain.pem"), certPath, 0o644); err != nil {
		warn(fmt.Sprintf("copy certbot chain: %v", err))
		return certResult{}, false
	}
	if err := copyFileContents(filepath.Join(live, "privkey.pem"), keyPath, 0o600); err != nil {
		warn(fmt.Sprintf("copy certbot key: %v", err))
		return certResult{}, false
	}
	return certResult{Strategy: certPrimary, CertPath: certPath, KeyPath: keyPath, Trusted: true}, true
}

func (a *certAcquirer) tryAcmeSh(domain, certPath, keyPath string, warn func(string)) (certResult, bool) {
	script := filepath.Join(a.acmeHome, "acme.sh")
	if _, err := os.Stat(script); err != nil {
		if _, err := a.run.run("sh", "-c", "curl -fsSL https://get.acme.sh | sh -s -- --nocron"); err != nil {
			warn(fmt.Sprintf("acme.sh install failed: %v", err))
			return certResult{}, false
		}
	}
	if _, err := a.run.run(script, "--issue", "--standalone", "-d", domain, "--server", "letsencrypt", "--force"); err != nil {
		warn(fmt.Sprintf("acme.sh issuance failed: %v", err))
		return certResult{}, false
	}
	if _, err := a.run.run(script, "--install-cert", "-d", domain,
		"--fullchain-file", certPath,
		"--key-file", keyPath); err != nil {
		warn(fmt.Sprintf("acme.sh install-cert failed: %v", err))
		return certResult{}, false
	}
	return certResult{Strategy: certFallback, CertPath: certPath, KeyPath: keyPath, Trusted: true}, true
}

// writeSelfSignedCertificate generates an RSA-2048 key and a 365-day
// certificate with the domain as common name and SAN.
func writeSelfSignedCertificate(domain, certPath, keyPath string) error {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	now := time.Now()
	tmpl := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: domain},
		DNSNames:     []string{domain},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(365 * 24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, &tmpl, &tmpl, &key.PublicKey, key)
	if err != nil {
		return fmt.Errorf("create certificate: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return fmt.Errorf("marshal key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})

	if err := atomicWriteFile(certPath, certPEM, 0o644); err != nil {
		return err
	}
	return atomicWriteFile(keyPath, keyPEM, 0o600)
}

func copyFileContents(src, dst string, perm os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return fmt.Errorf("%s is empty", src)
	}
	return atomicWriteFile(dst, data, perm)
}
