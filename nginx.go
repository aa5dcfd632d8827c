package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// nginxCommitter writes and activates a per-domain virtual host under a
// commit protocol that never leaves the live proxy configuration broken:
// backup, write, activate, validate, and on validation failure restore the
// backup (or remove the fresh files) and re-validate.
type nginxCommitter struct {
	run          runner
	sitesAvail   string
	sitesEnabled string
	webRootBase  string
	now          func() time.Time
}

func newNginxCommitter(r runner) *nginxCommitter {
	return &nginxCommitter{
		run:          r,
		sitesAvail:   "/etc/nginx/sites-available",
		sitesEnabled: "/etc/nginx/sites-enabled",
		webRootBase:  "/var/www",
		now:          time.Now,
	}
}

type nginxSiteData struct {
	Domain      string
	CertPath    string
	KeyPath     string
	WebRoot     string
	TunnelPath  string
	BackendPort int
}

func (c *nginxCommitter) webRoot(domain string) string {
	return filepath.Join(c.webRootBase, domain)
}

func (c *nginxCommitter) commit(sess session, cert certResult, warn func(string)) (string, error) {
	data := nginxSiteData{
		Domain:      sess.Domain,
		CertPath:    cert.CertPath,
		KeyPath:     cert.KeyPath,
		WebRoot:     c.webRoot(sess.Domain),
		TunnelPath:  sess.Path,
		BackendPort: tunnelBackendPort,
	}
	conf, err := renderTemplateFile("templates/nginx_site.conf", data)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(c.sitesAvail, 0o755); err != nil {
		return "", err
	}
	if err := os.MkdirAll(c.sitesEnabled, 0o755); err != nil {
		return "", err
	}
	// The static root must exist or validation of the fresh vhost can fail.
	if err := os.MkdirAll(data.WebRoot, 0o755); err != nil {
		return "", err
	}

	avail := filepath.Join(c.sitesAvail, sess.Domain+".conf")
	enabled := filepath.Join(c.sitesEnabled, sess.Domain+".conf")

	backup, err := backupFile(avail, c.now())
	if err != nil {
		return "", fmt.Errorf("backup existing site config: %w", err)
	}

	// Activation and validation run inside the replace transaction: a
	// rejected config rolls the available file back to its prior bytes and
	// a symlink this commit created is removed first.
	createdLink := false
	validate := func() error {
		if _, err := os.Lstat(enabled); os.IsNotExist(err) {
			if err := os.Symlink(avail, enabled); err != nil {
				return fmt.Errorf("activate site config: %w", err)
			}
			createdLink = true
		}
		if _, err := c.run.run("nginx", "-t"); err != nil {
			if createdLink {
				_ = os.Remove(enabled)
			}
			return err
		}
		return nil
	}

	rolledBack, err := replaceFileValidated(avail, []byte(conf), 0o644, validate)
	if backup != "" {
		// The transaction restored (or kept) the prior bytes itself; the
		// timestamped copy is only needed while the commit is in flight.
		_ = os.Remove(backup)
	}
	if err != nil {
		if !rolledBack {
			return "", fmt.Errorf("write site config: %w", err)
		}
		if _, rerr := c.run.run("nginx", "-t"); rerr != nil {
			warn(fmt.Sprintf("nginx config invalid even after rollback, manual review needed: %v", rerr))
		} else {
			warn("new site config failed nginx validation; previous configuration restored")
		}
		return "", fmt.Errorf("nginx validation rejected %s: %w", avail, err)
	}

	if _, err := c.run.run("systemctl", "reload", "nginx"); err != nil {
		// The config is committed and valid; a reload failure only warns.
		warn(fmt.Sprintf("nginx reload failed: %v", err))
	}
	return avail, nil
}

// deployCoverSite renders the innocuous static page into the domain's
// document root.
func (c *nginxCommitter) deployCoverSite(sess session) (string, error) {
	root := c.webRoot(sess.Domain)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	page, err := renderTemplateFile("templates/cover_index.html", struct {
		Domain string
		Year   int
	}{Domain: sess.Domain, Year: c.now().Year()})
	if err != nil {
		return "", err
	}
	path := filepath.Join(root, "index.html")
	if err := atomicWriteFile(path, []byte(page), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
