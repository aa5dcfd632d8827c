package main

import (
	"errors"
	"fmt"
	"time"

	"veil/internal/workflow"
)

// provisionState holds everything the stages produce. The session itself is
// immutable; stage outputs accumulate here and flow into the summary.
//
// The state travels by value: each step receives a copy, mutates it, and
// hands it back through the step-done message, so the event loop never shares
// mutable state with a running step.
type provisionState struct {
	Session session

	Cert       certResult
	Artifact   installedArtifact
	ConfigPath string
	UnitPath   string
	SitePath   string
	CoverPath  string

	NginxAvailable  bool
	TLSAvailable    bool
	ServiceRunning  bool
	SiteCommitted   bool
	CoverDeployed   bool
	FirewallEnabled bool

	ResolvConfBackup string
	Warnings         []string
}

func (st *provisionState) warn(msg string) {
	st.Warnings = append(st.Warnings, msg)
}

// pipeline wires the components together and executes one stage at a time,
// strictly in the order of the step definitions. A returned error is fatal;
// degrading failures are recorded as warnings and capability flags.
type pipeline struct {
	run   runner
	apt   *aptManager
	certs *certAcquirer
	xray  *xrayInstaller
	svc   *serviceManager
	nginx *nginxCommitter

	checkDNS    func(domain string) dnsReport
	fixResolver func(preferred string) (string, error)
	osRelease   func() (map[string]string, error)
}

func newPipeline() *pipeline {
	r := execRunner{}
	apt := newAptManager(r)
	return &pipeline{
		run:      r,
		apt:      apt,
		certs:    newCertAcquirer(r, apt),
		xray:     newXrayInstaller(),
		svc:      newServiceManager(r),
		nginx:    newNginxCommitter(r),
		checkDNS: checkDomainDNS,
		fixResolver: func(preferred string) (string, error) {
			return rewriteResolvConf(resolvConfPath, preferred, time.Now())
		},
		osRelease: localOSRelease,
	}
}

// runStep executes a single stage against a copy of the state and returns
// the updated copy. skipped=true means the stage did not apply for this
// session (flag off, or a capability it depends on is gone).
func (p *pipeline) runStep(id workflow.StepID, state provisionState) (provisionState, bool, error) {
	st := &state
	sess := state.Session

	switch id {
	case workflow.StepCheckEnvironment:
		if err := checkRequiredTools(p.run); err != nil {
			return state, false, err
		}
		if osr, err := p.osRelease(); err != nil {
			st.warn(fmt.Sprintf("could not read /etc/os-release: %v", err))
		} else if w := osBaselineWarning(osr); w != "" {
			st.warn(w)
		}
		return state, false, nil

	case workflow.StepUpdatePackages:
		if w := p.apt.ensureUpdated(); w != "" {
			st.warn(w)
		}
		return state, false, nil

	case workflow.StepBasePackages:
		w, err := p.apt.install("curl", "socat", "ca-certificates")
		if w != "" {
			st.warn(w)
		}
		if err != nil {
			st.warn(fmt.Sprintf("base packages incomplete: %v", err))
		}
		return state, false, nil

	case workflow.StepInstallNginx:
		w, err := p.apt.install("nginx")
		if w != "" {
			st.warn(w)
		}
		if err != nil {
			st.warn(fmt.Sprintf("nginx install failed, reverse proxy and cover site disabled: %v", err))
			st.NginxAvailable = false
			return state, false, nil
		}
		st.NginxAvailable = true
		return state, false, nil

	case workflow.StepDNSHealth:
		rep := p.checkDNS(sess.Domain)
		switch {
		case !rep.Resolved:
			st.warn(fmt.Sprintf("domain %s does not resolve anywhere; certificate issuance will likely fail", sess.Domain))
		case rep.ViaSystem:
			// Healthy resolver, nothing to do.
		default:
			st.warn(fmt.Sprintf("system resolver cannot resolve %s but %s can", sess.Domain, rep.WorkingResolver))
			if sess.AllowResolverFix {
				backup, err := p.fixResolver(rep.WorkingResolver)
				if err != nil {
					st.warn(fmt.Sprintf("resolver rewrite failed: %v", err))
				} else {
					st.ResolvConfBackup = backup
				}
			}
		}
		return state, false, nil

	case workflow.StepAcquireCert:
		res, err := p.certs.acquire(sess.Domain, sess.FreshInstall, st.warn)
		if err != nil {
			if errors.Is(err, errCertDirUnavailable) {
				return state, false, err
			}
			st.warn(fmt.Sprintf("TLS disabled for this run: %v", err))
			st.Cert = res
			st.TLSAvailable = false
			return state, false, nil
		}
		st.Cert = res
		st.TLSAvailable = true
		return state, false, nil

	case workflow.StepInstallXray:
		art, err := p.xray.install(st.warn)
		if err != nil {
			st.warn(fmt.Sprintf("tunnel binary not installed: %v", err))
			return state, false, nil
		}
		st.Artifact = art
		return state, false, nil

	case workflow.StepWriteTunnelConfig:
		if st.Artifact.Path == "" {
			return state, true, nil
		}
		data, w := marshalTunnelConfig(renderTunnelConfig(sess))
		if w != "" {
			st.warn(w)
		}
		path, err := writeTunnelConfig(data, xrayConfigPath, xrayConfigFallback)
		if err != nil {
			st.warn(err.Error())
			return state, false, nil
		}
		st.ConfigPath = path
		return state, false, nil

	case workflow.StepTunnelService:
		if st.Artifact.Path == "" || st.ConfigPath == "" {
			return state, true, nil
		}
		unit, err := p.svc.registerService(serviceDescriptor{
			Name:        tunnelServiceName,
			Description: "veil tunnel server (Xray)",
			ExecPath:    st.Artifact.Path,
			ConfigPath:  st.ConfigPath,
		})
		if err != nil {
			st.warn(fmt.Sprintf("service registration failed: %v", err))
			return state, false, nil
		}
		st.UnitPath = unit
		if err := p.svc.enable(tunnelServiceName); err != nil {
			st.warn(err.Error())
		}
		if err := p.svc.restart(tunnelServiceName); err != nil {
			st.warn(err.Error())
			return state, false, nil
		}
		st.ServiceRunning = true
		return state, false, nil

	case workflow.StepCommitProxySite:
		if !st.NginxAvailable || !st.TLSAvailable {
			return state, true, nil
		}
		site, err := p.nginx.commit(sess, st.Cert, st.warn)
		if err != nil {
			st.warn(fmt.Sprintf("reverse proxy not configured: %v", err))
			return state, false, nil
		}
		st.SitePath = site
		st.SiteCommitted = true
		return state, false, nil

	case workflow.StepCoverSite:
		if !sess.CoverSite || !st.NginxAvailable {
			return state, true, nil
		}
		page, err := p.nginx.deployCoverSite(sess)
		if err != nil {
			st.warn(fmt.Sprintf("cover site not deployed: %v", err))
			return state, false, nil
		}
		st.CoverPath = page
		st.CoverDeployed = true
		return state, false, nil

	case workflow.StepFirewall:
		if !sess.EnableFirewall {
			return state, true, nil
		}
		st.FirewallEnabled = configureFirewall(p.run, st.warn)
		return state, false, nil

	default:
		return state, false, fmt.Errorf("unknown step ID: %q", id)
	}
}
