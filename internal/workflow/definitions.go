package workflow

const (
	StepCheckEnvironment  StepID = "host.check_environment"
	StepUpdatePackages    StepID = "host.update_package_index"
	StepBasePackages      StepID = "host.install_base_packages"
	StepInstallNginx      StepID = "proxy.install_nginx"
	StepDNSHealth         StepID = "cert.dns_health_check"
	StepAcquireCert       StepID = "cert.acquire_certificate"
	StepInstallXray       StepID = "tunnel.install_xray"
	StepWriteTunnelConfig StepID = "tunnel.write_config"
	StepTunnelService     StepID = "tunnel.register_service"
	StepCommitProxySite   StepID = "proxy.commit_site"
	StepCoverSite         StepID = "proxy.deploy_cover_site"
	StepFirewall          StepID = "host.configure_firewall"
)

func ProvisionStepDefinitions() []StepDef {
	return []StepDef{
		{ID: StepCheckEnvironment, Label: "Host: check environment"},
		{ID: StepUpdatePackages, Label: "Host: update package index"},
		{ID: StepBasePackages, Label: "Host: install base packages"},
		{ID: StepInstallNginx, Label: "Proxy: install nginx"},
		{ID: StepDNSHealth, Label: "Cert: DNS health check"},
		{ID: StepAcquireCert, Label: "Cert: acquire TLS certificate"},
		{ID: StepInstallXray, Label: "Tunnel: install Xray binary"},
		{ID: StepWriteTunnelConfig, Label: "Tunnel: write server config"},
		{ID: StepTunnelService, Label: "Tunnel: register systemd service"},
		{ID: StepCommitProxySite, Label: "Proxy: commit site config"},
		{ID: StepCoverSite, Label: "Proxy: deploy cover site"},
		{ID: StepFirewall, Label: "Host: configure firewall"},
	}
}

func DefaultProvisionSteps() []Step {
	defs := ProvisionStepDefinitions()
	steps := make([]Step, 0, len(defs))
	for _, def := range defs {
		steps = append(steps, Step{
			ID:    def.ID,
			Label: def.Label,
		})
	}
	return steps
}
