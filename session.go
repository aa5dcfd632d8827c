package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const defaultTunnelPath = "/ws"

// session carries one provisioning run's parameters. It is built once from
// the form, validated, and never mutated after the pipeline starts; stage
// outputs travel as explicit values, not ambient state.
type session struct {
	Domain   string `validate:"required,fqdn"`
	Path     string `validate:"required,startswith=/"`
	ClientID string `validate:"required,uuid"`

	FreshInstall     bool
	CoverSite        bool
	EnableFirewall   bool
	AllowResolverFix bool
}

var sessionValidate = validator.New()

// normalizeTunnelPath applies the path rules: empty input falls back to the
// default, a missing leading slash is added, anything else passes through.
func normalizeTunnelPath(in string) string {
	p := strings.TrimSpace(in)
	if p == "" {
		return defaultTunnelPath
	}
	if !strings.HasPrefix(p, "/") {
		return "/" + p
	}
	return p
}

func newSession(domain, path, clientID string, fresh, cover, firewall, resolverFix bool) (session, error) {
	id := strings.TrimSpace(clientID)
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return session{}, fmt.Errorf("client id %q is not a valid UUID", id)
	}

	s := session{
		Domain:           strings.ToLower(strings.TrimSpace(domain)),
		Path:             normalizeTunnelPath(path),
		ClientID:         id,
		FreshInstall:     fresh,
		CoverSite:        cover,
		EnableFirewall:   firewall,
		AllowResolverFix: resolverFix,
	}
	if err := sessionValidate.Struct(s); err != nil {
		if s.Domain == "" {
			return session{}, fmt.Errorf("domain is required")
		}
		return session{}, fmt.Errorf("invalid session parameters: %w", err)
	}
	return s, nil
}

// clientURI encodes everything a client needs to reach the tunnel through
// the TLS proxy on port 443.
func (s session) clientURI() string {
	return fmt.Sprintf("vless://%s@%s:443?encryption=none&security=tls&type=ws&host=%s&path=%s",
		s.ClientID, s.Domain, s.Domain, url.QueryEscape(s.Path))
}
