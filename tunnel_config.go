package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	tunnelBackendPort  = 10000
	tunnelLogDir       = "/var/log/veil"
	xrayConfigPath     = "/usr/local/etc/xray/config.json"
	xrayConfigFallback = "/etc/xray/config.json"
)

type xrayLog struct {
	Access   string `json:"access"`
	Error    string `json:"error"`
	Loglevel string `json:"loglevel"`
}

type xrayClient struct {
	ID string `json:"id"`
}

type xrayInboundSettings struct {
	Clients    []xrayClient `json:"clients"`
	Decryption string       `json:"decryption"`
}

type xrayWSSettings struct {
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers,omitempty"`
}

type xrayStreamSettings struct {
	Network    string          `json:"network"`
	WSSettings *xrayWSSettings `json:"wsSettings,omitempty"`
}

type xrayInbound struct {
	Tag            string              `json:"tag"`
	Listen         string              `json:"listen"`
	Port           int                 `json:"port"`
	Protocol       string              `json:"protocol"`
	Settings       xrayInboundSettings `json:"settings"`
	StreamSettings xrayStreamSettings  `json:"streamSettings"`
}

type xrayOutbound struct {
	Tag      string `json:"tag"`
	Protocol string `json:"protocol"`
}

type xrayConfig struct {
	Log       xrayLog        `json:"log"`
	Inbounds  []xrayInbound  `json:"inbounds"`
	Outbounds []xrayOutbound `json:"outbounds"`
}

// renderTunnelConfig builds the tunnel-server configuration: one VLESS
// WebSocket inbound bound to loopback only (TLS terminates at the proxy),
// a default pass-through outbound and a blackholed one.
func renderTunnelConfig(sess session) xrayConfig {
	return xrayConfig{
		Log: xrayLog{
			Access:   filepath.Join(tunnelLogDir, "access.log"),
			Error:    filepath.Join(tunnelLogDir, "error.log"),
			Loglevel: "warning",
		},
		Inbounds: []xrayInbound{{
			Tag:      "vless-ws",
			Listen:   "127.0.0.1",
			Port:     tunnelBackendPort,
			Protocol: "vless",
			Settings: xrayInboundSettings{
				Clients:    []xrayClient{{ID: sess.ClientID}},
				Decryption: "none",
			},
			StreamSettings: xrayStreamSettings{
				Network: "ws",
				WSSettings: &xrayWSSettings{
					Path:    sess.Path,
					Headers: map[string]string{"Host": sess.Domain},
				},
			},
		}},
		Outbounds: []xrayOutbound{
			{Tag: "direct", Protocol: "freedom"},
			{Tag: "blocked", Protocol: "blackhole"},
		},
	}
}

// marshalTunnelConfig produces the JSON document and validates it by
// re-parsing. An invalid render is re-rendered once; if it still fails the
// bytes are written anyway and the warning tells the operator to review by
// hand.
func marshalTunnelConfig(cfg xrayConfig) ([]byte, string) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err == nil && json.Valid(data) {
		return data, ""
	}
	data, err = json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return []byte("{}"), fmt.Sprintf("tunnel config could not be rendered: %v; wrote an empty document, review manually", err)
	}
	if !json.Valid(data) {
		return data, "tunnel config failed validation after re-render; review the written file manually"
	}
	return data, ""
}

// writeTunnelConfig persists the document to the preferred path, falling
// back to the documented secondary location when the preferred parent
// directory cannot be created. Returns the path actually used; downstream
// consumers must read it from here.
func writeTunnelConfig(data []byte, preferred, fallback string) (string, error) {
	for _, path := range []string{preferred, fallback} {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			continue
		}
		if err := atomicWriteFile(path, data, 0o644); err != nil {
			continue
		}
		return path, nil
	}
	return "", fmt.Errorf("could not write tunnel config to %s or %s", preferred, fallback)
}
