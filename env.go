package main

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// promptDefaults preseeds the interactive form. Values come from the
// environment, optionally loaded from /etc/veil/veil.env or a local .env.
type promptDefaults struct {
	Domain      string
	Path        string
	ClientID    string
	CoverSite   bool
	Firewall    bool
	ResolverFix bool
}

func loadPromptDefaults() promptDefaults {
	for _, p := range []string{"/etc/veil/veil.env", ".env"} {
		_ = godotenv.Load(p)
	}
	return promptDefaults{
		Domain:      strings.TrimSpace(os.Getenv("VEIL_DOMAIN")),
		Path:        strings.TrimSpace(os.Getenv("VEIL_PATH")),
		ClientID:    strings.TrimSpace(os.Getenv("VEIL_CLIENT_ID")),
		CoverSite:   envBool("VEIL_COVER_SITE", true),
		Firewall:    envBool("VEIL_FIREWALL", false),
		ResolverFix: envBool("VEIL_RESOLVER_FIX", false),
	}
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
