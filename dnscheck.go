package main

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// publicResolvers is the fixed probe order used when the system resolver
// cannot answer for the session's domain.
var publicResolvers = []string{"1.1.1.1", "8.8.8.8", "9.9.9.9"}

const resolvConfPath = "/etc/resolv.conf"

type dnsReport struct {
	Resolved        bool
	ViaSystem       bool
	WorkingResolver string
	Addresses       []string
}

// checkDomainDNS asks the system resolver first and falls back to probing
// the well-known public resolvers in order. An unresolvable domain is a
// warning upstream, never an abort.
func checkDomainDNS(domain string) dnsReport {
	if addrs, err := net.LookupHost(domain); err == nil && len(addrs) > 0 {
		return dnsReport{Resolved: true, ViaSystem: true, Addresses: addrs}
	}
	for _, server := range publicResolvers {
		addrs, err := probeResolver(domain, server)
		if err != nil || len(addrs) == 0 {
			continue
		}
		return dnsReport{Resolved: true, WorkingResolver: server, Addresses: addrs}
	}
	return dnsReport{}
}

// probeResolver queries one specific nameserver for the domain's A records,
// bypassing the system resolver configuration.
func probeResolver(domain, server string) ([]string, error) {
	m := new(dns.Msg)
	m.Id = dns.Id()
	m.RecursionDesired = true
	m.Question = []dns.Question{{
		Name:   dns.Fqdn(domain),
		Qtype:  dns.TypeA,
		Qclass: dns.ClassINET,
	}}

	c := &dns.Client{Timeout: 3 * time.Second}
	in, _, err := c.Exchange(m, net.JoinHostPort(server, "53"))
	if err != nil {
		return nil, err
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("resolver %s answered rcode %s", server, dns.RcodeToString[in.Rcode])
	}
	addrs := make([]string, 0, len(in.Answer))
	for _, rr := range in.Answer {
		if a, ok := rr.(*dns.A); ok {
			addrs = append(addrs, a.A.String())
		}
	}
	return addrs, nil
}

// rewriteResolvConf prefers the resolver that actually answered, keeping the
// other known-good resolvers as fallbacks. The prior configuration is backed
// up with a timestamp suffix and restored if the write cannot be completed.
func rewriteResolvConf(path, preferred string, now time.Time) (string, error) {
	order := []string{preferred}
	for _, r := range publicResolvers {
		if r != preferred {
			order = append(order, r)
		}
	}

	backup, err := backupFile(path, now)
	if err != nil {
		return "", fmt.Errorf("backup %s: %w", path, err)
	}

	var b strings.Builder
	b.WriteString("# written by veil; previous configuration backed up alongside\n")
	for _, r := range order {
		fmt.Fprintf(&b, "nameserver %s\n", r)
	}
	b.WriteString("options timeout:2 attempts:2\n")

	if err := atomicWriteFile(path, []byte(b.String()), 0o644); err != nil {
		if backup != "" {
			if data, rerr := os.ReadFile(backup); rerr == nil {
				_ = atomicWriteFile(path, data, 0o644)
			}
		}
		return backup, fmt.Errorf("write %s: %w", path, err)
	}
	return backup, nil
}
