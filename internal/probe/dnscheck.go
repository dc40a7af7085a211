package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/hamed0406/isitdownchecker/internal/urlnorm"
)

const (
	DNSResolves     = "RESOLVES"
	DNSNXDomain     = "NXDOMAIN"
	DNSNoARecord    = "NO_A_RECORD"
	DNSServfail     = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName  = "INVALID_NAME"
	defaultDNSLimit = 3 * time.Second
)

// DNSStatus explains why a host might be unreachable.
type DNSStatus struct {
	Domain        string   `json:"domain"`
	HasAOrAAAA    bool     `json:"has_a_or_aaaa"`
	IPs           []net.IP `json:"-"`
	CNAME         string   `json:"cname,omitempty"`
	HasNS         bool     `json:"has_ns"`
	Nameservers   []string `json:"nameservers,omitempty"`
	Class         string   `json:"class"`
	ResolverError string   `json:"resolver_error,omitempty"`
}

// CheckDNS classifies the DNS state of a bare domain name.
func CheckDNS(ctx context.Context, r *net.Resolver, domain string) DNSStatus {
	s := DNSStatus{Domain: strings.TrimSpace(domain)}
	if s.Domain == "" || strings.Contains(s.Domain, "://") {
		s.Class = DNSInvalidName
		return s
	}
	if r == nil {
		r = net.DefaultResolver
	}
	ctx, cancel := context.WithTimeout(ctx, defaultDNSLimit)
	defer cancel()

	ips, err := r.LookupIP(ctx, "ip", s.Domain)
	if err == nil && len(ips) > 0 {
		s.HasAOrAAAA = true
		s.IPs = ips
		s.Class = DNSResolves
	} else if err != nil {
		var de *net.DNSError
		s.ResolverError = err.Error()
		if errors.As(err, &de) {
			if de.IsNotFound {
				s.Class = DNSNXDomain
			} else if de.IsTemporary || de.Timeout() {
				s.Class = DNSServfail
			}
		}
	}

	if cname, err := r.LookupCNAME(ctx, s.Domain); err == nil && !strings.EqualFold(cname, s.Domain+".") {
		s.CNAME = strings.TrimSuffix(cname, ".")
	}

	if ns, err := r.LookupNS(ctx, s.Domain); err == nil && len(ns) > 0 {
		s.HasNS = true
		for _, n := range ns {
			s.Nameservers = append(s.Nameservers, strings.TrimSuffix(n.Host, "."))
		}
		if s.Class == DNSNXDomain {
			s.Class = DNSNoARecord
		}
	}

	if s.Class == "" {
		switch {
		case s.HasAOrAAAA:
			s.Class = DNSResolves
		case s.HasNS:
			s.Class = DNSNoARecord
		case s.ResolverError != "":
			s.Class = DNSServfail
		default:
			s.Class = DNSNXDomain
		}
	}
	return s
}

// DNSChecker reports whether the target's host resolves. It is used to
// explain a failed HTTP probe, never to decide up/down on its own.
type DNSChecker struct {
	Resolver *net.Resolver
}

func NewDNSChecker() *DNSChecker {
	return &DNSChecker{Resolver: net.DefaultResolver}
}

func (d *DNSChecker) Check(ctx context.Context, target string) CheckResult {
	dns := d.Diagnose(ctx, target)
	return CheckResult{
		Name:    "DNS",
		Success: dns.Class == DNSResolves,
		Message: dns.Class,
	}
}

func (d *DNSChecker) Diagnose(ctx context.Context, target string) DNSStatus {
	return CheckDNS(ctx, d.Resolver, urlnorm.Hostname(target))
}
