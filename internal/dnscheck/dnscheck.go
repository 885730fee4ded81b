// Package dnscheck looks up the DNS records that decide whether an
// assessment's landing domain resolves and whether mail from its sender
// domains is likely to be delivered.
package dnscheck

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/mail"
	"regexp"
	"sort"
	"strings"

	"github.com/foxzi/pca/internal/models"
)

// ErrInvalidDomain is returned for names that are not valid host names
var ErrInvalidDomain = errors.New("invalid domain name")

// domainRegex validates domain name format (RFC 1035)
var domainRegex = regexp.MustCompile(`^(?i)[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?(\.[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?)*$`)

// Check statuses
const (
	StatusOK       = "ok"
	StatusWarning  = "warning"
	StatusError    = "error"
	StatusNotFound = "not_found"
)

// ValidateDomain checks if domain name is valid
func ValidateDomain(domain string) error {
	if domain == "" || len(domain) > 253 || !domainRegex.MatchString(domain) {
		return fmt.Errorf("%w: %q", ErrInvalidDomain, domain)
	}
	return nil
}

// Resolver is the subset of *net.Resolver the checks use
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
	LookupMX(ctx context.Context, name string) ([]*net.MX, error)
	LookupTXT(ctx context.Context, name string) ([]string, error)
}

// CheckResult is the outcome of one lookup
type CheckResult struct {
	Type    string `json:"type"`
	Status  string `json:"status"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message,omitempty"`
}

// DomainResult holds the checks run for one domain
type DomainResult struct {
	Domain  string        `json:"domain"`
	Role    string        `json:"role"`
	Results []CheckResult `json:"results"`
}

// Failed reports whether any check of the domain errored or found nothing
func (d *DomainResult) Failed() bool {
	for _, r := range d.Results {
		if r.Status == StatusError || r.Status == StatusNotFound {
			return true
		}
	}
	return false
}

// Checker runs DNS checks through a resolver
type Checker struct {
	resolver Resolver
}

// New creates a Checker. A nil resolver uses net.DefaultResolver.
func New(r Resolver) *Checker {
	if r == nil {
		r = net.DefaultResolver
	}
	return &Checker{resolver: r}
}

// SenderDomain returns the lower-cased domain of a from address such as
// "Display Name<user@domain.tld>".
func SenderDomain(from string) (string, error) {
	addr, err := mail.ParseAddress(from)
	if err != nil {
		return "", fmt.Errorf("parse from address %q: %w", from, err)
	}
	at := strings.LastIndex(addr.Address, "@")
	if at < 0 || at == len(addr.Address)-1 {
		return "", fmt.Errorf("from address %q has no domain", from)
	}
	return strings.ToLower(addr.Address[at+1:]), nil
}

// SenderDomains returns the distinct sender domains of a's campaigns
func SenderDomains(a *models.Assessment) ([]string, error) {
	seen := make(map[string]bool)
	for _, c := range a.Campaigns {
		if c.SMTP == nil || c.SMTP.FromAddress == "" {
			continue
		}
		d, err := SenderDomain(c.SMTP.FromAddress)
		if err != nil {
			return nil, fmt.Errorf("campaign %s: %w", c.Name, err)
		}
		seen[d] = true
	}

	domains := make([]string, 0, len(seen))
	for d := range seen {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains, nil
}

// CheckAssessment checks that the landing domain resolves and that every
// sender domain publishes MX, SPF and DMARC records.
func (c *Checker) CheckAssessment(ctx context.Context, a *models.Assessment) ([]DomainResult, error) {
	var results []DomainResult

	if a.Domain != "" {
		host := landingHost(a.Domain)
		if err := ValidateDomain(host); err != nil {
			return nil, err
		}
		results = append(results, DomainResult{
			Domain:  host,
			Role:    "landing",
			Results: []CheckResult{c.CheckHost(ctx, host)},
		})
	}

	senders, err := SenderDomains(a)
	if err != nil {
		return nil, err
	}
	for _, d := range senders {
		if err := ValidateDomain(d); err != nil {
			return nil, err
		}
		results = append(results, DomainResult{
			Domain: d,
			Role:   "sender",
			Results: []CheckResult{
				c.CheckMX(ctx, d),
				c.CheckSPF(ctx, d),
				c.CheckDMARC(ctx, d),
			},
		})
	}
	return results, nil
}

// landingHost strips a scheme, port or path an operator may have entered
func landingHost(domain string) string {
	d := domain
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if h, _, err := net.SplitHostPort(d); err == nil {
		d = h
	}
	return strings.ToLower(d)
}

// CheckHost checks that the host name resolves to an address
func (c *Checker) CheckHost(ctx context.Context, host string) CheckResult {
	result := CheckResult{Type: "Address"}

	addrs, err := c.resolver.LookupHost(ctx, host)
	if err != nil {
		return lookupFailed(result, err, "Landing domain does not resolve")
	}
	if len(addrs) == 0 {
		result.Status = StatusNotFound
		result.Message = "Landing domain does not resolve"
		return result
	}

	result.Status = StatusOK
	result.Value = strings.Join(addrs, ", ")
	return result
}

// CheckMX checks MX records for a domain
func (c *Checker) CheckMX(ctx context.Context, domain string) CheckResult {
	result := CheckResult{Type: "MX Records"}

	mxRecords, err := c.resolver.LookupMX(ctx, domain)
	if err != nil {
		return lookupFailed(result, err, "No MX records found (replies and bounces will be lost)")
	}
	if len(mxRecords) == 0 {
		result.Status = StatusNotFound
		result.Message = "No MX records found (replies and bounces will be lost)"
		return result
	}

	values := make([]string, 0, len(mxRecords))
	for _, mx := range mxRecords {
		values = append(values, fmt.Sprintf("%s (priority %d)", mx.Host, mx.Pref))
	}
	result.Status = StatusOK
	result.Value = strings.Join(values, ", ")
	result.Message = fmt.Sprintf("%d MX record(s) found", len(mxRecords))
	return result
}

// CheckSPF checks SPF record for a domain
func (c *Checker) CheckSPF(ctx context.Context, domain string) CheckResult {
	result := CheckResult{Type: "SPF Record"}

	txtRecords, err := c.resolver.LookupTXT(ctx, domain)
	if err != nil {
		return lookupFailed(result, err, "No SPF record found (mail is likely to be rejected)")
	}

	for _, txt := range txtRecords {
		if !strings.HasPrefix(txt, "v=spf1") {
			continue
		}
		result.Status = StatusOK
		result.Value = txt
		switch {
		case strings.Contains(txt, "+all"):
			result.Status = StatusWarning
			result.Message = "SPF uses +all (allows any sender)"
		case strings.Contains(txt, "-all"):
			result.Message = "SPF configured with strict policy (-all); the relay must be listed"
		case strings.Contains(txt, "~all"):
			result.Message = "SPF configured with soft fail (~all)"
		}
		return result
	}

	result.Status = StatusNotFound
	result.Message = "No SPF record found (mail is likely to be rejected)"
	return result
}

// CheckDMARC checks DMARC record for a domain
func (c *Checker) CheckDMARC(ctx context.Context, domain string) CheckResult {
	result := CheckResult{Type: "DMARC Record"}

	txtRecords, err := c.resolver.LookupTXT(ctx, "_dmarc."+domain)
	if err != nil {
		return lookupFailed(result, err, "No DMARC record found")
	}

	fullRecord := strings.Join(txtRecords, "")
	result.Value = fullRecord
	if !strings.HasPrefix(fullRecord, "v=DMARC1") {
		result.Status = StatusWarning
		result.Message = "TXT record found but doesn't appear to be a valid DMARC record"
		return result
	}

	result.Status = StatusOK
	switch {
	case strings.Contains(fullRecord, "p=reject"):
		result.Message = "DMARC configured with reject policy"
	case strings.Contains(fullRecord, "p=quarantine"):
		result.Message = "DMARC configured with quarantine policy"
	case strings.Contains(fullRecord, "p=none"):
		result.Message = "DMARC configured with none policy (monitoring only)"
	}
	return result
}

func lookupFailed(result CheckResult, err error, notFound string) CheckResult {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
		result.Status = StatusNotFound
		result.Message = notFound
		return result
	}
	result.Status = StatusError
	result.Message = fmt.Sprintf("Lookup failed: %v", err)
	return result
}
