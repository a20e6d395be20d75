package risk

import (
	"fmt"
	"net/netip"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy holds operator supplied lists used by the engine.
type Policy struct {
	HighRiskLocations []string `yaml:"high_risk_locations"`
	VPNRanges         []string `yaml:"vpn_ranges"`
	// Timezone is the IANA zone whose wall clock decides unusual hours.
	Timezone string `yaml:"timezone"`

	prefixes []netip.Prefix
	location *time.Location
}

// LoadPolicy reads a YAML policy file. An empty path yields an empty policy.
func LoadPolicy(path string) (Policy, error) {
	if strings.TrimSpace(path) == "" {
		return Policy{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read risk policy: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes and validates a YAML policy document.
func ParsePolicy(data []byte) (Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("decode risk policy: %w", err)
	}

	locations := p.HighRiskLocations[:0]
	for _, loc := range p.HighRiskLocations {
		if trimmed := strings.TrimSpace(loc); trimmed != "" {
			locations = append(locations, trimmed)
		}
	}
	p.HighRiskLocations = locations

	if tz := strings.TrimSpace(p.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Policy{}, fmt.Errorf("timezone %q: %w", tz, err)
		}
		p.Timezone = tz
		p.location = loc
	}

	for _, raw := range p.VPNRanges {
		prefix, err := netip.ParsePrefix(strings.TrimSpace(raw))
		if err != nil {
			return Policy{}, fmt.Errorf("vpn range %q: %w", raw, err)
		}
		p.prefixes = append(p.prefixes, prefix.Masked())
	}
	return p, nil
}

// Location is the zone used for the unusual hour check. UTC unless configured.
func (p Policy) Location() *time.Location {
	if p.location == nil {
		return time.UTC
	}
	return p.location
}

// HighRiskLocation reports whether location contains any configured entry.
func (p Policy) HighRiskLocation(location string) bool {
	if location == "" {
		return false
	}
	for _, entry := range p.HighRiskLocations {
		if entry != "" && strings.Contains(location, entry) {
			return true
		}
	}
	return false
}

// VPNDetector flags addresses belonging to VPN or proxy networks.
type VPNDetector interface {
	IsVPN(ip string) bool
}

// VPNDetector returns a CIDR detector for the configured ranges, or nil.
func (p Policy) VPNDetector() VPNDetector {
	if len(p.prefixes) == 0 {
		return nil
	}
	return CIDRDetector(p.prefixes)
}

// CIDRDetector matches addresses against a fixed set of networks.
type CIDRDetector []netip.Prefix

// IsVPN implements VPNDetector.
func (d CIDRDetector) IsVPN(ip string) bool {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range d {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
