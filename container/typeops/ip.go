package typeops

import "net"

// CIDR is a lookup-table key representing either a single host or a
// network range. Equal implements CIDR-style matching: a bare host is
// equal to a CIDR entry iff it falls inside the network, folding
// IPv4-in-IPv6 and IPv6-in-IPv4 representations to a common 16-byte form
// before comparing.
type CIDR struct {
	Net *net.IPNet // nil for a single host
	IP  net.IP     // always set; the host address itself for a bare entry
}

// ParseCIDR accepts both "a.b.c.d" and "a.b.c.d/m" (or IPv6 equivalents).
func ParseCIDR(s string) (CIDR, error) {
	if ip, ipnet, err := net.ParseCIDR(s); err == nil {
		return CIDR{Net: ipnet, IP: ip}, nil
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return CIDR{}, &net.ParseError{Type: "CIDR address", Text: s}
	}
	return CIDR{IP: ip}, nil
}

func fold16(ip net.IP) net.IP {
	if v4 := ip.To4(); v4 != nil {
		return v4.To16()
	}
	return ip.To16()
}

// IPOps implements Ops[CIDR] with CIDR-aware equality: the first operand is
// treated as the pattern (possibly a network), the second as the host being
// tested, matching the spec's `ip_equal(CIDR, host)` direction.
type IPOps struct{}

func (IPOps) Dup(v CIDR) CIDR { return v }
func (IPOps) Free(CIDR)       {}
func (IPOps) Size(CIDR) int   { return net.IPv6len }

func (IPOps) Equal(pattern, host CIDR) bool {
	h := fold16(host.IP)
	if h == nil {
		return false
	}
	if pattern.Net != nil {
		return pattern.Net.Contains(h)
	}
	p := fold16(pattern.IP)
	return p != nil && p.Equal(h)
}

func (o IPOps) Compare(a, b CIDR) int {
	av, bv := fold16(a.IP), fold16(b.IP)
	switch {
	case string(av) < string(bv):
		return -1
	case string(av) > string(bv):
		return 1
	default:
		return 0
	}
}
