package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var resolver = &net.Resolver{} // OS resolver

// resolveHost returns one address for host, preferring IPv4.
// Literal IPs are returned without a lookup.
func resolveHost(ctx context.Context, host string) (net.IP, error) {
	host = strings.TrimSpace(host)
	if ip := net.ParseIP(host); ip != nil {
		return ip, nil
	}

	ips, err := resolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s (%s): %w", host, dnsClass(err), err)
	}
	if len(ips) == 0 {
		return nil, fmt.Errorf("resolve %s (NO_A_RECORD): no addresses returned", host)
	}
	for _, ip := range ips {
		if ip.To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}

// dnsClass buckets resolver failures: "NXDOMAIN" | "SERVFAIL_or_TIMEOUT" | "ERROR".
func dnsClass(err error) string {
	var de *net.DNSError
	if errors.As(err, &de) {
		if de.IsNotFound {
			return "NXDOMAIN"
		}
		if de.IsTemporary || de.Timeout() {
			return "SERVFAIL_or_TIMEOUT"
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "SERVFAIL_or_TIMEOUT"
	}
	return "ERROR"
}
