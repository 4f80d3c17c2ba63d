// Package safeurl vets URLs before a browser is pointed at them: only http
// and https, a host is required, and private or loopback destinations are
// refused unless explicitly allowed (SSRF prevention).
package safeurl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"net/url"
	"strings"
)

// ErrRejected is wrapped by every refusal.
var ErrRejected = errors.New("safeurl: url rejected")

var (
	ErrUnsafeScheme = fmt.Errorf("%w: only http and https schemes are allowed", ErrRejected)
	ErrNoHost       = fmt.Errorf("%w: no host", ErrRejected)
	ErrPrivate      = fmt.Errorf("%w: targets a private or loopback address", ErrRejected)
)

var privateRanges = []netip.Prefix{
	netip.MustParsePrefix("10.0.0.0/8"),
	netip.MustParsePrefix("172.16.0.0/12"),
	netip.MustParsePrefix("192.168.0.0/16"),
	netip.MustParsePrefix("100.64.0.0/10"),
	netip.MustParsePrefix("169.254.0.0/16"),
	netip.MustParsePrefix("fc00::/7"),
}

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Guard checks URLs. The zero value refuses private destinations and
// resolves names with net.DefaultResolver.
type Guard struct {
	AllowPrivate bool
	Resolver     Resolver
}

// Check parses raw and returns it if it may be visited.
//
// Names are resolved so internal hostnames are caught. A failed lookup is
// let through: navigation will fail on its own.
func (g *Guard) Check(ctx context.Context, raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRejected, err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, ErrUnsafeScheme
	}
	host := u.Hostname()
	if host == "" {
		return nil, ErrNoHost
	}
	if g.AllowPrivate {
		return u, nil
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		if IsPrivate(addr) {
			return nil, ErrPrivate
		}
		return u, nil
	}
	if strings.EqualFold(host, "localhost") || strings.HasSuffix(strings.ToLower(host), ".localhost") {
		return nil, ErrPrivate
	}

	r := g.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	addrs, err := r.LookupHost(ctx, host)
	if err != nil {
		return u, nil
	}
	for _, a := range addrs {
		if addr, err := netip.ParseAddr(a); err == nil && IsPrivate(addr) {
			return nil, fmt.Errorf("%w (%s resolves to %s)", ErrPrivate, host, a)
		}
	}
	return u, nil
}

// IsPrivate reports whether addr is loopback, link-local, unspecified or in
// a private range.
func IsPrivate(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsUnspecified() {
		return true
	}
	for _, p := range privateRanges {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
