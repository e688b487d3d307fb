package linkcheck

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

var errBlockedAddress = errors.New("request to private/reserved network address is not allowed")

// publicOnly refuses everything outside globally routable unicast space,
// including the special-purpose ranges netip does not classify.
var publicOnly = dialPolicy{deny: []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"),   // RFC 6598 shared address space
	netip.MustParsePrefix("192.0.0.0/24"),    // RFC 6890
	netip.MustParsePrefix("192.0.2.0/24"),    // RFC 5737 documentation
	netip.MustParsePrefix("198.18.0.0/15"),   // RFC 2544 benchmarking
	netip.MustParsePrefix("198.51.100.0/24"), // RFC 5737 documentation
	netip.MustParsePrefix("203.0.113.0/24"),  // RFC 5737 documentation
}}

// dialPolicy decides which resolved addresses the link checker may connect to.
type dialPolicy struct {
	deny []netip.Prefix
}

// permits reports whether addr is a public unicast address outside deny.
func (p dialPolicy) permits(addr netip.Addr) bool {
	addr = addr.Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() {
		return false
	}
	for _, prefix := range p.deny {
		if prefix.Contains(addr) {
			return false
		}
	}
	return true
}

// control is a net.Dialer Control hook. It sees the address after DNS
// resolution, so a host name cannot be rebound to an internal address.
func (p dialPolicy) control(network, address string, _ syscall.RawConn) error {
	addrPort, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s %q: %w", errBlockedAddress, network, address, err)
	}
	if !p.permits(addrPort.Addr()) {
		return fmt.Errorf("%w: %s %s", errBlockedAddress, network, addrPort.Addr())
	}
	return nil
}

// newTransport builds the transport used by the page fetcher and the link
// checker. blockPrivate restricts dials to public addresses; content sites
// checked from inside their own network leave it off.
func newTransport(blockPrivate bool, maxConnsPerHost int) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	if blockPrivate {
		dialer.Control = publicOnly.control
	}

	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		MaxConnsPerHost:     maxConnsPerHost,
		MaxIdleConnsPerHost: maxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
}
