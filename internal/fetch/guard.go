package fetch

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

func isLocalOrPrivateHost(host string) bool {
	h := strings.Trim(strings.ToLower(strings.TrimSpace(host)), "[]")
	if h == "localhost" || strings.HasSuffix(h, ".localhost") || h == "localhost.localdomain" {
		return true
	}
	if ip := net.ParseIP(h); ip != nil {
		return isPrivateIP(ip)
	}
	return false
}

func isPrivateIP(ip net.IP) bool {
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsUnspecified()
}

// guardedTransport re-checks the resolved address at dial time so DNS names
// pointing at private ranges are refused too.
func guardedTransport(base http.RoundTripper) http.RoundTripper {
	var tr *http.Transport
	switch t := base.(type) {
	case nil:
		tr = http.DefaultTransport.(*http.Transport).Clone()
	case *http.Transport:
		tr = t.Clone()
	default:
		// custom round trippers own their dialing
		return base
	}
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return err
			}
			if ip := net.ParseIP(host); ip != nil && isPrivateIP(ip) {
				return fmt.Errorf("%w: %s", ErrBlockedHost, host)
			}
			return nil
		},
	}
	tr.DialContext = dialer.DialContext
	return tr
}
